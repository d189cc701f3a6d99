// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/finance-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	version uint64

	entries   map[string]generic.LedgerEntry
	purchases map[string]generic.CardPurchase
	cards     map[generic.CardID]generic.Card
	invoices  map[string]generic.Invoice
	modes     map[generic.SharingModeID]generic.SharingMode
	tags      map[string]generic.Tag
	payments  map[paymentKey]generic.TaxPayment
	legacy    map[string]generic.TaxPayment
	targets   map[targetKey]generic.BudgetTarget
}

type paymentKey struct {
	Kind   generic.TaxKind
	Period generic.MonthKey
}

type targetKey struct {
	Year     int
	Month0   int
	GroupID  generic.GroupID
	Category string
	Flow     generic.Flow
}

var _ generic.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		entries:   make(map[string]generic.LedgerEntry),
		purchases: make(map[string]generic.CardPurchase),
		cards:     make(map[generic.CardID]generic.Card),
		invoices:  make(map[string]generic.Invoice),
		modes:     make(map[generic.SharingModeID]generic.SharingMode),
		tags:      make(map[string]generic.Tag),
		payments:  make(map[paymentKey]generic.TaxPayment),
		legacy:    make(map[string]generic.TaxPayment),
		targets:   make(map[targetKey]generic.BudgetTarget),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Version(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version, nil
}

// Snapshot copies every collection. Slices are sorted by id (or key) so two
// snapshots of the same data are identical.
func (m *Memory) Snapshot(_ context.Context) (generic.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := generic.Snapshot{Version: m.version}
	for _, e := range m.entries {
		s.Entries = append(s.Entries, e)
	}
	sort.Slice(s.Entries, func(i, j int) bool { return s.Entries[i].ID < s.Entries[j].ID })

	for _, p := range m.purchases {
		s.Purchases = append(s.Purchases, p)
	}
	sort.Slice(s.Purchases, func(i, j int) bool { return s.Purchases[i].ID < s.Purchases[j].ID })

	for _, c := range m.cards {
		s.Cards = append(s.Cards, c)
	}
	sort.Slice(s.Cards, func(i, j int) bool { return s.Cards[i].ID < s.Cards[j].ID })

	for _, inv := range m.invoices {
		s.Invoices = append(s.Invoices, inv)
	}
	sort.Slice(s.Invoices, func(i, j int) bool { return s.Invoices[i].ID < s.Invoices[j].ID })

	for _, md := range m.modes {
		s.SharingModes = append(s.SharingModes, md)
	}
	sort.Slice(s.SharingModes, func(i, j int) bool { return s.SharingModes[i].ID < s.SharingModes[j].ID })

	for _, t := range m.tags {
		s.Tags = append(s.Tags, t)
	}
	sort.Slice(s.Tags, func(i, j int) bool { return s.Tags[i].Name < s.Tags[j].Name })

	for _, p := range m.payments {
		s.Payments = append(s.Payments, p)
	}
	sort.Slice(s.Payments, func(i, j int) bool {
		a, b := s.Payments[i], s.Payments[j]
		if a.Period != b.Period {
			return a.Period.Before(b.Period)
		}
		return a.Kind < b.Kind
	})
	var legacy []generic.TaxPayment
	for _, p := range m.legacy {
		legacy = append(legacy, p)
	}
	sort.Slice(legacy, func(i, j int) bool { return legacy[i].LegacyID < legacy[j].LegacyID })
	s.Payments = append(s.Payments, legacy...)

	for _, t := range m.targets {
		s.Targets = append(s.Targets, t)
	}
	sort.Slice(s.Targets, func(i, j int) bool {
		a, b := s.Targets[i], s.Targets[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month0 != b.Month0 {
			return a.Month0 < b.Month0
		}
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Flow < b.Flow
	})
	return s, nil
}

func (m *Memory) SaveEntry(_ context.Context, e generic.LedgerEntry) (generic.LedgerEntry, error) {
	if e.Custom != nil {
		if err := e.Custom.Validate(); err != nil {
			return e, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	m.entries[e.ID] = e
	m.version++
	return e, nil
}

func (m *Memory) SavePurchase(_ context.Context, p generic.CardPurchase) (generic.CardPurchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	m.purchases[p.ID] = p
	m.version++
	return p, nil
}

func (m *Memory) SaveCard(_ context.Context, c generic.Card) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[c.ID] = c
	m.version++
	return nil
}

func (m *Memory) SaveInvoice(_ context.Context, inv generic.Invoice) (generic.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	m.invoices[inv.ID] = inv
	m.version++
	return inv, nil
}

func (m *Memory) SaveSharingMode(_ context.Context, md generic.SharingMode) error {
	if err := md.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modes[md.ID] = md
	m.version++
	return nil
}

func (m *Memory) SaveTag(_ context.Context, t generic.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[t.Name] = t
	m.version++
	return nil
}

// SavePayment upserts by (Kind, Period). Payments without that identity are
// kept by LegacyID until the calculators recover it.
func (m *Memory) SavePayment(_ context.Context, p generic.TaxPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Kind == "" || p.Period.IsZero() {
		if p.LegacyID == "" {
			return fmt.Errorf("%w: payment needs a tax kind and period", generic.ErrInvalidPeriod)
		}
		m.legacy[p.LegacyID] = p
		m.version++
		return nil
	}
	m.payments[paymentKey{Kind: p.Kind, Period: p.Period}] = p
	m.version++
	return nil
}

func (m *Memory) SaveTarget(_ context.Context, t generic.BudgetTarget) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets[targetKey{Year: t.Year, Month0: t.Month0, GroupID: t.GroupID, Category: t.Category, Flow: t.Flow}] = t
	m.version++
	return nil
}

// Reset clears every collection. The version keeps counting so cached
// reports from before the reset are never served.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version++
	m.entries = make(map[string]generic.LedgerEntry)
	m.purchases = make(map[string]generic.CardPurchase)
	m.cards = make(map[generic.CardID]generic.Card)
	m.invoices = make(map[string]generic.Invoice)
	m.modes = make(map[generic.SharingModeID]generic.SharingMode)
	m.tags = make(map[string]generic.Tag)
	m.payments = make(map[paymentKey]generic.TaxPayment)
	m.legacy = make(map[string]generic.TaxPayment)
	m.targets = make(map[targetKey]generic.BudgetTarget)
	return nil
}
