/*
store.go - Snapshot source interface

PURPOSE:
  Defines the interface between the calculators' callers and whatever holds
  the financial records. The calculators never read from a store; callers
  load whole-collection snapshots through SnapshotSource and pass them in.

KEY INTERFACES:
  SnapshotSource: Whole-collection reads plus a version counter
  Recorder:       Writes of caller-owned records (validated at this boundary)

VERSIONING:
  Version() increases on every write. Callers memoise derived reports on
  (version, year, filters) and never maintain aggregates incrementally.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - cache.go: Memo keyed by version
*/
package generic

import "context"

// =============================================================================
// SNAPSHOT - Everything the calculators consume
// =============================================================================

// Snapshot is an immutable view of every record collection.
type Snapshot struct {
	Version      uint64
	Entries      []LedgerEntry
	Purchases    []CardPurchase
	Cards        []Card
	Invoices     []Invoice
	Payments     []TaxPayment
	Targets      []BudgetTarget
	Tags         []Tag
	SharingModes []SharingMode
}

// CardIndex indexes cards by id.
func (s Snapshot) CardIndex() map[CardID]Card {
	idx := make(map[CardID]Card, len(s.Cards))
	for _, c := range s.Cards {
		idx[c.ID] = c
	}
	return idx
}

// =============================================================================
// SNAPSHOT SOURCE
// =============================================================================

type SnapshotSource interface {
	// Snapshot returns all collections at a single version.
	Snapshot(ctx context.Context) (Snapshot, error)

	// Version returns the current write counter.
	Version(ctx context.Context) (uint64, error)
}

// Recorder persists records. Implementations validate invariants here
// (split sums, closing days, target cells), never at read time.
type Recorder interface {
	SaveEntry(ctx context.Context, e LedgerEntry) (LedgerEntry, error)
	SavePurchase(ctx context.Context, p CardPurchase) (CardPurchase, error)
	SaveCard(ctx context.Context, c Card) error
	SaveInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	SaveSharingMode(ctx context.Context, m SharingMode) error
	SaveTag(ctx context.Context, t Tag) error

	// SavePayment upserts by (Kind, Period).
	SavePayment(ctx context.Context, p TaxPayment) error

	// SaveTarget upserts by (Year, Month0, GroupID, Category, Flow).
	SaveTarget(ctx context.Context, t BudgetTarget) error
}

// Store is a full read/write backend.
type Store interface {
	SnapshotSource
	Recorder
	Close() error
}
