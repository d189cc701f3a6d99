/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists every caller-owned financial record and serves whole-collection
  snapshots to the calculators. The calculators never query the database;
  handlers load a Snapshot and pass it in.

INTERFACES IMPLEMENTED:
  generic.SnapshotSource: Whole-collection reads plus the version counter
  generic.Recorder:       Validated writes
  generic.Store:          Both, plus Close

KEY TABLES:
  ledger_entries:       Predicted/realized account movements
  card_purchases:       Individual credit-card purchases
  cards:                Card configuration (closing day)
  invoices:             Issued invoices with retentions
  sharing_modes:        Named splits
  tax_payments:         What was paid, PRIMARY KEY (tax_kind, period)
  legacy_tax_payments:  Free-form keyed payments awaiting migration
  budget_targets:       PRIMARY KEY (year, month, group_id, category, flow)
  tags:                 Category universe
  store_version:        Single-row write counter

VERSIONING:
  Every write increments store_version in the same SQL transaction as the
  write itself. Version() is what report memoisation keys on.

MONEY:
  Decimals are stored as TEXT to keep exact values.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Snapshot reads run in a single
  read transaction so every collection is taken at the same version.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/finance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  snap, _ := store.Snapshot(ctx)
  report := tax.CalculateTaxReport(snap.Invoices, 2025)

MIGRATION:
  Schema is auto-migrated on New(). Legacy payment ids are rewritten by
  MigrateLegacyPayments, which the server runs once at startup.

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/finance-engine/generic"
	"github.com/warp/finance-engine/tax"
)

// Store implements generic.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives in one connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS store_version (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO store_version (id, version) VALUES (1, 0);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		value TEXT NOT NULL,
		expected_date TEXT NOT NULL DEFAULT '',
		realized_date TEXT NOT NULL DEFAULT '',
		realized BOOLEAN NOT NULL DEFAULT FALSE,
		account_id TEXT NOT NULL DEFAULT '',
		group_id TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		shared BOOLEAN NOT NULL DEFAULT FALSE,
		payer TEXT NOT NULL DEFAULT '',
		mode_id TEXT NOT NULL DEFAULT '',
		custom_a TEXT,
		custom_b TEXT,
		source TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_group
		ON ledger_entries(group_id, category);

	CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		closing_day INTEGER NOT NULL CHECK (closing_day BETWEEN 1 AND 31),
		group_id TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS card_purchases (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		value TEXT NOT NULL,
		purchase_date TEXT NOT NULL DEFAULT '',
		invoice_period TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		card_id TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_card_purchases_card
		ON card_purchases(card_id);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL DEFAULT '',
		client TEXT NOT NULL DEFAULT '',
		gross_value TEXT NOT NULL,
		issue_date TEXT NOT NULL DEFAULT '',
		retained_json TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'issued',
		taxable BOOLEAN NOT NULL DEFAULT TRUE,
		group_id TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS sharing_modes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		party_a TEXT NOT NULL,
		party_b TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tax_payments (
		tax_kind TEXT NOT NULL,
		period TEXT NOT NULL,
		amount TEXT NOT NULL,
		paid_on TEXT NOT NULL DEFAULT '',
		legacy_id TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (tax_kind, period)
	);

	CREATE TABLE IF NOT EXISTS legacy_tax_payments (
		id TEXT PRIMARY KEY,
		amount TEXT NOT NULL,
		paid_on TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS budget_targets (
		year INTEGER NOT NULL,
		month INTEGER NOT NULL CHECK (month BETWEEN 0 AND 11),
		group_id TEXT NOT NULL,
		category TEXT NOT NULL,
		flow TEXT NOT NULL CHECK (flow IN ('income', 'expense')),
		target TEXT NOT NULL,
		PRIMARY KEY (year, month, group_id, category, flow)
	);

	CREATE TABLE IF NOT EXISTS tags (
		name TEXT PRIMARY KEY,
		flow TEXT NOT NULL DEFAULT ''
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// VERSIONING
// =============================================================================

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Version returns the current write counter.
func (s *Store) Version(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readVersion(ctx, s.db)
}

func readVersion(ctx context.Context, q querier) (uint64, error) {
	var v uint64
	if err := q.QueryRowContext(ctx, "SELECT version FROM store_version WHERE id = 1").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read version: %w", err)
	}
	return v, nil
}

// write runs fn in a transaction and bumps the version on success.
func (s *Store) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE store_version SET version = version + 1 WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to bump version: %w", err)
	}
	return tx.Commit()
}

// =============================================================================
// RECORDER (generic.Recorder interface)
// =============================================================================

// SaveEntry upserts a ledger entry. A missing id is generated.
func (s *Store) SaveEntry(ctx context.Context, e generic.LedgerEntry) (generic.LedgerEntry, error) {
	if e.Custom != nil {
		if err := e.Custom.Validate(); err != nil {
			return e, err
		}
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	var customA, customB sql.NullString
	if e.Custom != nil {
		customA = sql.NullString{String: e.Custom.PartyA.String(), Valid: true}
		customB = sql.NullString{String: e.Custom.PartyB.String(), Valid: true}
	}

	err := s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_entries
			(id, description, value, expected_date, realized_date, realized, account_id,
			 group_id, category, shared, payer, mode_id, custom_a, custom_b, source)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				description = excluded.description, value = excluded.value,
				expected_date = excluded.expected_date, realized_date = excluded.realized_date,
				realized = excluded.realized, account_id = excluded.account_id,
				group_id = excluded.group_id, category = excluded.category,
				shared = excluded.shared, payer = excluded.payer, mode_id = excluded.mode_id,
				custom_a = excluded.custom_a, custom_b = excluded.custom_b, source = excluded.source
		`,
			e.ID, e.Description, e.Value.String(), e.ExpectedDate, e.RealizedDate, e.Realized,
			e.AccountID, string(e.GroupID), e.Category, e.Shared, e.Payer, string(e.ModeID),
			customA, customB, string(e.Source),
		)
		if err != nil {
			return fmt.Errorf("failed to save ledger entry: %w", err)
		}
		return nil
	})
	return e, err
}

// SavePurchase upserts a card purchase. A missing id is generated.
func (s *Store) SavePurchase(ctx context.Context, p generic.CardPurchase) (generic.CardPurchase, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	err := s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO card_purchases (id, description, value, purchase_date, invoice_period, category, card_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				description = excluded.description, value = excluded.value,
				purchase_date = excluded.purchase_date, invoice_period = excluded.invoice_period,
				category = excluded.category, card_id = excluded.card_id
		`, p.ID, p.Description, p.Value.String(), p.PurchaseDate, p.InvoicePeriod, p.Category, string(p.CardID))
		if err != nil {
			return fmt.Errorf("failed to save card purchase: %w", err)
		}
		return nil
	})
	return p, err
}

// SaveCard upserts a card after validating its closing day.
func (s *Store) SaveCard(ctx context.Context, c generic.Card) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cards (id, name, closing_day, group_id) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, closing_day = excluded.closing_day, group_id = excluded.group_id
		`, string(c.ID), c.Name, c.ClosingDay, string(c.GroupID))
		if err != nil {
			return fmt.Errorf("failed to save card: %w", err)
		}
		return nil
	})
}

// SaveInvoice upserts an invoice. A missing id is generated.
func (s *Store) SaveInvoice(ctx context.Context, inv generic.Invoice) (generic.Invoice, error) {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.Status == "" {
		inv.Status = generic.InvoiceIssued
	}
	retained, err := json.Marshal(inv.Retained)
	if err != nil {
		return inv, fmt.Errorf("failed to encode retentions: %w", err)
	}

	err = s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO invoices
			(id, number, client, gross_value, issue_date, retained_json, status, taxable, group_id, category)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				number = excluded.number, client = excluded.client,
				gross_value = excluded.gross_value, issue_date = excluded.issue_date,
				retained_json = excluded.retained_json, status = excluded.status,
				taxable = excluded.taxable, group_id = excluded.group_id, category = excluded.category
		`,
			inv.ID, inv.Number, inv.Client, inv.GrossValue.String(), inv.IssueDate, string(retained),
			string(inv.Status), inv.Taxable, string(inv.GroupID), inv.Category,
		)
		if err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}
		return nil
	})
	return inv, err
}

// SaveSharingMode upserts a sharing mode after validating its split.
func (s *Store) SaveSharingMode(ctx context.Context, m generic.SharingMode) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sharing_modes (id, name, party_a, party_b) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, party_a = excluded.party_a, party_b = excluded.party_b
		`, string(m.ID), m.Name, m.PartyA.String(), m.PartyB.String())
		if err != nil {
			return fmt.Errorf("failed to save sharing mode: %w", err)
		}
		return nil
	})
}

// SaveTag upserts a tag.
func (s *Store) SaveTag(ctx context.Context, t generic.Tag) error {
	if t.Flow != "" && !t.Flow.Valid() {
		return fmt.Errorf("%w: flow %q", generic.ErrInvalidPeriod, t.Flow)
	}
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tags (name, flow) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET flow = excluded.flow
		`, t.Name, string(t.Flow))
		if err != nil {
			return fmt.Errorf("failed to save tag: %w", err)
		}
		return nil
	})
}

// SavePayment upserts a payment by (Kind, Period). A payment without that
// identity is stored as a legacy record keyed by its LegacyID.
func (s *Store) SavePayment(ctx context.Context, p generic.TaxPayment) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		if p.Kind == "" || p.Period.IsZero() {
			if p.LegacyID == "" {
				return fmt.Errorf("%w: payment needs a tax kind and period", generic.ErrInvalidPeriod)
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO legacy_tax_payments (id, amount, paid_on) VALUES (?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET amount = excluded.amount, paid_on = excluded.paid_on
			`, p.LegacyID, p.Amount.String(), p.PaidOn.String())
			if err != nil {
				return fmt.Errorf("failed to save legacy payment: %w", err)
			}
			return nil
		}
		return upsertPayment(ctx, tx, p)
	})
}

func upsertPayment(ctx context.Context, tx *sql.Tx, p generic.TaxPayment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tax_payments (tax_kind, period, amount, paid_on, legacy_id) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tax_kind, period) DO UPDATE SET
			amount = excluded.amount, paid_on = excluded.paid_on, legacy_id = excluded.legacy_id
	`, string(p.Kind), p.Period.String(), p.Amount.String(), p.PaidOn.String(), p.LegacyID)
	if err != nil {
		return fmt.Errorf("failed to save tax payment: %w", err)
	}
	return nil
}

// SaveTarget upserts a budget target by its cell.
func (s *Store) SaveTarget(ctx context.Context, t generic.BudgetTarget) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO budget_targets (year, month, group_id, category, flow, target) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(year, month, group_id, category, flow) DO UPDATE SET target = excluded.target
		`, t.Year, t.Month0, string(t.GroupID), t.Category, string(t.Flow), t.Target.String())
		if err != nil {
			return fmt.Errorf("failed to save budget target: %w", err)
		}
		return nil
	})
}

// =============================================================================
// MIGRATION
// =============================================================================

// MigrationResult counts what MigrateLegacyPayments did.
type MigrationResult struct {
	Migrated   int // legacy rows moved to tax_payments
	Superseded int // legacy rows dropped because a keyed row already existed
	Unparsed   []string
}

// MigrateLegacyPayments rewrites free-form payment ids into the
// deterministic (tax_kind, period) identity. Keyed rows always win over
// legacy rows. Ids that cannot be parsed are left in place and reported.
// Running it again leaves the data unchanged.
func (s *Store) MigrateLegacyPayments(ctx context.Context) (MigrationResult, error) {
	var res MigrationResult

	err := s.write(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, "SELECT id, amount, paid_on FROM legacy_tax_payments ORDER BY id")
		if err != nil {
			return fmt.Errorf("failed to query legacy payments: %w", err)
		}
		var legacy []generic.TaxPayment
		for rows.Next() {
			var id, amount, paidOn string
			if err := rows.Scan(&id, &amount, &paidOn); err != nil {
				rows.Close()
				return err
			}
			p, err := buildPayment("", "", amount, paidOn, id)
			if err != nil {
				rows.Close()
				return err
			}
			legacy = append(legacy, p)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, p := range legacy {
			np, ok := tax.Normalize(p)
			if !ok {
				res.Unparsed = append(res.Unparsed, p.LegacyID)
				continue
			}
			var exists int
			err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM tax_payments WHERE tax_kind = ? AND period = ?",
				string(np.Kind), np.Period.String(),
			).Scan(&exists)
			if err != nil {
				return err
			}
			if exists > 0 {
				res.Superseded++
			} else {
				if err := upsertPayment(ctx, tx, np); err != nil {
					return err
				}
				res.Migrated++
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM legacy_tax_payments WHERE id = ?", p.LegacyID); err != nil {
				return fmt.Errorf("failed to delete legacy payment: %w", err)
			}
		}
		return nil
	})
	return res, err
}

// =============================================================================
// SNAPSHOT (generic.SnapshotSource interface)
// =============================================================================

// Snapshot reads every collection inside one read transaction.
func (s *Store) Snapshot(ctx context.Context) (generic.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return generic.Snapshot{}, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()

	var snap generic.Snapshot
	if snap.Version, err = readVersion(ctx, tx); err != nil {
		return snap, err
	}

	loaders := []func(context.Context, querier, *generic.Snapshot) error{
		loadEntries, loadPurchases, loadCards, loadInvoices,
		loadSharingModes, loadPayments, loadTargets, loadTags,
	}
	for _, load := range loaders {
		if err := load(ctx, tx, &snap); err != nil {
			return generic.Snapshot{}, err
		}
	}
	return snap, nil
}

func loadEntries(ctx context.Context, q querier, snap *generic.Snapshot) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, description, value, expected_date, realized_date, realized, account_id,
		       group_id, category, shared, payer, mode_id, custom_a, custom_b, source
		FROM ledger_entries ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e generic.LedgerEntry
		var value, group, mode, source string
		var customA, customB sql.NullString
		if err := rows.Scan(&e.ID, &e.Description, &value, &e.ExpectedDate, &e.RealizedDate, &e.Realized,
			&e.AccountID, &group, &e.Category, &e.Shared, &e.Payer, &mode, &customA, &customB, &source); err != nil {
			return err
		}
		if e.Value, err = parseDecimal(value); err != nil {
			return err
		}
		e.GroupID = generic.GroupID(group)
		e.ModeID = generic.SharingModeID(mode)
		e.Source = generic.EntrySource(source)
		if customA.Valid && customB.Valid {
			a, err := parseDecimal(customA.String)
			if err != nil {
				return err
			}
			b, err := parseDecimal(customB.String)
			if err != nil {
				return err
			}
			e.Custom = &generic.CustomSplit{PartyA: a, PartyB: b}
		}
		snap.Entries = append(snap.Entries, e)
	}
	return rows.Err()
}

func loadPurchases(ctx context.Context, q querier, snap *generic.Snapshot) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, description, value, purchase_date, invoice_period, category, card_id
		FROM card_purchases ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("failed to query card purchases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p generic.CardPurchase
		var value, card string
		if err := rows.Scan(&p.ID, &p.Description, &value, &p.PurchaseDate, &p.InvoicePeriod, &p.Category, &card); err != nil {
			return err
		}
		if p.Value, err = parseDecimal(value); err != nil {
			return err
		}
		p.CardID = generic.CardID(card)
		snap.Purchases = append(snap.Purchases, p)
	}
	return rows.Err()
}

func loadCards(ctx context.Context, q querier, snap *generic.Snapshot) error {
	rows, err := q.QueryContext(ctx, "SELECT id, name, closing_day, group_id FROM cards ORDER BY id")
	if err != nil {
		return fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c generic.Card
		var id, group string
		if err := rows.Scan(&id, &c.Name, &c.ClosingDay, &group); err != nil {
			return err
		}
		c.ID, c.GroupID = generic.CardID(id), generic.GroupID(group)
		snap.Cards = append(snap.Cards, c)
	}
	return rows.Err()
}

func loadInvoices(ctx context.Context, q querier, snap *generic.Snapshot) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, number, client, gross_value, issue_date, retained_json, status, taxable, group_id, category
		FROM invoices ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var inv generic.Invoice
		var gross, retained, status, group string
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.Client, &gross, &inv.IssueDate, &retained,
			&status, &inv.Taxable, &group, &inv.Category); err != nil {
			return err
		}
		if inv.GrossValue, err = parseDecimal(gross); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(retained), &inv.Retained); err != nil {
			return fmt.Errorf("invoice %s: bad retentions: %w", inv.ID, err)
		}
		inv.Status = generic.InvoiceStatus(status)
		inv.GroupID = generic.GroupID(group)
		snap.Invoices = append(snap.Invoices, inv)
	}
	return rows.Err()
}

func loadSharingModes(ctx context.Context, q querier, snap *generic.Snapshot) error {
	rows, err := q.QueryContext(ctx, "SELECT id, name, party_a, party_b FROM sharing_modes ORDER BY id")
	if err != nil {
		return fmt.Errorf("failed to query sharing modes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m generic.SharingMode
		var id, a, b string
		if err := rows.Scan(&id, &m.Name, &a, &b); err != nil {
			return err
		}
		m.ID = generic.SharingModeID(id)
		if m.PartyA, err = parseDecimal(a); err != nil {
			return err
		}
		if m.PartyB, err = parseDecimal(b); err != nil {
			return err
		}
		snap.SharingModes = append(snap.SharingModes, m)
	}
	return rows.Err()
}

// loadPayments returns keyed payments ordered by (period, kind), followed by
// any legacy rows not yet migrated.
func loadPayments(ctx context.Context, q querier, snap *generic.Snapshot) error {
	rows, err := q.QueryContext(ctx, `
		SELECT tax_kind, period, amount, paid_on, legacy_id FROM tax_payments
		UNION ALL
		SELECT '', '', amount, paid_on, id FROM legacy_tax_payments
		ORDER BY 2, 1, 5
	`)
	if err != nil {
		return fmt.Errorf("failed to query tax payments: %w", err)
	}
	defer rows.Close()

	var keyed, legacy []generic.TaxPayment
	for rows.Next() {
		var kind, period, amount, paidOn, legacyID string
		if err := rows.Scan(&kind, &period, &amount, &paidOn, &legacyID); err != nil {
			return err
		}
		p, err := buildPayment(kind, period, amount, paidOn, legacyID)
		if err != nil {
			return err
		}
		if kind == "" {
			legacy = append(legacy, p)
		} else {
			keyed = append(keyed, p)
		}
	}
	snap.Payments = append(keyed, legacy...)
	return rows.Err()
}

func loadTargets(ctx context.Context, q querier, snap *generic.Snapshot) error {
	rows, err := q.QueryContext(ctx, `
		SELECT year, month, group_id, category, flow, target FROM budget_targets
		ORDER BY year, month, group_id, category, flow
	`)
	if err != nil {
		return fmt.Errorf("failed to query budget targets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t generic.BudgetTarget
		var group, flow, target string
		if err := rows.Scan(&t.Year, &t.Month0, &group, &t.Category, &flow, &target); err != nil {
			return err
		}
		t.GroupID, t.Flow = generic.GroupID(group), generic.Flow(flow)
		if t.Target, err = parseDecimal(target); err != nil {
			return err
		}
		snap.Targets = append(snap.Targets, t)
	}
	return rows.Err()
}

func loadTags(ctx context.Context, q querier, snap *generic.Snapshot) error {
	rows, err := q.QueryContext(ctx, "SELECT name, flow FROM tags ORDER BY name")
	if err != nil {
		return fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t generic.Tag
		var flow string
		if err := rows.Scan(&t.Name, &flow); err != nil {
			return err
		}
		t.Flow = generic.Flow(flow)
		snap.Tags = append(snap.Tags, t)
	}
	return rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo). The version keeps increasing.
func (s *Store) Reset(ctx context.Context) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		tables := []string{
			"ledger_entries", "card_purchases", "cards", "invoices", "sharing_modes",
			"tax_payments", "legacy_tax_payments", "budget_targets", "tags",
		}
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return err
			}
		}
		return nil
	})
}

func buildPayment(kind, period, amount, paidOn, legacyID string) (generic.TaxPayment, error) {
	p := generic.TaxPayment{LegacyID: legacyID, Kind: generic.TaxKind(kind)}
	var err error
	if period != "" {
		if p.Period, err = generic.ParseMonthKey(period); err != nil {
			return p, err
		}
	}
	if p.Amount, err = parseDecimal(amount); err != nil {
		return p, err
	}
	if paidOn != "" {
		if p.PaidOn, err = generic.ParseDate(paidOn); err != nil {
			return p, err
		}
	}
	return p, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("stored value %q is not a decimal: %w", s, err)
	}
	return d, nil
}
