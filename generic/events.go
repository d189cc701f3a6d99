package generic

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER ENTRY - A predicted or realized account movement
// =============================================================================

// EntrySource tells where a ledger entry came from.
type EntrySource string

const (
	SourceManual EntrySource = ""
	// SourceStatement marks entries produced by splitting a card statement.
	// Their purchases are already counted individually by budgets.
	SourceStatement EntrySource = "statement"
)

type LedgerEntry struct {
	ID          string
	Description string

	// Value is signed: positive = income, negative = expense.
	Value decimal.Decimal

	ExpectedDate string // YYYY-MM-DD or DD/MM/YYYY, may be empty
	RealizedDate string
	Realized     bool

	AccountID string
	GroupID   GroupID
	Category  string

	// Shared-expense fields.
	Shared bool
	Payer  string
	ModeID SharingModeID
	Custom *CustomSplit

	Source EntrySource
}

// EffectiveDate is the realized date for realized entries and the expected
// date otherwise.
func (e LedgerEntry) EffectiveDate() string {
	if e.Realized && e.RealizedDate != "" {
		return e.RealizedDate
	}
	return e.ExpectedDate
}

// =============================================================================
// CARDS
// =============================================================================

type Card struct {
	ID         CardID
	Name       string
	ClosingDay int
	GroupID    GroupID
}

func (c Card) Validate() error {
	return ValidateClosingDay(c.ClosingDay)
}

type CardPurchase struct {
	ID           string
	Description  string
	Value        decimal.Decimal
	PurchaseDate string
	// InvoicePeriod overrides the billing period ("YYYY-MM").
	InvoicePeriod string
	Category      string
	CardID        CardID
}

// BillingMonth resolves the statement month of a purchase. The invoice
// override wins; otherwise the card's closing day applies, and without a
// known card the calendar month is used. Returns NoMonth when no date
// can be resolved.
func (p CardPurchase) BillingMonth(card *Card) MonthKey {
	if p.InvoicePeriod != "" {
		if k, err := ParseMonthKey(p.InvoicePeriod); err == nil {
			return k
		}
		if k, err := ResolveCalendarPeriod(p.InvoicePeriod); err == nil && !k.IsZero() {
			return k
		}
	}
	d, err := ParseDate(p.PurchaseDate)
	if err != nil || d.IsZero() {
		return NoMonth
	}
	if card != nil && ValidateClosingDay(card.ClosingDay) == nil {
		return BillingPeriodFor(d, card.ClosingDay)
	}
	return d.MonthKey()
}

// =============================================================================
// INVOICES AND TAXES
// =============================================================================

// TaxKind enumerates the taxes computed on invoices.
type TaxKind string

const (
	TaxISS    TaxKind = "ISS"
	TaxPIS    TaxKind = "PIS"
	TaxCOFINS TaxKind = "COFINS"
	TaxIRPJ   TaxKind = "IRPJ"
	TaxCSLL   TaxKind = "CSLL"
)

// TaxKinds lists every kind in report order.
var TaxKinds = []TaxKind{TaxISS, TaxPIS, TaxCOFINS, TaxIRPJ, TaxCSLL}

// ParseTaxKind accepts any letter case.
func ParseTaxKind(s string) (TaxKind, error) {
	k := TaxKind(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range TaxKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTaxKind, s)
}

// Quarterly reports whether the tax is assessed per quarter.
func (k TaxKind) Quarterly() bool {
	return k == TaxIRPJ || k == TaxCSLL
}

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceIssued    InvoiceStatus = "issued"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// RetainedTaxes holds the amounts withheld at source, as imported.
type RetainedTaxes struct {
	ISS    LooseDecimal
	PIS    LooseDecimal
	COFINS LooseDecimal
	IRPJ   LooseDecimal
	// IRRF is the legacy name of the IRPJ retention.
	IRRF LooseDecimal
	CSLL LooseDecimal
}

// For returns the coerced retention of a tax kind. IRPJ falls back to the
// legacy IRRF field when IRPJ is absent or zero.
func (r RetainedTaxes) For(kind TaxKind) decimal.Decimal {
	switch kind {
	case TaxISS:
		return r.ISS.Decimal()
	case TaxPIS:
		return r.PIS.Decimal()
	case TaxCOFINS:
		return r.COFINS.Decimal()
	case TaxIRPJ:
		if v := r.IRPJ.Decimal(); !v.IsZero() {
			return v
		}
		return r.IRRF.Decimal()
	case TaxCSLL:
		return r.CSLL.Decimal()
	}
	return decimal.Zero
}

type Invoice struct {
	ID         string
	Number     string
	Client     string
	GrossValue decimal.Decimal
	IssueDate  string
	Retained   RetainedTaxes
	Status     InvoiceStatus
	Taxable    bool
	GroupID    GroupID
	Category   string
}

// CountsForTax reports whether the invoice contributes to tax revenue.
func (inv Invoice) CountsForTax() bool {
	return inv.Taxable && inv.Status != InvoiceCancelled
}

// TaxPayment is the caller-owned record of what was actually paid for a tax
// in a period. Its identity is (Kind, Period).
type TaxPayment struct {
	// LegacyID is a free-form key found on records written before the
	// deterministic key existed. Informational only.
	LegacyID string
	Kind     TaxKind
	Period   MonthKey
	Amount   decimal.Decimal
	PaidOn   Date
}

// =============================================================================
// BUDGETS
// =============================================================================

// BudgetTarget is a user-declared monthly target for one budget cell.
type BudgetTarget struct {
	Year     int
	Month0   int
	GroupID  GroupID
	Category string
	Flow     Flow
	Target   decimal.Decimal
}

func (t BudgetTarget) Validate() error {
	if t.Month0 < 0 || t.Month0 > 11 {
		return fmt.Errorf("%w: month index %d", ErrInvalidPeriod, t.Month0)
	}
	if !t.Flow.Valid() {
		return fmt.Errorf("%w: flow %q", ErrInvalidPeriod, t.Flow)
	}
	return nil
}

// Tag is one category of the budget universe. An empty Flow means the tag
// applies to both income and expense.
type Tag struct {
	Name string
	Flow Flow
}

func (t Tag) Applies(f Flow) bool {
	return t.Flow == "" || t.Flow == f
}
