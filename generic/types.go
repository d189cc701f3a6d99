/*
Package generic provides the core of the finance engine.

PURPOSE:
  This package contains the domain-agnostic types and helpers shared by the
  tax, sharing and budget calculators. Whether bucketing invoices into tax
  months, card purchases into statements or ledger entries into budget
  cells, the same period resolver, money type and snapshot types are used.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A monetary value with a currency (e.g., R$ 1.234,56)
  - Party: One of the two sides of a shared expense
  - Flow: Direction of money (income or expense)

DESIGN PRINCIPLES:
  1. Purity: Calculators take snapshots and return new values, no I/O
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Typed enums for tax kinds, flows and statuses
  4. Fail closed: Malformed input coerces to a neutral value, never panics

USAGE:
  total := generic.NewAmount(100, generic.CurrencyBRL)
  share := total.Mul(decimal.NewFromInt(50)).Div(generic.Hundred)

SEE ALSO:
  - period.go: Period keys and resolvers
  - events.go: Snapshot record types
  - split.go: Sharing modes and split resolution
*/
package generic

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Monetary value with currency
// =============================================================================

type Amount struct {
	Value    decimal.Decimal
	Currency string
}

// CurrencyBRL is the default currency of the engine. No conversion is ever
// performed between currencies.
const CurrencyBRL = money.BRL

var (
	Hundred = decimal.NewFromInt(100)

	// Epsilon is the tolerance used when comparing split percentages.
	Epsilon = decimal.RequireFromString("0.01")
)

func NewAmount(value float64, currency string) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Currency: currency}
}

func NewAmountFromDecimal(value decimal.Decimal, currency string) Amount {
	return Amount{Value: value, Currency: currency}
}

func ZeroAmount(currency string) Amount {
	return Amount{Value: decimal.Zero, Currency: currency}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Currency: a.Currency} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Currency: pick(a, b)} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Currency: pick(a, b)} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Currency: a.Currency} }
func (a Amount) Div(s decimal.Decimal) Amount { return Amount{Value: a.Value.Div(s), Currency: a.Currency} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Currency: a.Currency} }
func (a Amount) Abs() Amount                  { return Amount{Value: a.Value.Abs(), Currency: a.Currency} }
func (a Amount) Round(places int32) Amount    { return Amount{Value: a.Value.Round(places), Currency: a.Currency} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}
func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// ClampZero returns max(0, a).
func (a Amount) ClampZero() Amount {
	if a.IsNegative() {
		return a.Zero()
	}
	return a
}

// Format renders the amount with the currency's symbol, separators and
// fraction digits, e.g. "R$1.234,56".
func (a Amount) Format() string {
	cur := a.Currency
	if cur == "" {
		cur = CurrencyBRL
	}
	c := money.GetCurrency(cur)
	if c == nil {
		return a.Value.StringFixed(2) + " " + cur
	}
	minor := a.Value.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, cur).Display()
}

func (a Amount) String() string {
	return a.Value.StringFixed(2)
}

// the empty currency is weak: it adopts the other side's currency.
func pick(a, b Amount) string {
	if a.Currency == "" {
		return b.Currency
	}
	return a.Currency
}

// =============================================================================
// PARTIES AND FLOWS
// =============================================================================

// Party identifies one of the two sides of a shared expense.
type Party string

const (
	PartyA Party = "a" // the user ("me")
	PartyB Party = "b" // the partner
)

// PayerMe is the payer value recorded on events paid by party A.
// Any other payer value is attributed to party B.
const PayerMe = "me"

// PartyOf maps a recorded payer field to a party.
func PartyOf(payer string) Party {
	if payer == PayerMe {
		return PartyA
	}
	return PartyB
}

// Flow is the direction of money for budgeting.
type Flow string

const (
	FlowIncome  Flow = "income"
	FlowExpense Flow = "expense"
)

func (f Flow) Valid() bool { return f == FlowIncome || f == FlowExpense }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type GroupID string
type CardID string
type SharingModeID string
