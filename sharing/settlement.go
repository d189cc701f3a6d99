// Package sharing computes who owes what on expenses shared by two parties.
//
// Party A is the user ("me"); party B is the partner. Every shared event
// carries a split rule: an inline custom split, a reference to a named
// sharing mode, or nothing (50/50). The settlement of a set of events is
// what party A paid minus what party A is liable for:
//
//	balance > 0  party A is owed money
//	balance < 0  party A owes money
package sharing

import (
	"github.com/shopspring/decimal"
	"github.com/warp/finance-engine/generic"
)

// Event is one shared expense or income.
type Event struct {
	ID          string
	Description string
	Value       decimal.Decimal
	Date        string
	Payer       string
	ModeID      generic.SharingModeID
	Custom      *generic.CustomSplit
}

// FromEntry converts a shared ledger entry.
func FromEntry(e generic.LedgerEntry) Event {
	return Event{
		ID:          e.ID,
		Description: e.Description,
		Value:       e.Value,
		Date:        e.EffectiveDate(),
		Payer:       e.Payer,
		ModeID:      e.ModeID,
		Custom:      e.Custom,
	}
}

// SharedEvents returns the shared entries of a snapshot whose effective date
// falls in (year, month0).
func SharedEvents(entries []generic.LedgerEntry, year, month0 int) []Event {
	var out []Event
	for _, e := range entries {
		if !e.Shared {
			continue
		}
		if generic.PeriodMatches(e.EffectiveDate(), year, month0) {
			out = append(out, FromEntry(e))
		}
	}
	return out
}

// Allocation is the split of one event.
type Allocation struct {
	EventID    string
	Amount     decimal.Decimal // |value|
	Split      generic.Split
	LiabilityA decimal.Decimal
	LiabilityB decimal.Decimal
	PaidBy     generic.Party
}

// Settlement is the aggregate over a set of events.
type Settlement struct {
	Total      decimal.Decimal
	LiabilityA decimal.Decimal
	LiabilityB decimal.Decimal
	PaidByA    decimal.Decimal
	PaidByB    decimal.Decimal
	// Balance = PaidByA - LiabilityA.
	Balance     decimal.Decimal
	Allocations []Allocation
}

// Allocate splits one event. Percentages are applied as stored; when a
// mode's percentages do not sum to 100 the liabilities do not sum to the
// event amount.
func Allocate(e Event, modes generic.SharingModes) Allocation {
	split := modes.ResolveSplit(e.Custom, e.ModeID)
	amount := e.Value.Abs()
	return Allocation{
		EventID:    e.ID,
		Amount:     amount,
		Split:      split,
		LiabilityA: split.ShareA(amount),
		LiabilityB: split.ShareB(amount),
		PaidBy:     generic.PartyOf(e.Payer),
	}
}

// ComputeSettlement allocates every event and aggregates the result.
// Callers filter events by period beforehand.
func ComputeSettlement(events []Event, modes []generic.SharingMode) Settlement {
	idx := generic.IndexSharingModes(modes)
	s := Settlement{
		Total:      decimal.Zero,
		LiabilityA: decimal.Zero,
		LiabilityB: decimal.Zero,
		PaidByA:    decimal.Zero,
		PaidByB:    decimal.Zero,
		Balance:    decimal.Zero,
	}

	for _, e := range events {
		a := Allocate(e, idx)
		s.Allocations = append(s.Allocations, a)

		s.LiabilityA = s.LiabilityA.Add(a.LiabilityA)
		s.LiabilityB = s.LiabilityB.Add(a.LiabilityB)
		if a.PaidBy == generic.PartyA {
			s.PaidByA = s.PaidByA.Add(a.Amount)
		} else {
			s.PaidByB = s.PaidByB.Add(a.Amount)
		}
	}

	s.Total = s.PaidByA.Add(s.PaidByB)
	s.Balance = s.PaidByA.Sub(s.LiabilityA)
	return s
}

// =============================================================================
// TRANSFER - The single payment that settles the balance
// =============================================================================

// Transfer is a payment from one party to the other.
type Transfer struct {
	From   generic.Party
	To     generic.Party
	Amount decimal.Decimal
}

// settledBelow is the balance under which no transfer is suggested.
var settledBelow = decimal.RequireFromString("0.01")

// Transfer returns the payment that zeroes the balance, or false when the
// parties are already even.
func (s Settlement) Transfer() (Transfer, bool) {
	if s.Balance.Abs().LessThan(settledBelow) {
		return Transfer{}, false
	}
	if s.Balance.IsPositive() {
		return Transfer{From: generic.PartyB, To: generic.PartyA, Amount: s.Balance}, true
	}
	return Transfer{From: generic.PartyA, To: generic.PartyB, Amount: s.Balance.Neg()}, true
}
