package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// SPLIT RULES - How a shared value is divided between two parties
// =============================================================================

// Split is the resolved percentage pair applied to one event.
// Percentages are in [0,100].
type Split struct {
	PartyA decimal.Decimal
	PartyB decimal.Decimal
}

// DefaultSplit is used when an event carries no custom split and no
// (known) sharing mode.
var DefaultSplit = Split{PartyA: decimal.NewFromInt(50), PartyB: decimal.NewFromInt(50)}

func NewSplit(a, b float64) Split {
	return Split{PartyA: decimal.NewFromFloat(a), PartyB: decimal.NewFromFloat(b)}
}

// ShareA returns value × PartyA / 100.
func (s Split) ShareA(value decimal.Decimal) decimal.Decimal {
	return value.Mul(s.PartyA).Div(Hundred)
}

// ShareB returns value × PartyB / 100.
func (s Split) ShareB(value decimal.Decimal) decimal.Decimal {
	return value.Mul(s.PartyB).Div(Hundred)
}

// Complete reports whether the percentages sum to 100 within Epsilon.
func (s Split) Complete() bool {
	return s.PartyA.Add(s.PartyB).Sub(Hundred).Abs().LessThanOrEqual(Epsilon)
}

// Validate checks the range and sum invariants. It is meant for the
// boundary where sharing modes and custom splits are written; calculators
// never call it.
func (s Split) Validate() error {
	inRange := func(p decimal.Decimal) bool {
		return !p.IsNegative() && p.LessThanOrEqual(Hundred)
	}
	if !inRange(s.PartyA) || !inRange(s.PartyB) {
		return &SplitError{PartyA: s.PartyA.String(), PartyB: s.PartyB.String(), Reason: "percentages must be within [0,100]"}
	}
	if !s.Complete() {
		return &SplitError{PartyA: s.PartyA.String(), PartyB: s.PartyB.String(), Reason: "percentages must sum to 100"}
	}
	return nil
}

// CustomSplit is an inline split attached directly to an event.
type CustomSplit = Split

// SharingMode is a named, reusable split.
type SharingMode struct {
	ID     SharingModeID
	Name   string
	PartyA decimal.Decimal
	PartyB decimal.Decimal
}

func (m SharingMode) Split() Split {
	return Split{PartyA: m.PartyA, PartyB: m.PartyB}
}

// Validate checks the mode's split and decorates the error with the mode id.
func (m SharingMode) Validate() error {
	if err := m.Split().Validate(); err != nil {
		if se, ok := err.(*SplitError); ok {
			se.ModeID = m.ID
		}
		return err
	}
	return nil
}

// SharingModes indexes modes by id.
type SharingModes map[SharingModeID]SharingMode

func IndexSharingModes(modes []SharingMode) SharingModes {
	idx := make(SharingModes, len(modes))
	for _, m := range modes {
		idx[m.ID] = m
	}
	return idx
}

// ResolveSplit picks the effective split for an event: the inline custom
// split first, then the referenced sharing mode, then 50/50. Percentages are
// used as stored; incomplete modes are not re-normalised.
func (idx SharingModes) ResolveSplit(custom *CustomSplit, modeID SharingModeID) Split {
	if custom != nil {
		return *custom
	}
	if modeID != "" {
		if m, ok := idx[modeID]; ok {
			return m.Split()
		}
	}
	return DefaultSplit
}
