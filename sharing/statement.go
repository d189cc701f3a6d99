package sharing

import (
	"github.com/shopspring/decimal"
	"github.com/warp/finance-engine/generic"
)

// Synthetic sharing modes that attribute a value wholly to one party.
const (
	ModeAllMine    generic.SharingModeID = "all-mine"
	ModeAllPartner generic.SharingModeID = "all-partner"
)

// SyntheticModes returns the 100/0 and 0/100 modes.
func SyntheticModes() []generic.SharingMode {
	return []generic.SharingMode{
		{ID: ModeAllMine, Name: "My part", PartyA: generic.Hundred, PartyB: decimal.Zero},
		{ID: ModeAllPartner, Name: "Partner's part", PartyA: decimal.Zero, PartyB: generic.Hundred},
	}
}

// StatementInput describes a shared card statement being settled.
type StatementInput struct {
	ID          string
	Description string
	// Total is the statement amount (sign is preserved on the parts).
	Total  decimal.Decimal
	Date   string
	Payer  string
	Split  generic.Split
	Group  generic.GroupID
	Card   generic.CardID
	Places int32 // rounding of my part, 2 when zero
}

// SplitStatement splits a statement into "my part" and "partner's part"
// ledger entries. My part is rounded; the partner's part is the remainder,
// so the two always sum to Total exactly. The parts reference the
// synthetic 100/0 and 0/100 modes and carry the equivalent custom splits,
// so running them through ComputeSettlement reproduces Total and the
// original party A liability (up to the rounding of my part).
func SplitStatement(in StatementInput) (mine, partner generic.LedgerEntry) {
	places := in.Places
	if places == 0 {
		places = 2
	}
	mineValue := in.Split.ShareA(in.Total).Round(places)
	partnerValue := in.Total.Sub(mineValue)

	allMine := generic.NewSplit(100, 0)
	allPartner := generic.NewSplit(0, 100)

	base := generic.LedgerEntry{
		ExpectedDate: in.Date,
		GroupID:      in.Group,
		Category:     "card:" + string(in.Card),
		Shared:       true,
		Payer:        in.Payer,
		Source:       generic.SourceStatement,
	}

	mine = base
	mine.ID = in.ID + "-mine"
	mine.Description = in.Description + " (my part)"
	mine.Value = mineValue
	mine.ModeID = ModeAllMine
	mine.Custom = &allMine

	partner = base
	partner.ID = in.ID + "-partner"
	partner.Description = in.Description + " (partner's part)"
	partner.Value = partnerValue
	partner.ModeID = ModeAllPartner
	partner.Custom = &allPartner

	return mine, partner
}
