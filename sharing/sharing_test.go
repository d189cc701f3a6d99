package sharing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/finance-engine/generic"
	"github.com/warp/finance-engine/sharing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msg ...string) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "want %s got %s %v", want, got, msg)
}

var (
	fiftyFifty = generic.SharingMode{ID: "half", Name: "50/50", PartyA: dec("50"), PartyB: dec("50")}
	partnerAll = generic.SharingMode{ID: "partner", Name: "Partner pays", PartyA: dec("0"), PartyB: dec("100")}
	seventy    = generic.SharingMode{ID: "70-30", Name: "70/30", PartyA: dec("70"), PartyB: dec("30")}
	modes      = []generic.SharingMode{fiftyFifty, partnerAll, seventy}
)

func event(id, value, payer string, mode generic.SharingModeID) sharing.Event {
	return sharing.Event{ID: id, Value: dec(value), Date: "2025-03-10", Payer: payer, ModeID: mode}
}

// =============================================================================
// SETTLEMENT
// =============================================================================

func TestSettlement_ThreeSharedExpenses(t *testing.T) {
	// GIVEN: three expenses of 100; two 50/50 paid by me, one 0/100 paid by
	//        the partner
	// THEN: liabilityA = 100, paidByA = 200, balance = +100
	events := []sharing.Event{
		event("1", "-100", generic.PayerMe, "half"),
		event("2", "-100", generic.PayerMe, "half"),
		event("3", "-100", "ana", "partner"),
	}

	s := sharing.ComputeSettlement(events, modes)

	assertDec(t, "100", s.LiabilityA)
	assertDec(t, "200", s.LiabilityB)
	assertDec(t, "200", s.PaidByA)
	assertDec(t, "100", s.PaidByB)
	assertDec(t, "300", s.Total)
	assertDec(t, "100", s.Balance)

	tr, ok := s.Transfer()
	require.True(t, ok)
	assert.Equal(t, generic.PartyB, tr.From)
	assert.Equal(t, generic.PartyA, tr.To)
	assertDec(t, "100", tr.Amount)
}

func TestSettlement_SplitResolutionOrder(t *testing.T) {
	custom := generic.NewSplit(10, 90)

	tests := []struct {
		name       string
		event      sharing.Event
		liabilityA string
	}{
		{"custom split wins over mode", sharing.Event{Value: dec("200"), Payer: "me", ModeID: "70-30", Custom: &custom}, "20"},
		{"mode when no custom split", sharing.Event{Value: dec("200"), Payer: "me", ModeID: "70-30"}, "140"},
		{"unknown mode falls back to 50/50", sharing.Event{Value: dec("200"), Payer: "me", ModeID: "gone"}, "100"},
		{"no rule is 50/50", sharing.Event{Value: dec("200"), Payer: "me"}, "100"},
		{"income uses magnitude", sharing.Event{Value: dec("-200"), Payer: "me", ModeID: "70-30"}, "140"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sharing.ComputeSettlement([]sharing.Event{tt.event}, modes)
			assertDec(t, tt.liabilityA, s.LiabilityA)
		})
	}
}

func TestSettlement_LiabilitiesSumToValue(t *testing.T) {
	// For every complete split, liabilityA + liabilityB == |value|.
	values := []string{"0.01", "33.33", "-99.99", "1234.56", "-0.07", "100000"}
	splits := []generic.Split{
		generic.NewSplit(50, 50),
		generic.NewSplit(0, 100),
		generic.NewSplit(100, 0),
		generic.NewSplit(33.33, 66.67),
		generic.NewSplit(12.5, 87.5),
	}

	for _, v := range values {
		for _, sp := range splits {
			sp := sp
			e := sharing.Event{Value: dec(v), Custom: &sp}
			a := sharing.Allocate(e, nil)
			assert.Truef(t, a.LiabilityA.Add(a.LiabilityB).Equal(dec(v).Abs()),
				"value %s split %s/%s: %s + %s", v, sp.PartyA, sp.PartyB, a.LiabilityA, a.LiabilityB)
		}
	}
}

func TestSettlement_IncompleteModeIsNotNormalised(t *testing.T) {
	// GIVEN: a mode edited to 60/30
	// THEN: the raw percentages are applied; liabilities cover 90% only
	broken := generic.SharingMode{ID: "broken", PartyA: dec("60"), PartyB: dec("30")}

	s := sharing.ComputeSettlement([]sharing.Event{event("1", "-100", "me", "broken")}, []generic.SharingMode{broken})

	assertDec(t, "60", s.LiabilityA)
	assertDec(t, "30", s.LiabilityB)
	assertDec(t, "100", s.Total)
	assert.Error(t, broken.Validate(), "rejected when written through a store")
}

func TestSettlement_Empty(t *testing.T) {
	s := sharing.ComputeSettlement(nil, modes)
	assert.True(t, s.Total.IsZero())
	assert.True(t, s.Balance.IsZero())
	_, ok := s.Transfer()
	assert.False(t, ok)
}

func TestSettlement_PartyAOwes(t *testing.T) {
	s := sharing.ComputeSettlement([]sharing.Event{event("1", "-80", "ana", "half")}, modes)

	assertDec(t, "-40", s.Balance)
	tr, ok := s.Transfer()
	require.True(t, ok)
	assert.Equal(t, generic.PartyA, tr.From)
	assertDec(t, "40", tr.Amount)
}

func TestSharedEvents_FiltersByPeriod(t *testing.T) {
	entries := []generic.LedgerEntry{
		{ID: "1", Value: dec("-10"), ExpectedDate: "2025-03-01", Shared: true},
		{ID: "2", Value: dec("-10"), ExpectedDate: "2025-02-28", RealizedDate: "2025-03-02", Realized: true, Shared: true},
		{ID: "3", Value: dec("-10"), ExpectedDate: "2025-03-05"},
		{ID: "4", Value: dec("-10"), ExpectedDate: "garbage", Shared: true},
		{ID: "5", Value: dec("-10"), ExpectedDate: "2025-04-01", Shared: true},
	}

	events := sharing.SharedEvents(entries, 2025, 2)

	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"1", "2"}, ids)
}

// =============================================================================
// STATEMENT SPLIT
// =============================================================================

func TestSplitStatement_RoundTrip(t *testing.T) {
	// GIVEN: a 70/30 shared statement of 1000.01 paid by me
	// WHEN: split into my part and the partner's part
	// THEN: the parts sum to the total and re-settle to the same liabilities
	in := sharing.StatementInput{
		ID:    "stmt-2025-03",
		Total: dec("-1000.01"),
		Date:  "2025-03-20",
		Payer: generic.PayerMe,
		Split: generic.NewSplit(70, 30),
		Card:  "nubank",
	}

	mine, partner := sharing.SplitStatement(in)

	assertDec(t, "-700.01", mine.Value)
	assertDec(t, "-300", partner.Value)
	assert.True(t, mine.Value.Add(partner.Value).Equal(in.Total))
	assert.Equal(t, sharing.ModeAllMine, mine.ModeID)
	assert.Equal(t, sharing.ModeAllPartner, partner.ModeID)
	assert.Equal(t, generic.SourceStatement, mine.Source)

	original := sharing.ComputeSettlement([]sharing.Event{{Value: in.Total, Payer: in.Payer, Custom: &in.Split}}, nil)
	resplit := sharing.ComputeSettlement(
		[]sharing.Event{sharing.FromEntry(mine), sharing.FromEntry(partner)},
		sharing.SyntheticModes(),
	)

	assert.True(t, resplit.Total.Equal(original.Total))
	assertDec(t, "700.01", resplit.LiabilityA)
	assert.True(t, resplit.LiabilityA.Sub(original.LiabilityA).Abs().LessThanOrEqual(generic.Epsilon))
}

func TestSplitStatement_ModesOnlyReconstruct(t *testing.T) {
	// The synthetic modes alone are enough without the inline splits.
	mine, partner := sharing.SplitStatement(sharing.StatementInput{
		ID: "s", Total: dec("-90"), Date: "2025-01-05", Payer: "me", Split: generic.DefaultSplit,
	})
	mine.Custom, partner.Custom = nil, nil

	s := sharing.ComputeSettlement([]sharing.Event{sharing.FromEntry(mine), sharing.FromEntry(partner)}, sharing.SyntheticModes())

	assertDec(t, "90", s.Total)
	assertDec(t, "45", s.LiabilityA)
	assertDec(t, "45", s.Balance)
}

func TestSyntheticModesAreValid(t *testing.T) {
	for _, m := range sharing.SyntheticModes() {
		assert.NoError(t, m.Validate(), m.ID)
	}
}
