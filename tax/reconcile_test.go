package tax_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/finance-engine/generic"
	"github.com/warp/finance-engine/tax"
)

func payment(kind generic.TaxKind, month0 int, amount string) generic.TaxPayment {
	return generic.TaxPayment{Kind: kind, Period: generic.NewMonthKey(2025, month0), Amount: dec(amount)}
}

func findItem(t *testing.T, rec tax.Reconciliation, kind generic.TaxKind, month0 int) tax.Item {
	t.Helper()
	for _, it := range rec.Items {
		if it.Kind == kind && it.Period.Month0 == month0 {
			return it
		}
	}
	t.Fatalf("no item for %s month %d", kind, month0)
	return tax.Item{}
}

func TestReconcile_StatusBuckets(t *testing.T) {
	// GIVEN: January revenue 1000 -> ISS 50, PIS 6.5, COFINS 30 due Feb 10
	//        Q1 IRPJ 48 and CSLL 28.8 due Apr 30
	report := tax.CalculateTaxReport([]generic.Invoice{invoice("1", "2025-01-05", "1000")}, 2025)

	payments := []generic.TaxPayment{
		payment(generic.TaxISS, 0, "50"),      // exact
		payment(generic.TaxPIS, 0, "10"),      // 3.5 above due -> fine
		payment(generic.TaxCOFINS, 0, "30.03"), // within tolerance
	}
	today := generic.NewDate(2025, time.March, 1)

	rec := tax.Reconcile(report, payments, today)

	iss := findItem(t, rec, generic.TaxISS, 0)
	assert.Equal(t, tax.StatusPaid, iss.Status)
	assertDec(t, "0", iss.Adjustment)

	pis := findItem(t, rec, generic.TaxPIS, 0)
	assert.Equal(t, tax.StatusPaid, pis.Status)
	assertDec(t, "3.5", pis.Adjustment)

	cofins := findItem(t, rec, generic.TaxCOFINS, 0)
	assertDec(t, "0", cofins.Adjustment)

	// IRPJ due Apr 30 is still pending on Mar 1
	irpj := findItem(t, rec, generic.TaxIRPJ, 2)
	assert.Equal(t, tax.StatusPending, irpj.Status)
	assert.Equal(t, "IRPJ:2025-03", irpj.Key)

	assertDec(t, "90.03", rec.PaidTotal)
	assertDec(t, "76.8", rec.PendingTotal)
	assertDec(t, "0", rec.OverdueTotal)
	assertDec(t, "3.5", rec.FineTotal)
	assert.Len(t, rec.Items, 5)
}

func TestReconcile_OverdueAndShortfall(t *testing.T) {
	report := tax.CalculateTaxReport([]generic.Invoice{invoice("1", "2025-01-05", "1000")}, 2025)
	payments := []generic.TaxPayment{payment(generic.TaxISS, 0, "40")}
	today := generic.NewDate(2025, time.May, 2)

	rec := tax.Reconcile(report, payments, today)

	iss := findItem(t, rec, generic.TaxISS, 0)
	assert.Equal(t, tax.StatusPaid, iss.Status)
	assertDec(t, "-10", iss.Adjustment, "shortfall is a negative adjustment")

	assert.Equal(t, tax.StatusOverdue, findItem(t, rec, generic.TaxPIS, 0).Status)
	assert.Equal(t, tax.StatusOverdue, findItem(t, rec, generic.TaxIRPJ, 2).Status)
	assertDec(t, "113.3", rec.OverdueTotal) // 6.5 + 30 + 48 + 28.8
	assertDec(t, "-10", rec.FineTotal)
}

func TestReconcile_PaymentWithoutDueIsListed(t *testing.T) {
	report := tax.CalculateTaxReport(nil, 2025)
	rec := tax.Reconcile(report, []generic.TaxPayment{payment(generic.TaxISS, 4, "12")}, generic.NewDate(2025, time.December, 1))

	require.Len(t, rec.Items, 1)
	assert.Equal(t, tax.StatusPaid, rec.Items[0].Status)
	assertDec(t, "12", rec.Items[0].Adjustment)
}

func TestReconcile_DueDateIsNotOverdue(t *testing.T) {
	report := tax.CalculateTaxReport([]generic.Invoice{invoice("1", "2025-01-05", "1000")}, 2025)
	rec := tax.Reconcile(report, nil, generic.NewDate(2025, time.February, 10))
	assert.Equal(t, tax.StatusPending, findItem(t, rec, generic.TaxISS, 0).Status)
}

// =============================================================================
// PAYMENT KEYS
// =============================================================================

func TestParseLegacyKey(t *testing.T) {
	tests := []struct {
		id     string
		kind   generic.TaxKind
		period generic.MonthKey
		ok     bool
	}{
		{"irpj-2025-03", generic.TaxIRPJ, generic.NewMonthKey(2025, 2), true},
		{"ISS_2025_3", generic.TaxISS, generic.NewMonthKey(2025, 2), true},
		{"COFINS:2025-11", generic.TaxCOFINS, generic.NewMonthKey(2025, 10), true},
		{"csll202512", generic.TaxCSLL, generic.NewMonthKey(2025, 11), true},
		{"fgts-2025-03", "", generic.NoMonth, false},
		{"iss-2025-13", "", generic.NoMonth, false},
		{"random", "", generic.NoMonth, false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			kind, period, ok := tax.ParseLegacyKey(tt.id)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.period, period)
		})
	}
}

func TestIndexPayments_LegacyRecords(t *testing.T) {
	keyed := payment(generic.TaxISS, 2, "50")
	legacyDup := generic.TaxPayment{LegacyID: "iss-2025-03", Amount: dec("49")}
	legacyOnly := generic.TaxPayment{LegacyID: "pis_2025_04", Amount: dec("6.5")}
	broken := generic.TaxPayment{LegacyID: "???", Amount: dec("1")}

	idx, warnings := tax.IndexPayments([]generic.TaxPayment{legacyDup, keyed, legacyOnly, broken})

	require.Len(t, idx, 2)
	assertDec(t, "50", idx["ISS:2025-03"].Amount, "keyed record wins")
	assertDec(t, "6.5", idx["PIS:2025-04"].Amount)
	require.Len(t, warnings, 1)
	assert.Equal(t, "???", warnings[0].RecordID)
}

func TestReconcile_IdempotentAcrossKeying(t *testing.T) {
	// The same payment keyed either way reconciles identically.
	report := tax.CalculateTaxReport([]generic.Invoice{invoice("1", "2025-01-05", "1000")}, 2025)
	today := generic.NewDate(2025, time.March, 1)

	a := tax.Reconcile(report, []generic.TaxPayment{payment(generic.TaxISS, 0, "50")}, today)
	b := tax.Reconcile(report, []generic.TaxPayment{{LegacyID: "ISS-2025-01", Amount: dec("50")}}, today)

	assert.Equal(t, a.Items, b.Items)
	assert.True(t, a.PaidTotal.Equal(b.PaidTotal))
}
