package tax_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/finance-engine/generic"
	"github.com/warp/finance-engine/tax"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func invoice(id, date, gross string) generic.Invoice {
	return generic.Invoice{
		ID:         id,
		GrossValue: dec(gross),
		IssueDate:  date,
		Status:     generic.InvoiceIssued,
		Taxable:    true,
	}
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msg ...string) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "want %s got %s %v", want, got, msg)
}

// =============================================================================
// MONTHLY TAXES
// =============================================================================

func TestReport_ISSFullyRetained(t *testing.T) {
	// GIVEN: invoice of 1000 with 50 of ISS retained
	// THEN: ISS calculated 50, nothing due
	inv := invoice("inv-1", "2025-03-15", "1000")
	inv.Retained.ISS = "50"

	report := tax.CalculateTaxReport([]generic.Invoice{inv}, 2025)

	march := report.Months[2]
	assertDec(t, "1000", march.Revenue)
	assertDec(t, "50", march.ISS.Calculated)
	assertDec(t, "50", march.ISS.Retained)
	assertDec(t, "0", march.ISS.Due)
	assertDec(t, "6.5", march.PIS.Calculated)
	assertDec(t, "6.5", march.PIS.Due)
	assertDec(t, "30", march.COFINS.Due)
	assert.Equal(t, 1, march.InvoiceCount)
}

func TestReport_DueDates(t *testing.T) {
	report := tax.CalculateTaxReport(nil, 2025)

	// Monthly taxes: 10th of the following month
	assert.Equal(t, generic.NewDate(2025, time.February, 10), report.Months[0].ISS.DueDate)
	assert.Equal(t, generic.NewDate(2026, time.January, 10), report.Months[11].COFINS.DueDate)

	// Quarterly taxes: last day of the month after quarter end, on every month
	// of the quarter
	for i := 0; i < 3; i++ {
		assert.Equal(t, generic.NewDate(2025, time.April, 30), report.Months[i].IRPJ.DueDate)
	}
	assert.Equal(t, generic.NewDate(2025, time.July, 31), report.Months[5].CSLL.DueDate)
	assert.Equal(t, generic.NewDate(2025, time.October, 31), report.Months[8].IRPJ.DueDate)
	assert.Equal(t, generic.NewDate(2026, time.January, 31), report.Months[11].IRPJ.DueDate)
}

func TestReport_Filters(t *testing.T) {
	cancelled := invoice("c", "2025-01-10", "500")
	cancelled.Status = generic.InvoiceCancelled
	untaxed := invoice("u", "2025-01-10", "700")
	untaxed.Taxable = false
	draft := invoice("d", "2025-01-10", "100")
	draft.Status = generic.InvoiceDraft
	otherYear := invoice("o", "2024-12-31", "900")
	noDate := invoice("n", "", "300")
	badDate := invoice("b", "2025/01/10", "300")

	report := tax.CalculateTaxReport([]generic.Invoice{cancelled, untaxed, draft, otherYear, noDate, badDate}, 2025)

	assertDec(t, "100", report.Months[0].Revenue, "only the draft counts")
	assertDec(t, "100", report.Revenue())
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "b", report.Warnings[0].RecordID)
	assert.Equal(t, "issue_date", report.Warnings[0].Field)
}

func TestReport_NonNumericRetentionIsZero(t *testing.T) {
	inv := invoice("inv-1", "10/02/2025", "2000")
	inv.Retained.ISS = "n/a"
	inv.Retained.PIS = "1.234,56"

	report := tax.CalculateTaxReport([]generic.Invoice{inv}, 2025)

	feb := report.Months[1]
	assertDec(t, "0", feb.ISS.Retained)
	assertDec(t, "100", feb.ISS.Due)
	assertDec(t, "1234.56", feb.PIS.Retained)
	assertDec(t, "0", feb.PIS.Due, "retention above calculated clamps to zero")
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "retained.iss", report.Warnings[0].Field)
}

// =============================================================================
// QUARTERLY TAXES
// =============================================================================

func TestReport_QuarterSurcharge(t *testing.T) {
	// GIVEN: quarter revenue of 250,000 spread over the quarter
	// THEN: presumed profit 80,000; surcharge 2,000; IRPJ 12,000; due 14,000
	invoices := []generic.Invoice{
		invoice("1", "2025-04-05", "100000"),
		invoice("2", "2025-05-05", "100000"),
		invoice("3", "2025-06-05", "50000"),
	}

	report := tax.CalculateTaxReport(invoices, 2025)

	june := report.Months[5]
	assert.True(t, june.QuarterEnd())
	assertDec(t, "250000", june.IRPJ.Revenue)
	assertDec(t, "80000", june.IRPJ.PresumedProfit)
	assertDec(t, "2000", june.IRPJ.Surcharge)
	assertDec(t, "12000", june.IRPJ.Calculated)
	assertDec(t, "14000", june.IRPJ.Due)
	assertDec(t, "7200", june.CSLL.Calculated)
	assertDec(t, "7200", june.CSLL.Due)
	assertDec(t, "0", june.CSLL.Surcharge)

	// First two months of the quarter report nothing for quarterly taxes
	for _, m := range report.Months[3:5] {
		assert.False(t, m.QuarterEnd())
		assertDec(t, "0", m.IRPJ.Due)
		assertDec(t, "0", m.IRPJ.Calculated)
		assertDec(t, "0", m.CSLL.Due)
	}
}

func TestReport_QuarterBelowThreshold(t *testing.T) {
	report := tax.CalculateTaxReport([]generic.Invoice{invoice("1", "2025-01-20", "100000")}, 2025)

	march := report.Months[2]
	assertDec(t, "32000", march.IRPJ.PresumedProfit)
	assertDec(t, "0", march.IRPJ.Surcharge)
	assertDec(t, "4800", march.IRPJ.Due)
}

func TestReport_QuarterlyRetentionWithLegacyIRRF(t *testing.T) {
	a := invoice("a", "2025-07-01", "10000")
	a.Retained.IRRF = "150" // legacy field name
	b := invoice("b", "2025-08-01", "10000")
	b.Retained.IRPJ = "100"
	b.Retained.IRRF = "999" // ignored when IRPJ is present
	b.Retained.CSLL = "1000"

	report := tax.CalculateTaxReport([]generic.Invoice{a, b}, 2025)

	sep := report.Months[8]
	assertDec(t, "250", sep.IRPJ.Retained)
	assertDec(t, "960", sep.IRPJ.Calculated)
	assertDec(t, "710", sep.IRPJ.Due)
	assertDec(t, "576", sep.CSLL.Calculated)
	assertDec(t, "0", sep.CSLL.Due)
}

func TestReport_EmptyYear(t *testing.T) {
	report := tax.CalculateTaxReport(nil, 2025)
	for i, m := range report.Months {
		assert.Equal(t, generic.NewMonthKey(2025, i), m.Period, "sorted by period")
		assert.True(t, m.TotalDue().IsZero())
		assert.True(t, m.IRPJ.Surcharge.IsZero())
	}
	assert.Empty(t, report.Warnings)
}

func TestReport_Idempotent(t *testing.T) {
	invoices := []generic.Invoice{
		invoice("1", "2025-01-05", "12345.67"),
		invoice("2", "15/05/2025", "98765.43"),
		invoice("3", "2025-11-30", "333.33"),
	}
	invoices[1].Retained.ISS = "1.000,00"

	first := tax.CalculateTaxReport(invoices, 2025)
	second := tax.CalculateTaxReport(invoices, 2025)
	assert.Equal(t, first, second)
}

func TestReport_CustomRates(t *testing.T) {
	rates := tax.DefaultRates()
	rates.ISS = dec("0.02")
	calc := tax.NewCalculator(rates)

	report := calc.Report([]generic.Invoice{invoice("1", "2025-01-05", "1000")}, 2025)
	assertDec(t, "20", report.Months[0].ISS.Calculated)

	rates.PIS = dec("-0.01")
	assert.ErrorIs(t, rates.Validate(), generic.ErrInvalidRate)
	assert.NoError(t, tax.DefaultRates().Validate())
}

func TestReport_TotalsAndQuarters(t *testing.T) {
	report := tax.CalculateTaxReport([]generic.Invoice{
		invoice("1", "2025-01-05", "1000"),
		invoice("2", "2025-10-05", "1000"),
	}, 2025)

	totals := report.Totals()
	assertDec(t, "100", totals[generic.TaxISS].Calculated)
	assertDec(t, "96", totals[generic.TaxIRPJ].Due)

	quarters := report.Quarters()
	assertDec(t, "1000", quarters[0][0].Revenue)
	assertDec(t, "0", quarters[1][0].Revenue)
	assertDec(t, "28.8", quarters[3][1].Due)
}
