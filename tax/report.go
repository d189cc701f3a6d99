package tax

import (
	"github.com/shopspring/decimal"
	"github.com/warp/finance-engine/generic"
)

// =============================================================================
// REPORT TYPES
// =============================================================================

// Line is one tax in one month.
type Line struct {
	Calculated decimal.Decimal
	Retained   decimal.Decimal
	Due        decimal.Decimal
	DueDate    generic.Date
}

// QuarterlyLine is an IRPJ or CSLL line. Figures are only populated on the
// last month of the quarter; the other two months carry zeros and the
// quarter's due date.
type QuarterlyLine struct {
	Line
	Quarter        generic.QuarterKey
	Revenue        decimal.Decimal // quarter revenue
	PresumedProfit decimal.Decimal
	Surcharge      decimal.Decimal // IRPJ only
}

// MonthSummary is the tax picture of one month.
type MonthSummary struct {
	Period       generic.MonthKey
	Revenue      decimal.Decimal
	InvoiceCount int

	ISS    Line
	PIS    Line
	COFINS Line
	IRPJ   QuarterlyLine
	CSLL   QuarterlyLine
}

// Line returns the line of a tax kind.
func (m MonthSummary) Line(kind generic.TaxKind) Line {
	switch kind {
	case generic.TaxISS:
		return m.ISS
	case generic.TaxPIS:
		return m.PIS
	case generic.TaxCOFINS:
		return m.COFINS
	case generic.TaxIRPJ:
		return m.IRPJ.Line
	case generic.TaxCSLL:
		return m.CSLL.Line
	}
	return Line{}
}

// QuarterEnd reports whether quarterly figures are attached to this month.
func (m MonthSummary) QuarterEnd() bool {
	return m.Period == m.Period.Quarter().LastMonth()
}

// TotalDue sums the due amounts of every tax in the month.
func (m MonthSummary) TotalDue() decimal.Decimal {
	total := decimal.Zero
	for _, k := range generic.TaxKinds {
		total = total.Add(m.Line(k).Due)
	}
	return total
}

// Report is the tax summary of a year: always 12 months, in order.
type Report struct {
	Year     int
	Months   [12]MonthSummary
	Warnings []generic.Warning
}

// Totals sums calculated, retained and due amounts per kind over the year.
func (r Report) Totals() map[generic.TaxKind]Line {
	totals := make(map[generic.TaxKind]Line, len(generic.TaxKinds))
	for _, k := range generic.TaxKinds {
		var t Line
		t.Calculated, t.Retained, t.Due = decimal.Zero, decimal.Zero, decimal.Zero
		for _, m := range r.Months {
			l := m.Line(k)
			t.Calculated = t.Calculated.Add(l.Calculated)
			t.Retained = t.Retained.Add(l.Retained)
			t.Due = t.Due.Add(l.Due)
		}
		totals[k] = t
	}
	return totals
}

// Revenue sums monthly revenue over the year.
func (r Report) Revenue() decimal.Decimal {
	total := decimal.Zero
	for _, m := range r.Months {
		total = total.Add(m.Revenue)
	}
	return total
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator computes tax reports with a given rate table.
type Calculator struct {
	Rates RateTable
}

func NewCalculator(rates RateTable) *Calculator {
	return &Calculator{Rates: rates}
}

// CalculateTaxReport computes the report of a year with the default rates.
func CalculateTaxReport(invoices []generic.Invoice, year int) Report {
	return NewCalculator(DefaultRates()).Report(invoices, year)
}

// monthly accumulators
type acc struct {
	revenue  decimal.Decimal
	count    int
	retained map[generic.TaxKind]decimal.Decimal
}

// Report computes the 12 month summaries of a year.
//
// Only taxable, non-cancelled invoices issued in the year count. The
// invoices are never modified. Invoices with malformed issue dates or
// non-numeric retentions produce warnings instead of errors.
func (c *Calculator) Report(invoices []generic.Invoice, year int) Report {
	report := Report{Year: year}
	months := generic.MonthsOfYear(year)

	var accs [12]acc
	for i := range accs {
		accs[i] = acc{revenue: decimal.Zero, retained: zeroByKind()}
	}

	// 1-2. Bucket invoices into months
	for _, inv := range invoices {
		if !inv.CountsForTax() {
			continue
		}
		k, err := generic.ResolveCalendarPeriod(inv.IssueDate)
		if err != nil {
			report.Warnings = append(report.Warnings, generic.Warning{
				RecordID: inv.ID, Field: "issue_date", Message: err.Error(),
			})
			continue
		}
		if k.IsZero() || k.Year != year {
			continue
		}
		report.Warnings = append(report.Warnings, retentionWarnings(inv)...)

		a := &accs[k.Month0]
		a.revenue = a.revenue.Add(inv.GrossValue)
		a.count++
		for _, kind := range generic.TaxKinds {
			a.retained[kind] = a.retained[kind].Add(inv.Retained.For(kind))
		}
	}

	// 3. Monthly taxes
	for i, k := range months {
		a := accs[i]
		due := k.Next().Start().AddDays(9) // 10th of the following month
		qDue := k.Quarter().LastMonth().Next().End()

		report.Months[i] = MonthSummary{
			Period:       k,
			Revenue:      a.revenue,
			InvoiceCount: a.count,
			ISS:          c.monthlyLine(generic.TaxISS, a, due),
			PIS:          c.monthlyLine(generic.TaxPIS, a, due),
			COFINS:       c.monthlyLine(generic.TaxCOFINS, a, due),
			IRPJ:         emptyQuarterly(k.Quarter(), qDue),
			CSLL:         emptyQuarterly(k.Quarter(), qDue),
		}
	}

	// 4. Quarterly taxes, attached to the quarter's last month
	for _, q := range generic.QuartersOfYear(year) {
		revenue := decimal.Zero
		retainedIRPJ := decimal.Zero
		retainedCSLL := decimal.Zero
		for _, m := range q.Months() {
			a := accs[m.Month0]
			revenue = revenue.Add(a.revenue)
			retainedIRPJ = retainedIRPJ.Add(a.retained[generic.TaxIRPJ])
			retainedCSLL = retainedCSLL.Add(a.retained[generic.TaxCSLL])
		}

		presumed := revenue.Mul(c.Rates.PresumedProfit)
		surcharge := presumed.Sub(c.Rates.SurchargeThreshold)
		if surcharge.IsNegative() {
			surcharge = decimal.Zero
		}
		surcharge = surcharge.Mul(c.Rates.SurchargeRate)

		calcIRPJ := revenue.Mul(c.Rates.IRPJ)
		calcCSLL := revenue.Mul(c.Rates.CSLL)

		last := &report.Months[q.LastMonth().Month0]
		last.IRPJ = QuarterlyLine{
			Line: Line{
				Calculated: calcIRPJ,
				Retained:   retainedIRPJ,
				Due:        clampZero(calcIRPJ.Add(surcharge).Sub(retainedIRPJ)),
				DueDate:    last.IRPJ.DueDate,
			},
			Quarter:        q,
			Revenue:        revenue,
			PresumedProfit: presumed,
			Surcharge:      surcharge,
		}
		last.CSLL = QuarterlyLine{
			Line: Line{
				Calculated: calcCSLL,
				Retained:   retainedCSLL,
				Due:        clampZero(calcCSLL.Sub(retainedCSLL)),
				DueDate:    last.CSLL.DueDate,
			},
			Quarter:        q,
			Revenue:        revenue,
			PresumedProfit: presumed,
			Surcharge:      decimal.Zero,
		}
	}

	return report
}

// Quarters returns the IRPJ and CSLL lines of each quarter, in order.
func (r Report) Quarters() [4][2]QuarterlyLine {
	var out [4][2]QuarterlyLine
	for i, q := range generic.QuartersOfYear(r.Year) {
		m := r.Months[q.LastMonth().Month0]
		out[i] = [2]QuarterlyLine{m.IRPJ, m.CSLL}
	}
	return out
}

func (c *Calculator) monthlyLine(kind generic.TaxKind, a acc, dueDate generic.Date) Line {
	calculated := a.revenue.Mul(c.Rates.Rate(kind))
	retained := a.retained[kind]
	return Line{
		Calculated: calculated,
		Retained:   retained,
		Due:        clampZero(calculated.Sub(retained)),
		DueDate:    dueDate,
	}
}

func emptyQuarterly(q generic.QuarterKey, dueDate generic.Date) QuarterlyLine {
	return QuarterlyLine{
		Line: Line{
			Calculated: decimal.Zero,
			Retained:   decimal.Zero,
			Due:        decimal.Zero,
			DueDate:    dueDate,
		},
		Quarter:        q,
		Revenue:        decimal.Zero,
		PresumedProfit: decimal.Zero,
		Surcharge:      decimal.Zero,
	}
}

func zeroByKind() map[generic.TaxKind]decimal.Decimal {
	m := make(map[generic.TaxKind]decimal.Decimal, len(generic.TaxKinds))
	for _, k := range generic.TaxKinds {
		m[k] = decimal.Zero
	}
	return m
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func retentionWarnings(inv generic.Invoice) []generic.Warning {
	var out []generic.Warning
	fields := []struct {
		name  string
		value generic.LooseDecimal
	}{
		{"retained.iss", inv.Retained.ISS},
		{"retained.pis", inv.Retained.PIS},
		{"retained.cofins", inv.Retained.COFINS},
		{"retained.irpj", inv.Retained.IRPJ},
		{"retained.irrf", inv.Retained.IRRF},
		{"retained.csll", inv.Retained.CSLL},
	}
	for _, f := range fields {
		if !f.value.Valid() {
			out = append(out, generic.Warning{
				RecordID: inv.ID,
				Field:    f.name,
				Message:  "non-numeric value " + string(f.value) + " read as 0",
			})
		}
	}
	return out
}
