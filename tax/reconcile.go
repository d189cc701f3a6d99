package tax

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/finance-engine/generic"
)

// =============================================================================
// PAYMENT IDENTITY
// =============================================================================

// PaymentKey is the deterministic identity of a tax payment.
func PaymentKey(kind generic.TaxKind, period generic.MonthKey) string {
	return fmt.Sprintf("%s:%s", kind, period)
}

var legacyKey = regexp.MustCompile(`^([A-Za-z]+)[-_:/ ]?(\d{4})[-_/]?(\d{1,2})$`)

// ParseLegacyKey recovers (kind, period) from a free-form payment id such as
// "irpj-2025-03", "ISS_2025_3" or "COFINS:2025-11". Months are 1-based.
func ParseLegacyKey(id string) (generic.TaxKind, generic.MonthKey, bool) {
	m := legacyKey.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return "", generic.NoMonth, false
	}
	kind, err := generic.ParseTaxKind(m[1])
	if err != nil {
		return "", generic.NoMonth, false
	}
	year, _ := strconv.Atoi(m[2])
	month, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 {
		return "", generic.NoMonth, false
	}
	return kind, generic.NewMonthKey(year, month-1), true
}

// Normalize fills Kind and Period from the legacy id when they are missing.
// ok is false when the payment has no usable identity.
func Normalize(p generic.TaxPayment) (generic.TaxPayment, bool) {
	if p.Kind != "" && !p.Period.IsZero() {
		return p, true
	}
	kind, period, ok := ParseLegacyKey(p.LegacyID)
	if !ok {
		return p, false
	}
	p.Kind, p.Period = kind, period
	return p, true
}

// IndexPayments keys payments by PaymentKey. Records that already carry
// (Kind, Period) win over records whose identity was recovered from a
// legacy id. Unidentifiable records are returned as warnings.
func IndexPayments(payments []generic.TaxPayment) (map[string]generic.TaxPayment, []generic.Warning) {
	idx := make(map[string]generic.TaxPayment, len(payments))
	var warnings []generic.Warning
	var recovered []generic.TaxPayment

	for _, p := range payments {
		if p.Kind != "" && !p.Period.IsZero() {
			idx[PaymentKey(p.Kind, p.Period)] = p
			continue
		}
		np, ok := Normalize(p)
		if !ok {
			warnings = append(warnings, generic.Warning{
				RecordID: p.LegacyID, Field: "id", Message: "payment has no tax kind/period",
			})
			continue
		}
		recovered = append(recovered, np)
	}
	for _, p := range recovered {
		key := PaymentKey(p.Kind, p.Period)
		if _, exists := idx[key]; !exists {
			idx[key] = p
		}
	}
	return idx, warnings
}

// =============================================================================
// RECONCILIATION
// =============================================================================

type Status string

const (
	StatusPaid    Status = "paid"
	StatusPending Status = "pending"
	StatusOverdue Status = "overdue"
)

// FineTolerance is the difference between paid and due below which a
// payment is considered exact.
var FineTolerance = decimal.RequireFromString("0.05")

// Item is one (tax kind, month) obligation matched with its payment.
type Item struct {
	Kind    generic.TaxKind
	Period  generic.MonthKey
	Key     string
	DueDate generic.Date
	Due     decimal.Decimal
	Paid    decimal.Decimal
	Status  Status

	// Adjustment is Paid - Due when a payment differs from the due amount
	// by more than FineTolerance: positive is a fine, negative a shortfall.
	Adjustment decimal.Decimal
}

type Reconciliation struct {
	Items        []Item
	PaidTotal    decimal.Decimal
	PendingTotal decimal.Decimal
	OverdueTotal decimal.Decimal
	// FineTotal is the signed sum of adjustments.
	FineTotal decimal.Decimal
	Warnings  []generic.Warning
}

// Reconcile matches every month/tax obligation of a report with the
// caller's payments. An obligation appears when something is due or
// something was paid. Items are ordered by month, then by tax kind.
func Reconcile(report Report, payments []generic.TaxPayment, today generic.Date) Reconciliation {
	idx, warnings := IndexPayments(payments)
	rec := Reconciliation{
		PaidTotal:    decimal.Zero,
		PendingTotal: decimal.Zero,
		OverdueTotal: decimal.Zero,
		FineTotal:    decimal.Zero,
		Warnings:     warnings,
	}

	for _, m := range report.Months {
		for _, kind := range generic.TaxKinds {
			line := m.Line(kind)
			key := PaymentKey(kind, m.Period)
			paid := decimal.Zero
			if p, ok := idx[key]; ok {
				paid = p.Amount
			}
			if !line.Due.IsPositive() && !paid.IsPositive() {
				continue
			}

			item := Item{
				Kind:       kind,
				Period:     m.Period,
				Key:        key,
				DueDate:    line.DueDate,
				Due:        line.Due,
				Paid:       paid,
				Status:     classify(line, paid, today),
				Adjustment: decimal.Zero,
			}

			switch item.Status {
			case StatusPaid:
				rec.PaidTotal = rec.PaidTotal.Add(paid)
				if diff := paid.Sub(line.Due); diff.Abs().GreaterThan(FineTolerance) {
					item.Adjustment = diff
					rec.FineTotal = rec.FineTotal.Add(diff)
				}
			case StatusOverdue:
				rec.OverdueTotal = rec.OverdueTotal.Add(line.Due)
			default:
				rec.PendingTotal = rec.PendingTotal.Add(line.Due)
			}
			rec.Items = append(rec.Items, item)
		}
	}
	return rec
}

func classify(line Line, paid decimal.Decimal, today generic.Date) Status {
	switch {
	case paid.IsPositive():
		return StatusPaid
	case today.After(line.DueDate) && line.Due.IsPositive():
		return StatusOverdue
	default:
		return StatusPending
	}
}
