// Package tax implements the presumed-profit tax calculator.
//
// Five taxes are computed from issued invoices: ISS, PIS and COFINS are
// assessed monthly on revenue; IRPJ and CSLL are assessed per fixed
// calendar quarter, IRPJ with a progressive surcharge on presumed profit
// above a quarterly threshold. Amounts retained at source by the payer
// reduce what is due.
package tax

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/finance-engine/generic"
)

// RateTable holds every rate as a fraction (0.05 = 5%).
type RateTable struct {
	ISS    decimal.Decimal
	PIS    decimal.Decimal
	COFINS decimal.Decimal
	IRPJ   decimal.Decimal
	CSLL   decimal.Decimal

	// PresumedProfit is the share of revenue treated as profit.
	PresumedProfit decimal.Decimal
	// SurchargeRate applies to quarterly presumed profit above SurchargeThreshold.
	SurchargeRate      decimal.Decimal
	SurchargeThreshold decimal.Decimal
}

// DefaultRates returns the presumed-profit regime rates.
func DefaultRates() RateTable {
	return RateTable{
		ISS:                decimal.RequireFromString("0.05"),
		PIS:                decimal.RequireFromString("0.0065"),
		COFINS:             decimal.RequireFromString("0.03"),
		IRPJ:               decimal.RequireFromString("0.048"),
		CSLL:               decimal.RequireFromString("0.0288"),
		PresumedProfit:     decimal.RequireFromString("0.32"),
		SurchargeRate:      decimal.RequireFromString("0.10"),
		SurchargeThreshold: decimal.NewFromInt(60000),
	}
}

// Rate returns the base rate of a tax kind.
func (r RateTable) Rate(kind generic.TaxKind) decimal.Decimal {
	switch kind {
	case generic.TaxISS:
		return r.ISS
	case generic.TaxPIS:
		return r.PIS
	case generic.TaxCOFINS:
		return r.COFINS
	case generic.TaxIRPJ:
		return r.IRPJ
	case generic.TaxCSLL:
		return r.CSLL
	}
	return decimal.Zero
}

// Validate rejects negative rates and thresholds.
func (r RateTable) Validate() error {
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"iss", r.ISS},
		{"pis", r.PIS},
		{"cofins", r.COFINS},
		{"irpj", r.IRPJ},
		{"csll", r.CSLL},
		{"presumed_profit", r.PresumedProfit},
		{"surcharge_rate", r.SurchargeRate},
		{"surcharge_threshold", r.SurchargeThreshold},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return fmt.Errorf("%w: %s is %s", generic.ErrInvalidRate, f.name, f.value)
		}
	}
	return nil
}
