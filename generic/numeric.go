package generic

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a monetary string written either in Brazilian format
// ("1.234,56", "R$ 1.234,56") or in plain decimal format ("1234.56").
//
// When a comma is present it is the decimal separator and dots are
// thousands separators. Without a comma, a single dot is the decimal
// separator and repeated dots are thousands separators.
//
// ok is false when s is not numeric; the returned value is then zero.
func ParseAmount(s string) (d decimal.Decimal, ok bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return decimal.Zero, false
	}

	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// CoerceAmount is ParseAmount without the ok flag: non-numeric input is 0.
func CoerceAmount(s string) decimal.Decimal {
	d, _ := ParseAmount(s)
	return d
}

// =============================================================================
// LOOSE DECIMAL - A number as it was imported
// =============================================================================

// LooseDecimal keeps the raw text of an imported monetary field. It accepts
// JSON numbers and strings, and never fails to produce a value: anything
// non-numeric reads as zero.
type LooseDecimal string

func LooseOf(d decimal.Decimal) LooseDecimal { return LooseDecimal(d.String()) }

// Decimal returns the coerced value.
func (l LooseDecimal) Decimal() decimal.Decimal { return CoerceAmount(string(l)) }

// Valid reports whether the raw text is empty or numeric.
func (l LooseDecimal) Valid() bool {
	if strings.TrimSpace(string(l)) == "" {
		return true
	}
	_, ok := ParseAmount(string(l))
	return ok
}

func (l *LooseDecimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = LooseDecimal(s)
		return nil
	}
	*l = LooseDecimal(b)
	return nil
}

func (l LooseDecimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(l))
}
