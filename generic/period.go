package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD KEYS - The buckets every aggregation groups by
// =============================================================================

// MonthKey identifies a calendar month. Month0 is the month index (0-11).
// The zero value is NoMonth, the "no match" sentinel.
type MonthKey struct {
	Year   int
	Month0 int
}

// NoMonth is returned when a date is absent or could not be parsed.
var NoMonth = MonthKey{}

func NewMonthKey(year, month0 int) MonthKey {
	return MonthKey{Year: year, Month0: month0}
}

// ParseMonthKey parses the "YYYY-MM" form produced by MonthKey.String.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return NoMonth, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return NewMonthKey(t.Year(), int(t.Month())-1), nil
}

func (k MonthKey) IsZero() bool       { return k == NoMonth }
func (k MonthKey) Month() time.Month  { return time.Month(k.Month0 + 1) }
func (k MonthKey) Start() Date        { return StartOfMonth(k.Year, k.Month()) }
func (k MonthKey) End() Date          { return EndOfMonth(k.Year, k.Month()) }
func (k MonthKey) Quarter() QuarterKey { return QuarterKey{Year: k.Year, Quarter0: k.Month0 / 3} }

func (k MonthKey) Next() MonthKey {
	if k.Month0 == 11 {
		return MonthKey{Year: k.Year + 1, Month0: 0}
	}
	return MonthKey{Year: k.Year, Month0: k.Month0 + 1}
}

func (k MonthKey) Prev() MonthKey {
	if k.Month0 == 0 {
		return MonthKey{Year: k.Year - 1, Month0: 11}
	}
	return MonthKey{Year: k.Year, Month0: k.Month0 - 1}
}

// Before orders keys chronologically.
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month0 < other.Month0
}

func (k MonthKey) String() string {
	if k.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month0+1)
}

// QuarterKey identifies a fixed calendar quarter. Quarter0 is 0-3.
type QuarterKey struct {
	Year     int
	Quarter0 int
}

func (q QuarterKey) FirstMonth() MonthKey { return MonthKey{Year: q.Year, Month0: q.Quarter0 * 3} }
func (q QuarterKey) LastMonth() MonthKey  { return MonthKey{Year: q.Year, Month0: q.Quarter0*3 + 2} }

func (q QuarterKey) Months() [3]MonthKey {
	first := q.FirstMonth()
	return [3]MonthKey{first, first.Next(), first.Next().Next()}
}

func (q QuarterKey) String() string {
	return fmt.Sprintf("%04d-Q%d", q.Year, q.Quarter0+1)
}

// MonthsOfYear returns the 12 month keys of a year, in order.
func MonthsOfYear(year int) [12]MonthKey {
	var months [12]MonthKey
	for i := range months {
		months[i] = NewMonthKey(year, i)
	}
	return months
}

// QuartersOfYear returns the 4 quarter keys of a year, in order.
func QuartersOfYear(year int) [4]QuarterKey {
	var quarters [4]QuarterKey
	for i := range quarters {
		quarters[i] = QuarterKey{Year: year, Quarter0: i}
	}
	return quarters
}

// =============================================================================
// PERIOD RESOLVER
// =============================================================================

// ResolveCalendarPeriod maps a date string to its calendar month.
//
//   - ""           -> (NoMonth, nil)
//   - malformed    -> (NoMonth, *DateFormatError)
//   - valid date   -> (month key, nil)
func ResolveCalendarPeriod(s string) (MonthKey, error) {
	d, err := ParseDate(s)
	if err != nil {
		return NoMonth, err
	}
	if d.IsZero() {
		return NoMonth, nil
	}
	return d.MonthKey(), nil
}

// PeriodMatches reports whether the calendar month of s is (year, month0).
// Malformed or empty dates never match.
func PeriodMatches(s string, year, month0 int) bool {
	k, err := ResolveCalendarPeriod(s)
	if err != nil || k.IsZero() {
		return false
	}
	return k == NewMonthKey(year, month0)
}

// ValidateClosingDay checks a card statement closing day.
func ValidateClosingDay(closingDay int) error {
	if closingDay < 1 || closingDay > 31 {
		return fmt.Errorf("%w: %d", ErrInvalidClosingDay, closingDay)
	}
	return nil
}

// BillingPeriodFor returns the month whose statement a purchase belongs to.
//
// A purchase made on or after the closing day goes to the next month's
// statement. When the purchase month is shorter than the closing day, every
// day of that month is before closing and stays in the current month.
// The caller is expected to have validated closingDay.
func BillingPeriodFor(d Date, closingDay int) MonthKey {
	k := d.MonthKey()
	if d.Day() >= closingDay {
		return k.Next()
	}
	return k
}

// ResolveBillingPeriod maps a purchase date string to the first day
// (YYYY-MM-01) of the month whose statement the purchase falls in.
func ResolveBillingPeriod(purchase string, closingDay int) (string, error) {
	if err := ValidateClosingDay(closingDay); err != nil {
		return "", err
	}
	d, err := ParseDate(purchase)
	if err != nil {
		return "", err
	}
	if d.IsZero() {
		return "", &DateFormatError{Input: purchase}
	}
	return BillingPeriodFor(d, closingDay).Start().String(), nil
}
