// Package month turns recognized handwriting into canonical year-month values.
//
// Months are qualified with a fixed reference year and serialized as YYYY-MM.
// Spreadsheet cells holding dates are read with ParseYearMonth.
package month

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnresolved is returned when text yields no month. Every parse
	// failure wraps it.
	ErrUnresolved = errors.New("month unresolved")

	// ErrOutOfRange is returned, together with ErrUnresolved, when text
	// parses to a number outside 1-12. Such values are never clamped.
	ErrOutOfRange = errors.New("month out of range")
)

// Canonical is a year-qualified month, serialized as YYYY-MM.
type Canonical struct {
	Year  int
	Month int
}

// New validates and builds a Canonical month.
func New(year, month int) (Canonical, error) {
	if month < 1 || month > 12 {
		return Canonical{}, fmt.Errorf("%w: %w: %d", ErrUnresolved, ErrOutOfRange, month)
	}
	if year < 1 || year > 9999 {
		return Canonical{}, fmt.Errorf("%w: year %d", ErrUnresolved, year)
	}
	return Canonical{Year: year, Month: month}, nil
}

// FromTime returns the month containing t.
func FromTime(t time.Time) Canonical {
	return Canonical{Year: t.Year(), Month: int(t.Month())}
}

// IsZero reports whether c is the zero value.
func (c Canonical) IsZero() bool {
	return c == Canonical{}
}

// String formats c as YYYY-MM.
func (c Canonical) String() string {
	return fmt.Sprintf("%04d-%02d", c.Year, c.Month)
}

// MarshalText encodes c as YYYY-MM.
func (c Canonical) MarshalText() ([]byte, error) {
	if c.IsZero() {
		return nil, fmt.Errorf("cannot marshal zero month")
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes any form accepted by ParseYearMonth.
func (c *Canonical) UnmarshalText(text []byte) error {
	v, err := ParseYearMonth(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

var yearMonthLayouts = []string{"2006-01-02", "2006/01/02", "2006-01", "2006/01"}

// ParseYearMonth reads a date or year-month as stored in spreadsheets:
// YYYY-MM-DD, YYYY/MM/DD, YYYY-MM or YYYY/MM. Single-digit months and days
// are accepted.
func ParseYearMonth(s string) (Canonical, error) {
	s = strings.TrimSpace(s)
	for _, layout := range yearMonthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), nil
		}
		// time.Parse wants two-digit fields for 01/02; retry with 1/2.
		loose := strings.NewReplacer("01", "1", "02", "2").Replace(layout)
		if t, err := time.Parse(loose, s); err == nil {
			return FromTime(t), nil
		}
	}
	return Canonical{}, fmt.Errorf("%w: %q is not a year-month", ErrUnresolved, s)
}
