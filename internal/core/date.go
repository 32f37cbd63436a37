package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonthSpec = errors.New("invalid month, expected YYYY-MM")
)

// Date is a calendar day. The time part is always midnight UTC.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// IsEmpty returns true if the date is zero (unset optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Month is a calendar month, the unit a budget is scoped to.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth creates a Month, normalising out-of-range month numbers.
func NewMonth(year int, month time.Month) Month {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

// MonthOf returns the month containing d.
func MonthOf(d Date) Month {
	return Month{Year: d.Year(), Month: d.Time.Month()}
}

// ParseMonth accepts "YYYY-MM" or a first-of-month "YYYY-MM-DD".
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01", s); err == nil {
		return Month{Year: t.Year(), Month: t.Month()}, nil
	}
	if d, err := ParseDate(s); err == nil {
		return MonthOf(d), nil
	}
	return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonthSpec, s)
}

// Start returns the first day of the month.
func (m Month) Start() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

// End returns the last day of the month.
func (m Month) End() Date {
	return NewDate(m.Year, int(m.Month), m.Days())
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Day returns the given day of the month, clamped to the month's last day.
// Days below 1 are treated as 1.
func (m Month) Day(day int) Date {
	if day < 1 {
		day = 1
	}
	if last := m.Days(); day > last {
		day = last
	}
	return NewDate(m.Year, int(m.Month), day)
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// Label is the human month name used for generated budget names, e.g. "février 2024".
func (m Month) Label() string {
	if m.Month < time.January || m.Month > time.December {
		return m.String()
	}
	return fmt.Sprintf("%s %d", frenchMonths[m.Month-1], m.Year)
}
