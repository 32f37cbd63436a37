package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Monthly Frequency = "monthly"
	Weekly  Frequency = "weekly"
	Yearly  Frequency = "yearly"
)

// Frequency names how often a recurring expense repeats.
type Frequency string

func (f Frequency) Valid() bool {
	switch f {
	case Monthly, Weekly, Yearly:
		return true
	}
	return false
}

var (
	ErrInvalidFrequency   = errors.New("invalid frequency")
	ErrMissingDayOfMonth  = errors.New("day_of_month is required for monthly frequency")
	ErrMissingDayOfWeek   = errors.New("day_of_week is required for weekly frequency")
	ErrMissingMonthOfYear = errors.New("month_of_year is required for yearly frequency")
	ErrInvalidDayOfMonth  = errors.New("day_of_month must be between 1 and 31")
	ErrInvalidDayOfWeek   = errors.New("invalid day_of_week")
	ErrInvalidMonthOfYear = errors.New("month_of_year must be between 1 and 12")
)

// Recurrence is the frequency-specific part of a recurring expense. Only the
// variants in this package implement it, so each frequency always carries
// exactly the fields it needs.
type Recurrence interface {
	Frequency() Frequency
	recurrence()
}

// MonthlyRecurrence occurs once a month on Day (clamped to short months).
type MonthlyRecurrence struct {
	Day int
}

// WeeklyRecurrence occurs every week on Weekday.
type WeeklyRecurrence struct {
	Weekday time.Weekday
}

// YearlyRecurrence occurs once a year in Month. Day 0 means the 1st.
type YearlyRecurrence struct {
	Month time.Month
	Day   int
}

func (MonthlyRecurrence) Frequency() Frequency { return Monthly }
func (WeeklyRecurrence) Frequency() Frequency  { return Weekly }
func (YearlyRecurrence) Frequency() Frequency  { return Yearly }

func (MonthlyRecurrence) recurrence() {}
func (WeeklyRecurrence) recurrence()  {}
func (YearlyRecurrence) recurrence()  {}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday maps a lowercase English weekday name to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdayNames[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDayOfWeek, name)
	}
	return wd, nil
}

// WeekdayName is the inverse of ParseWeekday.
func WeekdayName(wd time.Weekday) string {
	return strings.ToLower(wd.String())
}

// RecurrenceFields is the flat, column-shaped form of a Recurrence as it is
// stored and exchanged over the API.
type RecurrenceFields struct {
	Frequency   Frequency
	DayOfMonth  *int
	DayOfWeek   *string
	MonthOfYear *int
}

// NewRecurrence builds the variant for f.Frequency. Fields that do not apply
// to the frequency are ignored.
func NewRecurrence(f RecurrenceFields) (Recurrence, error) {
	switch f.Frequency {
	case Monthly:
		if f.DayOfMonth == nil || *f.DayOfMonth == 0 {
			return nil, ErrMissingDayOfMonth
		}
		if *f.DayOfMonth < 1 || *f.DayOfMonth > 31 {
			return nil, ErrInvalidDayOfMonth
		}
		return MonthlyRecurrence{Day: *f.DayOfMonth}, nil

	case Weekly:
		if f.DayOfWeek == nil || *f.DayOfWeek == "" {
			return nil, ErrMissingDayOfWeek
		}
		wd, err := ParseWeekday(*f.DayOfWeek)
		if err != nil {
			return nil, err
		}
		return WeeklyRecurrence{Weekday: wd}, nil

	case Yearly:
		if f.MonthOfYear == nil || *f.MonthOfYear == 0 {
			return nil, ErrMissingMonthOfYear
		}
		if *f.MonthOfYear < 1 || *f.MonthOfYear > 12 {
			return nil, ErrInvalidMonthOfYear
		}
		day := 0
		if f.DayOfMonth != nil {
			if *f.DayOfMonth < 0 || *f.DayOfMonth > 31 {
				return nil, ErrInvalidDayOfMonth
			}
			day = *f.DayOfMonth
		}
		return YearlyRecurrence{Month: time.Month(*f.MonthOfYear), Day: day}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFrequency, f.Frequency)
	}
}

// FieldsOf flattens r back into RecurrenceFields.
func FieldsOf(r Recurrence) RecurrenceFields {
	switch v := r.(type) {
	case MonthlyRecurrence:
		day := v.Day
		return RecurrenceFields{Frequency: Monthly, DayOfMonth: &day}
	case WeeklyRecurrence:
		name := WeekdayName(v.Weekday)
		return RecurrenceFields{Frequency: Weekly, DayOfWeek: &name}
	case YearlyRecurrence:
		month := int(v.Month)
		f := RecurrenceFields{Frequency: Yearly, MonthOfYear: &month}
		if v.Day != 0 {
			day := v.Day
			f.DayOfMonth = &day
		}
		return f
	default:
		return RecurrenceFields{}
	}
}
