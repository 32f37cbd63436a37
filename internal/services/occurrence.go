// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring expense occurrence
// evaluation. Each frequency (weekly, monthly, yearly) has its own strategy
// that knows where in a calendar month the rule lands.

package services

import (
	"fmt"

	"budgetmanager/internal/core"
)

// OccurrenceStrategy is the strategy interface for locating a recurrence
// inside a calendar month. Implementations only look at the calendar; the
// rule's validity window is applied by the evaluator functions below.
type OccurrenceStrategy interface {
	// Candidates returns every date in month on which the recurrence lands,
	// in ascending order. Empty means the recurrence skips this month.
	Candidates(r core.Recurrence, month core.Month) []core.Date

	// Nominal returns the date the recurrence is booked on in month,
	// whether or not it actually lands there.
	Nominal(r core.Recurrence, month core.Month) core.Date
}

// MonthlyStrategy implements OccurrenceStrategy for monthly rules.
type MonthlyStrategy struct{}

// Candidates returns the configured day, clamped to the month's last day.
func (MonthlyStrategy) Candidates(r core.Recurrence, month core.Month) []core.Date {
	rec, ok := r.(core.MonthlyRecurrence)
	if !ok || rec.Day < 1 {
		return nil
	}
	return []core.Date{month.Day(rec.Day)}
}

func (MonthlyStrategy) Nominal(r core.Recurrence, month core.Month) core.Date {
	rec, _ := r.(core.MonthlyRecurrence)
	return month.Day(rec.Day)
}

// WeeklyStrategy implements OccurrenceStrategy for weekly rules.
type WeeklyStrategy struct{}

// Candidates scans the month day by day and keeps every matching weekday.
func (WeeklyStrategy) Candidates(r core.Recurrence, month core.Month) []core.Date {
	rec, ok := r.(core.WeeklyRecurrence)
	if !ok {
		return nil
	}
	var out []core.Date
	end := month.End()
	for d := month.Start(); !d.After(end.Time); d = d.AddDays(1) {
		if d.Weekday() == rec.Weekday {
			out = append(out, d)
		}
	}
	return out
}

// Nominal is the first matching weekday on or after the 1st.
func (WeeklyStrategy) Nominal(r core.Recurrence, month core.Month) core.Date {
	rec, ok := r.(core.WeeklyRecurrence)
	if !ok {
		return month.Start()
	}
	offset := (int(rec.Weekday) - int(month.Start().Weekday()) + 7) % 7
	return month.Start().AddDays(offset)
}

// YearlyStrategy implements OccurrenceStrategy for yearly rules.
type YearlyStrategy struct{}

// Candidates returns the clamped day (default the 1st) when month is the
// configured month of the year.
func (YearlyStrategy) Candidates(r core.Recurrence, month core.Month) []core.Date {
	rec, ok := r.(core.YearlyRecurrence)
	if !ok || rec.Month == 0 || month.Month != rec.Month {
		return nil
	}
	return []core.Date{month.Day(yearlyDay(rec))}
}

func (YearlyStrategy) Nominal(r core.Recurrence, month core.Month) core.Date {
	rec, _ := r.(core.YearlyRecurrence)
	return month.Day(yearlyDay(rec))
}

func yearlyDay(rec core.YearlyRecurrence) int {
	if rec.Day == 0 {
		return 1
	}
	return rec.Day
}

// occurrenceStrategies maps frequencies to their strategies.
var occurrenceStrategies = map[core.Frequency]OccurrenceStrategy{
	core.Monthly: MonthlyStrategy{},
	core.Weekly:  WeeklyStrategy{},
	core.Yearly:  YearlyStrategy{},
}

// GetOccurrenceStrategy returns the strategy for a frequency.
// Returns an error if the frequency is not supported.
func GetOccurrenceStrategy(frequency core.Frequency) (OccurrenceStrategy, error) {
	strategy, ok := occurrenceStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %q", frequency)
	}
	return strategy, nil
}

// ShouldOccurInMonth reports whether rule produces at least one occurrence
// in month that lies inside the rule's [StartDate, EndDate] window.
// Inactive rules and rules with auto-create disabled never occur.
func ShouldOccurInMonth(rule core.RecurrenceRule, month core.Month) bool {
	_, ok := Occurrence(rule, month)
	return ok
}

// OccurrenceDate returns the date rule is booked on in month. For weekly
// rules that is the first matching weekday of the month; the rule's window
// is not consulted. Unknown frequencies book on the 1st.
func OccurrenceDate(rule core.RecurrenceRule, month core.Month) core.Date {
	strategy, err := GetOccurrenceStrategy(rule.Frequency())
	if err != nil {
		return month.Start()
	}
	return strategy.Nominal(rule.Recurrence, month)
}

// Occurrence returns the first date in month on which rule occurs inside its
// window. This is the single pass the materializer relies on, so the date
// it books is always one that passed the window check.
func Occurrence(rule core.RecurrenceRule, month core.Month) (core.Date, bool) {
	if !rule.IsActive || !rule.AutoCreate {
		return core.Date{}, false
	}

	if rule.StartDate.After(month.End().Time) {
		return core.Date{}, false // not started yet
	}
	if rule.EndDate != nil && !rule.EndDate.IsZero() && rule.EndDate.Before(month.Start().Time) {
		return core.Date{}, false // already ended
	}

	strategy, err := GetOccurrenceStrategy(rule.Frequency())
	if err != nil {
		return core.Date{}, false
	}

	for _, d := range strategy.Candidates(rule.Recurrence, month) {
		if rule.InWindow(d) {
			return d, true
		}
	}
	return core.Date{}, false
}
