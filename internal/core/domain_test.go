package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func validRule() RecurrenceRule {
	return RecurrenceRule{
		UserID:     1,
		Label:      "Loyer",
		Amount:     Money{Cents: 85000},
		Recurrence: MonthlyRecurrence{Day: 1},
		AutoCreate: true,
		IsActive:   true,
		StartDate:  NewDate(2024, 1, 1),
	}
}

func TestRecurrenceRuleValidate(t *testing.T) {
	end := NewDate(2023, 12, 31)
	sameDay := NewDate(2024, 1, 1)

	tests := []struct {
		name    string
		mutate  func(*RecurrenceRule)
		wantErr error
	}{
		{name: "valid", mutate: func(*RecurrenceRule) {}},
		{name: "empty label", mutate: func(r *RecurrenceRule) { r.Label = "  " }, wantErr: ErrEmptyLabel},
		{name: "zero amount", mutate: func(r *RecurrenceRule) { r.Amount = Money{} }, wantErr: ErrInvalidAmount},
		{name: "missing recurrence", mutate: func(r *RecurrenceRule) { r.Recurrence = nil }, wantErr: ErrMissingRecurrence},
		{name: "missing start", mutate: func(r *RecurrenceRule) { r.StartDate = Date{} }, wantErr: ErrMissingStartDate},
		{name: "end before start", mutate: func(r *RecurrenceRule) { r.EndDate = &end }, wantErr: ErrEndBeforeStart},
		{name: "end equals start", mutate: func(r *RecurrenceRule) { r.EndDate = &sameDay }},
		{
			name:    "payment method too long",
			mutate:  func(r *RecurrenceRule) { r.PaymentMethod = string(make([]byte, 101)) },
			wantErr: ErrPaymentMethodLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRule()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRecurrenceRuleInWindow(t *testing.T) {
	end := NewDate(2024, 3, 31)
	r := validRule()
	r.EndDate = &end

	assert.False(t, r.InWindow(NewDate(2023, 12, 31)))
	assert.True(t, r.InWindow(NewDate(2024, 1, 1)))
	assert.True(t, r.InWindow(NewDate(2024, 3, 31)))
	assert.False(t, r.InWindow(NewDate(2024, 4, 1)))

	r.EndDate = nil
	assert.True(t, r.InWindow(NewDate(2099, 1, 1)))
}

func TestNewRecurrence(t *testing.T) {
	tests := []struct {
		name    string
		fields  RecurrenceFields
		want    Recurrence
		wantErr error
	}{
		{
			name:   "monthly",
			fields: RecurrenceFields{Frequency: Monthly, DayOfMonth: intPtr(31), DayOfWeek: strPtr("monday")},
			want:   MonthlyRecurrence{Day: 31},
		},
		{name: "monthly without day", fields: RecurrenceFields{Frequency: Monthly}, wantErr: ErrMissingDayOfMonth},
		{name: "monthly day 32", fields: RecurrenceFields{Frequency: Monthly, DayOfMonth: intPtr(32)}, wantErr: ErrInvalidDayOfMonth},
		{
			name:   "weekly",
			fields: RecurrenceFields{Frequency: Weekly, DayOfWeek: strPtr("saturday")},
			want:   WeeklyRecurrence{Weekday: time.Saturday},
		},
		{name: "weekly without day", fields: RecurrenceFields{Frequency: Weekly}, wantErr: ErrMissingDayOfWeek},
		{name: "weekly bad name", fields: RecurrenceFields{Frequency: Weekly, DayOfWeek: strPtr("Samedi")}, wantErr: ErrInvalidDayOfWeek},
		{
			name:   "yearly with day",
			fields: RecurrenceFields{Frequency: Yearly, MonthOfYear: intPtr(9), DayOfMonth: intPtr(15)},
			want:   YearlyRecurrence{Month: time.September, Day: 15},
		},
		{
			name:   "yearly without day",
			fields: RecurrenceFields{Frequency: Yearly, MonthOfYear: intPtr(9)},
			want:   YearlyRecurrence{Month: time.September},
		},
		{name: "yearly without month", fields: RecurrenceFields{Frequency: Yearly, DayOfMonth: intPtr(1)}, wantErr: ErrMissingMonthOfYear},
		{name: "yearly month 13", fields: RecurrenceFields{Frequency: Yearly, MonthOfYear: intPtr(13)}, wantErr: ErrInvalidMonthOfYear},
		{name: "unknown frequency", fields: RecurrenceFields{Frequency: "daily"}, wantErr: ErrInvalidFrequency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewRecurrence(tt.fields)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldsOfRoundTrip(t *testing.T) {
	for _, r := range []Recurrence{
		MonthlyRecurrence{Day: 5},
		WeeklyRecurrence{Weekday: time.Sunday},
		YearlyRecurrence{Month: time.February, Day: 29},
		YearlyRecurrence{Month: time.July},
	} {
		got, err := NewRecurrence(FieldsOf(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	assert.Equal(t, RecurrenceFields{}, FieldsOf(nil))
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{Date: NewDate(2025, 1, 1), Label: "ok", Amount: Money{Cents: 100}, SubcategoryID: 3}
	require.NoError(t, good.Validate())

	bads := []Expense{
		{Label: "a", Amount: Money{Cents: 1}, SubcategoryID: 1},
		{Date: NewDate(2025, 1, 1), Label: "", Amount: Money{Cents: 1}, SubcategoryID: 1},
		{Date: NewDate(2025, 1, 1), Label: "a", Amount: Money{Cents: 0}, SubcategoryID: 1},
		{Date: NewDate(2025, 1, 1), Label: "a", Amount: Money{Cents: 1}},
	}
	for i, e := range bads {
		assert.Error(t, e.Validate(), "case %d", i)
	}
}

func TestTemplateFindSubcategory(t *testing.T) {
	tpl := Template{
		Name: "Default",
		Categories: []TemplateCategory{
			{ID: 1, Name: "Logement", Subcategories: []TemplateSubcategory{{ID: 10, Name: "Loyer"}}},
			{ID: 2, Name: "Loisirs", Subcategories: []TemplateSubcategory{{ID: 20, Name: "Netflix"}}},
		},
	}
	require.NoError(t, tpl.Validate())

	cat, sub, ok := tpl.FindSubcategory(20)
	require.True(t, ok)
	assert.Equal(t, "Loisirs", cat.Name)
	assert.Equal(t, "Netflix", sub.Name)

	_, _, ok = tpl.FindSubcategory(99)
	assert.False(t, ok)

	tpl.Categories[0].Subcategories[0].Name = ""
	assert.ErrorIs(t, tpl.Validate(), ErrEmptyName)
}

func TestSummarize(t *testing.T) {
	b := Budget{
		Month:   NewMonth(2024, time.February),
		Revenue: Money{Cents: 300000},
		Categories: BudgetTree{
			{ID: 1, Name: "Logement", Planned: Money{Cents: 90000}, Subcategories: []BudgetSubcategory{{ID: 11, Name: "Loyer"}}},
			{ID: 2, Name: "Courses", Planned: Money{Cents: 40000}, Subcategories: []BudgetSubcategory{{ID: 21, Name: "Marché"}}},
		},
	}
	expenses := []Expense{
		{SubcategoryID: 11, Amount: Money{Cents: 85000}},
		{SubcategoryID: 21, Amount: Money{Cents: 5000}},
		{SubcategoryID: 21, Amount: Money{Cents: 2500}},
		{SubcategoryID: 99, Amount: Money{Cents: 100}},
	}

	got := Summarize(b, expenses)
	assert.Equal(t, int64(130000), got.Planned.Cents)
	assert.Equal(t, int64(92600), got.Spent.Cents)
	require.Len(t, got.ByCategory, 2)
	assert.Equal(t, int64(85000), got.ByCategory[0].Spent.Cents)
	assert.Equal(t, int64(7500), got.ByCategory[1].Spent.Cents)
}
