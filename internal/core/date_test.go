package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		month Month
		days  int
		end   Date
	}{
		{NewMonth(2024, time.February), 29, NewDate(2024, 2, 29)},
		{NewMonth(2023, time.February), 28, NewDate(2023, 2, 28)},
		{NewMonth(2024, time.April), 30, NewDate(2024, 4, 30)},
		{NewMonth(2024, time.December), 31, NewDate(2024, 12, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			assert.Equal(t, tt.days, tt.month.Days())
			assert.Equal(t, tt.end, tt.month.End())
			assert.Equal(t, 1, tt.month.Start().Day())
		})
	}
}

func TestMonthDayClamps(t *testing.T) {
	feb := NewMonth(2023, time.February)
	assert.Equal(t, NewDate(2023, 2, 28), feb.Day(31))
	assert.Equal(t, NewDate(2023, 2, 1), feb.Day(0))
	assert.Equal(t, NewDate(2023, 2, 14), feb.Day(14))
}

func TestNewMonthNormalises(t *testing.T) {
	assert.Equal(t, Month{Year: 2025, Month: time.January}, NewMonth(2024, 13))
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-09")
	require.NoError(t, err)
	assert.Equal(t, NewMonth(2024, time.September), m)

	m, err = ParseMonth("2024-09-01")
	require.NoError(t, err)
	assert.Equal(t, NewMonth(2024, time.September), m)

	_, err = ParseMonth("09/2024")
	assert.ErrorIs(t, err, ErrInvalidMonthSpec)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.String())

	_, err = ParseDate("2023-02-29")
	assert.ErrorIs(t, err, ErrInvalidDate)
	assert.Equal(t, "", Date{}.String())
}

func TestMonthLabel(t *testing.T) {
	assert.Equal(t, "février 2024", NewMonth(2024, time.February).Label())
	assert.Equal(t, "2024-02", NewMonth(2024, time.February).String())
}
