package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfDay(t *testing.T) {
	in := time.Date(2026, 3, 4, 17, 45, 12, 999, time.Local)
	got := StartOfDay(in)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.Local), got)
}

func TestParseInputDate(t *testing.T) {
	got, err := ParseInputDate("2026-03-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.Local), got)

	got, err = ParseInputDate("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ParseInputDate("not-a-date")
	assert.Error(t, err)
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 29, DaysInMonth(time.Date(2024, 2, 10, 0, 0, 0, 0, time.Local)))
	assert.Equal(t, 28, DaysInMonth(time.Date(2026, 2, 10, 0, 0, 0, 0, time.Local)))
	assert.Equal(t, 30, DaysInMonth(time.Date(2026, 4, 1, 0, 0, 0, 0, time.Local)))
	assert.Equal(t, 31, DaysInMonth(time.Date(2026, 1, 31, 0, 0, 0, 0, time.Local)))
}

func TestClampDayOfMonth(t *testing.T) {
	april := time.Date(2026, 4, 1, 0, 0, 0, 0, time.Local)
	assert.Equal(t, 30, ClampDayOfMonth(31, april))
	assert.Equal(t, 15, ClampDayOfMonth(15, april))

	feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.Local)
	assert.Equal(t, 28, ClampDayOfMonth(31, feb))
}

func TestNextMidnight(t *testing.T) {
	now := time.Date(2026, 3, 4, 23, 59, 0, 0, time.Local)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.Local), NextMidnight(now))

	atMidnight := time.Date(2026, 3, 4, 0, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.Local), NextMidnight(atMidnight))
}

func TestSameDayAndDayKey(t *testing.T) {
	a := time.Date(2026, 3, 4, 1, 0, 0, 0, time.Local)
	b := time.Date(2026, 3, 4, 23, 0, 0, 0, time.Local)
	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, b.AddDate(0, 0, 1)))
	assert.Equal(t, "2026-03-04", DayKey(a))
}
