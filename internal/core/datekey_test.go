package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateKeyRoundTrip(t *testing.T) {
	keys := []string{"2024-01-15", "2024-02-29", "1999-12-31", "2025-01-01", "2023-03-26"}

	zones := []string{"UTC", "America/Los_Angeles", "Asia/Tokyo", "Pacific/Kiritimati"}
	for _, zone := range zones {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			t.Skipf("zone %s unavailable: %v", zone, err)
		}
		prev := time.Local
		time.Local = loc
		for _, k := range keys {
			d, err := ParseDateKey(k)
			require.NoError(t, err, k)
			assert.Equal(t, k, d.Key(), "zone %s", zone)
			assert.Equal(t, 0, d.Hour())
			assert.Equal(t, time.UTC, d.Location())
			assert.Equal(t, k, DateFromUnixMilli(d.UnixMilli()).Key())
		}
		time.Local = prev
	}
}

func TestParseDateKeyRejects(t *testing.T) {
	cases := []string{
		"",
		"2024-1-15",
		"2024/01/15",
		"2024-13-01",
		"2024-00-10",
		"2023-02-29",
		"2024-04-31",
		"2024-01-00",
		"abcd-ef-gh",
		"2024-01-15T00:00:00Z",
		"2024-+1-05",
		"2024-01-+5",
		"+024-01-05",
		"2024--1-05",
		"2024-01-1 ",
	}
	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDateKey(in)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestDateFromInstantUsesUTCFields(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 2024-01-16 01:30 in Tokyo is still the 15th in UTC.
	in := time.Date(2024, 1, 16, 1, 30, 0, 0, tokyo)
	assert.Equal(t, "2024-01-15", DateFromInstant(in).Key())

	legacy := time.Date(2024, 3, 3, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, "2024-03-03", DateFromInstant(legacy).Key())
}

func TestWeekStart(t *testing.T) {
	cases := map[string]string{
		"2024-03-03": "2024-03-03", // Sunday
		"2024-03-09": "2024-03-03", // Saturday
		"2024-03-10": "2024-03-10",
		"2024-01-02": "2023-12-31",
	}
	for in, want := range cases {
		d, err := ParseDateKey(in)
		require.NoError(t, err)
		assert.Equal(t, want, d.WeekStart().Key(), in)
	}
}

func TestEndOfDay(t *testing.T) {
	d := NewDate(2024, 1, 31)
	end := d.EndOfDay()
	assert.Equal(t, "2024-01-31", DateFromInstant(end).Key())
	assert.Equal(t, "2024-02-01", DateFromInstant(end.Add(time.Millisecond)).Key())
}

func TestParseMonthKey(t *testing.T) {
	y, m, err := ParseMonthKey("2024-02")
	require.NoError(t, err)
	assert.Equal(t, 2024, y)
	assert.Equal(t, 2, m)

	_, _, err = ParseMonthKey("2024-2-1")
	assert.True(t, IsValidation(err))
}
