package core

import (
	"strings"
	"time"
)

// DateKeyLayout is the canonical calendar-date representation.
const DateKeyLayout = "2006-01-02"

// Date is a calendar day stored as the UTC-midnight instant of that day.
// All field access goes through UTC so the key never depends on the
// process time zone.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day. Out of range values are
// normalised the way time.Date does.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDateKey decodes a "YYYY-MM-DD" string into its UTC-midnight instant.
// Impossible dates such as 2024-02-30 are rejected rather than rolled over.
func ParseDateKey(s string) (Date, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return Date{}, NewValidationError("date", "must be formatted as YYYY-MM-DD")
	}

	// ASCII digits only, so signs such as "+1" are rejected.
	nums := make([]int, 3)
	for i, p := range parts {
		for j := 0; j < len(p); j++ {
			if p[j] < '0' || p[j] > '9' {
				return Date{}, NewValidationError("date", "must be formatted as YYYY-MM-DD")
			}
			nums[i] = nums[i]*10 + int(p[j]-'0')
		}
	}

	year, month, day := nums[0], nums[1], nums[2]
	if month < 1 || month > 12 {
		return Date{}, NewValidationError("date", "month must be between 01 and 12")
	}
	if day < 1 || day > daysIn(year, time.Month(month)) {
		return Date{}, NewValidationError("date", "day is out of range for month")
	}
	return NewDate(year, month, day), nil
}

// DateFromInstant maps any instant onto the calendar day of its UTC fields.
// Used for rows written before dates were normalised to UTC midnight.
func DateFromInstant(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// DateFromUnixMilli decodes the storage representation.
func DateFromUnixMilli(ms int64) Date {
	return DateFromInstant(time.UnixMilli(ms))
}

// Today returns the UTC calendar day containing now.
func Today(now time.Time) Date {
	return DateFromInstant(now)
}

// Key returns the "YYYY-MM-DD" form of the date.
func (d Date) Key() string {
	return d.UTC().Format(DateKeyLayout)
}

func (d Date) String() string {
	return d.Key()
}

// UnixMilli is the storage encoding of the date.
func (d Date) UnixMilli() int64 {
	return d.UTC().UnixMilli()
}

// EndOfDay is the last millisecond of the day, for inclusive range filters.
func (d Date) EndOfDay() time.Time {
	return d.UTC().Add(24*time.Hour - time.Millisecond)
}

// AddDays moves the date by n calendar days.
func (d Date) AddDays(n int) Date {
	y, m, day := d.UTC().Date()
	return NewDate(y, int(m), day+n)
}

// Year returns the UTC year
func (d Date) Year() int {
	return d.UTC().Year()
}

// Month returns the UTC month as 1-12
func (d Date) Month() int {
	return int(d.UTC().Month())
}

// Day returns the UTC day of the month
func (d Date) Day() int {
	return d.UTC().Day()
}

// Weekday returns the UTC weekday
func (d Date) Weekday() time.Weekday {
	return d.UTC().Weekday()
}

// WeekStart returns the Sunday on or before d.
func (d Date) WeekStart() Date {
	return d.AddDays(-int(d.Weekday()))
}

// MonthKey returns "YYYY-MM".
func (d Date) MonthKey() string {
	return d.UTC().Format("2006-01")
}

func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// IsEmpty reports whether the date was never set.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// ParseMonthKey decodes "YYYY-MM" into year and month.
func ParseMonthKey(s string) (int, int, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, NewValidationError("month", "must be formatted as YYYY-MM")
	}
	return t.Year(), int(t.Month()), nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
