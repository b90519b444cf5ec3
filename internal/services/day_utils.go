package services

import (
	"strings"
	"time"
)

const CalendarDateLayout = "2006-01-02"

// CalendarDate drops the clock and zone of value, keeping its calendar day as
// UTC midnight. Every stored and compared date goes through it.
func CalendarDate(value time.Time) time.Time {
	year, month, day := value.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateAtLocation returns the calendar day of value as seen in location.
func DateAtLocation(value time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	return CalendarDate(value.In(location))
}

// DaysBetween counts whole calendar days from one date to another; negative
// when to precedes from.
func DaysBetween(from time.Time, to time.Time) int {
	return int(CalendarDate(to).Sub(CalendarDate(from)) / (24 * time.Hour))
}

func AddDays(value time.Time, days int) time.Time {
	return CalendarDate(value).AddDate(0, 0, days)
}

func ParseCalendarDate(raw string) (time.Time, error) {
	parsed, err := time.Parse(CalendarDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return CalendarDate(parsed), nil
}

func FormatCalendarDate(value time.Time) string {
	return CalendarDate(value).Format(CalendarDateLayout)
}

func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

func betweenInclusive(day, start, end time.Time) bool {
	if start.IsZero() || end.IsZero() {
		return false
	}
	return !day.Before(start) && !day.After(end)
}

func sameDay(a, b time.Time) bool {
	return CalendarDate(a).Equal(CalendarDate(b))
}
