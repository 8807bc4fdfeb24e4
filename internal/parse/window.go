package parse

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// clock inputs from HTML time fields may or may not carry seconds.
var timeLayouts = []string{TimeLayout, "15:04:05"}

// ParsedWindow holds a booking window resolved in a concrete location.
type ParsedWindow struct {
	Date  string    // normalized YYYY-MM-DD
	Start time.Time // inclusive
	End   time.Time // exclusive
}

// Window resolves a date and a pair of wall-clock times into a window in loc.
// Both times belong to the same calendar day; the start must precede the end.
func Window(date, startTime, endTime string, loc *time.Location) (ParsedWindow, error) {
	if loc == nil {
		loc = time.UTC
	}

	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return ParsedWindow{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}

	start, err := clock(startTime)
	if err != nil {
		return ParsedWindow{}, fmt.Errorf("invalid start time %q: %w", startTime, err)
	}
	end, err := clock(endTime)
	if err != nil {
		return ParsedWindow{}, fmt.Errorf("invalid end time %q: %w", endTime, err)
	}
	if end <= start {
		return ParsedWindow{}, fmt.Errorf("end time %q must be after start time %q on the same day", endTime, startTime)
	}

	return ParsedWindow{
		Date:  day.Format(DateLayout),
		Start: at(day, start, loc),
		End:   at(day, end, loc),
	}, nil
}

// clock returns the offset from midnight for a wall-clock string.
func clock(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("expected HH:MM")
}

// at builds the wall-clock instant rather than adding a duration, so DST
// transitions inside the day do not shift the result.
func at(day time.Time, offset time.Duration, loc *time.Location) time.Time {
	h := int(offset / time.Hour)
	m := int(offset % time.Hour / time.Minute)
	s := int(offset % time.Minute / time.Second)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, loc)
}
