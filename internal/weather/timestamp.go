package weather

import (
	"fmt"
	"time"
)

// DefaultTimestampLayout is the format WeatherAPI uses for current.last_updated.
const DefaultTimestampLayout = "2006-01-02 15:04"

// DateLayout is the calendar-day format accepted by the city+date query.
const DateLayout = "2006-01-02"

// TimestampParser turns the provider's last-updated string into an instant.
type TimestampParser interface {
	Parse(raw string) (time.Time, error)
}

// LayoutParser parses with a fixed time layout, interpreting values as UTC.
type LayoutParser struct {
	Layout string
}

// NewLayoutParser returns a parser for layout, falling back to DefaultTimestampLayout.
func NewLayoutParser(layout string) LayoutParser {
	if layout == "" {
		layout = DefaultTimestampLayout
	}
	return LayoutParser{Layout: layout}
}

func (p LayoutParser) Parse(raw string) (time.Time, error) {
	ts, err := time.Parse(p.Layout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: last_updated %q does not match layout %q", ErrUpstream, raw, p.Layout)
	}
	return ts.UTC(), nil
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(raw string) (time.Time, error) {
	day, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, use YYYY-MM-DD", ErrValidation, raw)
	}
	return day, nil
}
