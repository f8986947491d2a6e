package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

var strictLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseEventDate accepts ISO 8601 forms first and falls back to natural
// language dates such as "March 3, 2026 7pm". Times without a zone are UTC.
func ParseEventDate(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range strictLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return parsed.UTC(), nil
		}
	}

	cfg := &dateparser.Configuration{
		Languages:       []string{"en"},
		DefaultTimezone: time.UTC,
		CurrentTime:     now,
	}
	parsed, err := dateparser.Parse(cfg, value)
	if err != nil || parsed.Time.IsZero() {
		return time.Time{}, fmt.Errorf("unrecognized date %q", value)
	}
	return parsed.Time.UTC(), nil
}
