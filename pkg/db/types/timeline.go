package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// MaxTimelineEntries bounds the life-event list on a memorial.
const MaxTimelineEntries = 20

// TimelineEntry is one life event.
type TimelineEntry struct {
	Year        string `json:"year"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Empty reports whether every field is blank.
func (e TimelineEntry) Empty() bool {
	return strings.TrimSpace(e.Year) == "" &&
		strings.TrimSpace(e.Title) == "" &&
		strings.TrimSpace(e.Description) == ""
}

// Timeline is the ordered list of life events, stored as a JSON array.
type Timeline []TimelineEntry

func (t Timeline) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal([]TimelineEntry(t))
	if err != nil {
		return nil, fmt.Errorf("Timeline: marshal: %w", err)
	}
	return string(raw), nil
}

// Scan tolerates malformed stored values by yielding an empty timeline.
func (t *Timeline) Scan(src any) error {
	raw, err := scanText(src)
	if err != nil {
		return fmt.Errorf("Timeline: %w", err)
	}
	var out []TimelineEntry
	if strings.TrimSpace(raw) == "" || json.Unmarshal([]byte(raw), &out) != nil {
		*t = Timeline{}
		return nil
	}
	*t = Timeline(out)
	return nil
}
