package models

import (
	"errors"
	"time"
)

// StateClass buckets a raw subject value for histogram accounting
type StateClass string

const (
	StateOn    StateClass = "on"
	StateOff   StateClass = "off"
	StateOther StateClass = "other"
)

var onStates = map[string]bool{
	"on": true, "home": true, "open": true, "unlocked": true,
	"active": true, "playing": true,
}

var offStates = map[string]bool{
	"off": true, "away": true, "closed": true, "locked": true,
	"inactive": true, "idle": true, "paused": true, "standby": true,
}

// ClassifyState maps a raw state value onto on/off/other
func ClassifyState(value string) StateClass {
	v := lower(value)
	if onStates[v] {
		return StateOn
	}
	if offStates[v] {
		return StateOff
	}
	return StateOther
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// ChangeEvent is one observed transition of a subject's value.
// Created at the ingestion boundary and never mutated after that.
type ChangeEvent struct {
	SubjectID     string         `json:"subjectId"`
	OldValue      string         `json:"oldValue"`
	NewValue      string         `json:"newValue"`
	OldAttributes map[string]any `json:"oldAttributes,omitempty"`
	NewAttributes map[string]any `json:"newAttributes,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	HourOfDay     int            `json:"hourOfDay"`
	DayOfWeek     int            `json:"dayOfWeek"`
	Date          string         `json:"date"`
}

// ErrInvalidEvent is returned when a change event is missing required fields
var ErrInvalidEvent = errors.New("change event missing required fields")

// NewChangeEvent builds a validated event stamped with its time-of-day buckets
func NewChangeEvent(subjectID, oldValue, newValue string, oldAttrs, newAttrs map[string]any, ts time.Time) (ChangeEvent, error) {
	if subjectID == "" || ts.IsZero() {
		return ChangeEvent{}, ErrInvalidEvent
	}
	return ChangeEvent{
		SubjectID:     subjectID,
		OldValue:      oldValue,
		NewValue:      newValue,
		OldAttributes: oldAttrs,
		NewAttributes: newAttrs,
		Timestamp:     ts,
		HourOfDay:     ts.Hour(),
		DayOfWeek:     int(ts.Weekday()),
		Date:          ts.Format("2006-01-02"),
	}, nil
}

// NumericAttr extracts a numeric attribute from an attribute map
func NumericAttr(attrs map[string]any, key string) (float64, bool) {
	v, ok := attrs[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
