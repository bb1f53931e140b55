// Package watcher delivers raw subject state changes from external
// sources into the pipeline's ingestion channel.
package watcher

import "time"

// Change is one raw state transition delivered by an event source
type Change struct {
	ID            string         `json:"id"`
	SubjectID     string         `json:"subject_id"`
	OldValue      string         `json:"old_value"`
	NewValue      string         `json:"new_value"`
	OldAttributes map[string]any `json:"old_attributes,omitempty"`
	NewAttributes map[string]any `json:"new_attributes,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Source is the interface for all change-event sources
type Source interface {
	Start() error
	Stop()
}

// ChangeSink is a channel that receives parsed changes
type ChangeSink chan<- Change
