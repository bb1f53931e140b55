// Package storage defines the durable load/save contract for insight
// state. Writes are whole-snapshot replacements, never incremental
// patches, so a failed save can never corrupt an existing record.
package storage

import (
	"time"

	"github.com/homesight/homesight/pkg/models"
)

// SchemaVersion is bumped whenever the snapshot layout changes
const SchemaVersion = 1

// Snapshot is the single persisted record holding every insight
// collection plus the last-scan timestamp
type Snapshot struct {
	SchemaVersion int                         `json:"schemaVersion"`
	Insights      []models.Insight            `json:"insights"`
	Dismissed     []models.Insight            `json:"dismissedInsights"`
	Implemented   []models.Insight            `json:"implementedInsights"`
	History       map[string][]models.Insight `json:"insightHistory"`
	LastScan      time.Time                   `json:"lastScan,omitzero"`
}

// Store is the abstract durable store. Load returns nil when no
// snapshot has been persisted yet.
type Store interface {
	Load() (*Snapshot, error)
	Save(*Snapshot) error
	Close() error
}
