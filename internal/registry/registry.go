// Package registry exposes the host platform's view of subject values.
// The miner consumes it read-only; the daemon's ingestion path keeps the
// in-memory implementation current.
package registry

import (
	"sync"
	"time"

	"github.com/homesight/homesight/pkg/models"
)

// ValueSample is one point of a subject's recorded value history
type ValueSample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     string    `json:"value"`
}

// Registry answers subject discovery and value queries
type Registry interface {
	// ListSubjectIDs returns known subject ids, optionally restricted
	// to the given categories
	ListSubjectIDs(categories ...models.Category) []string
	// CurrentValue returns a subject's latest value, false when unknown
	CurrentValue(subjectID string) (string, bool)
	// ValueHistory returns samples within [start, end], oldest first
	ValueHistory(subjectID string, start, end time.Time) []ValueSample
}

// maxSamples bounds the per-subject sample history kept in memory
const maxSamples = 2000

// InMemory is a registry fed by the ingestion path
type InMemory struct {
	mu      sync.Mutex
	current map[string]string
	samples map[string][]ValueSample
}

// NewInMemory creates an empty registry
func NewInMemory() *InMemory {
	return &InMemory{
		current: make(map[string]string),
		samples: make(map[string][]ValueSample),
	}
}

// Record stores a subject's new value and appends a history sample
func (r *InMemory) Record(subjectID, value string, ts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current[subjectID] = value
	r.samples[subjectID] = append(r.samples[subjectID], ValueSample{Timestamp: ts, Value: value})
	if len(r.samples[subjectID]) > maxSamples {
		r.samples[subjectID] = r.samples[subjectID][1:]
	}
}

func (r *InMemory) ListSubjectIDs(categories ...models.Category) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id := range r.current {
		if len(categories) == 0 {
			ids = append(ids, id)
			continue
		}
		c := models.CategoryOf(id)
		for _, want := range categories {
			if c == want {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids
}

func (r *InMemory) CurrentValue(subjectID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.current[subjectID]
	return v, ok
}

func (r *InMemory) ValueHistory(subjectID string, start, end time.Time) []ValueSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ValueSample
	for _, s := range r.samples[subjectID] {
		if s.Timestamp.Before(start) || s.Timestamp.After(end) {
			continue
		}
		out = append(out, s)
	}
	return out
}
