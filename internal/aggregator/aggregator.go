// Package aggregator buffers raw subject change events and folds them
// into per-subject histories, time-of-day histograms, and a pairwise
// correlation matrix on a fixed aggregation window.
package aggregator

import (
	"log"
	"sync"
	"time"

	"github.com/homesight/homesight/pkg/models"
)

const (
	// MaxHistory bounds the per-subject change history
	MaxHistory = 1000
	// PendingFlushThreshold forces an immediate flush when the total
	// pending event count grows past it, bounding memory between windows
	PendingFlushThreshold = 100

	// significant attribute deltas for no-op value transitions
	brightnessDelta = 20
	setpointDelta   = 1.0
)

// StateCounts holds classified outcome counts for one histogram slot
type StateCounts struct {
	On    int `json:"on"`
	Off   int `json:"off"`
	Other int `json:"other"`
}

// HourlyHistogram counts classified outcomes per hour of day
type HourlyHistogram [24]StateCounts

// WeeklyHistogram counts classified outcomes per day of week
type WeeklyHistogram [7]StateCounts

// Config controls event relevance filtering
type Config struct {
	// TrackedCategories is the allow-list of subject categories.
	// Empty means track everything not explicitly excluded.
	TrackedCategories []models.Category
	// ExcludedSubjects are dropped regardless of category
	ExcludedSubjects []string
	// Now overrides the event clock when set
	Now func() time.Time
}

// Aggregator owns all observation state. A single mutex guards it so
// ingestion, the flush timer, and miner reads can run from different
// goroutines.
type Aggregator struct {
	mu sync.Mutex

	tracked  map[models.Category]bool
	excluded map[string]bool

	pending      map[string][]models.ChangeEvent
	pendingCount int

	histories    map[string][]models.ChangeEvent
	daily        map[string]*HourlyHistogram
	weekly       map[string]*WeeklyHistogram
	correlations map[string]map[string]float64

	lastFlush time.Time
	now       func() time.Time
}

// New creates an aggregator with the given filtering config
func New(cfg Config) *Aggregator {
	tracked := make(map[models.Category]bool)
	for _, c := range cfg.TrackedCategories {
		tracked[c] = true
	}
	excluded := make(map[string]bool)
	for _, id := range cfg.ExcludedSubjects {
		excluded[id] = true
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		tracked:      tracked,
		excluded:     excluded,
		pending:      make(map[string][]models.ChangeEvent),
		histories:    make(map[string][]models.ChangeEvent),
		daily:        make(map[string]*HourlyHistogram),
		weekly:       make(map[string]*WeeklyHistogram),
		correlations: make(map[string]map[string]float64),
		now:          now,
	}
}

// Observe filters and buffers one state transition. Malformed or
// irrelevant transitions are dropped silently.
func (a *Aggregator) Observe(subjectID, oldValue, newValue string, oldAttrs, newAttrs map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.excluded[subjectID] {
		return
	}
	if len(a.tracked) > 0 && !a.tracked[models.CategoryOf(subjectID)] {
		return
	}
	if oldValue == newValue && !significantAttrChange(subjectID, oldAttrs, newAttrs) {
		return
	}

	ev, err := models.NewChangeEvent(subjectID, oldValue, newValue, oldAttrs, newAttrs, a.now())
	if err != nil {
		return
	}

	a.pending[subjectID] = append(a.pending[subjectID], ev)
	a.pendingCount++

	if a.pendingCount > PendingFlushThreshold {
		a.flushLocked()
	}
}

// significantAttrChange implements the per-category attribute rules that
// promote a same-value transition to a relevant event
func significantAttrChange(subjectID string, oldAttrs, newAttrs map[string]any) bool {
	switch models.CategoryOf(subjectID) {
	case models.CategoryLight:
		oldB, ok1 := models.NumericAttr(oldAttrs, "brightness")
		newB, ok2 := models.NumericAttr(newAttrs, "brightness")
		return ok1 && ok2 && abs(newB-oldB) > brightnessDelta
	case models.CategoryClimate:
		oldT, ok1 := models.NumericAttr(oldAttrs, "temperature")
		newT, ok2 := models.NumericAttr(newAttrs, "temperature")
		return ok1 && ok2 && abs(newT-oldT) > setpointDelta
	}
	return false
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// Flush folds every pending event into histories and histograms, then
// strengthens correlations between subjects that changed in this window.
// The pending buffer is cleared atomically at the end.
func (a *Aggregator) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flushLocked()
}

func (a *Aggregator) flushLocked() {
	if len(a.pending) == 0 {
		return
	}

	processed := 0
	for subjectID, events := range a.pending {
		if len(events) == 0 {
			continue
		}
		if a.daily[subjectID] == nil {
			a.daily[subjectID] = &HourlyHistogram{}
		}
		if a.weekly[subjectID] == nil {
			a.weekly[subjectID] = &WeeklyHistogram{}
		}

		for _, ev := range events {
			a.histories[subjectID] = append(a.histories[subjectID], ev)
			if len(a.histories[subjectID]) > MaxHistory {
				a.histories[subjectID] = a.histories[subjectID][1:]
			}

			class := models.ClassifyState(ev.NewValue)
			bumpCounts(&a.daily[subjectID][ev.HourOfDay], class)
			bumpCounts(&a.weekly[subjectID][ev.DayOfWeek], class)
			processed++
		}
	}

	changed := make([]string, 0, len(a.pending))
	for subjectID := range a.pending {
		changed = append(changed, subjectID)
	}
	if len(changed) > 1 {
		a.updateCorrelationsLocked(changed)
	}

	a.pending = make(map[string][]models.ChangeEvent)
	a.pendingCount = 0
	a.lastFlush = a.now()

	log.Printf("aggregator: flushed %d events for %d subjects", processed, len(changed))
}

func bumpCounts(c *StateCounts, class models.StateClass) {
	switch class {
	case models.StateOn:
		c.On++
	case models.StateOff:
		c.Off++
	default:
		c.Other++
	}
}

// TrackedSubjects returns the ids of every subject with recorded history
func (a *Aggregator) TrackedSubjects() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(a.histories))
	for id := range a.histories {
		ids = append(ids, id)
	}
	return ids
}

// DailyPatterns returns a copy of every subject's hourly histogram
func (a *Aggregator) DailyPatterns() map[string]HourlyHistogram {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]HourlyHistogram, len(a.daily))
	for id, h := range a.daily {
		out[id] = *h
	}
	return out
}

// WeeklyPatterns returns a copy of every subject's day-of-week histogram
func (a *Aggregator) WeeklyPatterns() map[string]WeeklyHistogram {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]WeeklyHistogram, len(a.weekly))
	for id, h := range a.weekly {
		out[id] = *h
	}
	return out
}

// History returns a copy of one subject's recorded change events
func (a *Aggregator) History(subjectID string) []models.ChangeEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	events := a.histories[subjectID]
	out := make([]models.ChangeEvent, len(events))
	copy(out, events)
	return out
}

// PendingCount reports the buffered event total, for introspection
func (a *Aggregator) PendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pendingCount
}

// LastFlush reports when the pending buffer was last folded in
func (a *Aggregator) LastFlush() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastFlush
}
