// Package insights owns the durable, lifecycle-managed insight
// collections: active, dismissed, implemented, and per-id history. It
// is the single writer; every other component reads through query
// methods or submits records via Add.
package insights

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homesight/homesight/internal/bus"
	"github.com/homesight/homesight/internal/storage"
	"github.com/homesight/homesight/pkg/models"
)

// Store manages insight lifecycle on top of a durable snapshot store.
// In-memory state is the source of truth; a failed persist is surfaced
// to the caller and retried implicitly on the next mutation.
type Store struct {
	mu sync.Mutex

	storage  storage.Store
	notifier *bus.Bus

	active      []models.Insight
	dismissed   []models.Insight
	implemented []models.Insight
	history     map[string][]models.Insight
	lastScan    time.Time

	bySubject map[string][]string

	now func() time.Time
}

// New creates a store persisting through st and notifying through b
func New(st storage.Store, b *bus.Bus) *Store {
	return &Store{
		storage:   st,
		notifier:  b,
		history:   make(map[string][]models.Insight),
		bySubject: make(map[string][]string),
		now:       time.Now,
	}
}

// Load restores the persisted snapshot, if any
func (s *Store) Load() error {
	snap, err := s.storage.Load()
	if err != nil {
		return fmt.Errorf("failed to load insights: %w", err)
	}
	if snap == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = snap.Insights
	s.dismissed = snap.Dismissed
	s.implemented = snap.Implemented
	s.history = snap.History
	if s.history == nil {
		s.history = make(map[string][]models.Insight)
	}
	s.lastScan = snap.LastScan
	s.rebuildSubjectIndexLocked()

	log.Printf("insights: loaded %d active, %d dismissed, %d implemented",
		len(s.active), len(s.dismissed), len(s.implemented))
	return nil
}

// saveLocked persists the whole snapshot. The caller keeps holding the
// lock so the snapshot is internally consistent.
func (s *Store) saveLocked() error {
	snap := &storage.Snapshot{
		SchemaVersion: storage.SchemaVersion,
		Insights:      s.active,
		Dismissed:     s.dismissed,
		Implemented:   s.implemented,
		History:       s.history,
		LastScan:      s.lastScan,
	}
	if err := s.storage.Save(snap); err != nil {
		return fmt.Errorf("failed to persist insights: %w", err)
	}
	return nil
}

func (s *Store) rebuildSubjectIndexLocked() {
	s.bySubject = make(map[string][]string)
	for _, list := range [][]models.Insight{s.active, s.dismissed, s.implemented} {
		for _, in := range list {
			if in.SubjectID != "" {
				s.bySubject[in.SubjectID] = append(s.bySubject[in.SubjectID], in.ID)
			}
			if in.RelatedSubjectID != "" {
				s.bySubject[in.RelatedSubjectID] = append(s.bySubject[in.RelatedSubjectID], in.ID)
			}
		}
	}
}

// Add stores one insight. An id collision with an existing active
// insight archives the prior version into that id's history and
// replaces the record in place.
func (s *Store) Add(in models.Insight) (string, error) {
	s.mu.Lock()
	id := s.addLocked(in)
	err := s.saveLocked()
	s.mu.Unlock()

	s.notifier.Publish(bus.TopicInsightsUpdated, id)
	return id, err
}

func (s *Store) addLocked(in models.Insight) string {
	if in.ID == "" {
		in.ID = "insight_" + uuid.NewString()[:8]
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = s.now()
	}

	for i, existing := range s.active {
		if existing.ID == in.ID {
			s.history[in.ID] = append(s.history[in.ID], existing)
			s.active[i] = in
			s.rebuildSubjectIndexLocked()
			return in.ID
		}
	}

	s.active = append(s.active, in)
	if in.SubjectID != "" {
		s.bySubject[in.SubjectID] = append(s.bySubject[in.SubjectID], in.ID)
	}
	if in.RelatedSubjectID != "" {
		s.bySubject[in.RelatedSubjectID] = append(s.bySubject[in.RelatedSubjectID], in.ID)
	}
	return in.ID
}

// AddBatch stores several insights with a single persist at the end and
// stamps the last-scan time
func (s *Store) AddBatch(insights []models.Insight) ([]string, error) {
	if len(insights) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	ids := make([]string, 0, len(insights))
	for _, in := range insights {
		ids = append(ids, s.addLocked(in))
	}
	s.lastScan = s.now()
	err := s.saveLocked()
	s.mu.Unlock()

	s.notifier.Publish(bus.TopicInsightsUpdated, ids)
	return ids, err
}

// Dismiss moves an active insight to the dismissed collection. Returns
// false when the id is not active.
func (s *Store) Dismiss(id string) (bool, error) {
	s.mu.Lock()
	moved := false
	var err error
	for i, in := range s.active {
		if in.ID != id {
			continue
		}
		in.Dismissed = true
		s.dismissed = append(s.dismissed, in)
		s.active = append(s.active[:i], s.active[i+1:]...)
		s.rebuildSubjectIndexLocked()
		err = s.saveLocked()
		moved = true
		break
	}
	s.mu.Unlock()

	if moved {
		s.notifier.Publish(bus.TopicInsightsUpdated, id)
	}
	return moved, err
}

// MarkImplemented moves an active insight to the implemented collection
// and stamps the implementation time. Returns false when the id is not
// active.
func (s *Store) MarkImplemented(id string) (bool, error) {
	s.mu.Lock()
	moved := false
	var err error
	for i, in := range s.active {
		if in.ID != id {
			continue
		}
		in.Implemented = true
		ts := s.now()
		in.ImplementedAt = &ts
		s.implemented = append(s.implemented, in)
		s.active = append(s.active[:i], s.active[i+1:]...)
		s.rebuildSubjectIndexLocked()
		err = s.saveLocked()
		moved = true
		break
	}
	s.mu.Unlock()

	if moved {
		s.notifier.Publish(bus.TopicInsightsUpdated, id)
	}
	return moved, err
}

// QueryOptions filters and paginates insight queries
type QueryOptions struct {
	Kind               models.InsightKind
	SubjectID          string
	IncludeDismissed   bool
	IncludeImplemented bool
	Limit              int
	Offset             int
}

// Query returns insights sorted by timestamp descending, paginated with
// offset applied before limit
func (s *Store) Query(opts QueryOptions) []models.Insight {
	s.mu.Lock()
	defer s.mu.Unlock()

	sources := [][]models.Insight{s.active}
	if opts.IncludeDismissed {
		sources = append(sources, s.dismissed)
	}
	if opts.IncludeImplemented {
		sources = append(sources, s.implemented)
	}

	var subjectIDs map[string]bool
	if opts.SubjectID != "" {
		subjectIDs = make(map[string]bool)
		for _, id := range s.bySubject[opts.SubjectID] {
			subjectIDs[id] = true
		}
	}

	var results []models.Insight
	for _, source := range sources {
		for _, in := range source {
			if subjectIDs != nil && !subjectIDs[in.ID] {
				continue
			}
			if opts.Kind != "" && in.Kind != opts.Kind {
				continue
			}
			results = append(results, in)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(results) {
			return nil
		}
		results = results[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(results) {
		results = results[:opts.Limit]
	}
	return results
}

// Get looks an insight up by id across all three collections
func (s *Store) Get(id string) (models.Insight, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range [][]models.Insight{s.active, s.dismissed, s.implemented} {
		for _, in := range list {
			if in.ID == id {
				return in, true
			}
		}
	}
	return models.Insight{}, false
}

// History returns the archived prior versions of an insight id
func (s *Store) History(id string) []models.Insight {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions := s.history[id]
	out := make([]models.Insight, len(versions))
	copy(out, versions)
	return out
}

// SubjectInsights returns the active insights touching a subject
func (s *Store) SubjectInsights(subjectID string) []models.Insight {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]bool)
	for _, id := range s.bySubject[subjectID] {
		ids[id] = true
	}
	var out []models.Insight
	for _, in := range s.active {
		if ids[in.ID] {
			out = append(out, in)
		}
	}
	return out
}

// Purge removes dismissed insights older than maxAgeDays, implemented
// insights whose implementation stamp is older than the same cutoff,
// and history entries older than twice the cutoff. Returns the number
// of insights removed.
func (s *Store) Purge(maxAgeDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().AddDate(0, 0, -maxAgeDays)

	kept := s.dismissed[:0]
	for _, in := range s.dismissed {
		if in.Timestamp.After(cutoff) {
			kept = append(kept, in)
		}
	}
	dismissedPurged := len(s.dismissed) - len(kept)
	s.dismissed = kept

	keptImpl := s.implemented[:0]
	for _, in := range s.implemented {
		if in.ImplementedAt != nil && in.ImplementedAt.After(cutoff) {
			keptImpl = append(keptImpl, in)
		}
	}
	implementedPurged := len(s.implemented) - len(keptImpl)
	s.implemented = keptImpl

	historyCutoff := s.now().AddDate(0, 0, -2*maxAgeDays)
	for id, versions := range s.history {
		keptVersions := versions[:0]
		for _, v := range versions {
			if v.Timestamp.After(historyCutoff) {
				keptVersions = append(keptVersions, v)
			}
		}
		if len(keptVersions) == 0 {
			delete(s.history, id)
		} else {
			s.history[id] = keptVersions
		}
	}

	s.rebuildSubjectIndexLocked()
	err := s.saveLocked()

	total := dismissedPurged + implementedPurged
	if total > 0 {
		log.Printf("insights: purged %d insights older than %d days (%d dismissed, %d implemented)",
			total, maxAgeDays, dismissedPurged, implementedPurged)
	}
	return total, err
}

// Stats summarizes the store without mutating it
type Stats struct {
	Total              int                        `json:"total"`
	Active             int                        `json:"active"`
	Dismissed          int                        `json:"dismissed"`
	Implemented        int                        `json:"implemented"`
	ImplementationRate float64                    `json:"implementationRate"`
	PerKind            map[models.InsightKind]int `json:"perKindCounts"`
	LastScan           time.Time                  `json:"lastScan,omitzero"`
}

// Stats derives summary counts across every collection
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		Active:      len(s.active),
		Dismissed:   len(s.dismissed),
		Implemented: len(s.implemented),
		PerKind:     make(map[models.InsightKind]int),
		LastScan:    s.lastScan,
	}
	stats.Total = stats.Active + stats.Dismissed + stats.Implemented

	for _, kind := range models.InsightKinds {
		stats.PerKind[kind] = 0
	}
	for _, list := range [][]models.Insight{s.active, s.dismissed, s.implemented} {
		for _, in := range list {
			stats.PerKind[in.Kind]++
		}
	}

	if stats.Total > 0 {
		stats.ImplementationRate = float64(stats.Implemented) / float64(stats.Total)
	}
	return stats
}

// LastScan reports when insights were last generated
func (s *Store) LastScan() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScan
}
