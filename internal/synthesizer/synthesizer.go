// Package synthesizer turns mined patterns into ranked, actionable
// suggestions and promotes the best of them to persisted insights.
package synthesizer

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/homesight/homesight/internal/bus"
	"github.com/homesight/homesight/internal/registry"
	"github.com/homesight/homesight/pkg/models"
)

// InsightSink receives the insights emitted by a synthesis cycle
type InsightSink interface {
	AddBatch(insights []models.Insight) ([]string, error)
}

// Config tunes suggestion promotion
type Config struct {
	// MaxSuggestions caps how many suggestions become insights per cycle
	MaxSuggestions int
}

// DefaultConfig returns the stock limits
func DefaultConfig() Config {
	return Config{MaxSuggestions: 15}
}

// Synthesizer converts patterns to suggestions and emits insights.
// Emission is idempotent per instance: an insight id already emitted in
// a prior cycle is skipped.
type Synthesizer struct {
	cfg      Config
	sink     InsightSink
	notifier *bus.Bus
	reg      registry.Registry

	emitted map[string]bool
	now     func() time.Time
}

// New creates a synthesizer feeding the given sink and notifier
func New(cfg Config, sink InsightSink, notifier *bus.Bus, reg registry.Registry) *Synthesizer {
	return &Synthesizer{
		cfg:      cfg,
		sink:     sink,
		notifier: notifier,
		reg:      reg,
		emitted:  make(map[string]bool),
		now:      time.Now,
	}
}

// Synthesize converts patterns into ranked suggestions, truncates to
// the configured maximum, and emits the surviving ones as insights. The
// emitted list is persisted through the sink and each genuinely new
// insight raises a new-insight notification.
func (s *Synthesizer) Synthesize(patterns []models.Pattern) ([]models.Insight, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	var suggestions []models.Suggestion
	for _, p := range patterns {
		switch p.Kind {
		case models.PatternTimeRegularity:
			if sg, ok := s.timeSuggestion(p); ok {
				suggestions = append(suggestions, sg)
			}
		case models.PatternCorrelation:
			if sg, ok := s.correlationSuggestion(p); ok {
				suggestions = append(suggestions, sg)
			}
		case models.PatternEnergyAnomaly:
			if sg, ok := s.energySuggestion(p); ok {
				suggestions = append(suggestions, sg)
			}
		case models.PatternComfortThreshold:
			if sg, ok := s.comfortSuggestion(p); ok {
				suggestions = append(suggestions, sg)
			}
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	if s.cfg.MaxSuggestions > 0 && len(suggestions) > s.cfg.MaxSuggestions {
		suggestions = suggestions[:s.cfg.MaxSuggestions]
	}

	var emitted []models.Insight
	for _, sg := range suggestions {
		insightID := "insight_" + sg.ID
		if s.emitted[insightID] {
			continue
		}
		s.emitted[insightID] = true

		in := models.Insight{
			ID:               insightID,
			Kind:             sg.Kind,
			Title:            sg.Title,
			Description:      sg.Description,
			Confidence:       sg.Confidence,
			SubjectID:        sg.SubjectID,
			RelatedSubjectID: sg.RelatedSubjectID,
			Suggestions:      []models.Suggestion{sg},
			Timestamp:        s.now(),
		}
		emitted = append(emitted, in)
		s.notifier.Publish(bus.TopicNewInsight, in)
	}

	if len(emitted) == 0 {
		return nil, nil
	}

	if _, err := s.sink.AddBatch(emitted); err != nil {
		log.Printf("synthesizer: failed to persist %d insights: %v", len(emitted), err)
		return emitted, err
	}

	log.Printf("synthesizer: emitted %d new insights from %d patterns", len(emitted), len(patterns))
	return emitted, nil
}

func (s *Synthesizer) timeSuggestion(p models.Pattern) (models.Suggestion, bool) {
	if p.SubjectID == "" || len(p.Data.ActiveHours) == 0 {
		return models.Suggestion{}, false
	}

	readable := make([]string, len(p.Data.ActiveHours))
	for i, h := range p.Data.ActiveHours {
		readable[i] = fmt.Sprintf("%02d:00", h)
	}

	return models.Suggestion{
		ID:        "suggestion_" + p.ID,
		Kind:      models.InsightAutomation,
		SubjectID: p.SubjectID,
		Title:     fmt.Sprintf("Scheduled automation for %s", p.SubjectID),
		Description: fmt.Sprintf("Automatically control %s at regular times (%s)",
			p.SubjectID, strings.Join(readable, ", ")),
		Confidence:     p.Confidence,
		YAML:           timeAutomationYAML(p.SubjectID, p.Data.ActiveHours),
		AutomationType: models.AutomationTimeBased,
	}, true
}

func (s *Synthesizer) correlationSuggestion(p models.Pattern) (models.Suggestion, bool) {
	if p.SubjectID == "" || p.RelatedSubjectID == "" {
		return models.Suggestion{}, false
	}

	return models.Suggestion{
		ID:               "suggestion_" + p.ID,
		Kind:             models.InsightAutomation,
		SubjectID:        p.SubjectID,
		RelatedSubjectID: p.RelatedSubjectID,
		Title:            fmt.Sprintf("Automation based on %s", p.RelatedSubjectID),
		Description: fmt.Sprintf("Automatically control %s when %s changes state",
			p.SubjectID, p.RelatedSubjectID),
		Confidence:     p.Confidence,
		YAML:           stateAutomationYAML(p.SubjectID, p.RelatedSubjectID),
		AutomationType: models.AutomationStateBased,
	}, true
}

// energySuggestion is advisory only, no generated actuation
func (s *Synthesizer) energySuggestion(p models.Pattern) (models.Suggestion, bool) {
	if p.SubjectID == "" || p.Data.PeakTime.IsZero() {
		return models.Suggestion{}, false
	}

	return models.Suggestion{
		ID:        "suggestion_" + p.ID,
		Kind:      models.InsightEnergy,
		SubjectID: p.SubjectID,
		Title:     fmt.Sprintf("Energy optimization for %s", p.SubjectID),
		Description: fmt.Sprintf("Consider checking devices active around %s for energy savings",
			p.Data.PeakTime.Format("15:04")),
		Confidence: p.Confidence,
		PeakTime:   p.Data.PeakTime,
	}, true
}

func (s *Synthesizer) comfortSuggestion(p models.Pattern) (models.Suggestion, bool) {
	if p.SubjectID == "" {
		return models.Suggestion{}, false
	}

	// corrective action targets the first discovered climate subject
	climates := s.reg.ListSubjectIDs(models.CategoryClimate)
	sort.Strings(climates)

	tooCold := p.Data.RecommendedMin > 0

	var title, description string
	var targetTemp, adjustment float64
	if tooCold {
		title = fmt.Sprintf("Heating suggestion for %s", p.SubjectID)
		description = fmt.Sprintf("Increase heating to improve comfort (current: %.1f°C, recommended: at least %.0f°C)",
			p.Data.CurrentTemp, p.Data.RecommendedMin)
		targetTemp = p.Data.RecommendedMin
		adjustment = p.Data.RecommendedMin - p.Data.CurrentTemp
	} else {
		title = fmt.Sprintf("Cooling suggestion for %s", p.SubjectID)
		description = fmt.Sprintf("Increase cooling to improve comfort (current: %.1f°C, recommended: at most %.0f°C)",
			p.Data.CurrentTemp, p.Data.RecommendedMax)
		targetTemp = p.Data.RecommendedMax
		adjustment = p.Data.CurrentTemp - p.Data.RecommendedMax
	}

	sg := models.Suggestion{
		ID:          "suggestion_" + p.ID,
		Kind:        models.InsightComfort,
		SubjectID:   p.SubjectID,
		Title:       title,
		Description: description,
		Confidence:  p.Confidence,
		Adjustment:  adjustment,
	}
	if len(climates) > 0 {
		sg.RelatedSubjectID = climates[0]
		sg.YAML = climateAdjustmentYAML(climates[0], targetTemp)
	}
	return sg, true
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}
