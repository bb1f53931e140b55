// Package miner analyzes aggregated observation data and produces
// explainable pattern records: time-of-day regularities, cross-subject
// correlations, energy anomalies, and comfort threshold violations.
package miner

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/homesight/homesight/internal/aggregator"
	"github.com/homesight/homesight/internal/registry"
	"github.com/homesight/homesight/pkg/models"
)

// Config tunes the analysis heuristics
type Config struct {
	// Sensitivity is the minimum on-count for an hour to qualify as active
	Sensitivity int
	// MinActiveHours is the minimum number of qualifying hours before a
	// time-regularity pattern is emitted
	MinActiveHours int
	// MinTrackedSubjects gates analysis until enough subjects have data
	MinTrackedSubjects int
	// MinCorrelation is the score floor for correlation patterns
	MinCorrelation float64
	// EnergyLookback is how far back the energy analysis reads history
	EnergyLookback time.Duration
	// ComfortMin and ComfortMax bound the comfortable temperature band
	ComfortMin float64
	ComfortMax float64
}

// DefaultConfig returns the stock heuristics
func DefaultConfig() Config {
	return Config{
		Sensitivity:        50,
		MinActiveHours:     1,
		MinTrackedSubjects: 5,
		MinCorrelation:     0.5,
		EnergyLookback:     7 * 24 * time.Hour,
		ComfortMin:         18,
		ComfortMax:         25,
	}
}

// Miner accumulates patterns across analysis cycles, deduplicating by
// pattern id so repeated cycles only add genuinely new findings
type Miner struct {
	cfg Config
	agg *aggregator.Aggregator
	reg registry.Registry

	patterns []models.Pattern
	known    map[string]bool

	lastAnalysis time.Time
	now          func() time.Time
}

// New creates a miner reading from the given aggregator and registry
func New(cfg Config, agg *aggregator.Aggregator, reg registry.Registry) *Miner {
	return &Miner{
		cfg:   cfg,
		agg:   agg,
		reg:   reg,
		known: make(map[string]bool),
		now:   time.Now,
	}
}

// Analyze runs every sub-analysis and returns the accumulated pattern
// list. A failure on one subject never aborts the remaining analyses.
func (m *Miner) Analyze() []models.Pattern {
	tracked := m.reg.ListSubjectIDs()
	if len(tracked) < m.cfg.MinTrackedSubjects {
		log.Printf("miner: skipping analysis, only %d tracked subjects (need %d)",
			len(tracked), m.cfg.MinTrackedSubjects)
		return m.Patterns()
	}

	timePatterns := m.analyzeTimeRegularity()
	correlationPatterns := m.analyzeCorrelations()
	energyPatterns := m.analyzeEnergyUsage()
	comfortPatterns := m.analyzeComfort()

	found := 0
	for _, batch := range [][]models.Pattern{timePatterns, correlationPatterns, energyPatterns, comfortPatterns} {
		for _, p := range batch {
			if m.known[p.ID] {
				continue
			}
			m.known[p.ID] = true
			m.patterns = append(m.patterns, p)
			found++
		}
	}
	m.lastAnalysis = m.now()

	log.Printf("miner: analysis complete, %d new patterns (%d time, %d correlation, %d energy, %d comfort)",
		found, len(timePatterns), len(correlationPatterns), len(energyPatterns), len(comfortPatterns))

	return m.Patterns()
}

// Patterns returns a copy of every pattern found so far
func (m *Miner) Patterns() []models.Pattern {
	out := make([]models.Pattern, len(m.patterns))
	copy(out, m.patterns)
	return out
}

// LastAnalysis reports when Analyze last completed
func (m *Miner) LastAnalysis() time.Time {
	return m.lastAnalysis
}

func (m *Miner) analyzeTimeRegularity() []models.Pattern {
	var patterns []models.Pattern

	for subjectID, hist := range m.agg.DailyPatterns() {
		if !models.TraitsOf(models.CategoryOf(subjectID)).ScheduleMinable {
			continue
		}

		var onHours []int
		daysObserved := 0
		for hour, counts := range hist {
			daysObserved += counts.On
			if counts.On > counts.Off*2 && counts.On >= m.cfg.Sensitivity {
				onHours = append(onHours, hour)
			}
		}
		if len(onHours) < m.cfg.MinActiveHours {
			continue
		}

		readable := make([]string, len(onHours))
		hourTags := make([]string, len(onHours))
		for i, h := range onHours {
			readable[i] = fmt.Sprintf("%02d:00", h)
			hourTags[i] = strconv.Itoa(h)
		}

		patterns = append(patterns, models.Pattern{
			ID:          fmt.Sprintf("time_pattern_%s_%s", subjectID, strings.Join(hourTags, "_")),
			Kind:        models.PatternTimeRegularity,
			SubjectID:   subjectID,
			Title:       fmt.Sprintf("Regular usage pattern for %s", subjectID),
			Description: fmt.Sprintf("%s is regularly used around %s", subjectID, strings.Join(readable, ", ")),
			Confidence:  capConfidence(60 + len(onHours)*5),
			Data: models.PatternData{
				ActiveHours:  onHours,
				DaysObserved: daysObserved,
			},
			Timestamp: m.now(),
		})
	}

	sort.Slice(patterns, func(i, j int) bool { return patterns[i].ID < patterns[j].ID })
	return patterns
}

func (m *Miner) analyzeCorrelations() []models.Pattern {
	var patterns []models.Pattern

	for subjectID, row := range m.agg.Correlations() {
		if !models.TraitsOf(models.CategoryOf(subjectID)).Controllable {
			continue
		}

		for relatedID, score := range row {
			if score < m.cfg.MinCorrelation {
				continue
			}
			if !models.TraitsOf(models.CategoryOf(relatedID)).SensorLike {
				continue
			}

			patterns = append(patterns, models.Pattern{
				ID:               fmt.Sprintf("correlation_%s_%s", subjectID, relatedID),
				Kind:             models.PatternCorrelation,
				SubjectID:        subjectID,
				RelatedSubjectID: relatedID,
				Title:            fmt.Sprintf("Relationship between %s and %s", subjectID, relatedID),
				Description:      correlationDescription(subjectID, relatedID),
				Confidence:       int(math.Round(score * 100)),
				Data:             models.PatternData{CorrelationScore: score},
				Timestamp:        m.now(),
			})
		}
	}

	sort.Slice(patterns, func(i, j int) bool { return patterns[i].ID < patterns[j].ID })
	return patterns
}

// correlationDescription specializes the wording by the related
// subject's role
func correlationDescription(subjectID, relatedID string) string {
	switch models.CategoryOf(relatedID) {
	case models.CategoryBinarySensor:
		if containsAny(relatedID, "motion", "presence", "occupancy") {
			return fmt.Sprintf("%s turns on when motion is detected by %s", subjectID, relatedID)
		}
		if containsAny(relatedID, "door", "window") {
			return fmt.Sprintf("%s changes when %s is opened or closed", subjectID, relatedID)
		}
	case models.CategoryPerson, models.CategoryDeviceTracker:
		return fmt.Sprintf("%s changes when %s arrives or leaves", subjectID, relatedID)
	}
	return fmt.Sprintf("%s appears to be controlled based on %s", subjectID, relatedID)
}

func (m *Miner) analyzeEnergyUsage() []models.Pattern {
	var patterns []models.Pattern

	end := m.now()
	start := end.Add(-m.cfg.EnergyLookback)

	for _, subjectID := range m.reg.ListSubjectIDs(models.CategorySensor) {
		if !models.IsEnergySubject(subjectID) {
			continue
		}

		var values []float64
		var stamps []time.Time
		for _, sample := range m.reg.ValueHistory(subjectID, start, end) {
			v, err := strconv.ParseFloat(sample.Value, 64)
			if err != nil {
				continue
			}
			values = append(values, v)
			stamps = append(stamps, sample.Timestamp)
		}
		if len(values) == 0 {
			continue
		}

		sum := 0.0
		maxVal := values[0]
		maxIdx := 0
		for i, v := range values {
			sum += v
			if v > maxVal {
				maxVal = v
				maxIdx = i
			}
		}
		mean := sum / float64(len(values))

		if maxVal > mean*3 && mean > 0 {
			peak := stamps[maxIdx]
			patterns = append(patterns, models.Pattern{
				ID:        fmt.Sprintf("energy_high_usage_%s", subjectID),
				Kind:      models.PatternEnergyAnomaly,
				SubjectID: subjectID,
				Title:     fmt.Sprintf("High energy usage detected for %s", subjectID),
				Description: fmt.Sprintf("Energy usage for %s peaked at %.1f on %s",
					subjectID, maxVal, peak.Format("2006-01-02 15:04")),
				Confidence: 75,
				Data: models.PatternData{
					AverageUsage: mean,
					PeakUsage:    maxVal,
					PeakTime:     peak,
				},
				Timestamp: m.now(),
			})
		}
	}

	return patterns
}

func (m *Miner) analyzeComfort() []models.Pattern {
	var patterns []models.Pattern

	for _, subjectID := range m.reg.ListSubjectIDs(models.CategorySensor) {
		if !models.IsTemperatureSubject(subjectID) {
			continue
		}
		raw, ok := m.reg.CurrentValue(subjectID)
		if !ok {
			continue
		}
		temp, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			// unreadable subjects are skipped, not fatal
			log.Printf("miner: skipping %s, non-numeric reading %q", subjectID, raw)
			continue
		}

		switch {
		case temp < m.cfg.ComfortMin:
			patterns = append(patterns, models.Pattern{
				ID:        fmt.Sprintf("comfort_too_cold_%s", subjectID),
				Kind:      models.PatternComfortThreshold,
				SubjectID: subjectID,
				Title:     fmt.Sprintf("Low temperature detected by %s", subjectID),
				Description: fmt.Sprintf("Temperature is %.1f°C, which might be too cold for comfort",
					temp),
				Confidence: capConfidence(60 + int((m.cfg.ComfortMin-temp)*5)),
				Data: models.PatternData{
					CurrentTemp:    temp,
					RecommendedMin: m.cfg.ComfortMin,
				},
				Timestamp: m.now(),
			})
		case temp > m.cfg.ComfortMax:
			patterns = append(patterns, models.Pattern{
				ID:        fmt.Sprintf("comfort_too_warm_%s", subjectID),
				Kind:      models.PatternComfortThreshold,
				SubjectID: subjectID,
				Title:     fmt.Sprintf("High temperature detected by %s", subjectID),
				Description: fmt.Sprintf("Temperature is %.1f°C, which might be too warm for comfort",
					temp),
				Confidence: capConfidence(60 + int((temp-m.cfg.ComfortMax)*5)),
				Data: models.PatternData{
					CurrentTemp:    temp,
					RecommendedMax: m.cfg.ComfortMax,
				},
				Timestamp: m.now(),
			})
		}
	}

	return patterns
}

func capConfidence(c int) int {
	if c > 90 {
		return 90
	}
	return c
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
