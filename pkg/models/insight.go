package models

import (
	"time"
)

// PatternKind identifies which miner sub-analysis produced a pattern
type PatternKind string

const (
	PatternTimeRegularity   PatternKind = "time_regularity"
	PatternCorrelation      PatternKind = "correlation"
	PatternEnergyAnomaly    PatternKind = "energy_anomaly"
	PatternComfortThreshold PatternKind = "comfort_threshold"
)

// InsightKind categorizes user-facing insight records
type InsightKind string

const (
	InsightAutomation  InsightKind = "automation"
	InsightEnergy      InsightKind = "energy"
	InsightComfort     InsightKind = "comfort"
	InsightConvenience InsightKind = "convenience"
	InsightSecurity    InsightKind = "security"
)

// InsightKinds lists every kind, in stats-reporting order
var InsightKinds = []InsightKind{
	InsightAutomation, InsightEnergy, InsightComfort,
	InsightConvenience, InsightSecurity,
}

// PatternData carries the kind-specific payload of a pattern
type PatternData struct {
	// time regularity
	ActiveHours  []int `json:"activeHours,omitempty"`
	DaysObserved int   `json:"daysObserved,omitempty"`

	// correlation
	CorrelationScore float64 `json:"correlationScore,omitempty"`

	// energy anomaly
	AverageUsage float64   `json:"averageUsage,omitempty"`
	PeakUsage    float64   `json:"peakUsage,omitempty"`
	PeakTime     time.Time `json:"peakTime,omitzero"`

	// comfort threshold
	CurrentTemp    float64 `json:"currentTemp,omitempty"`
	RecommendedMin float64 `json:"recommendedMin,omitempty"`
	RecommendedMax float64 `json:"recommendedMax,omitempty"`
}

// Pattern is a mined regularity about one or more subjects.
// Immutable once created; the deterministic ID doubles as the dedup key.
type Pattern struct {
	ID               string      `json:"id"`
	Kind             PatternKind `json:"kind"`
	SubjectID        string      `json:"subjectId"`
	RelatedSubjectID string      `json:"relatedSubjectId,omitempty"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Confidence       int         `json:"confidence"` // 0-100
	Data             PatternData `json:"data"`
	Timestamp        time.Time   `json:"timestamp"`
}

// AutomationType tags the trigger mechanism of a generated automation
type AutomationType string

const (
	AutomationTimeBased  AutomationType = "time_based"
	AutomationStateBased AutomationType = "state_based"
)

// Suggestion is an actionable proposal derived from a single pattern,
// including a generated automation payload ready to paste
type Suggestion struct {
	ID               string         `json:"id"`
	Kind             InsightKind    `json:"kind"`
	SubjectID        string         `json:"subjectId,omitempty"`
	RelatedSubjectID string         `json:"relatedSubjectId,omitempty"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Confidence       int            `json:"confidence"`
	YAML             string         `json:"yaml,omitempty"`
	AutomationType   AutomationType `json:"automationType,omitempty"`
	PeakTime         time.Time      `json:"peakTime,omitzero"`
	Adjustment       float64        `json:"adjustment,omitempty"`
}

// Insight is the durable, lifecycle-managed record shown to the user
type Insight struct {
	ID               string       `json:"id"`
	Kind             InsightKind  `json:"kind"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	Confidence       int          `json:"confidence"`
	SubjectID        string       `json:"subjectId,omitempty"`
	RelatedSubjectID string       `json:"relatedSubjectId,omitempty"`
	Suggestions      []Suggestion `json:"suggestions,omitempty"`
	Timestamp        time.Time    `json:"timestamp"`
	Dismissed        bool         `json:"dismissed"`
	Implemented      bool         `json:"implemented"`
	ImplementedAt    *time.Time   `json:"implementedAt,omitempty"`
}
