package synthesizer

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/homesight/homesight/internal/bus"
	"github.com/homesight/homesight/internal/registry"
	"github.com/homesight/homesight/pkg/models"
)

// fakeSink records batches and can simulate persistence failures
type fakeSink struct {
	batches [][]models.Insight
	err     error
}

func (f *fakeSink) AddBatch(insights []models.Insight) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, insights)
	ids := make([]string, len(insights))
	for i, in := range insights {
		ids[i] = in.ID
	}
	return ids, nil
}

func newTestSynthesizer(cfg Config) (*Synthesizer, *fakeSink, *bus.Bus, *registry.InMemory) {
	sink := &fakeSink{}
	b := bus.New()
	reg := registry.NewInMemory()
	return New(cfg, sink, b, reg), sink, b, reg
}

func timePattern(subjectID string, confidence int, hours ...int) models.Pattern {
	return models.Pattern{
		ID:         fmt.Sprintf("time_pattern_%s_7", subjectID),
		Kind:       models.PatternTimeRegularity,
		SubjectID:  subjectID,
		Confidence: confidence,
		Data:       models.PatternData{ActiveHours: hours},
	}
}

func TestSynthesizeTimePattern(t *testing.T) {
	s, sink, _, _ := newTestSynthesizer(DefaultConfig())

	emitted, err := s.Synthesize([]models.Pattern{timePattern("light.kitchen", 65, 7)})
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	require.Len(t, sink.batches, 1)

	in := emitted[0]
	require.Equal(t, "insight_suggestion_time_pattern_light.kitchen_7", in.ID)
	require.Equal(t, models.InsightAutomation, in.Kind)
	require.Equal(t, 65, in.Confidence)
	require.Len(t, in.Suggestions, 1)

	sg := in.Suggestions[0]
	require.Equal(t, models.AutomationTimeBased, sg.AutomationType)
	require.Contains(t, sg.YAML, "platform: time")
	require.Contains(t, sg.YAML, "07:00:00")
	require.Contains(t, sg.YAML, "light.turn_on")
	require.Contains(t, sg.YAML, "brightness_pct: 80")
}

func TestSynthesizeMotionCorrelation(t *testing.T) {
	s, _, _, _ := newTestSynthesizer(DefaultConfig())

	emitted, err := s.Synthesize([]models.Pattern{{
		ID:               "correlation_light.hall_binary_sensor.hall_motion",
		Kind:             models.PatternCorrelation,
		SubjectID:        "light.hall",
		RelatedSubjectID: "binary_sensor.hall_motion",
		Confidence:       50,
	}})
	require.NoError(t, err)
	require.Len(t, emitted, 1)

	sg := emitted[0].Suggestions[0]
	require.Equal(t, models.AutomationStateBased, sg.AutomationType)
	require.Contains(t, sg.YAML, "platform: state")
	require.Contains(t, sg.YAML, "binary_sensor.hall_motion")
	// motion lighting turns off again after a clear plus debounce
	require.Contains(t, sg.YAML, "minutes: 5")
	require.Contains(t, sg.YAML, "light.turn_off")
}

func TestSynthesizePresenceCorrelationUsesChoose(t *testing.T) {
	s, _, _, _ := newTestSynthesizer(DefaultConfig())

	emitted, err := s.Synthesize([]models.Pattern{{
		ID:               "correlation_light.porch_person.alice",
		Kind:             models.PatternCorrelation,
		SubjectID:        "light.porch",
		RelatedSubjectID: "person.alice",
		Confidence:       60,
	}})
	require.NoError(t, err)
	require.Len(t, emitted, 1)

	yamlDoc := emitted[0].Suggestions[0].YAML
	require.Contains(t, yamlDoc, "choose:")
	require.Contains(t, yamlDoc, "state: home")
	require.Contains(t, yamlDoc, "state: not_home")
}

func TestSynthesizeEnergyIsAdvisory(t *testing.T) {
	s, _, _, _ := newTestSynthesizer(DefaultConfig())

	peak := time.Date(2025, 6, 2, 18, 30, 0, 0, time.UTC)
	emitted, err := s.Synthesize([]models.Pattern{{
		ID:         "energy_high_usage_sensor.kitchen_power",
		Kind:       models.PatternEnergyAnomaly,
		SubjectID:  "sensor.kitchen_power",
		Confidence: 75,
		Data:       models.PatternData{PeakUsage: 10, PeakTime: peak},
	}})
	require.NoError(t, err)
	require.Len(t, emitted, 1)

	sg := emitted[0].Suggestions[0]
	require.Equal(t, models.InsightEnergy, emitted[0].Kind)
	require.Contains(t, sg.Description, "18:30")
	require.Empty(t, sg.YAML)
}

func TestSynthesizeComfortTargetsClimate(t *testing.T) {
	s, _, _, reg := newTestSynthesizer(DefaultConfig())
	reg.Record("climate.living_room", "heat", time.Now())
	reg.Record("climate.bedroom", "heat", time.Now())

	emitted, err := s.Synthesize([]models.Pattern{{
		ID:         "comfort_too_cold_sensor.living_temperature",
		Kind:       models.PatternComfortThreshold,
		SubjectID:  "sensor.living_temperature",
		Confidence: 72,
		Data:       models.PatternData{CurrentTemp: 15, RecommendedMin: 18},
	}})
	require.NoError(t, err)
	require.Len(t, emitted, 1)

	sg := emitted[0].Suggestions[0]
	require.Equal(t, models.InsightComfort, emitted[0].Kind)
	// the alphabetically first climate subject receives the correction
	require.Equal(t, "climate.bedroom", sg.RelatedSubjectID)
	require.Contains(t, sg.YAML, "climate.set_temperature")
	require.InDelta(t, 3.0, sg.Adjustment, 1e-9)
}

func TestSynthesizeComfortWithoutClimateSubjects(t *testing.T) {
	s, _, _, _ := newTestSynthesizer(DefaultConfig())

	emitted, err := s.Synthesize([]models.Pattern{{
		ID:         "comfort_too_warm_sensor.bedroom_temperature",
		Kind:       models.PatternComfortThreshold,
		SubjectID:  "sensor.bedroom_temperature",
		Confidence: 85,
		Data:       models.PatternData{CurrentTemp: 30, RecommendedMax: 25},
	}})
	require.NoError(t, err)
	require.Len(t, emitted, 1)

	sg := emitted[0].Suggestions[0]
	require.Empty(t, sg.RelatedSubjectID)
	require.Empty(t, sg.YAML)
	require.InDelta(t, 5.0, sg.Adjustment, 1e-9)
}

func TestSynthesizeRanksAndTruncates(t *testing.T) {
	s, sink, _, _ := newTestSynthesizer(Config{MaxSuggestions: 2})

	emitted, err := s.Synthesize([]models.Pattern{
		timePattern("light.a", 70, 7),
		timePattern("light.b", 90, 7),
		timePattern("light.c", 80, 7),
	})
	require.NoError(t, err)
	require.Len(t, emitted, 2)
	require.Equal(t, 90, emitted[0].Confidence)
	require.Equal(t, 80, emitted[1].Confidence)
	require.Len(t, sink.batches, 1)
	require.Len(t, sink.batches[0], 2)
}

func TestSynthesizeIsIdempotentAcrossCycles(t *testing.T) {
	s, sink, b, _ := newTestSynthesizer(DefaultConfig())

	notified := 0
	unsubscribe := b.Subscribe(bus.TopicNewInsight, func(any) { notified++ })
	defer unsubscribe()

	patterns := []models.Pattern{timePattern("light.kitchen", 65, 7)}

	first, err := s.Synthesize(patterns)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := s.Synthesize(patterns)
	require.NoError(t, err)
	require.Nil(t, second)

	require.Len(t, sink.batches, 1)
	require.Equal(t, 1, notified)
}

func TestSynthesizePersistFailure(t *testing.T) {
	s, sink, _, _ := newTestSynthesizer(DefaultConfig())
	sink.err = errors.New("disk full")

	emitted, err := s.Synthesize([]models.Pattern{timePattern("light.kitchen", 65, 7)})
	require.Error(t, err)
	require.Len(t, emitted, 1)
}

func TestSynthesizeNoPatterns(t *testing.T) {
	s, sink, _, _ := newTestSynthesizer(DefaultConfig())

	emitted, err := s.Synthesize(nil)
	require.NoError(t, err)
	require.Nil(t, emitted)
	require.Empty(t, sink.batches)
}
