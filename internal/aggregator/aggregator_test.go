package aggregator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/homesight/homesight/pkg/models"
)

func newTestAggregator() *Aggregator {
	return New(Config{
		TrackedCategories: models.DefaultTrackedCategories,
		Now: func() time.Time {
			return time.Date(2025, 6, 2, 7, 30, 0, 0, time.UTC) // Monday, hour 7
		},
	})
}

func TestObserveFiltersUntrackedCategory(t *testing.T) {
	a := newTestAggregator()

	a.Observe("sun.sun", "below_horizon", "above_horizon", nil, nil)

	require.Equal(t, 0, a.PendingCount())
}

func TestObserveFiltersExcludedSubject(t *testing.T) {
	a := New(Config{
		TrackedCategories: models.DefaultTrackedCategories,
		ExcludedSubjects:  []string{"light.porch"},
	})

	a.Observe("light.porch", "off", "on", nil, nil)
	a.Observe("light.kitchen", "off", "on", nil, nil)

	require.Equal(t, 1, a.PendingCount())
}

func TestObserveDropsNoopTransition(t *testing.T) {
	a := newTestAggregator()

	a.Observe("switch.fan", "on", "on", nil, nil)

	require.Equal(t, 0, a.PendingCount())
}

func TestObserveKeepsSignificantBrightnessChange(t *testing.T) {
	a := newTestAggregator()

	a.Observe("light.kitchen", "on", "on",
		map[string]any{"brightness": 100.0},
		map[string]any{"brightness": 130.0})
	a.Observe("light.kitchen", "on", "on",
		map[string]any{"brightness": 130.0},
		map[string]any{"brightness": 140.0})

	require.Equal(t, 1, a.PendingCount())
}

func TestObserveKeepsSignificantSetpointChange(t *testing.T) {
	a := newTestAggregator()

	a.Observe("climate.living_room", "heat", "heat",
		map[string]any{"temperature": 20.0},
		map[string]any{"temperature": 22.0})

	require.Equal(t, 1, a.PendingCount())
}

func TestFlushUpdatesHistograms(t *testing.T) {
	a := newTestAggregator()

	a.Observe("light.kitchen", "off", "on", nil, nil)
	a.Observe("light.kitchen", "on", "off", nil, nil)
	a.Observe("media_player.tv", "idle", "buffering", nil, nil)
	a.Flush()

	daily := a.DailyPatterns()
	require.Equal(t, 1, daily["light.kitchen"][7].On)
	require.Equal(t, 1, daily["light.kitchen"][7].Off)
	require.Equal(t, 1, daily["media_player.tv"][7].Other)

	weekly := a.WeeklyPatterns()
	monday := int(time.Monday)
	require.Equal(t, 1, weekly["light.kitchen"][monday].On)
	require.Equal(t, 1, weekly["light.kitchen"][monday].Off)

	require.Equal(t, 0, a.PendingCount())
	require.Len(t, a.History("light.kitchen"), 2)
}

func TestStateSynonymClassification(t *testing.T) {
	a := newTestAggregator()

	a.Observe("person.alice", "not_home", "home", nil, nil)
	a.Observe("cover.garage", "open", "closed", nil, nil)
	a.Flush()

	daily := a.DailyPatterns()
	require.Equal(t, 1, daily["person.alice"][7].On)
	require.Equal(t, 1, daily["cover.garage"][7].Off)
}

func TestOverflowForcesFlush(t *testing.T) {
	a := newTestAggregator()

	for i := 0; i <= PendingFlushThreshold; i++ {
		a.Observe("light.kitchen", "off", "on", nil, nil)
	}

	// the event crossing the threshold forces an immediate flush
	require.Equal(t, 0, a.PendingCount())
	require.Len(t, a.History("light.kitchen"), PendingFlushThreshold+1)
}

func TestHistoryEvictsOldestBeyondCapacity(t *testing.T) {
	a := newTestAggregator()

	for i := 0; i < MaxHistory+50; i++ {
		a.Observe("light.kitchen", "off", "on", nil, nil)
	}
	a.Flush()

	require.Len(t, a.History("light.kitchen"), MaxHistory)
}

func TestCorrelationRequiresMultipleSubjects(t *testing.T) {
	a := newTestAggregator()

	a.Observe("light.hall", "off", "on", nil, nil)
	a.Flush()

	require.Empty(t, a.Correlations())
}

func TestCorrelationScoreAfterSixWindows(t *testing.T) {
	a := newTestAggregator()

	for i := 0; i < 6; i++ {
		a.Observe("light.hall", "off", "on", nil, nil)
		a.Observe("binary_sensor.hall_motion", "off", "on", nil, nil)
		a.Flush()
	}

	// 0.1 on first co-occurrence, +0.05 for each of the next five
	require.InDelta(t, 0.35, a.CorrelationScore("light.hall", "binary_sensor.hall_motion"), 1e-9)
	require.InDelta(t, 0.35, a.CorrelationScore("binary_sensor.hall_motion", "light.hall"), 1e-9)
}

func TestCorrelationBoundsAndSymmetry(t *testing.T) {
	a := newTestAggregator()

	for i := 0; i < 40; i++ {
		a.Observe("light.hall", "off", "on", nil, nil)
		a.Observe("binary_sensor.hall_motion", "off", "on", nil, nil)
		a.Observe("switch.heater", "off", "on", nil, nil)
		a.Flush()
	}

	for from, row := range a.Correlations() {
		for to, score := range row {
			require.GreaterOrEqual(t, score, 0.1, "%s->%s", from, to)
			require.LessOrEqual(t, score, 0.9, "%s->%s", from, to)
			require.Equal(t, score, a.CorrelationScore(to, from))
		}
	}
	require.InDelta(t, 0.9, a.CorrelationScore("light.hall", "switch.heater"), 1e-9)
}

func TestFlushClearsPendingAtomically(t *testing.T) {
	a := newTestAggregator()

	for i := 0; i < 10; i++ {
		a.Observe(fmt.Sprintf("light.l%d", i), "off", "on", nil, nil)
	}
	require.Equal(t, 10, a.PendingCount())

	a.Flush()
	require.Equal(t, 0, a.PendingCount())
	require.False(t, a.LastFlush().IsZero())
}
