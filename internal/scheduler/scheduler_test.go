package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManualFiresOncePerInterval(t *testing.T) {
	m := NewManual()

	runs := 0
	m.Every(10*time.Minute, func() { runs++ })

	m.Advance(9 * time.Minute)
	require.Equal(t, 0, runs)

	m.Advance(1 * time.Minute)
	require.Equal(t, 1, runs)

	// a large jump catches up one run per full interval
	m.Advance(25 * time.Minute)
	require.Equal(t, 3, runs)
}

func TestManualCancelStopsRuns(t *testing.T) {
	m := NewManual()

	runs := 0
	cancel := m.Every(time.Minute, func() { runs++ })

	m.Advance(time.Minute)
	cancel()
	m.Advance(time.Minute)

	require.Equal(t, 1, runs)
}

func TestManualIndependentIntervals(t *testing.T) {
	m := NewManual()

	var fast, slow int
	m.Every(time.Minute, func() { fast++ })
	m.Every(time.Hour, func() { slow++ })

	m.Advance(30 * time.Minute)
	require.Equal(t, 30, fast)
	require.Equal(t, 0, slow)

	m.Advance(30 * time.Minute)
	require.Equal(t, 60, fast)
	require.Equal(t, 1, slow)
}

func TestTickerRunsAndCancels(t *testing.T) {
	tk := NewTicker()

	var runs atomic.Int64
	cancel := tk.Every(5*time.Millisecond, func() { runs.Add(1) })

	require.Eventually(t, func() bool { return runs.Load() >= 2 },
		time.Second, time.Millisecond)

	cancel()
	cancel() // second cancel is a no-op
	tk.Wait()

	settled := runs.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, settled, runs.Load())
}
