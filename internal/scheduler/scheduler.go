// Package scheduler abstracts periodic task registration so the
// pipeline can be driven by real timers in the daemon and by a manual
// clock in tests.
package scheduler

import (
	"sync"
	"time"
)

// Scheduler registers a callback to run on a fixed interval. The
// returned cancel function stops future runs; an in-flight run is
// allowed to finish.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func())
}

// Ticker is the production scheduler backed by time.Ticker
type Ticker struct {
	wg sync.WaitGroup
}

// NewTicker creates a ticker-backed scheduler
func NewTicker() *Ticker {
	return &Ticker{}
}

func (t *Ticker) Every(interval time.Duration, fn func()) func() {
	stop := make(chan struct{})
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
	}
}

// Wait blocks until every cancelled job has exited
func (t *Ticker) Wait() {
	t.wg.Wait()
}

// Manual is a test scheduler driven by explicit Advance calls
type Manual struct {
	mu   sync.Mutex
	jobs []*manualJob
}

type manualJob struct {
	interval  time.Duration
	fn        func()
	elapsed   time.Duration
	cancelled bool
}

// NewManual creates a scheduler that only runs when advanced
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Every(interval time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := &manualJob{interval: interval, fn: fn}
	m.jobs = append(m.jobs, j)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		j.cancelled = true
	}
}

// Advance moves the fake clock forward, firing each job once per full
// interval elapsed
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	jobs := make([]*manualJob, len(m.jobs))
	copy(jobs, m.jobs)
	m.mu.Unlock()

	for _, j := range jobs {
		if j.cancelled {
			continue
		}
		j.elapsed += d
		for j.elapsed >= j.interval {
			j.elapsed -= j.interval
			j.fn()
		}
	}
}
