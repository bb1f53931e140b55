// Package agent wires the pipeline together and drives it: event
// ingestion feeds the aggregator, and scheduled cycles run flush,
// analysis, synthesis, and retention.
package agent

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/homesight/homesight/internal/aggregator"
	"github.com/homesight/homesight/internal/bus"
	"github.com/homesight/homesight/internal/insights"
	"github.com/homesight/homesight/internal/miner"
	"github.com/homesight/homesight/internal/registry"
	"github.com/homesight/homesight/internal/scheduler"
	"github.com/homesight/homesight/internal/storage"
	"github.com/homesight/homesight/internal/synthesizer"
	"github.com/homesight/homesight/internal/watcher"
	"github.com/homesight/homesight/pkg/models"
)

// Config holds agent configuration
type Config struct {
	DataDir string
	// Backend selects the durable store: "file" or "sqlite"
	Backend  string
	SpoolDir string

	TrackedCategories []models.Category
	ExcludedSubjects  []string

	Miner       miner.Config
	Synthesizer synthesizer.Config
	PurgeDays   int

	FlushInterval      time.Duration
	AnalyzeInterval    time.Duration
	SynthesizeInterval time.Duration
	PurgeInterval      time.Duration
	SpoolDebounce      time.Duration
}

// DefaultConfig returns the default agent configuration
func DefaultConfig() *Config {
	return &Config{
		Backend:            "file",
		TrackedCategories:  models.DefaultTrackedCategories,
		Miner:              miner.DefaultConfig(),
		Synthesizer:        synthesizer.DefaultConfig(),
		PurgeDays:          30,
		FlushInterval:      10 * time.Minute,
		AnalyzeInterval:    time.Hour,
		SynthesizeInterval: 4 * time.Hour,
		PurgeInterval:      7 * 24 * time.Hour,
		SpoolDebounce:      500 * time.Millisecond,
	}
}

// Agent is the homesight background service
type Agent struct {
	config *Config

	agg   *aggregator.Aggregator
	reg   *registry.InMemory
	miner *miner.Miner
	synth *synthesizer.Synthesizer
	store *insights.Store
	bus   *bus.Bus

	durable storage.Store
	sched   scheduler.Scheduler
	cancels []func()

	changes chan watcher.Change
	sources []watcher.Source

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a fully wired agent. Every collaborator is injected here;
// no component reaches for shared globals.
func New(cfg *Config) (*Agent, error) {
	durable, err := OpenStorage(cfg)
	if err != nil {
		return nil, err
	}

	notifier := bus.New()
	agg := aggregator.New(aggregator.Config{
		TrackedCategories: cfg.TrackedCategories,
		ExcludedSubjects:  cfg.ExcludedSubjects,
	})
	reg := registry.NewInMemory()
	store := insights.New(durable, notifier)
	mnr := miner.New(cfg.Miner, agg, reg)
	synth := synthesizer.New(cfg.Synthesizer, store, notifier, reg)

	ctx, cancel := context.WithCancel(context.Background())

	return &Agent{
		config:  cfg,
		agg:     agg,
		reg:     reg,
		miner:   mnr,
		synth:   synth,
		store:   store,
		bus:     notifier,
		durable: durable,
		sched:   scheduler.NewTicker(),
		changes: make(chan watcher.Change, 10000),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// OpenStorage opens the durable store selected by the config. The CLI
// uses it to reach the insight store without a running agent.
func OpenStorage(cfg *Config) (storage.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		st, err := storage.NewSQLStore(filepath.Join(cfg.DataDir, "insights.db"))
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		return st, nil
	case "", "file":
		return storage.NewFileStore(filepath.Join(cfg.DataDir, "insights.json")), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// Start loads persisted state and begins background processing
func (a *Agent) Start() error {
	log.Println("Starting homesight agent...")

	if err := a.store.Load(); err != nil {
		return err
	}

	a.wg.Add(1)
	go a.processChanges()

	if a.config.SpoolDir != "" {
		spool := watcher.NewSpoolWatcher(a.config.SpoolDir, a.config.SpoolDebounce, a.changes)
		if err := spool.Start(); err != nil {
			log.Printf("Warning: spool watcher failed to start: %v", err)
		} else {
			a.sources = append(a.sources, spool)
		}
	}

	a.cancels = append(a.cancels,
		a.sched.Every(a.config.FlushInterval, a.agg.Flush),
		// flush runs first in the same tick so analysis always sees
		// current histograms
		a.sched.Every(a.config.AnalyzeInterval, func() {
			a.agg.Flush()
			a.miner.Analyze()
		}),
		a.sched.Every(a.config.SynthesizeInterval, func() {
			if _, err := a.synth.Synthesize(a.miner.Patterns()); err != nil {
				log.Printf("Synthesis cycle failed to persist: %v", err)
			}
		}),
		a.sched.Every(a.config.PurgeInterval, func() {
			if _, err := a.store.Purge(a.config.PurgeDays); err != nil {
				log.Printf("Purge cycle failed to persist: %v", err)
			}
		}),
	)

	// initial analysis + synthesis pass
	a.miner.Analyze()
	if _, err := a.synth.Synthesize(a.miner.Patterns()); err != nil {
		log.Printf("Initial synthesis failed to persist: %v", err)
	}

	log.Println("homesight agent started")
	return nil
}

// Stop gracefully shuts down: scheduled cycles that have not started
// are skipped, an in-flight flush or persist finishes
func (a *Agent) Stop() {
	log.Println("Stopping homesight agent...")

	for _, cancel := range a.cancels {
		cancel()
	}
	if t, ok := a.sched.(*scheduler.Ticker); ok {
		t.Wait()
	}

	for _, src := range a.sources {
		src.Stop()
	}

	a.cancel()
	a.wg.Wait()

	// fold in whatever is still buffered before exit
	a.agg.Flush()
	a.durable.Close()

	log.Println("homesight agent stopped")
}

// processChanges drains the ingestion channel
func (a *Agent) processChanges() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			for {
				select {
				case change := <-a.changes:
					a.ingest(change)
				default:
					return
				}
			}
		case change := <-a.changes:
			a.ingest(change)
		}
	}
}

func (a *Agent) ingest(change watcher.Change) {
	a.agg.Observe(change.SubjectID, change.OldValue, change.NewValue,
		change.OldAttributes, change.NewAttributes)
	a.reg.Record(change.SubjectID, change.NewValue, change.Timestamp)
}

// Observe feeds one state transition directly into the pipeline
func (a *Agent) Observe(subjectID, oldValue, newValue string, oldAttrs, newAttrs map[string]any) {
	a.agg.Observe(subjectID, oldValue, newValue, oldAttrs, newAttrs)
	a.reg.Record(subjectID, newValue, time.Now())
}

// Scan runs a full generate-insights-now pass: flush, analyze,
// synthesize. Returns the newly emitted insights.
func (a *Agent) Scan() ([]models.Insight, error) {
	a.agg.Flush()
	patterns := a.miner.Analyze()
	return a.synth.Synthesize(patterns)
}

// Store exposes the insight store to the command surface
func (a *Agent) Store() *insights.Store {
	return a.store
}

// Bus exposes the notification bus to display collaborators
func (a *Agent) Bus() *bus.Bus {
	return a.bus
}
