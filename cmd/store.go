package cmd

import (
	"fmt"

	"github.com/homesight/homesight/internal/agent"
	"github.com/homesight/homesight/internal/bus"
	"github.com/homesight/homesight/internal/insights"
)

// openStore gives CLI commands direct access to the persisted insight
// collections without a running daemon
func openStore() (*insights.Store, func(), error) {
	durable, err := agent.OpenStorage(loadAgentConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	s := insights.New(durable, bus.New())
	if err := s.Load(); err != nil {
		durable.Close()
		return nil, nil, err
	}
	return s, func() { durable.Close() }, nil
}
