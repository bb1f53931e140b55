package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/homesight/homesight/internal/agent"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the homesight observation daemon",
	Long: `Run the homesight daemon: observe subject state changes, aggregate
them into usage histograms, and periodically mine patterns and generate
automation insights.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Starting homesight daemon...")

		a, err := agent.New(loadAgentConfig())
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}

		if err := a.Start(); err != nil {
			return fmt.Errorf("failed to start agent: %w", err)
		}

		fmt.Println("homesight daemon started")
		fmt.Println("   Observing subject changes...")
		fmt.Println("   Press Ctrl+C to stop")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		fmt.Println("\nShutting down...")
		a.Stop()
		fmt.Println("homesight daemon stopped")

		return nil
	},
}
