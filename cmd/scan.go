package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homesight/homesight/internal/agent"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Generate insights now",
	Long: `Run one full pipeline pass immediately: flush buffered observations,
analyze patterns, and synthesize new insights.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := agent.New(loadAgentConfig())
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}
		if err := a.Store().Load(); err != nil {
			return err
		}

		emitted, err := a.Scan()
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, _ := json.MarshalIndent(emitted, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		if len(emitted) == 0 {
			fmt.Println("No new insights")
			return nil
		}

		fmt.Printf("Generated %d new insights\n\n", len(emitted))
		for _, in := range emitted {
			fmt.Printf("[%s] %s (%d%%)\n", in.Kind, in.Title, in.Confidence)
			fmt.Printf("   %s\n", in.Description)
			fmt.Printf("   id: %s\n\n", in.ID)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().Bool("json", false, "Output as JSON")
}
