package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homesight/homesight/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show insight statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		stats := s.Stats()

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		fmt.Println("homesight status")
		fmt.Println("----------------")
		fmt.Printf("   Version:     %s\n", version)
		fmt.Printf("   Total:       %d\n", stats.Total)
		fmt.Printf("   Active:      %d\n", stats.Active)
		fmt.Printf("   Dismissed:   %d\n", stats.Dismissed)
		fmt.Printf("   Implemented: %d (%.0f%%)\n", stats.Implemented, stats.ImplementationRate*100)
		fmt.Println()
		fmt.Println("By kind")
		fmt.Println("----------------")
		for _, kind := range models.InsightKinds {
			fmt.Printf("   %-12s %d\n", kind, stats.PerKind[kind])
		}
		if !stats.LastScan.IsZero() {
			fmt.Println()
			fmt.Printf("   Last scan:   %s\n", stats.LastScan.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "Output as JSON")
}
