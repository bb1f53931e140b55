package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homesight/homesight/internal/insights"
	"github.com/homesight/homesight/pkg/models"
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "List insights",
	Long: `List stored insights, newest first.

Examples:
  homesight insights
  homesight insights --kind automation --limit 5
  homesight insights --subject light.kitchen --dismissed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		kind, _ := cmd.Flags().GetString("kind")
		subject, _ := cmd.Flags().GetString("subject")
		dismissed, _ := cmd.Flags().GetBool("dismissed")
		implemented, _ := cmd.Flags().GetBool("implemented")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		results := s.Query(insights.QueryOptions{
			Kind:               models.InsightKind(kind),
			SubjectID:          subject,
			IncludeDismissed:   dismissed,
			IncludeImplemented: implemented,
			Limit:              limit,
			Offset:             offset,
		})

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, _ := json.MarshalIndent(results, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		if len(results) == 0 {
			fmt.Println("No insights found")
			return nil
		}

		fmt.Printf("Found %d insights\n\n", len(results))
		for _, in := range results {
			status := "active"
			if in.Dismissed {
				status = "dismissed"
			} else if in.Implemented {
				status = "implemented"
			}
			fmt.Printf("[%s] %s (%d%%, %s)\n", in.Kind, in.Title, in.Confidence, status)
			fmt.Printf("   %s\n", in.Description)
			fmt.Printf("   id: %s | %s\n\n", in.ID, in.Timestamp.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	insightsCmd.Flags().StringP("kind", "k", "", "Filter by kind (automation|energy|comfort|convenience|security)")
	insightsCmd.Flags().StringP("subject", "s", "", "Filter by subject id")
	insightsCmd.Flags().Bool("dismissed", false, "Include dismissed insights")
	insightsCmd.Flags().Bool("implemented", false, "Include implemented insights")
	insightsCmd.Flags().IntP("limit", "l", 0, "Maximum number of results")
	insightsCmd.Flags().Int("offset", 0, "Pagination offset")
	insightsCmd.Flags().Bool("json", false, "Output as JSON")
}
