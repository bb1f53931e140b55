package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dismissCmd = &cobra.Command{
	Use:   "dismiss [insight-id]",
	Short: "Dismiss an insight",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		ok, err := s.Dismiss(args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("No active insight with id %s\n", args[0])
			return nil
		}
		fmt.Printf("Dismissed %s\n", args[0])
		return nil
	},
}

var implementCmd = &cobra.Command{
	Use:   "implement [insight-id]",
	Short: "Mark an insight as implemented",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		ok, err := s.MarkImplemented(args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("No active insight with id %s\n", args[0])
			return nil
		}
		fmt.Printf("Marked %s as implemented\n", args[0])
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove old dismissed and implemented insights",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		days, _ := cmd.Flags().GetInt("days")
		removed, err := s.Purge(days)
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d insights older than %d days\n", removed, days)
		return nil
	},
}

func init() {
	purgeCmd.Flags().Int("days", 30, "Maximum age in days to keep")
}
