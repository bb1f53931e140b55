package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/homesight/homesight/internal/agent"
	"github.com/homesight/homesight/pkg/models"
)

var (
	version = "0.1.0"
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "homesight",
	Short: "Watch your home. Understand your habits. Automate them.",
	Long: `Homesight observes state changes across your smart-home devices,
mines recurring time-of-day and cross-device patterns, and turns them
into actionable automation insights with generated configuration,
lifecycle tracking, and history.`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.homesight/config.yaml)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(dismissCmd)
	rootCmd.AddCommand(implementCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(purgeCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(getConfigDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("HOMESIGHT")
	viper.AutomaticEnv()

	viper.SetDefault("data_dir", getConfigDir()+"/data")
	viper.SetDefault("storage", "file")
	viper.SetDefault("spool_dir", "")
	viper.SetDefault("sensitivity", 50)
	viper.SetDefault("max_suggestions", 15)
	viper.SetDefault("purge_days", 30)
	viper.SetDefault("flush_interval", "10m")
	viper.SetDefault("analyze_interval", "1h")
	viper.SetDefault("synthesize_interval", "4h")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}
}

// getConfigDir returns the homesight config directory
func getConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
		os.Exit(1)
	}
	return home + "/.homesight"
}

// loadAgentConfig builds the agent configuration from viper settings
func loadAgentConfig() *agent.Config {
	cfg := agent.DefaultConfig()
	cfg.DataDir = viper.GetString("data_dir")
	cfg.Backend = viper.GetString("storage")
	cfg.SpoolDir = viper.GetString("spool_dir")
	cfg.PurgeDays = viper.GetInt("purge_days")
	cfg.Miner.Sensitivity = viper.GetInt("sensitivity")
	cfg.Synthesizer.MaxSuggestions = viper.GetInt("max_suggestions")

	if categories := viper.GetStringSlice("tracked_categories"); len(categories) > 0 {
		cfg.TrackedCategories = nil
		for _, c := range categories {
			cfg.TrackedCategories = append(cfg.TrackedCategories, models.Category(c))
		}
	}
	cfg.ExcludedSubjects = viper.GetStringSlice("excluded_subjects")

	for key, dst := range map[string]*time.Duration{
		"flush_interval":      &cfg.FlushInterval,
		"analyze_interval":    &cfg.AnalyzeInterval,
		"synthesize_interval": &cfg.SynthesizeInterval,
	} {
		if d := viper.GetDuration(key); d > 0 {
			*dst = d
		}
	}
	return cfg
}
