// Package main provides the ochazuke CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "ochazuke",
		Short: "Webcompat metrics jobs and maintenance",
		Long: `Ochazuke collects issue metrics for the webcompat dashboard: daily and
weekly totals of newly filed issues and live per-milestone counts.`,
		Version: version,
	}

	rootCmd.AddCommand(
		newDailyTotalCmd(),
		newWeeklyTotalCmd(),
		newTimelineCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
