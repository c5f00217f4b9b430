package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	_ "github.com/lib/pq"

	"github.com/webcompat/ochazuke/internal/archive"
	"github.com/webcompat/ochazuke/internal/poll"
	"github.com/webcompat/ochazuke/internal/store"
	"github.com/webcompat/ochazuke/pkg/config"
)

// jobOpts is the wiring every polling subcommand shares.
type jobOpts struct {
	configPath  string
	databaseURL string
}

func (o *jobOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.configPath, "config", "ochazuke.yml", "Path to the config file")
	cmd.Flags().StringVar(&o.databaseURL, "database-url", "", "Postgres connection string (default: DATABASE_URL)")
}

// connect opens the database and builds the polling jobs. The returned
// cleanup closes the connection.
func (o *jobOpts) connect(ctx context.Context, withArchive bool) (*poll.Jobs, func(), error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	dbURL := o.databaseURL
	if dbURL == "" {
		dbURL = envOrDefault("DATABASE_URL", "postgres://localhost:5432/ochazuke?sslmode=disable")
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	var archiver archive.StorageClient
	if withArchive {
		archiver, err = archive.NewFromConfig(ctx, cfg.Archive)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("archive storage: %w", err)
		}
	}

	timeout := time.Duration(cfg.Polling.TimeoutSeconds) * time.Second
	client := poll.NewClient(os.Getenv("GITHUB_TOKEN"), timeout)
	jobs := poll.NewJobs(client, store.NewService(db), archiver, cfg.Repo, cfg.Polling.Categories)
	return jobs, func() { db.Close() }, nil
}

func newDailyTotalCmd() *cobra.Command {
	var opts jobOpts

	cmd := &cobra.Command{
		Use:   "daily-total",
		Short: "Record yesterday's count of newly filed issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, cleanup, err := opts.connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()
			return jobs.RunDailyTotal(cmd.Context())
		},
	}
	opts.register(cmd)
	return cmd
}

func newWeeklyTotalCmd() *cobra.Command {
	var opts jobOpts

	cmd := &cobra.Command{
		Use:   "weekly-total",
		Short: "Sum last week's daily totals into a weekly figure",
		Long:  `Sums the previous week's daily totals. Only acts when run on a Monday.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, cleanup, err := opts.connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cleanup()
			return jobs.RunWeeklyTotal(cmd.Context())
		},
	}
	opts.register(cmd)
	return cmd
}

func newTimelineCmd() *cobra.Command {
	var opts jobOpts

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Sample live per-milestone open-issue counts",
		Long: `Polls the GitHub milestone of every configured category, records changed
counts, and appends them to the archived timeline documents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, cleanup, err := opts.connect(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer cleanup()
			return jobs.RunCategoryCounts(cmd.Context())
		},
	}
	opts.register(cmd)
	return cmd
}
