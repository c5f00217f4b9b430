package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/webcompat/ochazuke/internal/platform"
)

func newMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbURL := databaseURL
			if dbURL == "" {
				dbURL = envOrDefault("DATABASE_URL", "postgres://localhost:5432/ochazuke?sslmode=disable")
			}
			db, err := sql.Open("postgres", dbURL)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := platform.AutoMigrate(db); err != nil {
				return err
			}
			fmt.Println("database is up to date")
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (default: DATABASE_URL)")
	return cmd
}
