package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/config"
	"github.com/fitforge/fitforge/database/seeders"
	"github.com/fitforge/fitforge/pkg/database"
	"github.com/fitforge/fitforge/pkg/migration"
)

// bootDB loads config and opens the database connection.
func bootDB(ctx context.Context) (*gorm.DB, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	driver := config.DatabaseDriver()
	if driver == "memory" {
		return nil, errors.New("DB_DRIVER=memory has no schema; choose sqlite, postgres, mysql or sqlserver")
	}
	return database.Connect(ctx, database.Options{
		Driver:   driver,
		DSN:      config.DatabaseDSN(),
		Attempts: config.DatabaseConnectAttempts(),
	})
}

// withDB opens the database, runs fn and closes the pool.
func withDB(cmd *cobra.Command, fn func(ctx context.Context, db *gorm.DB) error) error {
	ctx := cmd.Context()
	db, err := bootDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close(db) //nolint:errcheck
	return fn(ctx, db)
}

// fitforge migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, db *gorm.DB) error {
			fmt.Println("Running migrations…")
			return migration.New(db, os.Stdout).Run(ctx)
		})
	},
}

// fitforge migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, db *gorm.DB) error {
			fmt.Println("Rolling back last batch…")
			return migration.New(db, os.Stdout).Rollback(ctx)
		})
	},
}

// fitforge migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, db *gorm.DB) error {
			return migration.New(db, os.Stdout).Status(ctx)
		})
	},
}

// fitforge seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all database seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, db *gorm.DB) error {
			pending, err := migration.New(db, nil).Pending(ctx)
			if err != nil {
				return err
			}
			if len(pending) > 0 {
				return fmt.Errorf("%d migrations pending; run fitforge migrate first", len(pending))
			}
			fmt.Println("Running seeders…")
			return seeders.RunAll(ctx, repositories.NewGormStore(db), os.Stdout)
		})
	},
}
