package main

import (
	"fmt"

	"taskmanager/internal/server"
	"taskmanager/repository/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Применить миграции PostgreSQL",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if cfg.Storage != server.StoragePostgres {
		fmt.Fprintf(cmd.OutOrStdout(), "Хранилище %q не использует миграции\n", cfg.Storage)
		return nil
	}
	if err := db.Migration(cfg.DBStr, cfg.MigratePath); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Миграции применены")
	return nil
}
