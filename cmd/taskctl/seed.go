package main

import (
	"fmt"

	"taskmanager/internal/app"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Заполнить пустую базу демонстрационными данными",
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	application, err := app.Open(ctx, loadConfig(), app.Options{})
	if err != nil {
		return err
	}
	defer application.Close()

	seeded, err := application.Services.Seeder.Seed(ctx)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if !seeded {
		fmt.Fprintln(cmd.OutOrStdout(), "База уже содержит пользователей, пропускаем")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "База заполнена демо-данными")
	return nil
}
