package main

import (
	"fmt"
	"os"

	"taskmanager/internal/server"

	"github.com/spf13/cobra"
)

var (
	Version    = "dev"
	configPath string
	storageArg string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "taskctl",
		Short:         "Администрирование сервиса задач",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "путь к файлу конфигурации JSON или YAML")
	rootCmd.PersistentFlags().StringVar(&storageArg, "storage", "", "тип хранилища: postgres, sqlite или memory")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(statsCmd)

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() *server.Config {
	cfg := server.LoadConfig(configPath)
	if storageArg != "" {
		cfg.Storage = storageArg
	}
	return cfg
}
