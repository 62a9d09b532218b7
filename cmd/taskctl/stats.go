package main

import (
	"encoding/json"
	"fmt"

	"taskmanager/internal/app"
	"taskmanager/internal/domain/models"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Статистика по задачам",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVarP(&statsJSON, "json", "j", false, "вывод в формате JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	application, err := app.Open(ctx, loadConfig(), app.Options{})
	if err != nil {
		return err
	}
	defer application.Close()

	stats, err := application.Services.Dashboard.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Fprintf(out, "Всего задач: %d\n", stats.TotalTasks)
	fmt.Fprintln(out, "\nПо статусу:")
	for _, s := range models.TaskStatuses {
		fmt.Fprintf(out, "  %-12s %d\n", s, stats.TasksByStatus[s])
	}
	fmt.Fprintln(out, "\nПо приоритету:")
	for _, p := range models.Priorities {
		fmt.Fprintf(out, "  %-12s %d\n", p, stats.TasksByPriority[p])
	}
	fmt.Fprintln(out, "\nПоследние задачи:")
	for _, t := range stats.RecentTasks {
		fmt.Fprintf(out, "  %s  %s [%s]\n", t.CreatedAt.Format("2006-01-02 15:04"), t.Title, t.Status)
	}
	return nil
}
