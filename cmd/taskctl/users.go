package main

import (
	"fmt"
	"text/tabwriter"

	"taskmanager/internal/app"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Список пользователей",
	RunE:  runUsers,
}

func runUsers(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	application, err := app.Open(ctx, loadConfig(), app.Options{})
	if err != nil {
		return err
	}
	defer application.Close()

	users, err := application.Services.Auth.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tИМЯ\tEMAIL")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Name, u.Email)
	}
	return w.Flush()
}
