package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/yourorg/tracectl/internal/console"
	"github.com/yourorg/tracectl/internal/filter"
)

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Browse traced sessions",
	}
	cmd.AddCommand(newSessionsListCmd(a))
	return cmd
}

func newSessionsListCmd(a *app) *cobra.Command {
	var page, size int
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if size == 0 {
				size = a.cfg.Pagination.SessionPageSize
			}
			sessions := console.NewSessionStore(a.api, a.opts())
			if err := sessions.Fetch(cmd.Context(), page, size); err != nil {
				return err
			}

			rows := [][]string{}
			for _, s := range filter.Sessions(sessions.Sessions(), search) {
				rows = append(rows, []string{s.ID, truncate(s.Name, 40), formatTime(s.CreatedAt)})
			}
			a.out.header("Sessions")
			a.out.table([]string{"ID", "NAME", "CREATED"}, rows)
			a.out.pagination(sessions.Pagination())
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 0, "page size (default from config)")
	cmd.Flags().StringVar(&search, "search", "", "filter the page by name or id")
	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
