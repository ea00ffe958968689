package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourorg/tracectl/internal/compose"
	"github.com/yourorg/tracectl/internal/console"
)

func newOverviewCmd(a *app) *cobra.Command {
	var opts console.OverviewOptions
	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Summarize sessions, records, providers and backend health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := console.LoadOverview(cmd.Context(), a.api, opts, a.opts())
			if err != nil {
				return err
			}

			a.out.header("Overview")
			health := a.out.st.success.Render("healthy")
			if !ov.Healthy {
				health = a.out.st.failure.Render("unreachable")
			}
			a.out.field("Backend", a.cfg.API.BaseURL+" "+health)
			a.out.field("Sessions", strconv.Itoa(ov.TotalSessions))
			a.out.field("Debug sessions", strconv.Itoa(ov.DebugSessions))
			a.out.field("Providers", strconv.Itoa(len(ov.Providers)))
			a.out.field("Sampled records", fmt.Sprintf("%d (%s)", ov.TotalRecords, statusSummary(ov.StatusCounts)))

			rows := make([][]string, 0, len(ov.RecentRecords))
			for _, r := range ov.RecentRecords {
				rows = append(rows, []string{
					formatTime(r.CreatedAt),
					r.SessionID,
					strconv.Itoa(r.TurnNumber),
					a.out.status(r.Status),
					truncate(compose.UserText(r.Request), 40),
				})
			}
			a.out.header("Recent records")
			a.out.table([]string{"CREATED", "SESSION", "TURN", "STATUS", "PROMPT"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.RecentSessions, "sessions", 5, "number of newest sessions sampled for record statistics")
	cmd.Flags().IntVar(&opts.RecentRecords, "records", 10, "number of recent records shown")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 4, "parallel backend calls")
	return cmd
}

func statusSummary(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}

func newProvidersCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List providers and their enabled models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			providers, err := a.api.ListProviders(cmd.Context())
			if err != nil {
				return err
			}
			rows := [][]string{}
			for _, p := range providers {
				if !p.Enabled && !all {
					continue
				}
				models := p.EnabledModels()
				names := make([]string, 0, len(models))
				for _, m := range models {
					names = append(names, m.Model)
				}
				rows = append(rows, []string{p.Name, p.Type, strconv.FormatBool(p.Enabled), strings.Join(names, ", ")})
			}
			a.out.header("Providers")
			a.out.table([]string{"NAME", "TYPE", "ENABLED", "MODELS"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include disabled providers")
	return cmd
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.Health(cmd.Context()); err != nil {
				return err
			}
			a.out.printf("%s is healthy\n", a.cfg.API.BaseURL)
			return nil
		},
	}
}
