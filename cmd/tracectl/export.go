package main

import (
	"github.com/spf13/cobra"

	"github.com/yourorg/tracectl/internal/console"
	"github.com/yourorg/tracectl/internal/export"
	"github.com/yourorg/tracectl/internal/filter"
)

func newExportCmd(a *app) *cobra.Command {
	var dir string
	var formats []string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write transcripts and record pages to disk",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "output directory (default from config)")
	cmd.PersistentFlags().StringSliceVar(&formats, "format", nil, "formats: markdown, yaml (default from config)")

	target := func() (string, []string) {
		d, f := dir, formats
		if d == "" {
			d = a.cfg.Output.Dir
		}
		if len(f) == 0 {
			f = a.cfg.Output.Formats
		}
		return d, f
	}
	cmd.AddCommand(newExportDebugCmd(a, target))
	cmd.AddCommand(newExportRecordsCmd(a, target))
	return cmd
}

func newExportDebugCmd(a *app, target func() (string, []string)) *cobra.Command {
	return &cobra.Command{
		Use:   "debug <debug-session-id>",
		Short: "Export a debug session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			replay := console.NewReplayStore(a.api, a.opts())
			sess, err := replay.Select(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dir, formats := target()
			paths, err := export.WriteTranscript(&export.Transcript{
				Session: *sess,
				Turns:   filter.NewSanitizer(a.cfg.Sanitize).ReplayRecords(replay.Transcript()),
			}, dir, formats)
			return reportPaths(a, paths, err)
		},
	}
}

func newExportRecordsCmd(a *app, target func() (string, []string)) *cobra.Command {
	var sessionID string
	var page, size int
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Export one page of a session's records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if size == 0 {
				size = a.cfg.Pagination.RecordPageSize
			}
			records := console.NewRecordStore(a.api, a.opts())
			if err := records.Fetch(cmd.Context(), sessionID, page, size); err != nil {
				return err
			}
			dir, formats := target()
			paths, err := export.WriteRecords(&export.RecordPage{
				SessionID:  sessionID,
				Pagination: records.Pagination(),
				Records:    filter.NewSanitizer(a.cfg.Sanitize).Records(records.Records()),
			}, dir, formats)
			return reportPaths(a, paths, err)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 0, "page size (default from config)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func reportPaths(a *app, paths []string, err error) error {
	for _, p := range paths {
		a.out.printf("wrote %s\n", p)
	}
	return err
}
