package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yourorg/tracectl/internal/compose"
	"github.com/yourorg/tracectl/internal/console"
	"github.com/yourorg/tracectl/internal/filter"
	"github.com/yourorg/tracectl/pkg/types"
)

func newRecordsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Browse and manage the records of a session",
	}
	cmd.AddCommand(newRecordsListCmd(a))
	cmd.AddCommand(newRecordsShowCmd(a))
	cmd.AddCommand(newRecordsDeleteCmd(a))
	return cmd
}

func newRecordsListCmd(a *app) *cobra.Command {
	var sessionID, status, search string
	var page, size int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of a session's records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if size == 0 {
				size = a.cfg.Pagination.RecordPageSize
			}
			records := console.NewRecordStore(a.api, a.opts())
			if err := records.Fetch(cmd.Context(), sessionID, page, size); err != nil {
				return err
			}
			view := records.View(filter.Criteria{Search: search, Status: status})

			rows := make([][]string, 0, len(view))
			for _, r := range view {
				rows = append(rows, []string{
					strconv.Itoa(r.TurnNumber),
					a.out.status(r.Status),
					r.ID,
					truncate(compose.UserText(r.Request), 48),
					formatTime(r.CreatedAt),
				})
			}
			a.out.header("Records of " + sessionID)
			a.out.table([]string{"TURN", "STATUS", "ID", "PROMPT", "CREATED"}, rows)
			a.out.pagination(records.Pagination())
			if n := len(records.Records()) - len(view); n > 0 {
				a.out.printf("  %d hidden by filter\n", n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	cmd.Flags().StringVar(&status, "status", filter.StatusAll, "status filter: all, success, error or pending")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive search over id, request and response")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 0, "page size (default from config)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newRecordsShowCmd(a *app) *cobra.Command {
	var sessionID string
	var raw bool
	cmd := &cobra.Command{
		Use:   "show <record-id>",
		Short: "Show one record with sanitized request and response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records := console.NewRecordStore(a.api, a.opts())
			rec, err := findRecord(cmd.Context(), records, sessionID, args[0])
			if err != nil {
				return err
			}
			if !raw {
				rec = filter.NewSanitizer(a.cfg.Sanitize).Record(rec)
			}
			printRecord(a.out, rec)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	cmd.Flags().BoolVar(&raw, "raw", false, "do not redact sensitive fields")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newRecordsDeleteCmd(a *app) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Delete a record and refetch its page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records := console.NewRecordStore(a.api, a.opts())
			if err := records.Fetch(cmd.Context(), sessionID, 1, a.cfg.Pagination.RecordPageSize); err != nil {
				return err
			}
			if err := records.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.out.printf("record %s deleted, %d remaining in %s\n", args[0], records.Pagination().Total, sessionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id the record belongs to")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

// findRecord pages through sessionID until id is found. The store is left
// on the page holding the record.
func findRecord(ctx context.Context, records *console.RecordStore, sessionID, id string) (types.Record, error) {
	const pageSize = 100
	for page := 1; ; page++ {
		if err := records.Fetch(ctx, sessionID, page, pageSize); err != nil {
			return types.Record{}, err
		}
		if rec, ok := records.Find(id); ok {
			return rec, nil
		}
		p := records.Pagination()
		if len(records.Records()) == 0 || page*pageSize >= p.Total {
			return types.Record{}, fmt.Errorf("record %s not found in session %s", id, sessionID)
		}
	}
}

func printRecord(out *output, rec types.Record) {
	out.header("Record " + rec.ID)
	out.field("Session", rec.SessionID)
	out.field("Turn", strconv.Itoa(rec.TurnNumber))
	out.field("Status", out.status(rec.Status))
	out.field("Created", formatTime(rec.CreatedAt))
	out.field("Prompt tokens", fmt.Sprintf("~%d", compose.EstimateRequestTokens(rec.Request)))
	if rec.ErrorMsg != "" {
		out.field("Error", rec.ErrorMsg)
	}
	out.block("Request", compose.Pretty(rec.Request))
	out.block("Response", compose.Pretty(rec.Response))
	out.block("Metadata", compose.Pretty(rec.Metadata))
}
