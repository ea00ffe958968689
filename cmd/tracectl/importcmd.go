package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yourorg/tracectl/internal/har"
	"github.com/yourorg/tracectl/internal/store"
	"github.com/yourorg/tracectl/pkg/types"
)

func newImportCmd(a *app) *cobra.Command {
	var harPath, sessionID string
	var startTurn int
	var force, dryRun bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Submit the chat completions captured in a HAR file as traces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			capture, err := har.Load(harPath)
			if err != nil {
				return fmt.Errorf("load %s: %w", harPath, err)
			}
			db, err := a.store()
			if err != nil {
				return err
			}
			prev, err := db.FindImport(capture.Digest)
			switch {
			case err == nil && !force:
				return fmt.Errorf("%s was already imported into session %s on %s, use --force to import again",
					harPath, prev.SessionID, formatTime(prev.CreatedAt))
			case err != nil && !errors.Is(err, store.ErrNotFound):
				return err
			}

			traces, err := har.Traces(sessionID, startTurn, capture.Exchanges)
			if err != nil {
				return err
			}
			a.out.printf("%d chat exchanges found, %d entries skipped\n", len(traces), capture.Skipped)
			if dryRun {
				rows := make([][]string, 0, len(traces))
				for _, t := range traces {
					rows = append(rows, []string{strconv.Itoa(t.TurnNumber), a.out.status(t.Status), truncate(t.ErrorMessage, 48)})
				}
				a.out.table([]string{"TURN", "STATUS", "ERROR"}, rows)
				return nil
			}

			n, importErr := har.Import(cmd.Context(), a.api, traces, a.logger)
			if n > 0 {
				if err := db.SaveImport(&types.Import{
					Source:    harPath,
					Digest:    capture.Digest,
					SessionID: sessionID,
					Entries:   n,
				}); err != nil {
					a.out.warnf("import history not saved: %v", err)
				}
			}
			if importErr != nil {
				return fmt.Errorf("%d of %d traces submitted: %w", n, len(traces), importErr)
			}
			a.out.printf("%d traces submitted to session %s\n", n, sessionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&harPath, "har", "", "HAR file path")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id the traces are recorded under")
	cmd.Flags().IntVar(&startTurn, "start-turn", 1, "turn number of the first exchange")
	cmd.Flags().BoolVar(&force, "force", false, "import even if this file was imported before")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list what would be submitted without sending")
	_ = cmd.MarkFlagRequired("har")
	_ = cmd.MarkFlagRequired("session")
	cmd.AddCommand(newImportHistoryCmd(a))
	return cmd
}

func newImportHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List previously imported HAR files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.store()
			if err != nil {
				return err
			}
			imports, err := db.ListImports()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(imports))
			for _, imp := range imports {
				rows = append(rows, []string{formatTime(imp.CreatedAt), imp.SessionID, strconv.Itoa(imp.Entries), truncate(imp.Digest, 15), imp.Source})
			}
			a.out.header("Imports")
			a.out.table([]string{"IMPORTED", "SESSION", "TRACES", "DIGEST", "SOURCE"}, rows)
			return nil
		},
	}
}
