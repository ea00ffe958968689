package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourorg/tracectl/internal/console"
	"github.com/yourorg/tracectl/internal/filter"
)

func newReplayCmd(a *app) *cobra.Command {
	var sessionID, requestFile string
	var save bool
	var flags samplingFlags
	cmd := &cobra.Command{
		Use:   "replay <record-id>",
		Short: "Re-submit a record with edited overrides",
		Long: "Re-submit a record to the backend. The request is the stored one unless\n" +
			"--request-file is given (use - for stdin). Sampling parameters start from the\n" +
			"last-used replay configuration and are overridden by flags.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records := console.NewRecordStore(a.api, a.opts())
			rec, err := findRecord(cmd.Context(), records, sessionID, args[0])
			if err != nil {
				return err
			}

			var text string
			if requestFile != "" {
				data, err := readInput(a, requestFile)
				if err != nil {
					return err
				}
				text = string(data)
			}
			cfg, err := loadPref(a, cmd, &flags, console.ReplayConfigKey, save)
			if err != nil {
				return err
			}

			out, err := records.Replay(cmd.Context(), rec, console.ReplayOptions{Request: text, Config: cfg})
			if err != nil {
				return err
			}
			printRecord(a.out, filter.NewSanitizer(a.cfg.Sanitize).Record(*out))
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id the record belongs to")
	cmd.Flags().StringVar(&requestFile, "request-file", "", "file holding the edited request JSON, - for stdin")
	cmd.Flags().BoolVar(&save, "save", false, "remember the effective configuration as last used")
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func readInput(a *app, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(a.stdin)
	}
	return os.ReadFile(path)
}
