package main

import (
	"bufio"
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourorg/tracectl/internal/compose"
	"github.com/yourorg/tracectl/internal/console"
	"github.com/yourorg/tracectl/internal/filter"
	"github.com/yourorg/tracectl/pkg/types"
)

func newDebugCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Branch a session into a multi-turn debug conversation",
	}
	cmd.AddCommand(newDebugStartCmd(a))
	cmd.AddCommand(newDebugListCmd(a))
	cmd.AddCommand(newDebugShowCmd(a))
	cmd.AddCommand(newDebugDeleteCmd(a))
	cmd.AddCommand(newDebugSendCmd(a))
	cmd.AddCommand(newDebugChatCmd(a))
	return cmd
}

func newDebugStartCmd(a *app) *cobra.Command {
	var sessionID, name string
	var turn int
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Create a debug session branching from a turn",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("name") {
				name = console.DefaultDebugName(sessionID, turn)
			}
			replay := console.NewReplayStore(a.api, a.opts())
			sess, err := replay.Create(cmd.Context(), types.CreateReplaySessionRequest{
				OriginalSessionID: sessionID,
				StartTurnNumber:   turn,
				Name:              name,
			})
			if err != nil {
				return err
			}
			printDebugSession(a.out, *sess)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session to branch from")
	cmd.Flags().IntVar(&turn, "turn", 1, "turn to branch at")
	cmd.Flags().StringVar(&name, "name", "", "debug session name (default debug-<session>-turn<N>)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newDebugListCmd(a *app) *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List debug sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if size == 0 {
				size = a.cfg.Pagination.SessionPageSize
			}
			replay := console.NewReplayStore(a.api, a.opts())
			if err := replay.ListPage(cmd.Context(), page, size); err != nil {
				return err
			}
			rows := [][]string{}
			for _, s := range replay.Sessions() {
				rows = append(rows, []string{
					s.ID,
					truncate(s.Name, 36),
					s.OriginalSessionID,
					strconv.Itoa(s.StartTurnNumber),
					a.out.status(s.Status),
					formatTime(s.UpdatedAt),
				})
			}
			a.out.header("Debug sessions")
			a.out.table([]string{"ID", "NAME", "FROM", "TURN", "STATUS", "UPDATED"}, rows)
			a.out.pagination(replay.Pagination())
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 0, "page size (default from config)")
	return cmd
}

func newDebugShowCmd(a *app) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show <debug-session-id>",
		Short: "Show a debug session and its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			replay := console.NewReplayStore(a.api, a.opts())
			sess, err := replay.Select(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			turns := replay.Transcript()
			if !raw {
				turns = filter.NewSanitizer(a.cfg.Sanitize).ReplayRecords(turns)
			}
			printDebugSession(a.out, *sess)
			a.out.field("Next turn", strconv.Itoa(replay.Sequencer().Next()))
			for _, t := range turns {
				printTurn(a.out, t)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "do not redact sensitive fields")
	return cmd
}

func newDebugDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <debug-session-id>",
		Short: "Delete a debug session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			replay := console.NewReplayStore(a.api, a.opts())
			if err := replay.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.out.printf("debug session %s deleted\n", args[0])
			return nil
		},
	}
}

func newDebugSendCmd(a *app) *cobra.Command {
	var save bool
	var flags samplingFlags
	cmd := &cobra.Command{
		Use:   "send <debug-session-id> <message>",
		Short: "Send one message as the next turn",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			replay, err := openDebugSession(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			cfg, err := loadPref(a, cmd, &flags, console.DebugConfigKey, save)
			if err != nil {
				return err
			}
			rec, err := replay.Submit(cmd.Context(), strings.Join(args[1:], " "), cfg)
			if err != nil {
				return err
			}
			printTurn(a.out, *rec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "remember the effective configuration as last used")
	flags.register(cmd)
	return cmd
}

func newDebugChatCmd(a *app) *cobra.Command {
	var save bool
	var flags samplingFlags
	cmd := &cobra.Command{
		Use:   "chat <debug-session-id>",
		Short: "Converse with a debug session line by line",
		Long: "Read messages from stdin, one per line, and send each as the next turn.\n" +
			"A failed turn can be retried by sending again. Type /history to print the\n" +
			"transcript and /quit to leave.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			replay, err := openDebugSession(ctx, a, args[0])
			if err != nil {
				return err
			}
			cfg, err := loadPref(a, cmd, &flags, console.DebugConfigKey, save)
			if err != nil {
				return err
			}
			return chat(ctx, a, replay, cfg)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "remember the effective configuration as last used")
	flags.register(cmd)
	return cmd
}

// chat runs the line loop. Turn failures are reported and the loop goes on;
// only a read error or a cancelled context ends it early.
func chat(ctx context.Context, a *app, replay *console.ReplayStore, cfg types.ReplayConfig) error {
	interactive := isTerminal(a.stdin)
	sess, _ := replay.Current()
	if interactive {
		a.out.printf("%s via %s, next turn %d. /quit to leave.\n", a.out.accent(sess.Name), cfg.Provider, replay.Sequencer().Next())
	}

	scanner := bufio.NewScanner(a.stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		if interactive {
			a.out.printf("%s ", a.out.role("turn "+strconv.Itoa(replay.Sequencer().Next())+" >"))
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			for _, t := range replay.Transcript() {
				printTurn(a.out, t)
			}
			continue
		}

		rec, err := replay.Submit(ctx, line, cfg)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			continue
		}
		if rec.Status == types.StatusSuccess {
			a.out.printf("%s %s\n", a.out.role("assistant:"), compose.ReplyText(rec.Response))
		} else {
			a.out.printf("%s %s\n", a.out.status(rec.Status), rec.ErrorMsg)
		}
	}
}

// openDebugSession selects id and loads the context inherited from the
// original session.
func openDebugSession(ctx context.Context, a *app, id string) (*console.ReplayStore, error) {
	replay := console.NewReplayStore(a.api, a.opts())
	if _, err := replay.Select(ctx, id); err != nil {
		return nil, err
	}
	if err := replay.LoadSeed(ctx, a.api); err != nil {
		return nil, err
	}
	return replay, nil
}

func printDebugSession(out *output, s types.ReplaySession) {
	out.header("Debug session " + s.ID)
	out.field("Name", s.Name)
	out.field("Branched from", s.OriginalSessionID+" at turn "+strconv.Itoa(s.StartTurnNumber))
	out.field("Status", out.status(s.Status))
	out.field("Created", formatTime(s.CreatedAt))
}

func printTurn(out *output, t types.ReplayRecord) {
	out.printf("\n  %s %s %s\n", out.accent("turn "+strconv.Itoa(t.TurnNumber)), out.status(t.Status), out.st.dim.Render(t.Provider+" "+t.Model))
	if u := compose.UserText(t.Request); u != "" {
		out.printf("    %s %s\n", out.role("user:"), u)
	}
	if t.Status == types.StatusSuccess {
		out.printf("    %s %s\n", out.role("assistant:"), compose.ReplyText(t.Response))
	} else if t.ErrorMsg != "" {
		out.printf("    %s %s\n", out.role("error:"), t.ErrorMsg)
	}
}
