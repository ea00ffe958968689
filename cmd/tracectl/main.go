package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yourorg/tracectl/internal/client"
	"github.com/yourorg/tracectl/internal/config"
	"github.com/yourorg/tracectl/internal/console"
	"github.com/yourorg/tracectl/internal/store"
)

const defaultConfigContent = `api:
  base_url: "http://localhost:10081/api"
  timeout: 30s
  replay_timeout: 120s

pagination:
  session_page_size: 20
  record_page_size: 50

replay:
  provider: "openai"
  model: ""
  temperature: 0.7
  max_tokens: 2048
  top_p: 1.0
  frequency_penalty: 0
  presence_penalty: 0

sanitize:
  body_fields:
    - api_key
    - apikey
    - authorization
    - password
    - secret
    - token
    - access_token
  replacement: "***REDACTED***"

output:
  dir: "./export"
  formats:
    - markdown

log:
  level: "warn"
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, out: newOutput(stdout, stderr), stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err == nil {
		return 0
	}
	if !a.out.wasReported(err) {
		a.out.errorf("%s", console.Describe(err))
	}
	return 1
}

// app carries what every command needs once flags are parsed.
type app struct {
	cfgPath string
	debug   bool
	plain   bool

	stdin  io.Reader
	stderr io.Writer
	out    *output

	cfg    *config.Config
	logger *slog.Logger
	api    *client.Client
	db     *store.SQLiteStore
}

const skipSetup = "tracectl/skip-setup"

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "tracectl",
		Short:         "Operator console for traced LLM calls",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.plain {
				a.out.setPlain()
			}
			if cmd.Annotations[skipSetup] != "" {
				return nil
			}
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&a.plain, "plain", false, "disable colored output")

	root.AddCommand(newInitCmd(a))
	root.AddCommand(newSessionsCmd(a))
	root.AddCommand(newRecordsCmd(a))
	root.AddCommand(newReplayCmd(a))
	root.AddCommand(newDebugCmd(a))
	root.AddCommand(newPrefsCmd(a))
	root.AddCommand(newImportCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newOverviewCmd(a))
	root.AddCommand(newProvidersCmd(a))
	root.AddCommand(newHealthCmd(a))

	return root
}

// loadConfig reads and validates the config, including the replay defaults.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := console.ValidateReplayConfig(cfg.Replay); err != nil {
		return nil, fmt.Errorf("replay defaults: %w", err)
	}
	return cfg, nil
}

func (a *app) setup() error {
	cfg, err := loadConfig(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := parseLevel(cfg.Log.Level)
	if a.debug {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	api, err := client.New(client.Config{
		BaseURL:       cfg.API.BaseURL,
		Timeout:       cfg.API.Timeout,
		ReplayTimeout: cfg.API.ReplayTimeout,
		Logger:        a.logger,
	})
	if err != nil {
		return err
	}
	a.api = api
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (a *app) opts() console.Options {
	return console.Options{Logger: a.logger, Notifier: a.out}
}

// store opens the local preference and import database on first use.
func (a *app) store() (*store.SQLiteStore, error) {
	if a.db != nil {
		return a.db, nil
	}
	if err := os.MkdirAll(filepath.Dir(a.cfg.Prefs.Path), 0o755); err != nil {
		return nil, err
	}
	db, err := store.NewSQLiteStore(a.cfg.Prefs.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", a.cfg.Prefs.Path, err)
	}
	a.db = db
	return db, nil
}

func (a *app) preferences() (*console.Preferences, error) {
	db, err := a.store()
	if err != nil {
		return nil, err
	}
	return console.NewPreferences(db, a.cfg.Replay, a.opts()), nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "init",
		Short:       "Create the default config and preference database",
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := a.cfgPath
			if cfgFile == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				cfgFile = p
			}
			if err := os.MkdirAll(filepath.Dir(cfgFile), 0o755); err != nil {
				return err
			}

			if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfgFile, []byte(defaultConfigContent), 0o644); err != nil {
					return err
				}
				a.out.printf("created %s\n", cfgFile)
			} else if err == nil {
				a.out.printf("exists %s\n", cfgFile)
			} else {
				return err
			}

			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			if _, err := a.store(); err != nil {
				return err
			}
			a.out.printf("database ready %s\n", cfg.Prefs.Path)
			a.out.printf("backend is %s, edit api.base_url in %s to change it\n", cfg.API.BaseURL, cfgFile)
			return nil
		},
	}
}
