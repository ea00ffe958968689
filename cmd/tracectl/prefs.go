package main

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yourorg/tracectl/internal/console"
	"github.com/yourorg/tracectl/internal/store"
	"github.com/yourorg/tracectl/pkg/types"
)

// samplingFlags are the provider and sampling overrides shared by replay,
// debug and prefs commands. Only flags set on the command line override.
type samplingFlags struct {
	v types.ReplayConfig
}

func (f *samplingFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.v.Provider, "provider", "", "provider name")
	fs.StringVar(&f.v.Model, "model", "", "model name")
	fs.Float64Var(&f.v.Temperature, "temperature", 0, "sampling temperature [0,2]")
	fs.IntVar(&f.v.MaxTokens, "max-tokens", 0, "max tokens [1,8192]")
	fs.Float64Var(&f.v.TopP, "top-p", 0, "nucleus sampling [0,1]")
	fs.Float64Var(&f.v.FrequencyPenalty, "frequency-penalty", 0, "frequency penalty [-2,2]")
	fs.Float64Var(&f.v.PresencePenalty, "presence-penalty", 0, "presence penalty [-2,2]")
}

func (f *samplingFlags) apply(cmd *cobra.Command, base types.ReplayConfig) types.ReplayConfig {
	fs := cmd.Flags()
	if fs.Changed("provider") {
		base.Provider = f.v.Provider
	}
	if fs.Changed("model") {
		base.Model = f.v.Model
	}
	if fs.Changed("temperature") {
		base.Temperature = f.v.Temperature
	}
	if fs.Changed("max-tokens") {
		base.MaxTokens = f.v.MaxTokens
	}
	if fs.Changed("top-p") {
		base.TopP = f.v.TopP
	}
	if fs.Changed("frequency-penalty") {
		base.FrequencyPenalty = f.v.FrequencyPenalty
	}
	if fs.Changed("presence-penalty") {
		base.PresencePenalty = f.v.PresencePenalty
	}
	return base
}

// prefKey maps the short names replay and debug to their preference keys.
func prefKey(name string) string {
	switch name {
	case "replay":
		return console.ReplayConfigKey
	case "debug":
		return console.DebugConfigKey
	}
	return name
}

func newPrefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show and save the last-used replay and debug configurations",
	}
	cmd.AddCommand(newPrefsShowCmd(a))
	cmd.AddCommand(newPrefsSaveCmd(a))
	cmd.AddCommand(newPrefsListCmd(a))
	cmd.AddCommand(newPrefsResetCmd(a))
	return cmd
}

func newPrefsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "show <replay|debug>",
		Short:     "Show the effective configuration",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"replay", "debug"},
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := a.preferences()
			if err != nil {
				return err
			}
			key := prefKey(args[0])
			cfg, err := prefs.Load(key)
			if err != nil {
				return err
			}
			a.out.header(key)
			printConfig(a.out, cfg)
			return nil
		},
	}
}

func newPrefsSaveCmd(a *app) *cobra.Command {
	var flags samplingFlags
	cmd := &cobra.Command{
		Use:   "save <replay|debug>",
		Short: "Save a configuration, starting from the current one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := a.preferences()
			if err != nil {
				return err
			}
			key := prefKey(args[0])
			cfg, err := prefs.Load(key)
			if err != nil {
				return err
			}
			_, err = prefs.Save(key, flags.apply(cmd, cfg))
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newPrefsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.store()
			if err != nil {
				return err
			}
			prefs, err := db.ListPreferences()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(prefs))
			for _, p := range prefs {
				rows = append(rows, []string{p.Key, strconv.Itoa(p.Version), strconv.Itoa(p.Schema), formatTime(p.UpdatedAt)})
			}
			a.out.header("Preferences")
			a.out.table([]string{"KEY", "VERSION", "SCHEMA", "UPDATED"}, rows)
			return nil
		},
	}
}

func newPrefsResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <replay|debug>",
		Short: "Forget a saved configuration so the config defaults apply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.store()
			if err != nil {
				return err
			}
			key := prefKey(args[0])
			if err := db.DeletePreference(key); errors.Is(err, store.ErrNotFound) {
				a.out.printf("%s was not saved\n", key)
				return nil
			} else if err != nil {
				return err
			}
			a.out.printf("%s reset to defaults\n", key)
			return nil
		},
	}
}

func printConfig(out *output, cfg types.ReplayConfig) {
	out.field("Provider", cfg.Provider)
	out.field("Model", orDefault(cfg.Model, "(provider default)"))
	out.field("Temperature", strconv.FormatFloat(cfg.Temperature, 'g', -1, 64))
	out.field("Max tokens", strconv.Itoa(cfg.MaxTokens))
	out.field("Top p", strconv.FormatFloat(cfg.TopP, 'g', -1, 64))
	out.field("Frequency penalty", strconv.FormatFloat(cfg.FrequencyPenalty, 'g', -1, 64))
	out.field("Presence penalty", strconv.FormatFloat(cfg.PresencePenalty, 'g', -1, 64))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// loadPref returns the saved configuration under key with flag overrides
// applied. With save set, the result is stored back as the last-used one.
func loadPref(a *app, cmd *cobra.Command, flags *samplingFlags, key string, save bool) (types.ReplayConfig, error) {
	prefs, err := a.preferences()
	if err != nil {
		return types.ReplayConfig{}, err
	}
	// A load failure is already reported and leaves the defaults in place.
	cfg, _ := prefs.Load(key)
	cfg = flags.apply(cmd, cfg)
	if save {
		if _, err := prefs.Save(key, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}
