package console

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yourorg/tracectl/internal/store"
	"github.com/yourorg/tracectl/pkg/types"
)

// Preference keys for the last-used configurations.
const (
	ReplayConfigKey = "llmtrace-replay-config"
	DebugConfigKey  = "llmtrace-debug-config"
)

// PreferenceStore is the persistence Preferences needs.
type PreferenceStore interface {
	GetPreference(key string) (*types.Preference, error)
	PutPreference(key string, value any) (*types.Preference, error)
}

// Preferences reads and writes the saved replay and debug configurations.
// Nothing is written implicitly.
type Preferences struct {
	store    PreferenceStore
	defaults types.ReplayConfig
	opts     Options
}

func NewPreferences(s PreferenceStore, defaults types.ReplayConfig, opts Options) *Preferences {
	return &Preferences{store: s, defaults: defaults, opts: opts}
}

// Load returns the configuration saved under key. Fields missing from the
// saved value, or a missing or unreadable value, fall back to the defaults.
// The defaults are returned together with any read error.
func (p *Preferences) Load(key string) (types.ReplayConfig, error) {
	if err := checkKey(key); err != nil {
		return p.defaults, err
	}
	pref, err := p.store.GetPreference(key)
	if errors.Is(err, store.ErrNotFound) {
		return p.defaults, nil
	}
	if err != nil {
		return p.defaults, p.opts.fail("prefs.load", fmt.Errorf("console: load %s: %w", key, err))
	}
	cfg := p.defaults
	if err := json.Unmarshal(pref.Value, &cfg); err != nil {
		return p.defaults, p.opts.fail("prefs.load", fmt.Errorf("console: decode %s: %w", key, err))
	}
	return cfg, nil
}

// Save validates cfg and stores it under key.
func (p *Preferences) Save(key string, cfg types.ReplayConfig) (*types.Preference, error) {
	if err := checkKey(key); err != nil {
		return nil, p.opts.fail("prefs.save", err)
	}
	if err := ValidateReplayConfig(cfg); err != nil {
		return nil, p.opts.fail("prefs.save", err)
	}
	pref, err := p.store.PutPreference(key, cfg)
	if err != nil {
		return nil, p.opts.fail("prefs.save", fmt.Errorf("console: save %s: %w", key, err))
	}
	p.opts.succeed("prefs.save", fmt.Sprintf("%s saved (version %d)", key, pref.Version))
	return pref, nil
}

func checkKey(key string) error {
	switch key {
	case ReplayConfigKey, DebugConfigKey:
		return nil
	}
	return &ValidationError{Field: "key", Message: fmt.Sprintf("unknown preference %q", key)}
}
