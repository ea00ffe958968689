package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/tracectl/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestPreferenceVersioning(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, err := s.GetPreference("llmtrace-replay-config"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	first, err := s.PutPreference("llmtrace-replay-config", types.ReplayConfig{Provider: "openai", Temperature: 0.7})
	if err != nil {
		t.Fatal(err)
	}
	if first.Version != 1 || first.Schema != SchemaVersion {
		t.Fatalf("unexpected first write: %+v", first)
	}

	second, err := s.PutPreference("llmtrace-replay-config", types.ReplayConfig{Provider: "anthropic", Temperature: 1.2})
	if err != nil {
		t.Fatal(err)
	}
	if second.Version != 2 {
		t.Fatalf("expected version 2, got %d", second.Version)
	}

	got, err := s.GetPreference("llmtrace-replay-config")
	if err != nil {
		t.Fatal(err)
	}
	var cfg types.ReplayConfig
	if err := json.Unmarshal(got.Value, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Provider != "anthropic" || cfg.Temperature != 1.2 || got.Version != 2 {
		t.Fatalf("unexpected stored preference: %+v %+v", got, cfg)
	}
}

func TestPreferenceSchemaTooNew(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, err := s.db.Exec(`INSERT INTO preferences(key,value,version,schema,updated_at) VALUES(?,?,?,?,?)`,
		"future", `{}`, 1, SchemaVersion+1, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetPreference("future"); !errors.Is(err, ErrSchemaTooNew) {
		t.Fatalf("expected ErrSchemaTooNew, got %v", err)
	}
}

func TestPreferenceDeleteAndList(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	for _, k := range []string{"b", "a"} {
		if _, err := s.PutPreference(k, map[string]int{"n": 1}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := s.ListPreferences()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Key != "a" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if err := s.DeletePreference("a"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeletePreference("a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := s.PutPreference("", 1); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}

func TestImportHistory(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, err := s.FindImport("abc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	imp := &types.Import{Source: "capture.har", Digest: "abc", SessionID: "sess-1", Entries: 3}
	if err := s.SaveImport(imp); err != nil {
		t.Fatal(err)
	}
	if imp.ID == 0 || imp.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be set: %+v", imp)
	}
	got, err := s.FindImport("abc")
	if err != nil {
		t.Fatal(err)
	}
	if got.SessionID != "sess-1" || got.Entries != 3 {
		t.Fatalf("unexpected import: %+v", got)
	}
	if err := s.SaveImport(&types.Import{Source: "x.har"}); !errors.Is(err, ErrInvalidDigest) {
		t.Fatalf("expected ErrInvalidDigest, got %v", err)
	}
}

func TestConcurrentReadWrite(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.PutPreference("shared", map[string]int{"i": i}); err != nil {
				errs <- err
			}
		}(i)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.SaveImport(&types.Import{Source: "f.har", Digest: fmt.Sprintf("d%d", i), SessionID: "s"}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	got, err := s.GetPreference("shared")
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 10 {
		t.Fatalf("expected version 10 after 10 writes, got %d", got.Version)
	}
	imports, err := s.ListImports()
	if err != nil {
		t.Fatal(err)
	}
	if len(imports) != 10 {
		t.Fatalf("expected 10 imports, got %d", len(imports))
	}
}
