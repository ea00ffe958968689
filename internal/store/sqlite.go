package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yourorg/tracectl/pkg/types"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers; the CLI never needs more.
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	if _, err := s.db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		return err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			schema INTEGER NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS imports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			digest TEXT NOT NULL,
			session_id TEXT NOT NULL,
			entries INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_imports_digest ON imports(digest);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) GetPreference(key string) (*types.Preference, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrEmptyKey
	}
	row := s.db.QueryRow(`SELECT key,value,version,schema,updated_at FROM preferences WHERE key=?`, key)
	p, err := scanPreference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Schema > SchemaVersion {
		return nil, fmt.Errorf("%w: key %s has schema %d", ErrSchemaTooNew, key, p.Schema)
	}
	return p, nil
}

// PutPreference stores value as JSON under key and bumps its version.
func (s *SQLiteStore) PutPreference(key string, value any) (*types.Preference, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrEmptyKey
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("store: encode preference %s: %w", key, err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	_, err = tx.Exec(`INSERT INTO preferences(key,value,version,schema,updated_at) VALUES(?,?,1,?,?)
	ON CONFLICT(key) DO UPDATE SET value=excluded.value,version=preferences.version+1,schema=excluded.schema,updated_at=excluded.updated_at`,
		key, string(encoded), SchemaVersion, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	p, err := scanPreference(tx.QueryRow(`SELECT key,value,version,schema,updated_at FROM preferences WHERE key=?`, key))
	if err != nil {
		return nil, err
	}
	return p, tx.Commit()
}

func (s *SQLiteStore) DeletePreference(key string) error {
	res, err := s.db.Exec(`DELETE FROM preferences WHERE key=?`, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListPreferences() ([]types.Preference, error) {
	rows, err := s.db.Query(`SELECT key,value,version,schema,updated_at FROM preferences ORDER BY key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.Preference
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPreference(row scanner) (*types.Preference, error) {
	var p types.Preference
	var value string
	if err := row.Scan(&p.Key, &value, &p.Version, &p.Schema, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Value = json.RawMessage(value)
	return &p, nil
}

func (s *SQLiteStore) SaveImport(imp *types.Import) error {
	if strings.TrimSpace(imp.Digest) == "" {
		return ErrInvalidDigest
	}
	if imp.CreatedAt.IsZero() {
		imp.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(`INSERT INTO imports(source,digest,session_id,entries,created_at) VALUES(?,?,?,?,?)`,
		imp.Source, imp.Digest, imp.SessionID, imp.Entries, imp.CreatedAt)
	if err != nil {
		return err
	}
	imp.ID, err = res.LastInsertId()
	return err
}

// FindImport returns the most recent import of the file with digest.
func (s *SQLiteStore) FindImport(digest string) (*types.Import, error) {
	row := s.db.QueryRow(`SELECT id,source,digest,session_id,entries,created_at FROM imports WHERE digest=? ORDER BY id DESC LIMIT 1`, digest)
	var out types.Import
	if err := row.Scan(&out.ID, &out.Source, &out.Digest, &out.SessionID, &out.Entries, &out.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (s *SQLiteStore) ListImports() ([]types.Import, error) {
	rows, err := s.db.Query(`SELECT id,source,digest,session_id,entries,created_at FROM imports ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.Import
	for rows.Next() {
		var imp types.Import
		if err := rows.Scan(&imp.ID, &imp.Source, &imp.Digest, &imp.SessionID, &imp.Entries, &imp.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return errors.New("store is nil")
	}
	return s.db.Close()
}
