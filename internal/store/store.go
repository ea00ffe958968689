package store

import (
	"errors"

	"github.com/yourorg/tracectl/pkg/types"
)

// SchemaVersion is the layout of preference values written by this build.
const SchemaVersion = 1

var (
	ErrNotFound      = errors.New("store: not found")
	ErrSchemaTooNew  = errors.New("store: preference written by a newer schema")
	ErrEmptyKey      = errors.New("store: key is required")
	ErrInvalidDigest = errors.New("store: import digest is required")
)

// Store persists client-side state: versioned preferences and the history
// of HAR files pushed to the trace endpoint.
type Store interface {
	GetPreference(key string) (*types.Preference, error)
	PutPreference(key string, value any) (*types.Preference, error)
	DeletePreference(key string) error
	ListPreferences() ([]types.Preference, error)

	SaveImport(imp *types.Import) error
	FindImport(digest string) (*types.Import, error)
	ListImports() ([]types.Import, error)

	Close() error
}
