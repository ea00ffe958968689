package console

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/tracectl/pkg/types"
)

func TestLoadOverview(t *testing.T) {
	now := time.Now()
	f := seededBackend()
	f.sessions = []types.Session{{ID: "A", Name: "alpha"}, {ID: "B", Name: "beta"}}
	f.records["A"][0].CreatedAt = now.Add(-time.Minute)
	f.records["A"][1].CreatedAt = now
	f.records["B"][0].CreatedAt = now.Add(-time.Hour)
	f.replaySessions = []types.ReplaySession{{ID: "rs-1"}, {ID: "rs-2"}, {ID: "rs-3"}}
	f.providers = []types.ProviderInfo{{Name: "openai", Enabled: true}}
	f.healthErr = errors.New("unreachable")
	rec := &recorder{}

	ov, err := LoadOverview(context.Background(), f, OverviewOptions{RecentRecords: 2}, Options{Notifier: rec})
	require.NoError(t, err)

	assert.Equal(t, 2, ov.TotalSessions)
	assert.Equal(t, 3, ov.DebugSessions)
	assert.Len(t, ov.Providers, 1)
	assert.False(t, ov.Healthy)
	require.Contains(t, ov.Errors, "health")
	assert.Equal(t, 1, rec.count(KindError, "overview.health"))

	assert.Equal(t, 3, ov.TotalRecords)
	assert.Equal(t, map[string]int{types.StatusSuccess: 1, types.StatusError: 1, types.StatusPending: 1}, ov.StatusCounts)
	require.Len(t, ov.RecentRecords, 2)
	assert.Equal(t, "a2", ov.RecentRecords[0].ID)
	assert.Equal(t, "a1", ov.RecentRecords[1].ID)
}

type downBackend struct{ *fakeBackend }

var errDown = errors.New("connection refused")

func (downBackend) ListSessions(context.Context, int, int) (*types.Page[types.Session], error) {
	return nil, errDown
}

func (downBackend) ListReplaySessions(context.Context, int, int) (*types.Page[types.ReplaySession], error) {
	return nil, errDown
}

func TestLoadOverviewFailsWhenEverythingFails(t *testing.T) {
	f := newFakeBackend()
	f.healthErr = errDown
	f.providersErr = errDown

	_, err := LoadOverview(context.Background(), downBackend{f}, OverviewOptions{}, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errDown)
}
