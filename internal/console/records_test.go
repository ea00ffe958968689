package console

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/tracectl/internal/client"
	"github.com/yourorg/tracectl/internal/compose"
	"github.com/yourorg/tracectl/internal/filter"
	"github.com/yourorg/tracectl/pkg/types"
)

func seededBackend() *fakeBackend {
	f := newFakeBackend()
	f.records["A"] = []types.Record{
		{ID: "a1", SessionID: "A", TurnNumber: 1, Status: types.StatusSuccess, Request: `{"model":"gpt-3.5-turbo","messages":[{"role":"user","content":"hi"}],"temperature":0.2}`},
		{ID: "a2", SessionID: "A", TurnNumber: 2, Status: types.StatusError, Request: `{"messages":[]}`},
	}
	f.records["B"] = []types.Record{
		{ID: "b1", SessionID: "B", TurnNumber: 1, Status: types.StatusPending, Request: `{"messages":[]}`},
	}
	return f
}

func TestRecordFetchReplacesWholesale(t *testing.T) {
	f := seededBackend()
	s := NewRecordStore(f, Options{})
	ctx := context.Background()

	require.NoError(t, s.Fetch(ctx, "A", 1, 50))
	require.Len(t, s.Records(), 2)

	require.NoError(t, s.Fetch(ctx, "B", 1, 50))
	recs := s.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "b1", recs[0].ID)
	assert.Equal(t, "B", s.SessionID())
	assert.Equal(t, types.Pagination{Current: 1, PageSize: 50, Total: 1}, s.Pagination())
}

func TestRecordFetchDiscardsStaleResponse(t *testing.T) {
	f := seededBackend()
	entered := make(chan struct{})
	release := make(chan struct{})
	f.listRecordsHook = func(sessionID string) {
		if sessionID == "A" {
			close(entered)
			<-release
		}
	}
	s := NewRecordStore(f, Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Fetch(ctx, "A", 1, 50))
	}()
	<-entered

	require.NoError(t, s.Fetch(ctx, "B", 1, 50))
	close(release)
	wg.Wait()

	recs := s.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "b1", recs[0].ID, "the older response for A must not overwrite B")
	assert.Equal(t, "B", s.SessionID())
}

func TestRecordDeleteFailureLeavesListUnchanged(t *testing.T) {
	f := seededBackend()
	f.deleteRecordErr = &client.APIError{StatusCode: 500, Message: "database is locked"}
	rec := &recorder{}
	s := NewRecordStore(f, Options{Notifier: rec})
	ctx := context.Background()

	require.NoError(t, s.Fetch(ctx, "A", 1, 50))
	before := s.Records()
	calls := f.listRecordCalls

	err := s.Delete(ctx, "a1")
	require.Error(t, err)
	assert.Equal(t, before, s.Records())
	assert.Equal(t, calls, f.listRecordCalls, "no refetch after a failed delete")
	assert.Equal(t, 1, rec.count(KindError, "records.delete"))
	assert.Equal(t, "database is locked", rec.items[0].Message)
}

func TestRecordDeleteRefetches(t *testing.T) {
	f := seededBackend()
	s := NewRecordStore(f, Options{})
	ctx := context.Background()

	require.NoError(t, s.Fetch(ctx, "A", 1, 50))
	require.NoError(t, s.Delete(ctx, "a1"))

	recs := s.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "a2", recs[0].ID)
}

func TestRecordReplayComposesAndRefetches(t *testing.T) {
	f := seededBackend()
	s := NewRecordStore(f, Options{})
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx, "A", 1, 50))

	orig, ok := s.Find("a1")
	require.True(t, ok)
	cfg := testConfig()
	cfg.Model = "gpt-4"
	cfg.Temperature = 0.9

	out, err := s.Replay(ctx, orig, ReplayOptions{Config: cfg})
	require.NoError(t, err)
	require.NotNil(t, out)

	require.Len(t, f.replayCalls, 1)
	call := f.replayCalls[0]
	assert.Equal(t, "A", call.SessionID)
	assert.Equal(t, 1, call.TurnNumber)
	assert.Equal(t, "openai", call.Provider)
	assert.JSONEq(t, `{"model":"gpt-4","messages":[{"role":"user","content":"hi"}],"temperature":0.9,"max_tokens":512,"top_p":1,"frequency_penalty":0,"presence_penalty":0}`, string(call.Request))

	assert.Len(t, s.Records(), 3, "replayed record shows up after the refetch")
}

func TestRecordReplayInvalidJSONSendsNothing(t *testing.T) {
	f := seededBackend()
	rec := &recorder{}
	s := NewRecordStore(f, Options{Notifier: rec})
	orig := f.records["A"][0]

	_, err := s.Replay(context.Background(), orig, ReplayOptions{Request: `{"model":`, Config: testConfig()})
	var perr *compose.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Empty(t, f.replayCalls)
	assert.Equal(t, 1, rec.count(KindError, "records.replay"))
}

func TestRecordReplayInvalidConfigSendsNothing(t *testing.T) {
	f := seededBackend()
	s := NewRecordStore(f, Options{})
	cfg := testConfig()
	cfg.Temperature = 2.5
	cfg.Provider = ""

	_, err := s.Replay(context.Background(), f.records["A"][0], ReplayOptions{Config: cfg})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	var all ValidationErrors
	require.True(t, errors.As(err, &all))
	fields := []string{}
	for _, e := range all {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"provider", "temperature"}, fields)
	assert.Empty(t, f.replayCalls)
}

func TestRecordViewIsPure(t *testing.T) {
	f := seededBackend()
	s := NewRecordStore(f, Options{})
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx, "A", 1, 50))
	calls := f.listRecordCalls

	view := s.View(filter.Criteria{Status: types.StatusError})
	require.Len(t, view, 1)
	assert.Equal(t, "a2", view[0].ID)
	assert.Len(t, s.Records(), 2)
	assert.Equal(t, calls, f.listRecordCalls)
}

func TestRecordRefetchBeforeFetch(t *testing.T) {
	s := NewRecordStore(newFakeBackend(), Options{})
	assert.ErrorIs(t, s.Refetch(context.Background()), ErrNoSession)
}
