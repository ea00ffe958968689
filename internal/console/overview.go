package console

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yourorg/tracectl/pkg/types"
)

// OverviewAPI is everything the dashboard reads.
type OverviewAPI interface {
	SessionAPI
	ProviderAPI
	HealthAPI
	ListRecords(ctx context.Context, sessionID string, page, size int) (*types.Page[types.Record], error)
	ListReplaySessions(ctx context.Context, page, size int) (*types.Page[types.ReplaySession], error)
}

type OverviewOptions struct {
	// RecentSessions is how many of the newest sessions are sampled for
	// record statistics. Defaults to 5.
	RecentSessions int
	// RecentRecords caps the recent record list. Defaults to 10.
	RecentRecords int
	// Concurrency caps parallel backend calls. Defaults to 4.
	Concurrency int
}

func (o *OverviewOptions) setDefaults() {
	if o.RecentSessions <= 0 {
		o.RecentSessions = 5
	}
	if o.RecentRecords <= 0 {
		o.RecentRecords = 10
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
}

// Overview is a dashboard snapshot. Each part is fetched independently;
// a failed part is listed in Errors and left empty.
type Overview struct {
	TotalSessions  int
	RecentSessions []types.Session
	DebugSessions  int
	Providers      []types.ProviderInfo
	Healthy        bool

	// Record statistics cover the sampled recent sessions only.
	TotalRecords  int
	StatusCounts  map[string]int
	RecentRecords []types.Record

	Errors map[string]error
}

// LoadOverview fetches the dashboard parts concurrently. It fails only when
// every part failed.
func LoadOverview(ctx context.Context, api OverviewAPI, o OverviewOptions, opts Options) (*Overview, error) {
	o.setDefaults()
	out := &Overview{StatusCounts: map[string]int{}, Errors: map[string]error{}}
	var mu sync.Mutex
	record := func(part string, err error) {
		mu.Lock()
		out.Errors[part] = err
		mu.Unlock()
		opts.fail("overview."+part, err)
	}

	var g errgroup.Group
	g.SetLimit(o.Concurrency)
	g.Go(func() error {
		page, err := api.ListSessions(ctx, 1, o.RecentSessions)
		if err != nil {
			record("sessions", fmt.Errorf("console: list sessions: %w", err))
			return nil
		}
		mu.Lock()
		out.TotalSessions = page.Total
		out.RecentSessions = page.Data
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		page, err := api.ListReplaySessions(ctx, 1, 1)
		if err != nil {
			record("debug_sessions", fmt.Errorf("console: list debug sessions: %w", err))
			return nil
		}
		mu.Lock()
		out.DebugSessions = page.Total
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		providers, err := api.ListProviders(ctx)
		if err != nil {
			record("providers", fmt.Errorf("console: list providers: %w", err))
			return nil
		}
		mu.Lock()
		out.Providers = providers
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		err := api.Health(ctx)
		if err != nil {
			record("health", fmt.Errorf("console: health: %w", err))
			return nil
		}
		mu.Lock()
		out.Healthy = true
		mu.Unlock()
		return nil
	})
	_ = g.Wait()

	if len(out.Errors) == 4 {
		errs := make([]error, 0, len(out.Errors))
		for _, part := range []string{"sessions", "debug_sessions", "providers", "health"} {
			errs = append(errs, out.Errors[part])
		}
		return out, errors.Join(errs...)
	}

	var rg errgroup.Group
	rg.SetLimit(o.Concurrency)
	for _, sess := range out.RecentSessions {
		sess := sess
		rg.Go(func() error {
			page, err := api.ListRecords(ctx, sess.ID, 1, 100)
			if err != nil {
				record("records:"+sess.ID, fmt.Errorf("console: list records of %s: %w", sess.ID, err))
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			out.TotalRecords += page.Total
			for _, r := range page.Data {
				out.StatusCounts[r.Status]++
			}
			out.RecentRecords = append(out.RecentRecords, page.Data...)
			return nil
		})
	}
	_ = rg.Wait()

	sort.SliceStable(out.RecentRecords, func(i, j int) bool {
		return out.RecentRecords[i].CreatedAt.After(out.RecentRecords[j].CreatedAt)
	})
	if len(out.RecentRecords) > o.RecentRecords {
		out.RecentRecords = out.RecentRecords[:o.RecentRecords]
	}
	return out, nil
}
