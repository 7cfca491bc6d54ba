// Package refresh fetches work items from a tracker and keeps the last
// fetch of every board in the snapshot store, so boards can still be drawn
// when the tracker cannot be reached.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joescharf/kanban/internal/models"
	"github.com/joescharf/kanban/internal/store"
	"github.com/joescharf/kanban/internal/tracker"
)

// DefaultKeep is how many snapshots are kept per board.
const DefaultKeep = 5

// Result holds the work items for one board and where they came from.
type Result struct {
	Kind      string             `json:"kind"`
	Key       string             `json:"key"`
	Items     []*models.WorkItem `json:"items"`
	Cached    bool               `json:"cached"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Cache wraps a Source with a snapshot store. A nil Store disables caching.
type Cache struct {
	Source tracker.Source
	Store  store.Store
	// Offline reads snapshots only and never calls Source.
	Offline bool
	// Keep bounds the snapshots kept per board; zero means DefaultKeep.
	Keep int
	Log  *slog.Logger
}

var _ tracker.Source = (*Cache)(nil)

// Milestone returns the items of a milestone board.
func (c *Cache) Milestone(ctx context.Context, project, milestone string) (*Result, error) {
	return c.fetch(ctx, store.KindMilestone, store.MilestoneKey(project, milestone), func(ctx context.Context) ([]*models.WorkItem, error) {
		return c.Source.MilestoneItems(ctx, project, milestone)
	})
}

// Person returns the items of a person or team board.
func (c *Cache) Person(ctx context.Context, person string) (*Result, error) {
	return c.fetch(ctx, store.KindPerson, person, func(ctx context.Context) ([]*models.WorkItem, error) {
		return c.Source.PersonItems(ctx, person)
	})
}

func (c *Cache) MilestoneItems(ctx context.Context, project, milestone string) ([]*models.WorkItem, error) {
	r, err := c.Milestone(ctx, project, milestone)
	if err != nil {
		return nil, err
	}
	return r.Items, nil
}

func (c *Cache) PersonItems(ctx context.Context, person string) ([]*models.WorkItem, error) {
	r, err := c.Person(ctx, person)
	if err != nil {
		return nil, err
	}
	return r.Items, nil
}

func (c *Cache) fetch(ctx context.Context, kind, key string, get func(context.Context) ([]*models.WorkItem, error)) (*Result, error) {
	if c.Offline {
		if c.Store == nil {
			return nil, errors.New("offline mode needs a snapshot store")
		}
		return c.latest(ctx, kind, key)
	}

	items, err := get(ctx)
	if err != nil {
		// A missing project or person will not appear in a snapshot either.
		if c.Store == nil || errors.Is(err, tracker.ErrNotFound) || ctx.Err() != nil {
			return nil, err
		}
		c.logger().Warn("tracker unavailable, using last snapshot", "kind", kind, "key", key, "error", err)
		r, serr := c.latest(ctx, kind, key)
		if serr != nil {
			return nil, fmt.Errorf("%w (no snapshot to fall back on: %v)", err, serr)
		}
		return r, nil
	}

	r := &Result{Kind: kind, Key: key, Items: items, FetchedAt: time.Now().UTC()}
	if c.Store == nil {
		return r, nil
	}
	snap, err := c.Store.SaveSnapshot(ctx, kind, key, items)
	if err != nil {
		c.logger().Warn("saving snapshot failed", "kind", kind, "key", key, "error", err)
		return r, nil
	}
	r.FetchedAt = snap.FetchedAt
	if _, err := c.Store.PruneSnapshots(ctx, kind, key, c.keep()); err != nil {
		c.logger().Warn("pruning snapshots failed", "kind", kind, "key", key, "error", err)
	}
	return r, nil
}

func (c *Cache) latest(ctx context.Context, kind, key string) (*Result, error) {
	snap, err := c.Store.LatestSnapshot(ctx, kind, key)
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind:      kind,
		Key:       key,
		Items:     snap.Items,
		Cached:    true,
		FetchedAt: snap.FetchedAt,
	}, nil
}

func (c *Cache) keep() int {
	if c.Keep <= 0 {
		return DefaultKeep
	}
	return c.Keep
}

func (c *Cache) logger() *slog.Logger {
	if c.Log == nil {
		return slog.Default()
	}
	return c.Log
}
