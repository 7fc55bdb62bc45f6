// Package sync hydrates the in-memory state from the server or the local
// cache and catches up queued mutations when connectivity returns.
package sync

import (
	"context"
	"errors"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/bandungraya/gudang/internal/gateway"
	"github.com/bandungraya/gudang/internal/models"
	"github.com/bandungraya/gudang/internal/queue"
	"github.com/bandungraya/gudang/internal/state"
)

// Coordinator wires the state store, cache, queue and gateway together
type Coordinator struct {
	state *state.Store
	cache Cache
	queue Replayer
	api   API
	doer  queue.Doer

	// runMu serializes hydrations and catch-up passes
	runMu gosync.Mutex
	// bg carries background sync requests to Watch
	bg chan struct{}
}

// New creates a coordinator. doer delivers replayed requests.
func New(st *state.Store, c Cache, q Replayer, api API, doer queue.Doer) *Coordinator {
	return &Coordinator{
		state: st,
		cache: c,
		queue: q,
		api:   api,
		doer:  doer,
		bg:    make(chan struct{}, 1),
	}
}

// Hydrate populates the state. Offline, it loads the local cache without
// touching the network. Online, it fetches a full snapshot, replaces the
// cache with it and publishes it; if the fetch fails it falls back to the
// cache.
func (c *Coordinator) Hydrate(ctx context.Context) HydrateResult {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.hydrate(ctx)
}

func (c *Coordinator) hydrate(ctx context.Context) HydrateResult {
	c.state.SetLoading(true, "Memuat data...")
	defer c.state.SetLoading(false, "")

	if !c.state.Online() {
		slog.Debug("sync: offline, hydrating from cache")
		return c.fromCache(ctx, nil)
	}

	snap, err := c.api.GetAdminData(ctx)
	if err != nil {
		if errors.Is(err, gateway.ErrUnreachable) {
			c.state.SetOnline(false)
		}
		slog.Warn("sync: snapshot fetch failed, using cache", "err", err)
		return c.fromCache(ctx, err)
	}

	res := HydrateResult{Source: SourceNetwork, Counts: counts(snap)}
	if err := c.cache.ReplaceAll(ctx, snap); err != nil {
		slog.Warn("sync: cache write failed", "err", err)
		res.CacheErr = err
	}
	c.state.SetSnapshot(snap)
	slog.Debug("sync: hydrated from network", "counts", res.Counts)
	return res
}

// fromCache publishes whatever the cache holds. A cache that cannot be read
// leaves the state as it was.
func (c *Coordinator) fromCache(ctx context.Context, cause error) HydrateResult {
	res := HydrateResult{Source: SourceCache, Err: cause}
	snap, err := c.cache.ReadSnapshot(ctx)
	if err != nil {
		slog.Warn("sync: cache read failed", "err", err)
		res.CacheErr = err
		return res
	}
	c.state.SetSnapshot(snap)
	res.Counts = counts(snap)
	return res
}

func counts(snap models.Snapshot) map[models.CollectionName]int {
	out := make(map[models.CollectionName]int, len(snap))
	for name, records := range snap {
		out[name] = len(records)
	}
	return out
}

// OnConnectivityRestored marks the client online, replays queued mutations
// and re-hydrates. A replay that loses the network again flips the client
// back offline, so the hydration reads the cache.
func (c *Coordinator) OnConnectivityRestored(ctx context.Context) SyncResult {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.state.SetOnline(true)
	var res SyncResult
	res.Replay = c.queue.Replay(ctx, c.doer)
	if res.Replay.Aborted && ctx.Err() == nil && !errors.Is(res.Replay.Err, gateway.ErrAuthRequired) {
		c.state.SetOnline(false)
	}
	if errors.Is(res.Replay.Err, gateway.ErrAuthRequired) {
		slog.Warn("sync: queued mutations wait for a new login", "remaining", res.Replay.Remaining)
	}
	if n := len(res.Replay.Rejected); n > 0 {
		slog.Warn("sync: server rejected queued mutations", "count", n)
	}
	slog.Debug("sync: replay done", "delivered", res.Replay.Delivered, "remaining", res.Replay.Remaining)

	res.Hydrate = c.hydrate(ctx)
	return res
}

// RequestBackgroundSync asks Watch to run a catch-up pass as soon as the
// server is reachable. Requests made while one is pending are merged.
func (c *Coordinator) RequestBackgroundSync() {
	select {
	case c.bg <- struct{}{}:
	default:
	}
}

// Watch checks reachability every interval until ctx is done. An
// offline→online edge, or a background sync request while online, runs
// OnConnectivityRestored. Results are passed to onSync when it is not nil.
func (c *Coordinator) Watch(ctx context.Context, interval time.Duration, reach ReachFunc, onSync func(SyncResult)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pending := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.bg:
			pending = true
		case <-ticker.C:
		}

		was := c.state.Online()
		online := reach(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !online {
			if was {
				slog.Info("sync: server unreachable, working offline")
			}
			c.state.SetOnline(false)
			continue
		}
		if !was || pending {
			pending = false
			slog.Info("sync: server reachable, catching up")
			res := c.OnConnectivityRestored(ctx)
			if onSync != nil {
				onSync(res)
			}
		}
	}
}
