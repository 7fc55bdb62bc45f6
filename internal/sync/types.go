package sync

import (
	"context"

	"github.com/bandungraya/gudang/internal/gateway"
	"github.com/bandungraya/gudang/internal/models"
	"github.com/bandungraya/gudang/internal/queue"
)

// Source tells where hydrated data came from
type Source string

const (
	SourceNetwork Source = "network"
	SourceCache   Source = "cache"
)

// HydrateResult summarizes a hydration.
type HydrateResult struct {
	Source Source
	// Err is the network failure that forced a cache fallback, if any
	Err error
	// CacheErr is a failure writing or reading the local cache. A network
	// hydration with CacheErr set still populated the state.
	CacheErr error
	Counts   map[models.CollectionName]int
}

// SyncResult summarizes a catch-up pass: replay followed by hydration.
type SyncResult struct {
	Replay  queue.ReplayResult
	Hydrate HydrateResult
}

// Cache is the local mirror of server collections
type Cache interface {
	ReplaceAll(ctx context.Context, snap models.Snapshot) error
	ReadSnapshot(ctx context.Context) (models.Snapshot, error)
}

// Replayer redelivers queued mutations
type Replayer interface {
	Replay(ctx context.Context, doer queue.Doer) queue.ReplayResult
}

// API is the part of the gateway the coordinator drives
type API interface {
	GetAdminData(ctx context.Context) (models.Snapshot, error)
	ManageTransaction(ctx context.Context, a models.TransactionAction) gateway.Response
	SubmitReturn(ctx context.Context, r models.ReturnSubmission) gateway.Response
}

// ReachFunc reports whether the server is reachable
type ReachFunc func(ctx context.Context) bool
