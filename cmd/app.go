package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bandungraya/gudang/internal/cache"
	"github.com/bandungraya/gudang/internal/db"
	"github.com/bandungraya/gudang/internal/gateway"
	"github.com/bandungraya/gudang/internal/output"
	"github.com/bandungraya/gudang/internal/queue"
	"github.com/bandungraya/gudang/internal/session"
	"github.com/bandungraya/gudang/internal/state"
	gsync "github.com/bandungraya/gudang/internal/sync"
	"github.com/bandungraya/gudang/internal/syncconfig"
)

// errNotConfigured is returned when no API URL is set and the command needs
// the server.
var errNotConfigured = errors.New("api.url is not configured (gudang config set api.url https://<project>.supabase.co)")

// reportedError marks an error that was already shown to the user
type reportedError struct{ err error }

func (r reportedError) Error() string { return r.err.Error() }
func (r reportedError) Unwrap() error { return r.err }

// app is the wired client used by every command
type app struct {
	db      *db.DB
	state   *state.Store
	cache   *cache.Store
	queue   *queue.Queue
	session *session.Store
	auth    *gateway.AuthClient
	api     *gateway.Client
	sync    *gsync.Coordinator
}

// openApp opens the local database and wires the gateway, session store and
// sync coordinator. With --offline or GUDANG_OFFLINE the state starts
// offline and nothing contacts the server.
func openApp(ctx context.Context) (*app, error) {
	device, err := syncconfig.LoadDevice()
	if err != nil {
		return nil, fmt.Errorf("load device identity: %w", err)
	}
	secret, err := device.SecretBytes()
	if err != nil {
		return nil, err
	}
	dir, err := syncconfig.DataDir()
	if err != nil {
		return nil, err
	}
	d, err := db.Open(dir)
	if err != nil {
		return nil, err
	}

	a := &app{db: d, state: state.New(), cache: cache.New(d), queue: queue.New(d)}
	if err := a.cache.Init(ctx); err != nil {
		d.Close()
		return nil, err
	}
	a.queue.SetDeadLetters(syncconfig.GetDeadLetter())

	timeout := syncconfig.GetTimeout()
	anonKey := syncconfig.GetAnonKey()
	apiURL := syncconfig.GetAPIURL()

	a.session = session.NewStore(d, secret, syncconfig.GetSessionPassphrase())
	a.auth = gateway.NewAuthClient(syncconfig.GetAuthURL(), anonKey)
	a.auth.HTTP.Timeout = timeout
	a.session.SetRefresher(a.auth)

	a.api = gateway.New(apiURL+"/functions/v1", anonKey, a.session, a.queue)
	a.api.HTTP.Timeout = timeout
	a.api.Offline = func() bool { return !a.state.Online() }

	a.sync = gsync.New(a.state, a.cache, a.queue, a.api, a.api.ReplayDoer())
	a.api.OnQueued = func(int64) { a.sync.RequestBackgroundSync() }

	if isOffline() {
		a.state.SetOnline(false)
	}
	if apiURL == "" {
		slog.Warn("api.url not configured, working offline")
		a.state.SetOnline(false)
		// nothing to replay against
		a.api.Queue = nil
	}
	return a, nil
}

func isOffline() bool {
	return offline || syncconfig.IsForcedOffline()
}

// Close releases the database
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		slog.Debug("close database", "err", err)
	}
}

// requireServer fails when the server cannot be contacted at all
func (a *app) requireServer() error {
	if syncconfig.GetAPIURL() == "" {
		return errNotConfigured
	}
	return nil
}

// hydrate loads the working data set and tells the user when it came from
// the local cache because the server failed.
func (a *app) hydrate(ctx context.Context) gsync.HydrateResult {
	res := a.sync.Hydrate(ctx)
	if res.Err != nil {
		if errors.Is(res.Err, gateway.ErrAuthRequired) {
			output.Warning("not logged in, showing local data (run 'gudang auth login')")
		} else {
			output.Warning("server unavailable, showing local data: %v", res.Err)
		}
	}
	if res.CacheErr != nil {
		output.Warning("local cache: %v", res.CacheErr)
	}
	return res
}

// reportResult prints the outcome of a mutation. Queued requests are not errors.
// Failures are shown persistently and returned so the command exits non-zero.
func reportResult(resp gateway.Response, what string) error {
	switch {
	case resp.Queued:
		output.Queued("%s", what)
		return nil
	case resp.Err != nil:
		output.Error("%s: %v", what, resp.Err)
		if errors.Is(resp.Err, gateway.ErrAuthRequired) {
			output.Info("Run 'gudang auth login' first.")
		}
		return reportedError{resp.Err}
	}
	output.Success("%s: done", what)
	return nil
}

// fail shows err and marks it reported
func fail(format string, err error) error {
	output.Error(format, err)
	return reportedError{err}
}
