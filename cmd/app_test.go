package cmd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bandungraya/gudang/internal/gateway"
	"github.com/bandungraya/gudang/internal/models"
	"github.com/bandungraya/gudang/internal/session"
)

func setupHome(t *testing.T) {
	t.Helper()
	t.Setenv("GUDANG_HOME", t.TempDir())
	t.Setenv("GUDANG_DATA_DIR", "")
	t.Setenv("GUDANG_API_URL", "")
	t.Setenv("GUDANG_OFFLINE", "")
	t.Setenv("GUDANG_SESSION_PASSPHRASE", "")
}

func saveLogin(t *testing.T, a *app, expiresAt time.Time) {
	t.Helper()
	err := a.session.Save(&session.Session{
		AccessToken: "at-1",
		ExpiresAt:   expiresAt,
		User:        session.User{ID: "u1", Email: "admin@gudang.id", Role: "admin"},
	})
	if err != nil {
		t.Fatalf("save session: %v", err)
	}
}

func TestOpenAppOfflineQueuesMutations(t *testing.T) {
	setupHome(t)
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()
	t.Setenv("GUDANG_API_URL", srv.URL)
	t.Setenv("GUDANG_OFFLINE", "1")

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	defer a.Close()

	if a.state.Online() {
		t.Fatal("GUDANG_OFFLINE should start offline")
	}

	update := models.ProductUpdate{ProductID: "12", Updates: map[string]any{"sisa_stok": 4}}
	if resp := a.api.UpdateProduct(ctx, update); !errors.Is(resp.Err, gateway.ErrAuthRequired) || resp.Queued {
		t.Fatalf("without login: response = %+v, want ErrAuthRequired", resp)
	}

	// expired and not renewable while offline
	saveLogin(t, a, time.Now().Add(-time.Hour))
	resp := a.api.UpdateProduct(ctx, models.ProductUpdate{ProductID: "12", Updates: map[string]any{"sisa_stok": 4}})
	if !resp.Queued {
		t.Fatalf("response = %+v, want queued", resp)
	}
	if err := reportResult(resp, "stock"); err != nil {
		t.Errorf("queued response should not be an error: %v", err)
	}
	if n, err := a.queue.Count(ctx); err != nil || n != 1 {
		t.Errorf("queue count = %d, %v", n, err)
	}
	if hits != 0 {
		t.Errorf("server contacted %d time(s) while offline", hits)
	}

	res := a.hydrate(ctx)
	if res.Err != nil || res.CacheErr != nil {
		t.Errorf("offline hydrate: %+v", res)
	}
}

func TestOpenAppWithoutURLDoesNotQueue(t *testing.T) {
	setupHome(t)
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	defer a.Close()

	if err := a.requireServer(); !errors.Is(err, errNotConfigured) {
		t.Errorf("requireServer = %v", err)
	}
	saveLogin(t, a, time.Now().Add(time.Hour))
	resp := a.api.DeleteProduct(ctx, models.ProductRef{ProductID: "1"})
	if !errors.Is(resp.Err, gateway.ErrNotQueued) {
		t.Errorf("err = %v, want ErrNotQueued", resp.Err)
	}
	err = reportResult(resp, "delete")
	var reported reportedError
	if !errors.As(err, &reported) {
		t.Errorf("failure should be marked reported, got %v", err)
	}
	if n, _ := a.queue.Count(ctx); n != 0 {
		t.Errorf("queue count = %d, want 0", n)
	}
}

func TestSessionSurvivesReopen(t *testing.T) {
	setupHome(t)
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	sess, err := a.session.Load()
	if err != nil || sess != nil {
		t.Fatalf("fresh home: session = %v, %v", sess, err)
	}
	a.Close()

	b, err := openApp(ctx)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()
	if _, err := b.session.Token(ctx); !errors.Is(err, gateway.ErrAuthRequired) {
		t.Errorf("Token without login = %v", err)
	}
}
