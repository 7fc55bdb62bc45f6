package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bandungraya/gudang/internal/db"
	"github.com/bandungraya/gudang/internal/gateway"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

var secret = []byte("0123456789abcdef0123456789abcdef")

func sampleSession(expires time.Time) *Session {
	return &Session{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    expires,
		User:         User{ID: "u1", Email: "budi@gudang.id", Role: "admin", Nama: "Budi", Outlet: "Pusat"},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	d := setupTestDB(t)
	s := NewStore(d, secret, "")
	want := sampleSession(time.Now().Add(time.Hour).Truncate(time.Second))
	if err := s.Save(want); err != nil {
		t.Fatal(err)
	}

	raw, _, _ := d.GetValue(db.KeyAuthSession)
	if strings.Contains(raw, "at-1") || strings.Contains(raw, "budi@gudang.id") {
		t.Error("stored session is not sealed")
	}

	// a fresh store has no cache and must decrypt
	got, err := NewStore(d, secret, "").Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "at-1" || got.User != want.User || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Errorf("loaded = %+v", got)
	}
}

func TestLoad_WrongDeviceSecret(t *testing.T) {
	d := setupTestDB(t)
	NewStore(d, secret, "").Save(sampleSession(time.Now().Add(time.Hour)))

	other := NewStore(d, []byte("another-device-secret-xxxxxxxxxx"), "")
	if _, err := other.Load(); err == nil {
		t.Fatal("session opened with another device's secret")
	}
	if _, err := other.Token(context.Background()); !errors.Is(err, gateway.ErrAuthRequired) {
		t.Errorf("Token err = %v, want ErrAuthRequired", err)
	}
}

func TestPassphraseProtected(t *testing.T) {
	d := setupTestDB(t)
	if err := NewStore(d, secret, "kata sandi").Save(sampleSession(time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStore(d, secret, "").Load(); !errors.Is(err, gateway.ErrAuthRequired) {
		t.Errorf("load without passphrase err = %v", err)
	}
	if _, err := NewStore(d, secret, "salah").Load(); err == nil {
		t.Error("loaded with the wrong passphrase")
	}
	got, err := NewStore(d, secret, "kata sandi").Load()
	if err != nil || got.User.Nama != "Budi" {
		t.Errorf("load = %+v, %v", got, err)
	}
}

func TestToken_NoSession(t *testing.T) {
	s := NewStore(setupTestDB(t), secret, "")
	sess, err := s.Load()
	if err != nil || sess != nil {
		t.Fatalf("Load = %v, %v; want nil, nil", sess, err)
	}
	if _, err := s.Token(context.Background()); !errors.Is(err, gateway.ErrAuthRequired) {
		t.Errorf("err = %v", err)
	}
}

func TestToken_Valid(t *testing.T) {
	s := NewStore(setupTestDB(t), secret, "")
	s.Save(sampleSession(time.Now().Add(time.Hour)))
	tok, err := s.Token(context.Background())
	if err != nil || tok != "at-1" {
		t.Errorf("Token = %q, %v", tok, err)
	}
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) RefreshSession(_ context.Context, rt string) (*gateway.TokenGrant, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.TokenGrant{AccessToken: "at-2", RefreshToken: rt + "-next", ExpiresIn: 3600}, nil
}

func TestToken_ExpiredRefreshes(t *testing.T) {
	d := setupTestDB(t)
	s := NewStore(d, secret, "")
	s.Save(sampleSession(time.Now().Add(-time.Minute)))

	if _, err := s.Token(context.Background()); !errors.Is(err, gateway.ErrAuthRequired) {
		t.Fatalf("expired without refresher err = %v", err)
	}

	r := &fakeRefresher{}
	s.SetRefresher(r)
	tok, err := s.Token(context.Background())
	if err != nil || tok != "at-2" {
		t.Fatalf("Token = %q, %v", tok, err)
	}

	stored, _ := NewStore(d, secret, "").Load()
	if stored.AccessToken != "at-2" || stored.RefreshToken != "rt-1-next" || stored.User.Nama != "Budi" {
		t.Errorf("renewed session = %+v", stored)
	}
	if _, err := s.Token(context.Background()); err != nil || r.calls != 1 {
		t.Errorf("second Token refreshed again (calls = %d, err = %v)", r.calls, err)
	}
}

func TestToken_RefreshFails(t *testing.T) {
	s := NewStore(setupTestDB(t), secret, "")
	s.Save(sampleSession(time.Now().Add(-time.Minute)))
	s.SetRefresher(&fakeRefresher{err: errors.New("invalid refresh token")})
	_, err := s.Token(context.Background())
	if !errors.Is(err, gateway.ErrSessionExpired) || !errors.Is(err, gateway.ErrAuthRequired) {
		t.Errorf("err = %v", err)
	}
}

func TestToken_ExpiredVersusMissing(t *testing.T) {
	s := NewStore(setupTestDB(t), secret, "")
	if _, err := s.Token(context.Background()); errors.Is(err, gateway.ErrSessionExpired) {
		t.Errorf("no session reported as expired: %v", err)
	}
	sess := sampleSession(time.Now().Add(-time.Minute))
	sess.RefreshToken = ""
	s.Save(sess)
	if _, err := s.Token(context.Background()); !errors.Is(err, gateway.ErrSessionExpired) {
		t.Errorf("expired without refresh token: err = %v", err)
	}
}

func TestClear(t *testing.T) {
	s := NewStore(setupTestDB(t), secret, "")
	s.Save(sampleSession(time.Now().Add(time.Hour)))
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if sess, _ := s.Load(); sess != nil {
		t.Errorf("session after clear = %+v", sess)
	}
}

func TestFromGrant(t *testing.T) {
	now := time.Unix(1000, 0)
	g := &gateway.TokenGrant{AccessToken: "a", RefreshToken: "r", ExpiresAt: 5000, User: gateway.AuthUser{ID: "u", Email: "e@x"}}
	s := FromGrant(g, &gateway.Profile{Role: "user", Nama: "Sari", Outlet: "Toko Sari"}, now)
	if !s.ExpiresAt.Equal(time.Unix(5000, 0)) || s.User.Outlet != "Toko Sari" || s.User.IsAdmin() {
		t.Errorf("session = %+v", s)
	}
	if s.Expired(now) || !s.Expired(time.Unix(5000, 0)) {
		t.Error("expiry check wrong")
	}
}
