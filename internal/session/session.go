// Package session keeps the signed-in user's credentials in the local
// database, sealed with a key only this device (or passphrase) can derive.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bandungraya/gudang/internal/crypto"
	"github.com/bandungraya/gudang/internal/db"
	"github.com/bandungraya/gudang/internal/gateway"
)

const (
	hkdfInfo = "gudang-session-v1"
	// refreshSkew renews a token shortly before it actually expires
	refreshSkew = 30 * time.Second

	kdfDevice     = "hkdf"
	kdfPassphrase = "argon2id"
)

// User is the identity and role of the signed-in account
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Nama   string `json:"nama"`
	Outlet string `json:"outlet"`
}

// IsAdmin reports whether the user may use the admin panel
func (u User) IsAdmin() bool {
	return u.Role == "admin" || u.Role == "super_admin"
}

// Session is an authenticated login
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is unusable at now
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Add(refreshSkew).Before(s.ExpiresAt)
}

// FromGrant builds a session from a token grant and the user's profile
func FromGrant(g *gateway.TokenGrant, p *gateway.Profile, now time.Time) *Session {
	s := &Session{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		ExpiresAt:    g.Expiry(now),
		User:         User{ID: g.User.ID, Email: g.User.Email},
	}
	if p != nil {
		s.User.Role = p.Role
		s.User.Nama = p.Nama
		s.User.Outlet = p.Outlet
	}
	return s
}

// Refresher renews an expired session
type Refresher interface {
	RefreshSession(ctx context.Context, refreshToken string) (*gateway.TokenGrant, error)
}

// sealed is the stored form of a session
type sealed struct {
	KDF  string `json:"kdf"`
	Salt string `json:"salt"`
	Data string `json:"data"`
}

// Store loads and saves the session blob in the key-value area. It
// implements gateway.TokenSource.
type Store struct {
	db         *db.DB
	secret     []byte
	passphrase string
	refresher  Refresher
	now        func() time.Time

	mu     sync.Mutex
	cached *Session
}

// NewStore returns a store sealing with a key derived from deviceSecret, or
// from passphrase when it is not empty.
func NewStore(d *db.DB, deviceSecret []byte, passphrase string) *Store {
	return &Store{db: d, secret: deviceSecret, passphrase: passphrase, now: time.Now}
}

// SetRefresher enables automatic renewal of expired tokens
func (s *Store) SetRefresher(r Refresher) {
	s.refresher = r
}

// Save seals and stores sess
func (s *Store) Save(sess *Session) error {
	plain, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	salt, err := crypto.RandomBytes(crypto.SaltLen)
	if err != nil {
		return err
	}
	kdf := kdfDevice
	if s.passphrase != "" {
		kdf = kdfPassphrase
	}
	key, err := s.key(kdf, salt)
	if err != nil {
		return err
	}
	ct, err := crypto.Encrypt(key, plain)
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}

	blob, err := json.Marshal(sealed{
		KDF:  kdf,
		Salt: base64.StdEncoding.EncodeToString(salt),
		Data: base64.StdEncoding.EncodeToString(ct),
	})
	if err != nil {
		return err
	}
	if err := s.db.SetValue(db.KeyAuthSession, string(blob)); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	s.mu.Lock()
	c := *sess
	s.cached = &c
	s.mu.Unlock()
	return nil
}

// Load returns the stored session, or nil when nobody is signed in
func (s *Store) Load() (*Session, error) {
	s.mu.Lock()
	if s.cached != nil {
		c := *s.cached
		s.mu.Unlock()
		return &c, nil
	}
	s.mu.Unlock()

	raw, ok, err := s.db.GetValue(db.KeyAuthSession)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var blob sealed
	if err := json.Unmarshal([]byte(raw), &blob); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(blob.Salt)
	if err != nil {
		return nil, fmt.Errorf("parse session salt: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(blob.Data)
	if err != nil {
		return nil, fmt.Errorf("parse session data: %w", err)
	}
	key, err := s.key(blob.KDF, salt)
	if err != nil {
		return nil, err
	}
	plain, err := crypto.Decrypt(key, ct)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(plain, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	s.mu.Lock()
	c := sess
	s.cached = &c
	s.mu.Unlock()
	return &sess, nil
}

// Clear signs out
func (s *Store) Clear() error {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
	return s.db.DeleteValue(db.KeyAuthSession)
}

func (s *Store) key(kdf string, salt []byte) ([]byte, error) {
	switch kdf {
	case kdfPassphrase:
		if s.passphrase == "" {
			return nil, fmt.Errorf("%w: session is passphrase protected", gateway.ErrAuthRequired)
		}
		return crypto.DeriveKeyFromPassphrase(s.passphrase, salt)
	case kdfDevice:
		return crypto.DeriveKey(s.secret, salt, hkdfInfo)
	}
	return nil, fmt.Errorf("unknown key derivation %q", kdf)
}

// Token returns a valid access token, renewing an expired one when a
// refresher is set. Without a session it fails with gateway.ErrAuthRequired,
// and with gateway.ErrSessionExpired when renewal is not possible.
func (s *Store) Token(ctx context.Context) (string, error) {
	sess, err := s.Load()
	if err != nil {
		slog.Debug("session: load failed", "err", err)
		return "", fmt.Errorf("%w: %v", gateway.ErrAuthRequired, err)
	}
	if sess == nil || sess.AccessToken == "" {
		return "", gateway.ErrAuthRequired
	}
	if !sess.Expired(s.now()) {
		return sess.AccessToken, nil
	}

	if s.refresher == nil || sess.RefreshToken == "" {
		return "", gateway.ErrSessionExpired
	}
	grant, err := s.refresher.RefreshSession(ctx, sess.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: refresh: %v", gateway.ErrSessionExpired, err)
	}
	renewed := FromGrant(grant, nil, s.now())
	renewed.User = sess.User
	if err := s.Save(renewed); err != nil {
		slog.Warn("session: could not store renewed session", "err", err)
	}
	return renewed.AccessToken, nil
}
