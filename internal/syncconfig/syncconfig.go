// Package syncconfig reads the client settings from
// $GUDANG_HOME/config.json (default ~/.config/gudang) with environment
// overrides. Priority is always env > config.json > default.
package syncconfig

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AutoSyncConfig holds connectivity watch settings.
type AutoSyncConfig struct {
	OnStart  *bool  `json:"on_start,omitempty"` // nil = default true
	Interval string `json:"interval,omitempty"` // duration string, default "30s"
}

// SyncConfig holds sync-related settings.
type SyncConfig struct {
	Auto       AutoSyncConfig `json:"auto"`
	Timeout    string         `json:"timeout,omitempty"`     // default "15s"
	DeadLetter *bool          `json:"dead_letter,omitempty"` // nil = default true
}

// APIConfig points at the remote functions.
type APIConfig struct {
	URL     string `json:"url,omitempty"`
	AnonKey string `json:"anon_key,omitempty"`
}

// AuthConfig points at the auth service. Empty means the API URL.
type AuthConfig struct {
	URL string `json:"url,omitempty"`
}

// Config is the client config stored at $GUDANG_HOME/config.json.
type Config struct {
	API  APIConfig  `json:"api"`
	Auth AuthConfig `json:"auth"`
	Sync SyncConfig `json:"sync"`
}

// Device identifies this installation. Secret seals the local auth session.
type Device struct {
	ID        string `json:"device_id"`
	Secret    string `json:"secret"`
	CreatedAt string `json:"created_at"`
}

const (
	defaultInterval = 30 * time.Second
	defaultTimeout  = 15 * time.Second
)

// ConfigDir returns $GUDANG_HOME or ~/.config/gudang, creating it if necessary.
func ConfigDir() (string, error) {
	dir := os.Getenv("GUDANG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".config", "gudang")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// LoadConfig reads config.json. A missing file yields an empty config.
func LoadConfig() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config.json: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes config.json. The anon key lives here so the file is 0600.
func SaveConfig(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0600)
}

// LoadDevice returns the device identity, creating and persisting one on
// first use.
func LoadDevice() (*Device, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "device.json")
	data, err := os.ReadFile(path)
	if err == nil {
		var d Device
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("parse device.json: %w", err)
		}
		if d.ID != "" && d.Secret != "" {
			return &d, nil
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	id, err := randomHex(16)
	if err != nil {
		return nil, err
	}
	secret, err := randomHex(32)
	if err != nil {
		return nil, err
	}
	d := &Device{ID: id, Secret: secret, CreatedAt: time.Now().UTC().Format(time.RFC3339)}
	data, err = json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("write device.json: %w", err)
	}
	return d, nil
}

// SecretBytes decodes the device secret
func (d *Device) SecretBytes() ([]byte, error) {
	b, err := hex.DecodeString(d.Secret)
	if err != nil {
		return nil, fmt.Errorf("decode device secret: %w", err)
	}
	return b, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// DataDir is where the local database lives.
// Priority: GUDANG_DATA_DIR env > config dir.
func DataDir() (string, error) {
	if v := os.Getenv("GUDANG_DATA_DIR"); v != "" {
		return v, nil
	}
	return ConfigDir()
}

func loadOrEmpty() *Config {
	cfg, err := LoadConfig()
	if err != nil {
		return &Config{}
	}
	return cfg
}

// GetAPIURL returns the remote functions base URL.
// Priority: GUDANG_API_URL env > config.json api.url.
func GetAPIURL() string {
	if v := os.Getenv("GUDANG_API_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return strings.TrimRight(loadOrEmpty().API.URL, "/")
}

// GetAnonKey returns the public API key sent as the apikey header.
// Priority: GUDANG_ANON_KEY env > config.json api.anon_key.
func GetAnonKey() string {
	if v := os.Getenv("GUDANG_ANON_KEY"); v != "" {
		return v
	}
	return loadOrEmpty().API.AnonKey
}

// GetAuthURL returns the auth service base URL.
// Priority: GUDANG_AUTH_URL env > config.json auth.url > API URL.
func GetAuthURL() string {
	if v := os.Getenv("GUDANG_AUTH_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	if u := loadOrEmpty().Auth.URL; u != "" {
		return strings.TrimRight(u, "/")
	}
	return GetAPIURL()
}

// GetSessionPassphrase returns the optional passphrase sealing the session.
func GetSessionPassphrase() string {
	return os.Getenv("GUDANG_SESSION_PASSPHRASE")
}

// parseBoolEnv returns nil if env not set, pointer to bool if set.
func parseBoolEnv(envKey string) *bool {
	v := os.Getenv(envKey)
	if v == "" {
		return nil
	}
	b, err := ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// ParseBool accepts true/false/1/0 in any case.
func ParseBool(val string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q (use true/false/1/0)", val)
	}
}

// IsForcedOffline reports whether GUDANG_OFFLINE pins the client offline.
func IsForcedOffline() bool {
	v := parseBoolEnv("GUDANG_OFFLINE")
	return v != nil && *v
}

// GetAutoSyncOnStart returns whether to hydrate on startup.
// Priority: GUDANG_SYNC_ON_START env > config.json sync.auto.on_start > true
func GetAutoSyncOnStart() bool {
	if v := parseBoolEnv("GUDANG_SYNC_ON_START"); v != nil {
		return *v
	}
	if v := loadOrEmpty().Sync.Auto.OnStart; v != nil {
		return *v
	}
	return true
}

// GetAutoSyncInterval returns the connectivity check interval.
// Priority: GUDANG_SYNC_INTERVAL env > config.json sync.auto.interval > 30s
func GetAutoSyncInterval() time.Duration {
	if v := os.Getenv("GUDANG_SYNC_INTERVAL"); v != "" {
		if d, err := ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	if s := loadOrEmpty().Sync.Auto.Interval; s != "" {
		if d, err := ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return defaultInterval
}

// GetTimeout returns the per-request HTTP timeout.
// Priority: GUDANG_SYNC_TIMEOUT env > config.json sync.timeout > 15s
func GetTimeout() time.Duration {
	if v := os.Getenv("GUDANG_SYNC_TIMEOUT"); v != "" {
		if d, err := ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	if s := loadOrEmpty().Sync.Timeout; s != "" {
		if d, err := ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return defaultTimeout
}

// GetDeadLetter returns whether rejected replays are kept for inspection.
// Priority: GUDANG_DEAD_LETTER env > config.json sync.dead_letter > true
func GetDeadLetter() bool {
	if v := parseBoolEnv("GUDANG_DEAD_LETTER"); v != nil {
		return *v
	}
	if v := loadOrEmpty().Sync.DeadLetter; v != nil {
		return *v
	}
	return true
}

// ParseDuration accepts Go durations plus a whole number of days ("7d").
func ParseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("invalid duration: %s", s)
}
