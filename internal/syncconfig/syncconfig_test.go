package syncconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTestConfig points GUDANG_HOME at a temp dir holding cfg.
func writeTestConfig(t *testing.T, cfg *Config) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GUDANG_HOME", dir)
	if cfg == nil {
		return dir
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func boolPtr(b bool) *bool { return &b }

func TestDefaults(t *testing.T) {
	writeTestConfig(t, nil)
	for _, k := range []string{"GUDANG_SYNC_INTERVAL", "GUDANG_SYNC_TIMEOUT", "GUDANG_DEAD_LETTER", "GUDANG_SYNC_ON_START", "GUDANG_OFFLINE", "GUDANG_API_URL"} {
		t.Setenv(k, "")
	}

	if got := GetAutoSyncInterval(); got != 30*time.Second {
		t.Errorf("interval: got %v, want 30s", got)
	}
	if got := GetTimeout(); got != 15*time.Second {
		t.Errorf("timeout: got %v, want 15s", got)
	}
	if !GetDeadLetter() {
		t.Error("dead letters should default on")
	}
	if !GetAutoSyncOnStart() {
		t.Error("on_start should default on")
	}
	if IsForcedOffline() {
		t.Error("offline should default off")
	}
	if GetAPIURL() != "" {
		t.Errorf("api url: got %q, want empty", GetAPIURL())
	}
}

func TestConfigFileValues(t *testing.T) {
	writeTestConfig(t, &Config{
		API: APIConfig{URL: "https://proj.example.co/", AnonKey: "anon"},
		Sync: SyncConfig{
			Auto:       AutoSyncConfig{Interval: "1m", OnStart: boolPtr(false)},
			Timeout:    "5s",
			DeadLetter: boolPtr(false),
		},
	})
	t.Setenv("GUDANG_API_URL", "")
	t.Setenv("GUDANG_AUTH_URL", "")
	t.Setenv("GUDANG_ANON_KEY", "")
	t.Setenv("GUDANG_SYNC_INTERVAL", "")
	t.Setenv("GUDANG_SYNC_TIMEOUT", "")
	t.Setenv("GUDANG_DEAD_LETTER", "")
	t.Setenv("GUDANG_SYNC_ON_START", "")

	if got := GetAPIURL(); got != "https://proj.example.co" {
		t.Errorf("api url: got %q", got)
	}
	if got := GetAuthURL(); got != "https://proj.example.co" {
		t.Errorf("auth url should fall back to api url, got %q", got)
	}
	if GetAnonKey() != "anon" {
		t.Errorf("anon key: got %q", GetAnonKey())
	}
	if got := GetAutoSyncInterval(); got != time.Minute {
		t.Errorf("interval: got %v", got)
	}
	if got := GetTimeout(); got != 5*time.Second {
		t.Errorf("timeout: got %v", got)
	}
	if GetDeadLetter() {
		t.Error("dead letters disabled in config")
	}
	if GetAutoSyncOnStart() {
		t.Error("on_start disabled in config")
	}
}

func TestEnvOverridesConfig(t *testing.T) {
	writeTestConfig(t, &Config{
		API:  APIConfig{URL: "https://file.example.co"},
		Sync: SyncConfig{Auto: AutoSyncConfig{Interval: "1m"}, DeadLetter: boolPtr(true)},
	})
	t.Setenv("GUDANG_API_URL", "https://env.example.co")
	t.Setenv("GUDANG_AUTH_URL", "https://auth.example.co")
	t.Setenv("GUDANG_SYNC_INTERVAL", "10s")
	t.Setenv("GUDANG_DEAD_LETTER", "0")
	t.Setenv("GUDANG_OFFLINE", "true")

	if got := GetAPIURL(); got != "https://env.example.co" {
		t.Errorf("api url: got %q", got)
	}
	if got := GetAuthURL(); got != "https://auth.example.co" {
		t.Errorf("auth url: got %q", got)
	}
	if got := GetAutoSyncInterval(); got != 10*time.Second {
		t.Errorf("interval: got %v", got)
	}
	if GetDeadLetter() {
		t.Error("env should disable dead letters")
	}
	if !IsForcedOffline() {
		t.Error("GUDANG_OFFLINE=true should force offline")
	}
}

func TestInvalidEnvFallsThrough(t *testing.T) {
	writeTestConfig(t, nil)
	t.Setenv("GUDANG_SYNC_INTERVAL", "soon")
	t.Setenv("GUDANG_SYNC_TIMEOUT", "-5s")
	t.Setenv("GUDANG_DEAD_LETTER", "maybe")

	if got := GetAutoSyncInterval(); got != 30*time.Second {
		t.Errorf("interval: got %v, want default", got)
	}
	if got := GetTimeout(); got != 15*time.Second {
		t.Errorf("timeout: got %v, want default", got)
	}
	if !GetDeadLetter() {
		t.Error("invalid bool env should fall through to default")
	}
}

func TestSaveLoadConfig(t *testing.T) {
	dir := writeTestConfig(t, nil)
	cfg := &Config{API: APIConfig{AnonKey: "k"}}
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("perm: got %v, want 0600", info.Mode().Perm())
	}
	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.API.AnonKey != "k" {
		t.Errorf("anon key: got %q", got.API.AnonKey)
	}
}

func TestLoadDeviceIsStable(t *testing.T) {
	writeTestConfig(t, nil)
	d1, err := LoadDevice()
	if err != nil {
		t.Fatalf("LoadDevice: %v", err)
	}
	if len(d1.ID) != 32 || len(d1.Secret) != 64 {
		t.Fatalf("unexpected device sizes: id=%d secret=%d", len(d1.ID), len(d1.Secret))
	}
	d2, err := LoadDevice()
	if err != nil {
		t.Fatalf("LoadDevice again: %v", err)
	}
	if d1.ID != d2.ID || d1.Secret != d2.Secret {
		t.Error("device identity changed between loads")
	}
	secret, err := d2.SecretBytes()
	if err != nil {
		t.Fatalf("SecretBytes: %v", err)
	}
	if len(secret) != 32 {
		t.Errorf("secret length: got %d, want 32", len(secret))
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"1h30m", 90 * time.Minute, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"xd", 0, true},
		{"week", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConfigGetSet(t *testing.T) {
	var cfg Config
	if err := cfg.Set("sync.auto.interval", "45s"); err != nil {
		t.Fatalf("set interval: %v", err)
	}
	if err := cfg.Set("sync.dead_letter", "false"); err != nil {
		t.Fatalf("set dead_letter: %v", err)
	}
	if err := cfg.Set("api.url", "https://x.example.co"); err != nil {
		t.Fatalf("set url: %v", err)
	}
	if v, _ := cfg.Get("sync.auto.interval"); v != "45s" {
		t.Errorf("interval: got %q", v)
	}
	if v, _ := cfg.Get("sync.dead_letter"); v != "false" {
		t.Errorf("dead_letter: got %q", v)
	}
	if v, _ := cfg.Get("sync.auto.on_start"); v != "" {
		t.Errorf("unset on_start: got %q", v)
	}

	if err := cfg.Set("sync.timeout", "0s"); err == nil {
		t.Error("zero timeout should be rejected")
	}
	if err := cfg.Set("sync.auto.on_start", "yes"); err == nil {
		t.Error("non-bool should be rejected")
	}
	if err := cfg.Set("sync.url", "x"); err == nil {
		t.Error("unknown key should be rejected")
	}
	if IsValidKey("sync.url") || !IsValidKey("api.anon_key") {
		t.Error("IsValidKey mismatch")
	}
}
