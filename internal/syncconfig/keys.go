package syncconfig

import (
	"fmt"
	"slices"
	"strconv"
)

// ValidKeys lists the config keys accepted by Get and Set.
var ValidKeys = []string{
	"api.url",
	"api.anon_key",
	"auth.url",
	"sync.auto.interval",
	"sync.auto.on_start",
	"sync.timeout",
	"sync.dead_letter",
}

// IsValidKey reports whether key is a known config key
func IsValidKey(key string) bool {
	return slices.Contains(ValidKeys, key)
}

// Get returns the stored value of key, "" when unset.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api.url":
		return c.API.URL, nil
	case "api.anon_key":
		return c.API.AnonKey, nil
	case "auth.url":
		return c.Auth.URL, nil
	case "sync.auto.interval":
		return c.Sync.Auto.Interval, nil
	case "sync.auto.on_start":
		return boolString(c.Sync.Auto.OnStart), nil
	case "sync.timeout":
		return c.Sync.Timeout, nil
	case "sync.dead_letter":
		return boolString(c.Sync.DeadLetter), nil
	}
	return "", fmt.Errorf("unknown config key: %s", key)
}

// Set validates val and stores it under key.
func (c *Config) Set(key, val string) error {
	switch key {
	case "api.url":
		c.API.URL = val
	case "api.anon_key":
		c.API.AnonKey = val
	case "auth.url":
		c.Auth.URL = val
	case "sync.auto.interval", "sync.timeout":
		d, err := ParseDuration(val)
		if err != nil {
			return err
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
		if key == "sync.timeout" {
			c.Sync.Timeout = val
		} else {
			c.Sync.Auto.Interval = val
		}
	case "sync.auto.on_start", "sync.dead_letter":
		b, err := ParseBool(val)
		if err != nil {
			return err
		}
		if key == "sync.dead_letter" {
			c.Sync.DeadLetter = &b
		} else {
			c.Sync.Auto.OnStart = &b
		}
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func boolString(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
