package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bandungraya/gudang/internal/output"
	"github.com/bandungraya/gudang/internal/syncconfig"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage gudang configuration",
	GroupID: "system",
}

func checkConfigKey(key string) error {
	if syncconfig.IsValidKey(key) {
		return nil
	}
	fmt.Println("Valid keys:", strings.Join(syncconfig.ValidKeys, ", "))
	return fmt.Errorf("unknown config key: %s", key)
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if err := checkConfigKey(key); err != nil {
			return err
		}

		cfg, err := syncconfig.LoadConfig()
		if err != nil {
			return fail("load config: %v", err)
		}
		if err := cfg.Set(key, val); err != nil {
			return err
		}
		if err := syncconfig.SaveConfig(cfg); err != nil {
			return fail("save config: %v", err)
		}

		output.Success("set %s = %s", key, val)
		return nil
	},
}

// effective values shown by config get when a key is unset
var configDefaults = map[string]func() string{
	"auth.url":           syncconfig.GetAuthURL,
	"sync.auto.interval": func() string { return syncconfig.GetAutoSyncInterval().String() },
	"sync.auto.on_start": func() string { return fmt.Sprint(syncconfig.GetAutoSyncOnStart()) },
	"sync.timeout":       func() string { return syncconfig.GetTimeout().String() },
	"sync.dead_letter":   func() string { return fmt.Sprint(syncconfig.GetDeadLetter()) },
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if err := checkConfigKey(key); err != nil {
			return err
		}

		cfg, err := syncconfig.LoadConfig()
		if err != nil {
			return fail("load config: %v", err)
		}
		val, err := cfg.Get(key)
		if err != nil {
			return err
		}
		if val == "" {
			if def, ok := configDefaults[key]; ok {
				val = def() + " (default)"
			}
		}
		fmt.Println(val)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all config values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := syncconfig.LoadConfig()
		if err != nil {
			return fail("load config: %v", err)
		}

		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fail("marshal config: %v", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}
