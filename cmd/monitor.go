package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gsync "github.com/bandungraya/gudang/internal/sync"
	"github.com/bandungraya/gudang/internal/syncconfig"
	"github.com/bandungraya/gudang/internal/tui/monitor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard of products, ledgers and the offline queue",
	Long: `Launch a live-updating dashboard showing the cached collections, the
connection status and how many changes wait to be sent. A background
watcher checks the server and catches up when it comes back.

Key bindings:
  Tab/Shift+Tab  Switch panels
  1/2/3/4        Products, receivables, payables, vendors
  j/k            Scroll
  /              Search
  r              Send queued changes and reload
  ?              Toggle help
  q              Quit`,
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		interval, _ := cmd.Flags().GetDuration("interval")
		if interval < 500*time.Millisecond {
			interval = 2 * time.Second
		}

		events, stop := a.state.Events(64)
		defer stop()

		model := monitor.NewModel(monitor.Options{
			Store:    a.state,
			Pending:  a.queue.Count,
			Sync:     a.sync.OnConnectivityRestored,
			Interval: interval,
		}, events)

		// background work must stop before the database closes
		var wg sync.WaitGroup
		defer wg.Wait()
		defer cancel()

		wg.Add(1)
		go func() {
			defer wg.Done()
			a.sync.Hydrate(ctx)
		}()
		if !isOffline() && syncconfig.GetAPIURL() != "" {
			reach := gsync.HTTPReach(syncconfig.GetAPIURL(), syncconfig.GetTimeout())
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := a.sync.Watch(ctx, syncconfig.GetAutoSyncInterval(), reach, nil); err != nil && ctx.Err() == nil {
					slog.Warn("monitor: watcher stopped", "err", err)
				}
			}()
		}

		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("error running monitor: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().Duration("interval", 2*time.Second, "queue refresh interval")
}
