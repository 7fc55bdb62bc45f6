package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/bandungraya/gudang/internal/models"
	"github.com/bandungraya/gudang/internal/output"
	"github.com/bandungraya/gudang/internal/queue"
	gsync "github.com/bandungraya/gudang/internal/sync"
	"github.com/bandungraya/gudang/internal/syncconfig"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Send queued changes and refresh the local cache",
	GroupID: "sync",
	Long: `Replays every queued change in order, then reloads all collections from
the server into the local cache. With --offline only the cache is read.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if isOffline() || syncconfig.GetAPIURL() == "" {
			res := a.hydrate(ctx)
			printHydrate(res)
			return nil
		}

		res := a.sync.OnConnectivityRestored(ctx)
		printSync(res)
		if res.Hydrate.Err != nil {
			return fail("refresh: %v", res.Hydrate.Err)
		}
		return nil
	},
}

// rejection labels why a queued request was dropped
func rejection(dl queue.DeadLetter) string {
	if dl.Status == 0 {
		return "unsendable"
	}
	return fmt.Sprintf("HTTP %d", dl.Status)
}

func printSync(res gsync.SyncResult) {
	r := res.Replay
	if r.Delivered > 0 || r.Remaining > 0 || len(r.Rejected) > 0 {
		fmt.Printf("Queue: %d sent, %d rejected, %d remaining\n", r.Delivered, len(r.Rejected), r.Remaining)
	}
	for _, dl := range r.Rejected {
		output.Warning("rejected %s %s: %s %s", dl.Request.Method, dl.Request.URL, rejection(dl), dl.Response)
	}
	if r.Err != nil {
		output.Warning("replay stopped: %v", r.Err)
	}
	printHydrate(res.Hydrate)
}

func printHydrate(res gsync.HydrateResult) {
	if res.Source == gsync.SourceCache && res.Err != nil {
		output.Warning("server unavailable, using local cache: %v", res.Err)
	}
	if res.CacheErr != nil {
		output.Warning("local cache: %v", res.CacheErr)
	}
	fmt.Printf("Data from %s:", res.Source)
	for _, name := range models.Collections {
		fmt.Printf(" %s=%d", name, res.Counts[name])
	}
	fmt.Println()
}

var queueCmd = &cobra.Command{
	Use:     "queue",
	Short:   "Inspect changes waiting to be sent",
	GroupID: "sync",
}

var queueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List queued requests, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		pending, err := a.queue.ListPending(ctx)
		if err != nil {
			return fail("read queue: %v", err)
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(pending)
		}
		if len(pending) == 0 {
			fmt.Println("Queue is empty.")
			return nil
		}
		for _, r := range pending {
			fmt.Printf("%4d  %-6s %s  %s\n", r.ID, r.Method, r.URL, output.FormatTimeAgo(r.Timestamp))
		}
		return nil
	},
}

var queueReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Send queued requests now without refreshing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireServer(); err != nil {
			return err
		}

		r := a.queue.Replay(ctx, a.api.ReplayDoer())
		fmt.Printf("%d sent, %d rejected, %d remaining\n", r.Delivered, len(r.Rejected), r.Remaining)
		for _, dl := range r.Rejected {
			output.Warning("rejected %s %s: %s", dl.Request.Method, dl.Request.URL, rejection(dl))
		}
		if r.Err != nil {
			return fail("replay: %v", r.Err)
		}
		return nil
	},
}

var queueDropCmd = &cobra.Command{
	Use:   "drop <id>",
	Short: "Discard a queued request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.queue.Remove(ctx, id); err != nil {
			return fail("drop: %v", err)
		}
		output.Success("Dropped request %d", id)
		return nil
	},
}

var queueDeadCmd = &cobra.Command{
	Use:   "dead",
	Short: "List requests the server rejected during replay",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if clearAll, _ := cmd.Flags().GetBool("clear"); clearAll {
			n, err := a.queue.ClearDeadLetters(ctx)
			if err != nil {
				return fail("clear: %v", err)
			}
			output.Success("Cleared %d rejected request(s)", n)
			return nil
		}

		dead, err := a.queue.ListDeadLetters(ctx)
		if err != nil {
			return fail("read rejected requests: %v", err)
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(dead)
		}
		if len(dead) == 0 {
			fmt.Println("No rejected requests.")
			return nil
		}
		for _, dl := range dead {
			fmt.Printf("%4d  %-8s  %-6s %s  %s\n", dl.ID, rejection(dl), dl.Request.Method, dl.Request.URL, output.FormatTimeAgo(dl.RejectedAt))
			if dl.Response != "" {
				fmt.Println(output.IndentString(dl.Response, 6))
			}
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show connection, cache and queue state",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		online := !isOffline() && syncconfig.GetAPIURL() != ""
		if online {
			reach := gsync.HTTPReach(syncconfig.GetAPIURL(), syncconfig.GetTimeout())
			online = reach(ctx)
		}
		last, err := a.cache.LastSync()
		if err != nil {
			return fail("read cache: %v", err)
		}
		counts, err := a.cache.Counts(ctx)
		if err != nil {
			return fail("read cache: %v", err)
		}
		pending, err := a.queue.Count(ctx)
		if err != nil {
			return fail("read queue: %v", err)
		}

		fmt.Printf("Server:    %s %s\n", output.FormatConnection(online), syncconfig.GetAPIURL())
		fmt.Printf("Last sync: %s\n", output.FormatLastSync(last))
		fmt.Printf("Pending:   %d\n", pending)
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, string(name))
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-12s %d cached\n", name, counts[models.CollectionName(name)])
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stay running and sync whenever the server comes back",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireServer(); err != nil {
			return err
		}

		interval, _ := cmd.Flags().GetDuration("interval")
		if interval <= 0 {
			interval = syncconfig.GetAutoSyncInterval()
		}
		if syncconfig.GetAutoSyncOnStart() {
			printSync(a.sync.OnConnectivityRestored(ctx))
		} else {
			a.hydrate(ctx)
		}

		output.Info("Watching %s every %s (Ctrl+C to stop)", syncconfig.GetAPIURL(), interval)
		err = a.sync.Watch(ctx, interval, gsync.HTTPReach(syncconfig.GetAPIURL(), syncconfig.GetTimeout()), func(res gsync.SyncResult) {
			fmt.Printf("[%s] ", time.Now().Format("15:04:05"))
			printSync(res)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	queueListCmd.Flags().Bool("json", false, "output JSON")
	queueDeadCmd.Flags().Bool("json", false, "output JSON")
	queueDeadCmd.Flags().Bool("clear", false, "delete every rejected request")
	watchCmd.Flags().Duration("interval", 0, "reachability check interval (default sync.auto.interval)")

	queueCmd.AddCommand(queueListCmd, queueReplayCmd, queueDropCmd, queueDeadCmd)
	rootCmd.AddCommand(syncCmd, queueCmd, statusCmd, watchCmd)
}
