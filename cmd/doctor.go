package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/bandungraya/gudang/internal/gateway"
	gsync "github.com/bandungraya/gudang/internal/sync"
	"github.com/bandungraya/gudang/internal/syncconfig"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Short:   "Run diagnostic checks for the server connection and local data",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// 1. Config
		apiURL := syncconfig.GetAPIURL()
		if apiURL == "" {
			fmt.Printf("API config ............. FAIL (api.url not set)\n")
		} else if syncconfig.GetAnonKey() == "" {
			fmt.Printf("API config ............. WARN (api.anon_key not set)\n")
		} else {
			fmt.Printf("API config ............. OK (%s)\n", apiURL)
		}

		// 2. Local database
		a, err := openApp(ctx)
		if err != nil {
			fmt.Printf("Local database ......... FAIL (%v)\n", err)
			return nil
		}
		defer a.Close()
		schemaVersion, err := a.db.GetSchemaVersion()
		if err != nil {
			fmt.Printf("Local database ......... FAIL (%v)\n", err)
		} else {
			fmt.Printf("Local database ......... OK (schema v%d, %s)\n", schemaVersion, a.db.BaseDir())
		}

		// 3. Server reachable
		serverOK := false
		switch {
		case isOffline():
			fmt.Printf("Server reachable ....... SKIP (offline mode)\n")
		case apiURL == "":
			fmt.Printf("Server reachable ....... SKIP\n")
		default:
			serverOK = gsync.HTTPReach(apiURL, syncconfig.GetTimeout())(ctx)
			if serverOK {
				fmt.Printf("Server reachable ....... OK\n")
			} else {
				fmt.Printf("Server reachable ....... FAIL (no response within %s)\n", syncconfig.GetTimeout())
			}
		}

		// 4. Login
		sess, err := a.session.Load()
		switch {
		case err != nil:
			fmt.Printf("Login .................. FAIL (%v)\n", err)
		case sess == nil:
			fmt.Printf("Login .................. FAIL (not logged in)\n")
		case !serverOK:
			fmt.Printf("Login .................. OK (%s, not verified)\n", sess.User.Email)
		default:
			if _, err := a.session.Token(ctx); errors.Is(err, gateway.ErrAuthRequired) {
				fmt.Printf("Login .................. FAIL (%v)\n", err)
			} else if err != nil {
				fmt.Printf("Login .................. WARN (%v)\n", err)
			} else {
				fmt.Printf("Login .................. OK (%s)\n", sess.User.Email)
			}
		}

		// 5. Cache freshness
		last, err := a.cache.LastSync()
		switch {
		case err != nil:
			fmt.Printf("Local cache ............ FAIL (%v)\n", err)
		case last.IsZero():
			fmt.Printf("Local cache ............ WARN (never synced)\n")
		case time.Since(last) > 24*time.Hour:
			fmt.Printf("Local cache ............ WARN (last sync %s)\n", last.Local().Format("2006-01-02 15:04"))
		default:
			fmt.Printf("Local cache ............ OK (last sync %s)\n", last.Local().Format("2006-01-02 15:04"))
		}

		// 6. Queue
		if n, err := a.queue.Count(ctx); err != nil {
			fmt.Printf("Pending changes ........ FAIL (%v)\n", err)
		} else {
			fmt.Printf("Pending changes ........ %d\n", n)
		}
		if dead, err := a.queue.ListDeadLetters(ctx); err == nil && len(dead) > 0 {
			fmt.Printf("Rejected changes ....... WARN (%d, see 'gudang queue dead')\n", len(dead))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
