package cmd

import (
	"fmt"

	"github.com/bandungraya/gudang/internal/db"
	"github.com/bandungraya/gudang/internal/output"
	"github.com/bandungraya/gudang/internal/syncconfig"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Show version",
	GroupID: "system",
	Run: func(cmd *cobra.Command, args []string) {
		if short, _ := cmd.Flags().GetBool("short"); short {
			fmt.Print(version)
			return
		}
		fmt.Printf("gudang version %s\n", version)
	},
}

var upgradeCmd = &cobra.Command{
	Use:     "upgrade",
	Short:   "Run local database migrations",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := syncconfig.DataDir()
		if err != nil {
			return err
		}
		database, err := db.Open(dir)
		if err != nil {
			return fail("open database: %v", err)
		}
		defer database.Close()

		// Open already migrates; this reports the result and reruns any
		// migration a concurrent process skipped.
		n, err := database.RunMigrations()
		if err != nil {
			return fail("migrate: %v", err)
		}
		v, err := database.GetSchemaVersion()
		if err != nil {
			return fail("read schema version: %v", err)
		}
		if n == 0 {
			output.Success("Database is up to date (schema v%d)", v)
		} else {
			output.Success("Applied %d migration(s), now at schema v%d", n, v)
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("short", false, "print only the version")
	rootCmd.AddCommand(versionCmd, upgradeCmd)
}
