package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bandungraya/gudang/internal/models"
	"github.com/bandungraya/gudang/internal/output"
	"github.com/bandungraya/gudang/internal/state"
	"github.com/spf13/cobra"
)

var vendorsCmd = &cobra.Command{
	Use:     "vendors",
	Aliases: []string{"vendor"},
	Short:   "List and manage vendors",
	GroupID: "data",
}

var vendorsListCmd = &cobra.Command{
	Use:     "list [query]",
	Aliases: []string{"ls"},
	Short:   "List vendors",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		a.hydrate(ctx)

		rows := a.state.Search(models.Vendors, strings.Join(args, " "), state.Filter{})
		return printRecords(cmd, rows, output.FormatVendorLine, "No vendors.")
	},
}

var vendorsAddCmd = &cobra.Command{
	Use:   "add <nama>",
	Short: "Add a vendor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nama := strings.TrimSpace(args[0])
		if len(nama) < 2 {
			return fmt.Errorf("vendor name must be at least 2 characters")
		}
		payload := map[string]string{"nama_vendor": nama}
		for _, f := range []string{"kontak", "alamat"} {
			if v, _ := cmd.Flags().GetString(f); v != "" {
				payload[f] = v
			}
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		resp := a.api.ManageVendors(ctx, models.ManageRequest{Action: models.ManageAdd, Payload: payload})
		return reportResult(resp, fmt.Sprintf("Vendor %s added", nama))
	},
}

var vendorsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a vendor",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		resp := a.api.ManageVendors(ctx, models.ManageRequest{
			Action:  models.ManageDelete,
			Payload: map[string]models.ID{"id": models.ID(args[0])},
		})
		return reportResult(resp, fmt.Sprintf("Vendor %s deleted", args[0]))
	},
}

var outletsCmd = &cobra.Command{
	Use:     "outlets",
	Short:   "List outlet names known to the server",
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var outlets []string
		if !isOffline() && a.requireServer() == nil {
			outlets, err = a.api.Outlets(ctx)
			if err != nil {
				output.Warning("server unavailable, listing outlets from cached receivables: %v", err)
			}
		}
		if outlets == nil {
			a.hydrate(ctx)
			outlets = cachedOutlets(a.state)
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(outlets)
		}
		for _, o := range outlets {
			fmt.Println(o)
		}
		return nil
	},
}

// cachedOutlets collects distinct outlet names from receivables
func cachedOutlets(st *state.Store) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, r := range st.GetCollection(models.Receivables) {
		name := strings.TrimSpace(r.String("outlet_name"))
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

var proofCmd = &cobra.Command{
	Use:     "proof",
	Aliases: []string{"bukti"},
	Short:   "Attach or remove payment proofs",
	GroupID: "transactions",
}

var proofUploadCmd = &cobra.Command{
	Use:   "upload <type> <id> <file>",
	Short: "Upload a transfer proof; the server marks the transaction paid",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := models.ParseLedgerType(args[0])
		if err != nil {
			return err
		}
		f, err := os.Open(args[2])
		if err != nil {
			return err
		}
		defer f.Close()

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireServer(); err != nil {
			return err
		}

		id := args[1]
		up, resp := a.api.UploadProof(ctx, ledger, id, filepath.Base(args[2]), f)
		if resp.Err != nil {
			return fail("upload proof: %v", resp.Err)
		}
		a.state.UpdateProofURL(ledger, id, &up.URL)
		if up.NewStatus != "" {
			a.state.UpdateItemStatus(ledger, id, up.NewStatus)
		}
		output.Success("Proof attached to %s %s", ledger, id)
		return nil
	},
}

var proofDeleteCmd = &cobra.Command{
	Use:     "delete <type> <id>",
	Aliases: []string{"rm"},
	Short:   "Remove the transfer proof of a transaction",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := models.ParseLedgerType(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		a.hydrate(ctx)

		id := args[1]
		rec, ok := a.state.Find(ledger.Collection(), id)
		if !ok {
			return fmt.Errorf("%s %s not found", ledger, id)
		}
		url := rec.String("bukti_transfer")
		if url == "" {
			return fmt.Errorf("%s %s has no proof", ledger, id)
		}
		resp := a.api.DeleteProof(ctx, models.ProofRef{Type: ledger, ID: models.ID(id), BuktiURL: url})
		if resp.Err == nil {
			a.state.UpdateProofURL(ledger, id, nil)
		}
		return reportResult(resp, fmt.Sprintf("Proof of %s %s removed", ledger, id))
	},
}

func init() {
	vendorsListCmd.Flags().Bool("json", false, "output JSON")
	vendorsAddCmd.Flags().String("kontak", "", "contact person or phone")
	vendorsAddCmd.Flags().String("alamat", "", "address")
	outletsCmd.Flags().Bool("json", false, "output JSON")

	vendorsCmd.AddCommand(vendorsListCmd, vendorsAddCmd, vendorsDeleteCmd)
	proofCmd.AddCommand(proofUploadCmd, proofDeleteCmd)
	rootCmd.AddCommand(vendorsCmd, outletsCmd, proofCmd)
}
