package cmd

import (
	"fmt"
	"strings"

	"github.com/bandungraya/gudang/internal/models"
	"github.com/bandungraya/gudang/internal/output"
	"github.com/bandungraya/gudang/internal/state"
	"github.com/spf13/cobra"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Receivables (piutang) and payables (hutang)",
	Long: `Receivables and payables. <type> is piutang/receivables or
hutang/payables.`,
	GroupID: "transactions",
}

var ledgerListCmd = &cobra.Command{
	Use:     "list <type> [query]",
	Aliases: []string{"ls"},
	Short:   "List transactions of a ledger",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := models.ParseLedgerType(args[0])
		if err != nil {
			return err
		}
		status, _ := cmd.Flags().GetString("status")
		if status != "" && status != state.StockAll {
			if status, err = parseStatus(status); err != nil {
				return err
			}
		}
		outlet, _ := cmd.Flags().GetString("outlet")

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		a.hydrate(ctx)

		f := state.Filter{Status: status}
		if outlet != "" {
			f.Fields = map[string]string{"outlet_name": outlet}
		}
		rows := a.state.Search(ledger.Collection(), strings.Join(args[1:], " "), f)
		if err := printRecords(cmd, rows, output.FormatLedgerLine, "No transactions."); err != nil {
			return err
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); !jsonOut && len(rows) > 0 {
			fin := state.FinancialSummaryOf(rows)
			fmt.Printf("\nLunas %s, belum lunas %s, total %s\n",
				output.FormatRupiah(fin.Lunas), output.FormatRupiah(fin.BelumLunas), output.FormatRupiah(fin.Total))
		}
		return nil
	},
}

// parseStatus maps user input to a payment status
func parseStatus(s string) (string, error) {
	switch strings.ToLower(strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(s))) {
	case "lunas", "paid":
		return models.StatusLunas, nil
	case "belum lunas", "belum", "unpaid":
		return models.StatusBelumLunas, nil
	}
	return "", fmt.Errorf("unknown status %q (lunas or belum-lunas)", s)
}

var ledgerStatusCmd = &cobra.Command{
	Use:   "status <type> <id> <lunas|belum-lunas>",
	Short: "Mark a transaction paid or unpaid",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := models.ParseLedgerType(args[0])
		if err != nil {
			return err
		}
		status, err := parseStatus(args[2])
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
		action := models.UpdateStatus{Type: ledger, ID: models.ID(id), NewStatus: status}
		if rec, ok := a.state.Find(ledger.Collection(), id); ok {
			if url := rec.String("bukti_transfer"); url != "" {
				action.BuktiURL = &url
			}
		}
		resp := a.api.ManageTransaction(ctx, action)
		if resp.Err == nil {
			a.state.UpdateItemStatus(ledger, id, status)
		}
		return reportResult(resp, fmt.Sprintf("%s %s marked %s", ledger, id, status))
	},
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show <type> <id>",
	Short: "Show a transaction with its items",
	Args:  cobra.ExactArgs(2),
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

		var rec models.Record
		if !isOffline() && a.requireServer() == nil {
			rec, err = a.api.TransactionDetails(ctx, models.TransactionRef{Type: ledger, ID: models.ID(args[1])})
			if err != nil {
				output.Warning("details unavailable, showing cached header: %v", err)
			}
		}
		if rec == nil {
			a.hydrate(ctx)
			var ok bool
			if rec, ok = a.state.Find(ledger.Collection(), args[1]); !ok {
				return fmt.Errorf("%s %s not found", ledger, args[1])
			}
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(rec)
		}
		printRecord(rec)
		return nil
	},
}

var ledgerArchiveCmd = &cobra.Command{
	Use:   "archive <type> <id>",
	Short: "Archive a transaction",
	Args:  cobra.ExactArgs(2),
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

		resp := a.api.ArchiveTransaction(ctx, models.TransactionRef{Type: ledger, ID: models.ID(args[1])})
		return reportResult(resp, fmt.Sprintf("%s %s archived", ledger, args[1]))
	},
}

var ledgerSearchCmd = &cobra.Command{
	Use:   "search <type> <term>",
	Short: "Search a ledger on the server, archived rows included",
	Args:  cobra.MinimumNArgs(2),
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
		if err := a.requireServer(); err != nil {
			return err
		}

		rows, err := a.api.SearchLedger(ctx, models.LedgerSearch{Type: ledger, SearchTerm: strings.Join(args[1:], " ")})
		if err != nil {
			return fail("search: %v", err)
		}
		return printRecords(cmd, rows, output.FormatLedgerLine, "No matches.")
	},
}

var ledgerArchivedCmd = &cobra.Command{
	Use:   "archived <type>",
	Short: "List archived transactions (super admin password required)",
	Args:  cobra.ExactArgs(1),
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
		if err := verifySuperAdmin(ctx, cmd, a); err != nil {
			return err
		}

		snap, err := a.api.ArchivedData(ctx)
		if err != nil {
			return fail("archived data: %v", err)
		}
		return printRecords(cmd, snap[ledger.Collection()], output.FormatLedgerLine, "No archived transactions.")
	},
}

func init() {
	ledgerListCmd.Flags().String("status", "", "payment status: lunas, belum-lunas")
	ledgerListCmd.Flags().String("outlet", "", "filter by outlet name")
	ledgerArchivedCmd.Flags().String("super-password", "", "super admin password (prompted when omitted)")
	for _, c := range []*cobra.Command{ledgerListCmd, ledgerShowCmd, ledgerSearchCmd, ledgerArchivedCmd} {
		c.Flags().Bool("json", false, "output JSON")
	}

	ledgerCmd.AddCommand(ledgerListCmd, ledgerStatusCmd, ledgerShowCmd, ledgerArchiveCmd, ledgerSearchCmd, ledgerArchivedCmd)
	rootCmd.AddCommand(ledgerCmd)
}
