package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bandungraya/gudang/internal/dateparse"
	"github.com/bandungraya/gudang/internal/models"
	"github.com/bandungraya/gudang/internal/output"
	"github.com/bandungraya/gudang/internal/report"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:     "report",
	Aliases: []string{"laporan"},
	Short:   "Dashboard report: stock, receivables, payables and alerts",
	Long: `Builds the dashboard from the local data: summary figures, paid and
unpaid totals, month-over-month trends, alerts and the oldest unpaid
transactions. Works offline from the cache.

--range limits receivables and payables to a date range: this-month,
last-month, this-week, a single date, or A..B (e.g. 2025-01-01..2025-01-31).`,
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		now := time.Now()

		rangeStr, _ := cmd.Flags().GetString("range")
		var start, end time.Time
		if rangeStr != "" {
			var err error
			if start, end, err = dateparse.ParseRangeFrom(rangeStr, now); err != nil {
				return fmt.Errorf("--range: %w", err)
			}
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		a.hydrate(ctx)
		if rangeStr != "" {
			a.state.SetDateRange(start, end)
		}

		r := report.Build(a.state, now)
		if r.LastSync, err = a.cache.LastSync(); err != nil {
			output.Warning("local cache: %v", err)
		}
		if r.Pending, err = a.queue.Count(ctx); err != nil {
			output.Warning("queue: %v", err)
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(r)
		}
		raw, _ := cmd.Flags().GetBool("raw")
		return output.WriteMarkdown(os.Stdout, r.Markdown(), raw)
	},
}

var reportFinanceCmd = &cobra.Command{
	Use:   "finance <piutang|hutang>",
	Short: "Fetch finance report rows from the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := models.ParseLedgerType(args[0])
		if err != nil {
			return err
		}
		req := models.FinanceReportRequest{ReportType: string(ledger)}
		if rangeStr, _ := cmd.Flags().GetString("range"); rangeStr != "" {
			start, end, err := dateparse.ParseRangeFrom(rangeStr, time.Now())
			if err != nil {
				return fmt.Errorf("--range: %w", err)
			}
			req.StartDate, req.EndDate = dateparse.FormatDate(start), dateparse.FormatDate(end)
		}
		req.OutletName, _ = cmd.Flags().GetString("outlet")
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			if req.StatusFilter, err = parseStatus(status); err != nil {
				return err
			}
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

		rows, err := a.api.FinanceReport(ctx, req)
		if err != nil {
			return fail("finance report: %v", err)
		}
		return printRecords(cmd, rows, output.FormatLedgerLine, "No rows.")
	},
}

var reportTemplateCmd = &cobra.Command{
	Use:   "template <name> [file]",
	Short: "Print a stored report template, or replace it from a file (- for stdin)",
	Args:  cobra.RangeArgs(1, 2),
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

		name := args[0]
		if len(args) == 1 {
			content, err := a.api.ReportTemplate(ctx, name)
			if err != nil {
				return fail("read template: %v", err)
			}
			fmt.Print(content)
			if !strings.HasSuffix(content, "\n") {
				fmt.Println()
			}
			return nil
		}

		var data []byte
		if args[1] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[1])
		}
		if err != nil {
			return err
		}
		return reportResult(a.api.SaveReportTemplate(ctx, name, string(data)), fmt.Sprintf("Template %s saved", name))
	},
}

func init() {
	reportCmd.Flags().String("range", "", "date range for receivables and payables")
	reportCmd.Flags().Bool("raw", false, "print markdown without rendering")
	reportCmd.Flags().Bool("json", false, "output JSON")

	reportFinanceCmd.Flags().String("range", "", "date range")
	reportFinanceCmd.Flags().String("outlet", "", "outlet name")
	reportFinanceCmd.Flags().String("status", "", "payment status: lunas, belum-lunas")
	reportFinanceCmd.Flags().Bool("json", false, "output JSON")

	reportCmd.AddCommand(reportFinanceCmd, reportTemplateCmd)
	rootCmd.AddCommand(reportCmd)
}
