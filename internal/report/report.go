// Package report builds the dashboard report as markdown from the state
// store's summary, card details and alerts.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/bandungraya/gudang/internal/dateparse"
	"github.com/bandungraya/gudang/internal/models"
	"github.com/bandungraya/gudang/internal/output"
	"github.com/bandungraya/gudang/internal/state"
)

// Report is a point-in-time dashboard
type Report struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Range       state.DateRange `json:"range"`
	Online      bool            `json:"online"`
	LastSync    time.Time       `json:"last_sync"`
	Pending     int             `json:"pending"`
	Summary     state.Summary   `json:"summary"`
	Receivable  state.Financial `json:"piutang"`
	Payable     state.Financial `json:"hutang"`
	Details     state.Details   `json:"details"`
}

// Build computes a report from the store at now
func Build(st *state.Store, now time.Time) *Report {
	return &Report{
		GeneratedAt: now,
		Range:       st.DateRange(),
		Online:      st.Online(),
		Summary:     st.Summary(now),
		Receivable:  st.FinancialSummary(models.LedgerReceivable),
		Payable:     st.FinancialSummary(models.LedgerPayable),
		Details:     st.Details(now),
	}
}

// Markdown renders the report
func (r *Report) Markdown() string {
	var sb strings.Builder

	sb.WriteString("# Laporan Gudang\n\n")
	fmt.Fprintf(&sb, "Dibuat %s", r.GeneratedAt.Format("2006-01-02 15:04"))
	if r.Range.Active() {
		fmt.Fprintf(&sb, ", periode %s s/d %s", dateparse.FormatDate(r.Range.Start), dateparse.FormatDate(r.Range.End))
	}
	sb.WriteString("\n\n")
	if !r.Online {
		fmt.Fprintf(&sb, "> Data offline dari cache lokal (sinkron terakhir: %s).\n\n", output.FormatLastSync(r.LastSync))
	}
	if r.Pending > 0 {
		fmt.Fprintf(&sb, "> %d perubahan menunggu dikirim ke server.\n\n", r.Pending)
	}

	s := r.Summary
	sb.WriteString("## Ringkasan\n\n")
	sb.WriteString("| Metrik | Nilai |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Total produk | %d |\n", s.TotalProduk)
	fmt.Fprintf(&sb, "| Stok habis | %d |\n", s.ProdukHabis)
	fmt.Fprintf(&sb, "| Stok rendah | %d |\n", s.ProdukStokRendah)
	fmt.Fprintf(&sb, "| Total transaksi | %d |\n", s.TotalTransaksi)
	fmt.Fprintf(&sb, "| Piutang belum lunas | %s |\n", output.FormatRupiah(s.TotalPiutang))
	fmt.Fprintf(&sb, "| Hutang belum lunas | %s |\n", output.FormatRupiah(s.TotalHutang))
	fmt.Fprintf(&sb, "| Rata-rata transaksi | %s |\n", output.FormatRupiah(s.RataRata))
	sb.WriteString("\n")

	sb.WriteString("## Keuangan\n\n")
	sb.WriteString("| | Lunas | Belum lunas | Total |\n|---|---|---|---|\n")
	writeFinancial(&sb, "Piutang", r.Receivable)
	writeFinancial(&sb, "Hutang", r.Payable)
	sb.WriteString("\n")

	sb.WriteString("## Tren bulan ini\n\n")
	fmt.Fprintf(&sb, "- Piutang: %s\n", output.FormatPercent(s.Trends.Piutang))
	fmt.Fprintf(&sb, "- Hutang: %s\n", output.FormatPercent(s.Trends.Hutang))
	fmt.Fprintf(&sb, "- Transaksi: %s\n\n", output.FormatPercent(s.Trends.Transaksi))

	if len(r.Details.Alerts) > 0 {
		sb.WriteString("## Peringatan\n\n")
		for _, a := range r.Details.Alerts {
			fmt.Fprintf(&sb, "- **%s** (%s): %s\n", a.Title, a.Priority, a.Message)
		}
		sb.WriteString("\n")
	}

	writeProducts(&sb, "Stok habis", r.Details.ProdukHabis)
	writeProducts(&sb, "Stok rendah", r.Details.ProdukStokRendah)
	writeLedger(&sb, "Hutang belum lunas", r.Details.HutangJatuhTempo)
	writeLedger(&sb, "Piutang belum lunas", r.Details.PiutangJatuhTempo)

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func writeFinancial(sb *strings.Builder, label string, f state.Financial) {
	fmt.Fprintf(sb, "| %s | %s | %s | %s |\n", label,
		output.FormatRupiah(f.Lunas), output.FormatRupiah(f.BelumLunas), output.FormatRupiah(f.Total))
}

func writeProducts(sb *strings.Builder, title string, records []models.Record) {
	if len(records) == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s\n\n", title)
	sb.WriteString("| Produk | Kode | Sisa stok |\n|---|---|---|\n")
	for _, p := range records {
		stock := output.FormatQty(p.Decimal("sisa_stok"))
		if unit := p.String("unit"); unit != "" {
			stock += " " + unit
		}
		fmt.Fprintf(sb, "| %s | %s | %s |\n", cell(p.String("nama")), cell(p.String("kode_produk")), stock)
	}
	sb.WriteString("\n")
}

func writeLedger(sb *strings.Builder, title string, records []models.Record) {
	if len(records) == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s\n\n", title)
	sb.WriteString("| Nota | Pihak | Jatuh tempo | Tagihan |\n|---|---|---|---|\n")
	for _, r := range records {
		ref := r.String("invoice_id")
		if ref == "" {
			ref = r.String("no_nota_vendor")
		}
		party := r.String("outlet_name")
		if party == "" {
			party = r.String("nama_vendor")
		}
		fmt.Fprintf(sb, "| %s | %s | %s | %s |\n",
			cell(ref), cell(party), cell(r.String("tanggal_jatuh_tempo")), output.FormatRupiah(r.Decimal("total_tagihan")))
	}
	sb.WriteString("\n")
}

// cell escapes pipes so free text cannot break a table row
func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}
