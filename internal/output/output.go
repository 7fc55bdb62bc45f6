// Package output provides styled terminal output helpers (success, queued,
// error, warning, record formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bandungraya/gudang/internal/models"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	queuedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusStyles = map[string]lipgloss.Style{
		models.StatusLunas:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.StatusBelumLunas: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)

// QueuedNotice is shown when a mutation could not reach the server and was
// saved for later delivery.
const QueuedNotice = "Offline: perubahan disimpan dan akan dikirim saat online"

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Queued prints the "will be sent when online" notice with an optional detail
func Queued(format string, args ...interface{}) {
	msg := QueuedNotice
	if format != "" {
		msg += " (" + fmt.Sprintf(format, args...) + ")"
	}
	fmt.Println(queuedStyle.Render(msg))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// FormatRupiah formats an amount as whole rupiah with dot thousand
// separators, e.g. "Rp 1.250.000" or "-Rp 5.000".
func FormatRupiah(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return sign + "Rp " + humanize.FormatFloat("#.###,", d.Round(0).InexactFloat64())
}

// FormatQty formats a quantity without trailing zeros
func FormatQty(d decimal.Decimal) string {
	return d.String()
}

// FormatPercent formats a growth rate with one decimal and an explicit sign
func FormatPercent(p float64) string {
	return fmt.Sprintf("%+.1f%%", p)
}

// FormatStatus formats a ledger payment status with color. An empty status
// reads as unpaid.
func FormatStatus(status string) string {
	if strings.TrimSpace(status) == "" {
		status = models.StatusBelumLunas
	}
	if models.IsLunas(status) {
		status = models.StatusLunas
	}
	style, ok := statusStyles[status]
	if !ok {
		return fmt.Sprintf("[%s]", status)
	}
	return style.Render(fmt.Sprintf("[%s]", status))
}

// FormatConnection renders the online/offline indicator
func FormatConnection(online bool) string {
	if online {
		return successStyle.Render("● online")
	}
	return warningStyle.Render("○ offline")
}

// FormatLastSync describes when the cache was last refreshed, e.g.
// "5 minutes ago". A zero time means never.
func FormatLastSync(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// FormatTimeAgo formats a time as a compact "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// FormatProductLine formats a product in one line:
// id, name, code, stock with unit, and selling price.
func FormatProductLine(r models.Record) string {
	id, _ := r.ID()
	var parts []string
	parts = append(parts, titleStyle.Render(id))
	parts = append(parts, r.String("nama"))
	if code := r.String("kode_produk"); code != "" {
		parts = append(parts, subtleStyle.Render(code))
	}
	stock := FormatQty(r.Decimal("sisa_stok"))
	if unit := r.String("unit"); unit != "" {
		stock += " " + unit
	}
	if !r.Decimal("sisa_stok").IsPositive() {
		stock = errorStyle.Render(stock)
	}
	parts = append(parts, stock)
	parts = append(parts, FormatRupiah(r.Decimal("harga_jual")))
	return strings.Join(parts, "  ")
}

// FormatLedgerLine formats a receivable or payable in one line
func FormatLedgerLine(r models.Record) string {
	id, _ := r.ID()
	var parts []string
	parts = append(parts, titleStyle.Render(id))
	ref := r.String("invoice_id")
	if ref == "" {
		ref = r.String("no_nota_vendor")
	}
	if ref != "" {
		parts = append(parts, ref)
	}
	who := r.String("outlet_name")
	if who == "" {
		who = r.String("nama_vendor")
	}
	if who != "" {
		parts = append(parts, who)
	}
	parts = append(parts, FormatRupiah(r.Decimal("total_tagihan")))
	if due := r.String("tanggal_jatuh_tempo"); due != "" {
		parts = append(parts, subtleStyle.Render("jatuh tempo "+due))
	}
	parts = append(parts, FormatStatus(r.String("status")))
	if r.String("bukti_transfer") != "" {
		parts = append(parts, subtleStyle.Render("[bukti]"))
	}
	return strings.Join(parts, "  ")
}

// FormatVendorLine formats a vendor in one line
func FormatVendorLine(r models.Record) string {
	id, _ := r.ID()
	parts := []string{titleStyle.Render(id), r.String("nama_vendor")}
	for _, f := range []string{"kontak", "alamat"} {
		if v := r.String(f); v != "" {
			parts = append(parts, subtleStyle.Render(v))
		}
	}
	return strings.Join(parts, "  ")
}

// FormatUserLine formats a panel user in one line
func FormatUserLine(r models.Record) string {
	id, _ := r.ID()
	parts := []string{titleStyle.Render(id), r.String("nama"), r.String("email"), r.String("role")}
	if v := r.String("outlet"); v != "" {
		parts = append(parts, subtleStyle.Render(v))
	}
	return strings.Join(parts, "  ")
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nPIUTANG:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// IndentString indents each line in a string by the specified number of spaces
func IndentString(s string, spaces int) string {
	if s == "" {
		return ""
	}
	indent := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
