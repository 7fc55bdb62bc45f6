package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/bandungraya/gudang/internal/models"
	"github.com/shopspring/decimal"
)

func TestFormatRupiah(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "Rp 0"},
		{"500", "Rp 500"},
		{"1250000", "Rp 1.250.000"},
		{"1000.6", "Rp 1.001"},
		{"-5000", "-Rp 5.000"},
	}
	for _, tc := range tests {
		got := FormatRupiah(decimal.RequireFromString(tc.in))
		if got != tc.want {
			t.Errorf("FormatRupiah(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatQty(t *testing.T) {
	if got := FormatQty(decimal.RequireFromString("2.50")); got != "2.5" {
		t.Errorf("FormatQty = %q, want 2.5", got)
	}
	if got := FormatQty(decimal.NewFromInt(12)); got != "12" {
		t.Errorf("FormatQty = %q, want 12", got)
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(12.345); got != "+12.3%" {
		t.Errorf("got %q", got)
	}
	if got := FormatPercent(-50); got != "-50.0%" {
		t.Errorf("got %q", got)
	}
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Lunas", "Lunas"},
		{"lunas", "Lunas"},
		{"Belum Lunas", "Belum Lunas"},
		{"", "Belum Lunas"},
		{"Dibatalkan", "Dibatalkan"},
	}
	for _, tc := range tests {
		got := FormatStatus(tc.in)
		if !strings.Contains(got, "["+tc.want+"]") {
			t.Errorf("FormatStatus(%q) = %q, want to contain [%s]", tc.in, got, tc.want)
		}
	}
}

func TestFormatConnection(t *testing.T) {
	if !strings.Contains(FormatConnection(true), "online") {
		t.Error("online badge missing text")
	}
	if !strings.Contains(FormatConnection(false), "offline") {
		t.Error("offline badge missing text")
	}
}

func TestFormatLastSync(t *testing.T) {
	if got := FormatLastSync(time.Time{}); got != "never" {
		t.Errorf("zero time: got %q", got)
	}
	got := FormatLastSync(time.Now().Add(-5 * time.Minute))
	if !strings.Contains(got, "minutes ago") {
		t.Errorf("got %q, want '... minutes ago'", got)
	}
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Now()
	tests := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-2 * time.Minute), "2m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-49 * time.Hour), "2d ago"},
	}
	for _, tc := range tests {
		if got := FormatTimeAgo(tc.at); got != tc.want {
			t.Errorf("FormatTimeAgo(%v) = %q, want %q", tc.at, got, tc.want)
		}
	}
	old := now.Add(-30 * 24 * time.Hour)
	if got := FormatTimeAgo(old); got != old.Format("2006-01-02") {
		t.Errorf("old date: got %q", got)
	}
}

func TestFormatProductLine(t *testing.T) {
	r := models.Record{
		"id":          json.Number("7"),
		"nama":        "Beras 5kg",
		"kode_produk": "BR-5",
		"sisa_stok":   json.Number("12"),
		"unit":        "sak",
		"harga_jual":  json.Number("65000"),
	}
	got := FormatProductLine(r)
	for _, want := range []string{"7", "Beras 5kg", "BR-5", "12 sak", "Rp 65.000"} {
		if !strings.Contains(got, want) {
			t.Errorf("product line %q missing %q", got, want)
		}
	}
}

func TestFormatLedgerLine(t *testing.T) {
	r := models.Record{
		"id":                  json.Number("3"),
		"invoice_id":          "INV-001",
		"outlet_name":         "Outlet Dago",
		"total_tagihan":       json.Number("150000"),
		"tanggal_jatuh_tempo": "2025-02-01",
		"status":              "Belum Lunas",
		"bukti_transfer":      "https://files.example.co/p.jpg",
	}
	got := FormatLedgerLine(r)
	for _, want := range []string{"INV-001", "Outlet Dago", "Rp 150.000", "jatuh tempo 2025-02-01", "[Belum Lunas]", "[bukti]"} {
		if !strings.Contains(got, want) {
			t.Errorf("ledger line %q missing %q", got, want)
		}
	}

	payable := models.Record{"id": "9", "no_nota_vendor": "NV-9", "nama_vendor": "CV Maju", "status": "Lunas"}
	got = FormatLedgerLine(payable)
	for _, want := range []string{"NV-9", "CV Maju", "[Lunas]"} {
		if !strings.Contains(got, want) {
			t.Errorf("payable line %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "[bukti]") {
		t.Error("payable without proof should not show [bukti]")
	}
}

func TestFormatVendorLine(t *testing.T) {
	got := FormatVendorLine(models.Record{"id": "1", "nama_vendor": "CV Maju", "kontak": "0812"})
	if !strings.Contains(got, "CV Maju") || !strings.Contains(got, "0812") {
		t.Errorf("vendor line %q", got)
	}
}

func TestFormatUserLine(t *testing.T) {
	got := FormatUserLine(models.Record{"id": "u1", "nama": "Sari", "email": "sari@toko.id", "role": "admin", "outlet": "Cabang Dago"})
	for _, want := range []string{"Sari", "sari@toko.id", "admin", "Cabang Dago"} {
		if !strings.Contains(got, want) {
			t.Errorf("user line %q missing %q", got, want)
		}
	}
}

func TestSectionHeader(t *testing.T) {
	if got := SectionHeader("piutang"); got != "\nPIUTANG:\n" {
		t.Errorf("got %q", got)
	}
}

func TestIndentString(t *testing.T) {
	if got := IndentString("a\nb", 2); got != "  a\n  b" {
		t.Errorf("got %q", got)
	}
	if got := IndentString("", 4); got != "" {
		t.Errorf("empty: got %q", got)
	}
}

func TestWriteMarkdownRaw(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, "# Laporan\n", true); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	if buf.String() != "# Laporan\n" {
		t.Errorf("raw output changed: %q", buf.String())
	}
}

func TestRenderMarkdownWithWidth(t *testing.T) {
	out, err := RenderMarkdownWithWidth("", 80)
	if err != nil || out != "" {
		t.Fatalf("empty input: %q, %v", out, err)
	}
	out, err = RenderMarkdownWithWidth("**Ringkasan** stok", 5)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Ringkasan") {
		t.Errorf("rendered output missing text: %q", out)
	}
}
