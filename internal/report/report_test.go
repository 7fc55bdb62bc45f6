package report

import (
	"strings"
	"testing"
	"time"

	"github.com/bandungraya/gudang/internal/models"
	"github.com/bandungraya/gudang/internal/state"
)

func mustRecords(t *testing.T, js string) []models.Record {
	t.Helper()
	rs, err := models.DecodeRecords([]byte(js))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rs
}

func seeded(t *testing.T) *state.Store {
	t.Helper()
	st := state.New()
	st.SetCollection(models.Products, mustRecords(t, `[
		{"id":1,"nama":"Beras Premium","kode_produk":"BRS-01","sisa_stok":10,"unit":"sak"},
		{"id":2,"nama":"Gula | Pasir","kode_produk":"GLA-01","sisa_stok":3,"unit":"kg"},
		{"id":3,"nama":"Minyak Goreng","kode_produk":"MYK-01","sisa_stok":0}
	]`))
	st.SetCollection(models.Receivables, mustRecords(t, `[
		{"id":10,"invoice_id":"INV-10","outlet_name":"Toko Sinar","total_tagihan":100000,"status":"Lunas","created_at":"2025-03-01T08:00:00"},
		{"id":11,"invoice_id":"INV-11","outlet_name":"Toko Bulan","total_tagihan":250000,"tanggal_jatuh_tempo":"2025-03-05","created_at":"2025-02-20T08:00:00"}
	]`))
	st.SetCollection(models.Payables, mustRecords(t, `[
		{"id":20,"no_nota_vendor":"NV-1","nama_vendor":"CV Maju","total_tagihan":75000,"created_at":"2025-02-01T09:00:00"}
	]`))
	return st
}

var now = time.Date(2025, 3, 25, 12, 0, 0, 0, time.Local)

func TestBuildFigures(t *testing.T) {
	r := Build(seeded(t), now)
	if r.Summary.TotalProduk != 3 || r.Summary.ProdukHabis != 1 || r.Summary.ProdukStokRendah != 1 {
		t.Errorf("product counts: %+v", r.Summary)
	}
	if got := r.Receivable.Total.String(); got != "350000" {
		t.Errorf("receivable total = %s", got)
	}
	if got := r.Payable.BelumLunas.String(); got != "75000" {
		t.Errorf("payable unpaid = %s", got)
	}
	if !r.Online {
		t.Error("fresh store should report online")
	}
}

func TestMarkdownSections(t *testing.T) {
	md := Build(seeded(t), now).Markdown()
	for _, want := range []string{
		"# Laporan Gudang",
		"Dibuat 2025-03-25 12:00",
		"## Ringkasan",
		"| Total produk | 3 |",
		"| Piutang | Rp 100.000 | Rp 250.000 | Rp 350.000 |",
		"## Stok habis",
		"Minyak Goreng",
		"## Stok rendah",
		`Gula \| Pasir`,
		"3 kg",
		"## Hutang belum lunas",
		"| NV-1 | CV Maju | - | Rp 75.000 |",
		"## Piutang belum lunas",
		"| INV-11 | Toko Bulan | 2025-03-05 | Rp 250.000 |",
		"## Peringatan",
		"Stok Habis",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
	if strings.Contains(md, "Data offline") {
		t.Error("online report should not carry the offline note")
	}
}

func TestMarkdownOfflineRangeAndPending(t *testing.T) {
	st := seeded(t)
	st.SetOnline(false)
	st.SetDateRange(time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local), time.Date(2025, 3, 25, 0, 0, 0, 0, time.Local))
	r := Build(st, now)
	r.Pending = 2
	md := r.Markdown()

	for _, want := range []string{
		"periode 2025-03-01 s/d 2025-03-25",
		"Data offline dari cache lokal (sinkron terakhir: never)",
		"2 perubahan menunggu dikirim",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestMarkdownEmptyStore(t *testing.T) {
	md := Build(state.New(), now).Markdown()
	if strings.Contains(md, "## Stok habis") || strings.Contains(md, "## Peringatan") {
		t.Errorf("empty store should omit detail sections:\n%s", md)
	}
	if !strings.Contains(md, "| Total produk | 0 |") {
		t.Errorf("empty summary missing:\n%s", md)
	}
}
