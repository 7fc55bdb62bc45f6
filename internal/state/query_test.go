package state

import (
	"testing"
	"time"

	"github.com/bandungraya/gudang/internal/models"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	s.SetCollection(models.Products, records(t, `[
		{"id":1,"nama":"Beras Premium","kode_produk":"BRS-01","sisa_stok":10},
		{"id":2,"nama":"Gula Pasir","kode_produk":"GLA-01","sisa_stok":3},
		{"id":3,"nama":"Minyak Goreng","kode_produk":"MYK-01","sisa_stok":0},
		{"id":4,"nama":"Tepung","kode_produk":"TPG-01","sisa_stok":5}
	]`))
	s.SetCollection(models.Receivables, records(t, `[
		{"id":10,"invoice_id":"INV-10","outlet_name":"Toko Sinar","total_tagihan":100000,"status":"Lunas","tanggal_pengiriman":"2025-03-01","created_at":"2025-03-01T08:00:00"},
		{"id":11,"invoice_id":"INV-11","outlet_name":"Toko Bulan","total_tagihan":250000,"tanggal_pengiriman":"2025-03-20","created_at":"2025-03-20T08:00:00"},
		{"id":12,"invoice_id":"INV-12","outlet_name":"Toko Sinar","total_tagihan":50000,"status":"Belum Lunas","tanggal_pengiriman":"2025-01-05","created_at":"2025-01-05T08:00:00"}
	]`))
	s.SetCollection(models.Payables, records(t, `[
		{"id":20,"no_nota_vendor":"NV-1","nama_vendor":"CV Maju","total_tagihan":75000,"tanggal_nota":"2025-02-01","created_at":"2025-02-01T09:00:00"},
		{"id":21,"no_nota_vendor":"NV-2","nama_vendor":"PT Jaya","total_tagihan":30000,"status":"Lunas","tanggal_nota":"2025-03-10","created_at":"2025-03-10T09:00:00"}
	]`))
	return s
}

var march25 = time.Date(2025, 3, 25, 12, 0, 0, 0, time.Local)

func ids(rs []models.Record) []string {
	var out []string
	for _, r := range rs {
		id, _ := r.ID()
		out = append(out, id)
	}
	return out
}

func TestSearch_ProductStockFilters(t *testing.T) {
	s := seeded(t)
	if got := ids(s.Search(models.Products, "", Filter{Status: StockHabis})); len(got) != 1 || got[0] != "3" {
		t.Errorf("habis = %v", got)
	}
	got := ids(s.Search(models.Products, "", Filter{Status: StockLow}))
	if len(got) != 2 || got[0] != "2" || got[1] != "4" {
		t.Errorf("rendah = %v", got)
	}
	if got := s.Search(models.Products, "", Filter{Status: StockAll}); len(got) != 4 {
		t.Errorf("all = %d records", len(got))
	}
}

func TestSearch_ProductFuzzy(t *testing.T) {
	s := seeded(t)
	got := ids(s.Search(models.Products, "gula", Filter{}))
	if len(got) != 1 || got[0] != "2" {
		t.Errorf("gula = %v", got)
	}
	got = ids(s.Search(models.Products, "MYK", Filter{}))
	if len(got) != 1 || got[0] != "3" {
		t.Errorf("MYK = %v", got)
	}
	if got := s.Search(models.Products, "zzz", Filter{}); len(got) != 0 {
		t.Errorf("zzz = %v", ids(got))
	}
}

func TestSearch_Ledgers(t *testing.T) {
	s := seeded(t)
	got := ids(s.Search(models.Receivables, "sinar", Filter{}))
	if len(got) != 2 {
		t.Errorf("sinar = %v", got)
	}
	got = ids(s.Search(models.Receivables, "sinar", Filter{Status: "belum lunas"}))
	if len(got) != 1 || got[0] != "12" {
		t.Errorf("sinar unpaid = %v", got)
	}
	// missing status counts as unpaid
	got = ids(s.Search(models.Receivables, "", Filter{Status: models.StatusBelumLunas}))
	if len(got) != 2 {
		t.Errorf("unpaid = %v", got)
	}
	got = ids(s.Search(models.Payables, "", Filter{Fields: map[string]string{"nama_vendor": "jaya"}}))
	if len(got) != 1 || got[0] != "21" {
		t.Errorf("field filter = %v", got)
	}
}

func TestSummary_NoRange(t *testing.T) {
	s := seeded(t)
	sum := s.Summary(march25)

	if sum.TotalProduk != 4 || sum.ProdukHabis != 1 || sum.ProdukStokRendah != 2 {
		t.Errorf("product counts = %d/%d/%d", sum.TotalProduk, sum.ProdukHabis, sum.ProdukStokRendah)
	}
	if !sum.TotalPiutang.Equal(d("300000")) {
		t.Errorf("total piutang = %s", sum.TotalPiutang)
	}
	if !sum.TotalHutang.Equal(d("75000")) {
		t.Errorf("total hutang = %s", sum.TotalHutang)
	}
	if sum.TotalTransaksi != 3 {
		t.Errorf("transactions = %d", sum.TotalTransaksi)
	}
	if !sum.RataRata.Equal(d("133333.33")) {
		t.Errorf("average = %s", sum.RataRata)
	}
	if got := ids(sum.PiutangOverdue); len(got) != 1 || got[0] != "12" {
		t.Errorf("piutang overdue = %v", got)
	}
	if got := ids(sum.HutangOverdue); len(got) != 1 || got[0] != "20" {
		t.Errorf("hutang overdue = %v", got)
	}
	// March has 2 receivables, February none
	if sum.Trends.Piutang != 100 {
		t.Errorf("piutang growth = %v", sum.Trends.Piutang)
	}
	// payables: February 1, March 1
	if sum.Trends.Hutang != 0 {
		t.Errorf("hutang growth = %v", sum.Trends.Hutang)
	}
}

func TestSummary_DateRangeInclusiveEnd(t *testing.T) {
	s := seeded(t)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2025, 3, 20, 0, 0, 0, 0, time.Local)
	s.SetDateRange(start, end)

	sum := s.Summary(march25)
	if sum.TotalTransaksi != 2 {
		t.Errorf("transactions in range = %d, want 2", sum.TotalTransaksi)
	}
	if !sum.TotalPiutang.Equal(d("250000")) {
		t.Errorf("piutang in range = %s", sum.TotalPiutang)
	}
	if !sum.TotalHutang.Equal(d("0")) {
		t.Errorf("hutang in range = %s", sum.TotalHutang)
	}
	if sum.TotalProduk != 4 {
		t.Error("product counts must ignore the date range")
	}
}

func TestGrowthRate(t *testing.T) {
	tests := []struct {
		old, cur int
		want     float64
	}{
		{0, 0, 0},
		{0, 3, 100},
		{2, 3, 50},
		{4, 2, -50},
	}
	for _, tt := range tests {
		if got := GrowthRate(tt.old, tt.cur); got != tt.want {
			t.Errorf("GrowthRate(%d, %d) = %v, want %v", tt.old, tt.cur, got, tt.want)
		}
	}
}

func TestAlerts_PriorityOrder(t *testing.T) {
	s := seeded(t)
	alerts := s.Alerts(march25)
	if len(alerts) != 4 {
		t.Fatalf("alerts = %+v", alerts)
	}
	wantTitles := []string{"Stok Habis", "Hutang Jatuh Tempo", "Stok Rendah", "Piutang Jatuh Tempo"}
	for i, a := range alerts {
		if a.Title != wantTitles[i] {
			t.Errorf("alert %d = %q, want %q", i, a.Title, wantTitles[i])
		}
	}
	if New().Alerts(march25) != nil {
		t.Error("empty store produced alerts")
	}
}

func TestFinancialSummary(t *testing.T) {
	s := seeded(t)
	f := s.FinancialSummary(models.LedgerReceivable)
	if !f.Lunas.Equal(d("100000")) || !f.BelumLunas.Equal(d("300000")) || !f.Total.Equal(d("400000")) {
		t.Errorf("receivables = %+v", f)
	}
	f = s.FinancialSummary(models.LedgerPayable)
	if !f.Lunas.Equal(d("30000")) || !f.BelumLunas.Equal(d("75000")) {
		t.Errorf("payables = %+v", f)
	}
}

func TestDetails(t *testing.T) {
	s := seeded(t)
	det := s.Details(march25)
	if len(det.ProdukHabis) != 1 || len(det.ProdukStokRendah) != 2 {
		t.Errorf("product details = %d/%d", len(det.ProdukHabis), len(det.ProdukStokRendah))
	}
	if len(det.PiutangJatuhTempo) != 2 || len(det.HutangJatuhTempo) != 1 {
		t.Errorf("ledger details = %d/%d", len(det.PiutangJatuhTempo), len(det.HutangJatuhTempo))
	}
	if len(det.Alerts) == 0 {
		t.Error("details missing alerts")
	}
}
