package state

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bandungraya/gudang/internal/models"
	"github.com/sahilm/fuzzy"
	"github.com/shopspring/decimal"
)

// Product stock filters
const (
	StockAll   = "all"
	StockHabis = "habis"  // out of stock
	StockLow   = "rendah" // 0 < stock <= LowStockThreshold
)

// LowStockThreshold is the highest remaining stock still counted as low
var LowStockThreshold = decimal.NewFromInt(5)

// overdueDays is how many days an unpaid transaction may stay open
const overdueDays = 30

// Filter narrows a Search. Status is a stock filter for products and a
// payment status for ledgers. Fields are case-insensitive substring
// filters on arbitrary record fields.
type Filter struct {
	Status string
	Fields map[string]string
}

// Search returns records of a collection matching query and filter.
// Products are matched fuzzily on name and code, best match first; other
// collections by substring on their reference fields.
func (s *Store) Search(name models.CollectionName, query string, f Filter) []models.Record {
	records := s.GetCollection(name)
	query = strings.ToLower(strings.TrimSpace(query))

	filtered := records[:0]
	for _, r := range records {
		if matchesFilter(name, r, f) {
			filtered = append(filtered, r)
		}
	}
	if query == "" {
		return filtered
	}

	if name == models.Products {
		return fuzzyProducts(filtered, query)
	}

	var out []models.Record
	for _, r := range filtered {
		if strings.Contains(searchText(name, r), query) {
			out = append(out, r)
		}
	}
	return out
}

func matchesFilter(name models.CollectionName, r models.Record, f Filter) bool {
	for k, v := range f.Fields {
		if v == "" || v == StockAll {
			continue
		}
		if !strings.Contains(strings.ToLower(r.String(k)), strings.ToLower(v)) {
			return false
		}
	}
	if f.Status == "" || f.Status == StockAll {
		return true
	}
	if name == models.Products {
		stok := r.Decimal("sisa_stok")
		switch f.Status {
		case StockHabis:
			return !stok.IsPositive()
		case StockLow:
			return isLowStock(stok)
		}
		return true
	}
	return strings.EqualFold(statusOf(r), f.Status)
}

func isLowStock(stok decimal.Decimal) bool {
	return stok.IsPositive() && stok.LessThanOrEqual(LowStockThreshold)
}

func statusOf(r models.Record) string {
	if st := strings.TrimSpace(r.String("status")); st != "" {
		return st
	}
	return models.StatusBelumLunas
}

func searchText(name models.CollectionName, r models.Record) string {
	var parts []string
	switch name {
	case models.Products:
		parts = []string{r.String("nama"), r.String("kode_produk")}
	case models.Vendors:
		parts = []string{r.String("nama_vendor"), r.String("kontak"), r.String("alamat")}
	default:
		parts = []string{r.String("invoice_id"), r.String("no_nota_vendor"), r.String("outlet_name"), r.String("nama_vendor")}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

type productSource []models.Record

func (p productSource) String(i int) string { return searchText(models.Products, p[i]) }
func (p productSource) Len() int            { return len(p) }

func fuzzyProducts(records []models.Record, query string) []models.Record {
	matches := fuzzy.FindFrom(query, productSource(records))
	out := make([]models.Record, 0, len(matches))
	for _, m := range matches {
		out = append(out, records[m.Index])
	}
	return out
}

// Growth holds month-over-month changes in percent
type Growth struct {
	Piutang   float64 `json:"piutang"`
	Hutang    float64 `json:"hutang"`
	Transaksi float64 `json:"transaksi"`
}

// Summary aggregates the dashboard figures
type Summary struct {
	TotalProduk      int             `json:"total_produk"`
	ProdukHabis      int             `json:"produk_habis"`
	ProdukStokRendah int             `json:"produk_stok_rendah"`
	TotalPiutang     decimal.Decimal `json:"total_piutang"`
	TotalHutang      decimal.Decimal `json:"total_hutang"`
	TotalTransaksi   int             `json:"total_transaksi"`
	PiutangOverdue   []models.Record `json:"piutang_overdue"`
	HutangOverdue    []models.Record `json:"hutang_overdue"`
	RataRata         decimal.Decimal `json:"rata_rata_transaksi"`
	Trends           Growth          `json:"trends"`
}

// Summary computes dashboard figures at now, honoring the active date
// range for receivables and payables. Product counts are never filtered.
func (s *Store) Summary(now time.Time) Summary {
	products := s.GetCollection(models.Products)
	receivables, payables := s.filteredLedgers()

	sum := Summary{TotalProduk: len(products)}
	for _, p := range products {
		stok := p.Decimal("sisa_stok")
		if !stok.IsPositive() {
			sum.ProdukHabis++
		} else if isLowStock(stok) {
			sum.ProdukStokRendah++
		}
	}

	sum.TotalPiutang = outstanding(receivables)
	sum.TotalHutang = outstanding(payables)
	sum.TotalTransaksi = len(receivables)
	sum.PiutangOverdue = Overdue(receivables, now)
	sum.HutangOverdue = Overdue(payables, now)
	if len(receivables) > 0 {
		sum.RataRata = FinancialSummaryOf(receivables).Total.
			Div(decimal.NewFromInt(int64(len(receivables)))).Round(2)
	}
	sum.Trends = trends(receivables, payables, now)
	return sum
}

func (s *Store) filteredLedgers() (receivables, payables []models.Record) {
	r := s.DateRange()
	receivables = filterByDate(s.GetCollection(models.Receivables), r, "tanggal_pengiriman")
	payables = filterByDate(s.GetCollection(models.Payables), r, "tanggal_nota")
	return receivables, payables
}

// filterByDate keeps records whose date falls within r, end day inclusive.
// The field falls back to created_at. Undated records are dropped only
// while a range is active.
func filterByDate(records []models.Record, r DateRange, field string) []models.Record {
	if !r.Active() {
		return records
	}
	start := startOfDay(r.Start)
	end := startOfDay(r.End).AddDate(0, 0, 1)

	var out []models.Record
	for _, rec := range records {
		t, ok := rec.Time(field)
		if !ok {
			t, ok = rec.Time("created_at")
		}
		if ok && !t.Before(start) && t.Before(end) {
			out = append(out, rec)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func outstanding(records []models.Record) decimal.Decimal {
	return FinancialSummaryOf(records).BelumLunas
}

// Overdue returns unpaid records created more than 30 days before now's
// calendar day. The creation date is created_at, falling back to timestamp.
func Overdue(records []models.Record, now time.Time) []models.Record {
	cutoff := startOfDay(now).AddDate(0, 0, -overdueDays)
	var out []models.Record
	for _, r := range records {
		if models.IsLunas(r.String("status")) {
			continue
		}
		t, ok := r.Time("created_at")
		if !ok {
			t, ok = r.Time("timestamp")
		}
		if !ok {
			continue
		}
		if startOfDay(t.In(now.Location())).Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func trends(receivables, payables []models.Record, now time.Time) Growth {
	y, m, _ := now.Date()
	thisMonth := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	lastMonth := thisMonth.AddDate(0, -1, 0)

	count := func(records []models.Record) (prev, cur int) {
		for _, r := range records {
			t, ok := r.Time("created_at")
			if !ok {
				continue
			}
			switch {
			case !t.Before(thisMonth):
				cur++
			case !t.Before(lastMonth):
				prev++
			}
		}
		return prev, cur
	}

	pPrev, pCur := count(receivables)
	hPrev, hCur := count(payables)
	return Growth{
		Piutang:   GrowthRate(pPrev, pCur),
		Hutang:    GrowthRate(hPrev, hCur),
		Transaksi: GrowthRate(pPrev, pCur),
	}
}

// GrowthRate returns the percentage change from old to cur. Growth from
// nothing counts as 100%.
func GrowthRate(old, cur int) float64 {
	if old == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return float64(cur-old) / float64(old) * 100
}

// Financial splits ledger totals into paid and unpaid
type Financial struct {
	Lunas      decimal.Decimal `json:"lunas"`
	BelumLunas decimal.Decimal `json:"belum_lunas"`
	Total      decimal.Decimal `json:"total"`
}

// FinancialSummaryOf totals total_tagihan by payment status
func FinancialSummaryOf(records []models.Record) Financial {
	var f Financial
	for _, r := range records {
		amount := r.Decimal("total_tagihan")
		if models.IsLunas(r.String("status")) {
			f.Lunas = f.Lunas.Add(amount)
		} else {
			f.BelumLunas = f.BelumLunas.Add(amount)
		}
		f.Total = f.Total.Add(amount)
	}
	return f
}

// FinancialSummary totals a ledger collection within the active date range
func (s *Store) FinancialSummary(ledger models.LedgerType) Financial {
	receivables, payables := s.filteredLedgers()
	if ledger == models.LedgerReceivable {
		return FinancialSummaryOf(receivables)
	}
	return FinancialSummaryOf(payables)
}

// Details lists the records behind the dashboard cards
type Details struct {
	ProdukHabis       []models.Record `json:"produk_habis"`
	ProdukStokRendah  []models.Record `json:"produk_stok_rendah"`
	HutangJatuhTempo  []models.Record `json:"hutang_jatuh_tempo"`
	PiutangJatuhTempo []models.Record `json:"piutang_jatuh_tempo"`
	Alerts            []Alert         `json:"alerts"`
}

const detailLimit = 10

// Details returns up to ten records per dashboard card, oldest unpaid
// transactions first.
func (s *Store) Details(now time.Time) Details {
	var d Details
	for _, p := range s.GetCollection(models.Products) {
		stok := p.Decimal("sisa_stok")
		if !stok.IsPositive() && len(d.ProdukHabis) < detailLimit {
			d.ProdukHabis = append(d.ProdukHabis, p)
		} else if isLowStock(stok) && len(d.ProdukStokRendah) < detailLimit {
			d.ProdukStokRendah = append(d.ProdukStokRendah, p)
		}
	}
	receivables, payables := s.filteredLedgers()
	d.HutangJatuhTempo = oldestUnpaid(payables)
	d.PiutangJatuhTempo = oldestUnpaid(receivables)
	d.Alerts = s.Alerts(now)
	return d
}

func oldestUnpaid(records []models.Record) []models.Record {
	var unpaid []models.Record
	for _, r := range records {
		if !models.IsLunas(r.String("status")) {
			unpaid = append(unpaid, r)
		}
	}
	sort.SliceStable(unpaid, func(i, j int) bool {
		ti, _ := unpaid[i].Time("timestamp")
		tj, _ := unpaid[j].Time("timestamp")
		return ti.Before(tj)
	})
	if len(unpaid) > detailLimit {
		unpaid = unpaid[:detailLimit]
	}
	return unpaid
}

// Alert priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Alert is a dashboard notice
type Alert struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Target   string `json:"target"`
	Priority string `json:"priority"`
}

const maxAlerts = 5

var priorityRank = map[string]int{PriorityHigh: 3, PriorityMedium: 2, PriorityLow: 1}

// Alerts derives stock and overdue notices, highest priority first.
func (s *Store) Alerts(now time.Time) []Alert {
	sum := s.Summary(now)
	var alerts []Alert
	if sum.ProdukHabis > 0 {
		alerts = append(alerts, Alert{
			Type: "danger", Title: "Stok Habis", Priority: PriorityHigh, Target: "products",
			Message: fmt.Sprintf("%d produk kehabisan stok", sum.ProdukHabis),
		})
	}
	if sum.ProdukStokRendah > 0 {
		alerts = append(alerts, Alert{
			Type: "warning", Title: "Stok Rendah", Priority: PriorityMedium, Target: "products",
			Message: fmt.Sprintf("%d produk stok hampir habis", sum.ProdukStokRendah),
		})
	}
	if n := len(sum.PiutangOverdue); n > 0 {
		alerts = append(alerts, Alert{
			Type: "info", Title: "Piutang Jatuh Tempo", Priority: PriorityMedium, Target: "receivables",
			Message: fmt.Sprintf("%d piutang perlu ditagih", n),
		})
	}
	if n := len(sum.HutangOverdue); n > 0 {
		alerts = append(alerts, Alert{
			Type: "warning", Title: "Hutang Jatuh Tempo", Priority: PriorityHigh, Target: "payables",
			Message: fmt.Sprintf("%d hutang perlu dibayar", n),
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return priorityRank[alerts[i].Priority] > priorityRank[alerts[j].Priority]
	})
	if len(alerts) > maxAlerts {
		alerts = alerts[:maxAlerts]
	}
	return alerts
}
