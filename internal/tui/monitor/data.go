package monitor

import (
	"fmt"
	"time"

	"github.com/bandungraya/gudang/internal/models"
	"github.com/bandungraya/gudang/internal/output"
	"github.com/bandungraya/gudang/internal/state"
)

// rows returns the records of the active panel, filtered by the search query
func (m Model) rows() []models.Record {
	if m.store == nil {
		return nil
	}
	return m.store.Search(m.ActivePanel.Collection(), m.Query, state.Filter{})
}

// formatRow renders one record of the active panel
func (m Model) formatRow(r models.Record) string {
	switch m.ActivePanel {
	case PanelReceivables, PanelPayables:
		return output.FormatLedgerLine(r)
	case PanelVendors:
		return output.FormatVendorLine(r)
	}
	return output.FormatProductLine(r)
}

// sessionLines summarizes the open draft sessions
func (m Model) sessionLines() []string {
	if m.store == nil {
		return nil
	}
	var lines []string
	for _, kind := range models.SessionKinds {
		sess, ok := m.store.Session(kind)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %d item, %s", kind, len(sess.Items), output.FormatRupiah(sess.Total())))
	}
	return lines
}

// summaryLine gives the headline dashboard figures
func (m Model) summaryLine() string {
	if m.store == nil {
		return ""
	}
	s := m.store.Summary(time.Now())
	return fmt.Sprintf("produk %d  habis %d  rendah %d  piutang %s  hutang %s",
		s.TotalProduk, s.ProdukHabis, s.ProdukStokRendah,
		output.FormatRupiah(s.TotalPiutang), output.FormatRupiah(s.TotalHutang))
}

// panelTitle names a panel with its row count
func (m Model) panelTitle(p Panel, n int) string {
	names := [...]string{"PRODUK", "PIUTANG", "HUTANG", "VENDOR"}
	return fmt.Sprintf("%d %s (%d)", int(p)+1, names[p], n)
}
