package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// renderView renders the complete TUI view
func (m Model) renderView() string {
	if m.Width == 0 || m.Height == 0 {
		return "Memuat..."
	}
	if m.Width < MinWidth || m.Height < MinHeight {
		return m.renderCompact()
	}
	if m.ShowHelp {
		return m.renderHelp()
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	used := lipgloss.Height(header) + lipgloss.Height(footer)
	panel := m.renderPanel(m.Height - used)

	return lipgloss.JoinVertical(lipgloss.Left, header, panel, footer)
}

// renderCompact renders a minimal view for small terminals
func (m Model) renderCompact() string {
	var s strings.Builder
	s.WriteString("gudang monitor (perbesar terminal)\n\n")
	s.WriteString(m.connectionBadge())
	s.WriteString("\n")
	fmt.Fprintf(&s, "Antrian: %d\n", m.Pending)
	s.WriteString("\nq:keluar r:sinkron ?:bantuan")
	return s.String()
}

func (m Model) connectionBadge() string {
	if m.Online {
		return onlineBadge.Render(" ONLINE ")
	}
	return offlineBadge.Render(" OFFLINE ")
}

// renderHeader shows connection, loading, queue and summary lines
func (m Model) renderHeader() string {
	parts := []string{m.connectionBadge()}
	if m.Pending > 0 {
		parts = append(parts, pendingStyle.Render(fmt.Sprintf("%d menunggu dikirim", m.Pending)))
	}
	if m.Loading {
		msg := m.LoadingMsg
		if msg == "" {
			msg = "Memuat..."
		}
		parts = append(parts, m.Spinner.View()+" "+msg)
	}
	if m.Syncing {
		parts = append(parts, m.Spinner.View()+" sinkronisasi")
	} else if m.LastSync != nil {
		parts = append(parts, subtleStyle.Render(syncSummary(m.LastSync.Replay.Delivered, m.LastSync.Replay.Remaining, string(m.LastSync.Hydrate.Source))))
	}
	if m.Err != nil {
		parts = append(parts, errorStyle.Render(m.Err.Error()))
	}

	lines := []string{
		m.fit(strings.Join(parts, "  ")),
		m.fit(subtleStyle.Render(m.summaryLine())),
	}
	if sessions := m.sessionLines(); len(sessions) > 0 {
		lines = append(lines, m.fit("Draft: "+strings.Join(sessions, "; ")))
	}
	lines = append(lines, m.renderTabs())
	return strings.Join(lines, "\n")
}

func syncSummary(delivered, remaining int, source string) string {
	return fmt.Sprintf("sinkron: %d terkirim, %d tersisa, data dari %s", delivered, remaining, source)
}

func (m Model) renderTabs() string {
	names := [...]string{"Produk", "Piutang", "Hutang", "Vendor"}
	tabs := make([]string, len(names))
	for i, n := range names {
		label := fmt.Sprintf("%d %s", i+1, n)
		if Panel(i) == m.ActivePanel {
			tabs[i] = activeTabStyle.Render(label)
		} else {
			tabs[i] = tabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderPanel lists the active collection from the scroll offset
func (m Model) renderPanel(height int) string {
	rows := m.rows()
	contentWidth := m.Width - 4
	contentHeight := height - 3 // border and title
	if contentHeight < 1 {
		contentHeight = 1
	}

	var lines []string
	if m.SearchMode {
		lines = append(lines, m.SearchInput.View())
	} else if m.Query != "" {
		lines = append(lines, subtleStyle.Render("cari: "+m.Query+"  (esc untuk hapus)"))
	}

	if len(rows) == 0 {
		lines = append(lines, subtleStyle.Render("Tidak ada data"))
	}
	offset := m.ScrollOffset[m.ActivePanel]
	if offset >= len(rows) {
		offset = 0
	}
	for i := offset; i < len(rows) && len(lines) < contentHeight; i++ {
		line := m.formatRow(rows[i])
		if i == offset {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	for len(lines) < contentHeight {
		lines = append(lines, "")
	}
	for i, line := range lines {
		lines[i] = ansi.Truncate(line, contentWidth, "…")
	}

	title := panelTitleStyle.Render(m.panelTitle(m.ActivePanel, len(rows)))
	inner := lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n"))
	return panelStyle.Width(m.Width - 2).Render(inner)
}

func (m Model) renderFooter() string {
	keys := helpStyle.Render("q:keluar  tab:panel  ↑↓:gulir  /:cari  r:sinkron  ?:bantuan")
	status := ""
	if m.LastEvent != "" {
		status = timestampStyle.Render(m.LastEvent)
	}
	if !m.LastRefresh.IsZero() {
		if status != "" {
			status += " "
		}
		status += timestampStyle.Render(m.LastRefresh.Format("15:04:05"))
	}
	padding := m.Width - lipgloss.Width(keys) - lipgloss.Width(status) - 2
	if padding < 1 {
		padding = 1
	}
	return m.fit(" " + keys + strings.Repeat(" ", padding) + status)
}

// renderHelp renders the help overlay
func (m Model) renderHelp() string {
	help := `
GUDANG MONITOR - Tombol

NAVIGASI:
  Tab / Shift+Tab   Ganti panel
  1 / 2 / 3 / 4     Produk, piutang, hutang, vendor
  ↑ / ↓ / j / k     Gulir daftar
  /                 Cari (enter simpan, esc batal)
  Esc               Hapus pencarian

AKSI:
  r                 Kirim antrian dan muat ulang data
  q / Ctrl+C        Keluar

Tekan ? untuk menutup
`
	return helpStyle.Render(help)
}

// fit truncates a line to the terminal width
func (m Model) fit(s string) string {
	if m.Width <= 0 {
		return s
	}
	return ansi.Truncate(s, m.Width, "…")
}
