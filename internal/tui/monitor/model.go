// Package monitor is a live terminal dashboard over the state store: the
// mirrored collections, draft sessions, connection status and the offline
// queue depth.
package monitor

import (
	"context"
	"time"

	"github.com/bandungraya/gudang/internal/models"
	"github.com/bandungraya/gudang/internal/state"
	gsync "github.com/bandungraya/gudang/internal/sync"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Panel represents which collection is shown
type Panel int

const (
	PanelProducts Panel = iota
	PanelReceivables
	PanelPayables
	PanelVendors
	panelCount
)

// Collection returns the collection a panel lists
func (p Panel) Collection() models.CollectionName {
	switch p {
	case PanelReceivables:
		return models.Receivables
	case PanelPayables:
		return models.Payables
	case PanelVendors:
		return models.Vendors
	}
	return models.Products
}

// Options wires the monitor to the running client
type Options struct {
	Store *state.Store
	// Pending reports the offline queue depth
	Pending func(ctx context.Context) (int, error)
	// Sync runs a catch-up pass; nil disables the refresh key
	Sync     func(ctx context.Context) gsync.SyncResult
	Interval time.Duration
}

// Model is the main Bubble Tea model for the monitor TUI
type Model struct {
	store   *state.Store
	events  <-chan state.Event
	pending func(ctx context.Context) (int, error)
	sync    func(ctx context.Context) gsync.SyncResult

	// Window dimensions
	Width  int
	Height int

	// Status
	Online     bool
	Loading    bool
	LoadingMsg string
	Pending    int
	Syncing    bool
	LastEvent  string
	LastSync   *gsync.SyncResult
	Err        error

	// UI state
	ActivePanel  Panel
	ScrollOffset map[Panel]int
	ShowHelp     bool
	SearchMode   bool
	Query        string
	SearchInput  textinput.Model
	Spinner      spinner.Model
	LastRefresh  time.Time

	RefreshInterval time.Duration
}

// MinWidth is the minimum terminal width for proper display
const MinWidth = 40

// MinHeight is the minimum terminal height for proper display
const MinHeight = 12

// TickMsg triggers a queue depth refresh
type TickMsg time.Time

// EventMsg carries a state store notification
type EventMsg state.Event

// eventsClosedMsg means the subscription ended
type eventsClosedMsg struct{}

// PendingMsg carries the queue depth
type PendingMsg struct {
	Count int
	Err   error
}

// SyncDoneMsg carries the result of a catch-up pass
type SyncDoneMsg struct {
	Result gsync.SyncResult
}

// NewModel creates a monitor reading events from events, which should come
// from opts.Store.Events.
func NewModel(opts Options, events <-chan state.Event) Model {
	searchInput := textinput.New()
	searchInput.Placeholder = "cari"
	searchInput.Prompt = "/ "
	searchInput.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return Model{
		store:           opts.Store,
		events:          events,
		pending:         opts.Pending,
		sync:            opts.Sync,
		Online:          opts.Store.Online(),
		Loading:         opts.Store.Loading(),
		ScrollOffset:    make(map[Panel]int),
		SearchInput:     searchInput,
		Spinner:         sp,
		RefreshInterval: interval,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.waitForEvent(),
		m.fetchPending(),
		m.scheduleTick(),
		m.Spinner.Tick,
	)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.SearchMode {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.SearchInput.Width = max(10, msg.Width/2)
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.fetchPending(), m.scheduleTick())

	case EventMsg:
		m.applyEvent(state.Event(msg))
		return m, m.waitForEvent()

	case eventsClosedMsg:
		m.events = nil
		return m, nil

	case PendingMsg:
		m.Pending = msg.Count
		m.Err = msg.Err
		m.LastRefresh = time.Now()
		return m, nil

	case SyncDoneMsg:
		m.Syncing = false
		res := msg.Result
		m.LastSync = &res
		return m, m.fetchPending()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) applyEvent(e state.Event) {
	m.LastEvent = e.Name
	switch p := e.Payload.(type) {
	case state.ConnectionChanged:
		m.Online = p.Online
	case state.LoadingChanged:
		m.Loading = p.Loading
		m.LoadingMsg = p.Message
	}
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		m.ActivePanel = (m.ActivePanel + 1) % panelCount
		return m, nil

	case "shift+tab":
		m.ActivePanel = (m.ActivePanel + panelCount - 1) % panelCount
		return m, nil

	case "1", "2", "3", "4":
		m.ActivePanel = Panel(msg.String()[0] - '1')
		return m, nil

	case "j", "down":
		if m.ScrollOffset[m.ActivePanel] < len(m.rows())-1 {
			m.ScrollOffset[m.ActivePanel]++
		}
		return m, nil

	case "k", "up":
		if m.ScrollOffset[m.ActivePanel] > 0 {
			m.ScrollOffset[m.ActivePanel]--
		}
		return m, nil

	case "/":
		m.SearchMode = true
		m.SearchInput.SetValue(m.Query)
		return m, m.SearchInput.Focus()

	case "esc":
		m.Query = ""
		m.ScrollOffset[m.ActivePanel] = 0
		return m, nil

	case "r":
		if m.sync == nil || m.Syncing {
			return m, nil
		}
		m.Syncing = true
		return m, m.runSync()

	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil
	}

	return m, nil
}

// handleSearchKey edits the search query
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.SearchMode = false
		m.SearchInput.Blur()
		return m, nil
	case "esc":
		m.SearchMode = false
		m.Query = ""
		m.SearchInput.SetValue("")
		m.SearchInput.Blur()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.SearchInput, cmd = m.SearchInput.Update(msg)
	m.Query = m.SearchInput.Value()
	m.ScrollOffset[m.ActivePanel] = 0
	return m, cmd
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// scheduleTick returns a command that sends a TickMsg after the refresh interval
func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// waitForEvent blocks on the next state store event
func (m Model) waitForEvent() tea.Cmd {
	ch := m.events
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return EventMsg(e)
	}
}

// fetchPending reads the queue depth
func (m Model) fetchPending() tea.Cmd {
	if m.pending == nil {
		return nil
	}
	pending := m.pending
	return func() tea.Msg {
		n, err := pending(context.Background())
		return PendingMsg{Count: n, Err: err}
	}
}

// runSync runs a catch-up pass off the UI goroutine
func (m Model) runSync() tea.Cmd {
	run := m.sync
	return func() tea.Msg {
		return SyncDoneMsg{Result: run(context.Background())}
	}
}
