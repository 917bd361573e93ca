package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/tickerview/internal/logger"
	"github.com/zappabad/tickerview/internal/ticker"
	"github.com/zappabad/tickerview/internal/viewer"
	"github.com/zappabad/tickerview/tui/panels"
	"github.com/zappabad/tickerview/tui/styles"
)

// PanelFocus represents which panel is currently focused.
type PanelFocus int

const (
	FocusQuery   PanelFocus = 0
	FocusPayload PanelFocus = 1

	panelCount = 2
)

// queryHeight fits three fields plus the dropdown.
const queryHeight = 14

// Backend is what the TUI needs from the ticker backend.
type Backend interface {
	viewer.Fetcher
	viewer.Streamer
	Markets(ctx context.Context, exchange string) ([]string, error)
}

// Model is the main TUI application model.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	viewer  *viewer.Viewer
	backend Backend

	// Panels
	queryPanel   *panels.QueryPanel
	payloadPanel *panels.PayloadPanel

	// Focus management
	focusedPanel PanelFocus

	// Live stream
	liveCancel context.CancelFunc
	liveGen    int

	// Window dimensions
	width  int
	height int

	// Status
	statusMsg string
	ready     bool
}

// NewModel creates a new TUI model over v. The model does not close v.
func NewModel(ctx context.Context, v *viewer.Viewer, backend Backend) *Model {
	ctx, cancel := context.WithCancel(ctx)
	s := v.State()

	payloadPanel := panels.NewPayloadPanel()
	payloadPanel.SetState(s)

	m := &Model{
		ctx:          ctx,
		cancel:       cancel,
		viewer:       v,
		backend:      backend,
		queryPanel:   panels.NewQueryPanel(s.Exchange, s.Symbol),
		payloadPanel: payloadPanel,
	}
	m.setFocus(FocusQuery)
	return m
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.queryPanel.Init(),
		m.payloadPanel.Init(),
		m.listenViewerEvents(),
		m.loadMarkets(m.viewer.State().Exchange),
	)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, m.quit()

		case "esc":
			if !(m.focusedPanel == FocusQuery && m.queryPanel.DropdownOpen()) {
				return m, m.quit()
			}

		case "tab":
			m.setFocus((m.focusedPanel + 1) % panelCount)
			return m, nil

		case "shift+tab":
			m.setFocus((m.focusedPanel + panelCount - 1) % panelCount)
			return m, nil

		case "ctrl+f":
			return m, m.startFetch()

		case "ctrl+l":
			return m, m.toggleLive()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updatePanelSizes()

	case panels.FetchRequestedMsg:
		cmds = append(cmds, m.startFetch())

	case panels.ExchangeCommittedMsg:
		cmds = append(cmds, m.loadMarkets(msg.Exchange))

	case fetchResultMsg:
		m.viewer.Complete(msg.req, msg.outcome)
		m.statusMsg = describeOutcome(msg.req, msg.outcome)
		m.refresh()

	case marketsMsg:
		if msg.err != nil {
			logger.L().Warn().Err(msg.err).Str("exchange", msg.exchange).Msg("load markets failed")
			break
		}
		m.queryPanel.SetMarkets(msg.exchange, msg.markets)

	case stateMsg:
		m.refresh()
		cmds = append(cmds, m.listenViewerEvents())

	case liveEndedMsg:
		if msg.gen != m.liveGen {
			break
		}
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.statusMsg = "✗ live: " + msg.err.Error()
		} else {
			m.statusMsg = "live stopped"
		}
		if m.liveCancel != nil {
			m.liveCancel()
			m.liveCancel = nil
		}
		m.refresh()
	}

	m.updateFocusedPanel(msg, &cmds)

	return m, tea.Batch(cmds...)
}

func (m *Model) updateFocusedPanel(msg tea.Msg, cmds *[]tea.Cmd) {
	var cmd tea.Cmd

	switch m.focusedPanel {
	case FocusQuery:
		m.queryPanel, cmd = m.queryPanel.Update(msg)
		m.syncQuery()
	case FocusPayload:
		m.payloadPanel, cmd = m.payloadPanel.Update(msg)
	}

	if cmd != nil {
		*cmds = append(*cmds, cmd)
	}
}

// syncQuery forwards edited text to the viewer.
func (m *Model) syncQuery() {
	s := m.viewer.State()
	if ex := m.queryPanel.Exchange(); ex != s.Exchange {
		m.viewer.UpdateExchange(ex)
	}
	if sym := m.queryPanel.Symbol(); sym != s.Symbol {
		m.viewer.UpdateSymbol(sym)
	}
}

// View renders the UI.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	// Layout:
	// ┌──────────────────────────────┐
	// │            Query             │
	// ├──────────────────────────────┤
	// │           Payload            │
	// └──────────────────────────────┘
	return lipgloss.JoinVertical(lipgloss.Left,
		m.queryPanel.View(),
		m.payloadPanel.View(),
		m.renderStatusBar(),
	)
}

func (m *Model) setFocus(panel PanelFocus) {
	m.focusedPanel = panel
	m.queryPanel.SetFocus(panel == FocusQuery)
	m.payloadPanel.SetFocus(panel == FocusPayload)
}

func (m *Model) renderStatusBar() string {
	help := lipgloss.JoinHorizontal(lipgloss.Center,
		styles.StatusBarKeyStyle.Render("Tab")+styles.StatusBarDescStyle.Render(" focus"),
		" │ ",
		styles.StatusBarKeyStyle.Render("^F")+styles.StatusBarDescStyle.Render(" fetch"),
		" │ ",
		styles.StatusBarKeyStyle.Render("^L")+styles.StatusBarDescStyle.Render(" live"),
		" │ ",
		styles.StatusBarKeyStyle.Render("Esc")+styles.StatusBarDescStyle.Render(" quit"),
	)

	s := m.viewer.State()
	status := fmt.Sprintf(" │ in flight %d", s.InFlight)
	if s.Live {
		status += " │ " + styles.LiveStyle.Render("● LIVE")
	}
	if m.statusMsg != "" {
		status += " │ " + m.statusMsg
	}

	return styles.StatusBarStyle.Width(m.width).Render(help + status)
}

func (m *Model) updatePanelSizes() {
	qh := min(queryHeight, m.height/2)
	m.queryPanel.SetSize(m.width, qh)
	m.payloadPanel.SetSize(m.width, m.height-qh-1)
}

// refresh redraws the payload panel from the viewer state.
func (m *Model) refresh() {
	m.payloadPanel.SetState(m.viewer.State())
}

// startFetch issues a fetch for the current query. The query is captured
// now; the result is applied when it arrives, in arrival order.
func (m *Model) startFetch() tea.Cmd {
	req := m.viewer.Begin()
	m.statusMsg = fmt.Sprintf("fetching %s %s…", req.Query.Exchange, req.Query.Symbol)

	ctx := m.ctx
	backend := m.backend
	return func() tea.Msg {
		return fetchResultMsg{req: req, outcome: backend.Fetch(ctx, req.Query)}
	}
}

func (m *Model) toggleLive() tea.Cmd {
	if m.liveCancel != nil {
		m.liveCancel()
		m.liveCancel = nil
		return nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.liveCancel = cancel
	m.liveGen++
	m.statusMsg = "live"

	gen := m.liveGen
	v := m.viewer
	backend := m.backend
	return func() tea.Msg {
		return liveEndedMsg{gen: gen, err: v.Watch(ctx, backend)}
	}
}

func (m *Model) loadMarkets(exchange string) tea.Cmd {
	if exchange == "" {
		return nil
	}
	ctx := m.ctx
	backend := m.backend
	return func() tea.Msg {
		markets, err := backend.Markets(ctx, exchange)
		return marketsMsg{exchange: exchange, markets: markets, err: err}
	}
}

func (m *Model) listenViewerEvents() tea.Cmd {
	events := m.viewer.Events()
	return func() tea.Msg {
		s, ok := <-events
		if !ok {
			return nil
		}
		return stateMsg{state: s}
	}
}

func (m *Model) quit() tea.Cmd {
	if m.liveCancel != nil {
		m.liveCancel()
		m.liveCancel = nil
	}
	m.cancel()
	return tea.Quit
}

func describeOutcome(req viewer.Request, o ticker.Outcome) string {
	if !o.OK() {
		return fmt.Sprintf("✗ #%d %s", req.Seq, o.Err.Kind)
	}
	return fmt.Sprintf("✓ #%d HTTP %d", req.Seq, o.Status)
}

type fetchResultMsg struct {
	req     viewer.Request
	outcome ticker.Outcome
}

type marketsMsg struct {
	exchange string
	markets  []string
	err      error
}

type stateMsg struct {
	state viewer.State
}

type liveEndedMsg struct {
	gen int
	err error
}
