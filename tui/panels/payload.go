package panels

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/tickerview/internal/ticker"
	"github.com/zappabad/tickerview/internal/viewer"
	"github.com/zappabad/tickerview/tui/styles"
)

// PayloadPanel shows the pretty-printed payload of the last response.
type PayloadPanel struct {
	vp      viewport.Model
	content string
	summary string
	failure string
	source  string
	focused bool
	width   int
	height  int
}

// NewPayloadPanel creates a payload panel showing null.
func NewPayloadPanel() *PayloadPanel {
	p := &PayloadPanel{vp: viewport.New(0, 0)}
	p.SetState(viewer.State{})
	return p
}

// Init initializes the panel.
func (p *PayloadPanel) Init() tea.Cmd {
	return nil
}

// Update scrolls the payload when focused.
func (p *PayloadPanel) Update(msg tea.Msg) (*PayloadPanel, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok && !p.focused {
		return p, nil
	}
	var cmd tea.Cmd
	p.vp, cmd = p.vp.Update(msg)
	return p, cmd
}

// View renders the panel.
func (p *PayloadPanel) View() string {
	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("Payload", p.focused)
	if p.source != "" {
		title += styles.MutedStyle.Render(p.source)
	}

	rows := []string{title}
	if p.summary != "" {
		rows = append(rows, styles.SummaryStyle.Render(p.summary))
	}
	rows = append(rows, p.vp.View())
	if p.failure != "" {
		rows = append(rows, styles.FailureStyle.Render(p.failure))
	}

	panel := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetState shows the payload, summary and failure carried by s.
func (p *PayloadPanel) SetState(s viewer.State) {
	content := s.Payload.Pretty()
	if content != p.content {
		p.content = content
		p.vp.SetContent(styles.PayloadStyle.Render(content))
	}

	p.summary = ""
	if sum := ticker.Summarize(s.Payload); !sum.Empty() {
		p.summary = sum.String()
	}

	p.failure = ""
	if s.Err != nil {
		p.failure = "✗ " + s.Err.Error()
	}

	p.source = ""
	if s.Status != 0 {
		p.source = fmt.Sprintf(" HTTP %d", s.Status)
	}

	p.resize()
}

// SetFocus sets the focus state of the panel.
func (p *PayloadPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *PayloadPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.resize()
}

// Content returns the text in the viewport without styling.
func (p *PayloadPanel) Content() string {
	return p.content
}

// Summary returns the summary line, or "" when the payload has no prices.
func (p *PayloadPanel) Summary() string {
	return p.summary
}

// Failure returns the failure line, or "" when the last outcome succeeded.
func (p *PayloadPanel) Failure() string {
	return p.failure
}

func (p *PayloadPanel) resize() {
	// border and padding
	w := p.width - 4
	// border, title, optional summary and failure
	h := p.height - 3
	if p.summary != "" {
		h--
	}
	if p.failure != "" {
		h--
	}
	p.vp.Width = max(w, 0)
	p.vp.Height = max(h, 0)
}
