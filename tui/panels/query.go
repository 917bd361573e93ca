package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/tickerview/tui/styles"
)

// QueryField represents the currently focused input field.
type QueryField int

const (
	FieldExchange QueryField = iota
	FieldSymbol
	FieldFetch
)

const maxDropdown = 5

// QueryPanel edits the exchange and symbol and offers symbol autocomplete.
type QueryPanel struct {
	exchangeInput textinput.Model
	symbolInput   textinput.Model

	// Dropdown state
	marketsFor       string
	showDropdown     bool
	dropdownItems    []string
	dropdownFiltered []string
	dropdownIndex    int

	currentField QueryField

	focused bool
	width   int
	height  int
}

// NewQueryPanel creates a query panel seeded with the initial exchange and symbol.
func NewQueryPanel(exchange, symbol string) *QueryPanel {
	exchangeInput := textinput.New()
	exchangeInput.Placeholder = "binance"
	exchangeInput.Width = 20
	exchangeInput.SetValue(exchange)
	exchangeInput.Focus()

	symbolInput := textinput.New()
	symbolInput.Placeholder = "BTC/USDT"
	symbolInput.Width = 20
	symbolInput.SetValue(symbol)

	return &QueryPanel{
		exchangeInput: exchangeInput,
		symbolInput:   symbolInput,
		currentField:  FieldExchange,
	}
}

// Init initializes the panel.
func (p *QueryPanel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the panel.
func (p *QueryPanel) Update(msg tea.Msg) (*QueryPanel, tea.Cmd) {
	if !p.focused {
		return p, nil
	}

	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("down"))):
			if p.showDropdown {
				if p.dropdownIndex < p.visibleItems()-1 {
					p.dropdownIndex++
				}
				return p, nil
			}
			return p, p.nextField()

		case key.Matches(msg, key.NewBinding(key.WithKeys("up"))):
			if p.showDropdown {
				if p.dropdownIndex > 0 {
					p.dropdownIndex--
				}
				return p, nil
			}
			return p, p.prevField()

		case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
			switch {
			case p.currentField == FieldFetch:
				return p, fetchRequested
			case p.showDropdown && p.currentField == FieldSymbol:
				p.selectDropdownItem()
				p.showDropdown = false
				return p, nil
			}
			return p, p.nextField()

		case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
			p.showDropdown = false
			return p, nil
		}
	}

	switch p.currentField {
	case FieldExchange:
		p.exchangeInput, cmd = p.exchangeInput.Update(msg)

	case FieldSymbol:
		before := p.symbolInput.Value()
		p.symbolInput, cmd = p.symbolInput.Update(msg)
		if after := p.symbolInput.Value(); after != before {
			p.filterDropdown(after)
			p.showDropdown = after != "" && len(p.dropdownFiltered) > 0
		}
	}

	return p, cmd
}

// View renders the panel.
func (p *QueryPanel) View() string {
	var content strings.Builder

	content.WriteString(p.renderField("Exchange", FieldExchange, p.renderInput(&p.exchangeInput, FieldExchange)))
	content.WriteString("\n")
	content.WriteString(p.renderField("Symbol", FieldSymbol, p.renderSymbolField()))
	content.WriteString("\n")

	fetchStyle := styles.InputStyle
	if p.currentField == FieldFetch && p.focused {
		fetchStyle = styles.FocusedInputStyle.Bold(true).Foreground(styles.PrimaryColor)
	}
	content.WriteString(fetchStyle.Render("  [Fetch]  "))

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("Query", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *QueryPanel) renderField(label string, field QueryField, inputView string) string {
	labelStyle := styles.LabelStyle
	if p.currentField == field && p.focused {
		labelStyle = labelStyle.Foreground(styles.PrimaryColor)
	}
	labelStr := labelStyle.Render(fmt.Sprintf("%-10s", label))
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStr, inputView)
}

func (p *QueryPanel) renderInput(in *textinput.Model, field QueryField) string {
	inputStyle := styles.InputStyle
	if p.currentField == field && p.focused {
		inputStyle = styles.FocusedInputStyle
	}
	return inputStyle.Render(in.View())
}

func (p *QueryPanel) renderSymbolField() string {
	var result strings.Builder
	result.WriteString(p.renderInput(&p.symbolInput, FieldSymbol))

	if p.showDropdown && len(p.dropdownFiltered) > 0 {
		n := p.visibleItems()
		for i := 0; i < n; i++ {
			item := p.dropdownFiltered[i]
			style := styles.DropdownItemStyle
			if i == p.dropdownIndex {
				style = styles.DropdownSelectedStyle
			}
			result.WriteString("\n")
			result.WriteString(style.Render(p.highlightMatch(item, p.symbolInput.Value())))
		}
	}

	return result.String()
}

func (p *QueryPanel) visibleItems() int {
	return min(len(p.dropdownFiltered), maxDropdown)
}

func (p *QueryPanel) filterDropdown(query string) {
	query = strings.ToUpper(query)
	p.dropdownFiltered = nil
	p.dropdownIndex = 0

	for _, item := range p.dropdownItems {
		if strings.Contains(strings.ToUpper(item), query) {
			p.dropdownFiltered = append(p.dropdownFiltered, item)
		}
	}
}

func (p *QueryPanel) highlightMatch(item, query string) string {
	if query == "" {
		return item
	}

	idx := strings.Index(strings.ToUpper(item), strings.ToUpper(query))
	if idx == -1 || idx+len(query) > len(item) {
		return item
	}

	before := item[:idx]
	match := item[idx : idx+len(query)]
	after := item[idx+len(query):]

	return before + styles.DropdownMatchStyle.Render(match) + after
}

func (p *QueryPanel) selectDropdownItem() {
	if p.dropdownIndex < len(p.dropdownFiltered) {
		p.symbolInput.SetValue(p.dropdownFiltered[p.dropdownIndex])
		p.symbolInput.CursorEnd()
	}
}

func (p *QueryPanel) nextField() tea.Cmd {
	p.showDropdown = false
	var cmd tea.Cmd
	switch p.currentField {
	case FieldExchange:
		p.currentField = FieldSymbol
		p.exchangeInput.Blur()
		cmd = tea.Batch(p.symbolInput.Focus(), p.exchangeCommitted())
	case FieldSymbol:
		p.currentField = FieldFetch
		p.symbolInput.Blur()
	case FieldFetch:
		p.currentField = FieldExchange
		cmd = p.exchangeInput.Focus()
	}
	return cmd
}

func (p *QueryPanel) prevField() tea.Cmd {
	p.showDropdown = false
	var cmd tea.Cmd
	switch p.currentField {
	case FieldExchange:
		p.currentField = FieldFetch
		p.exchangeInput.Blur()
		cmd = p.exchangeCommitted()
	case FieldSymbol:
		p.currentField = FieldExchange
		p.symbolInput.Blur()
		cmd = p.exchangeInput.Focus()
	case FieldFetch:
		p.currentField = FieldSymbol
		cmd = p.symbolInput.Focus()
	}
	return cmd
}

// exchangeCommitted asks for the exchange's markets when they are not loaded yet.
func (p *QueryPanel) exchangeCommitted() tea.Cmd {
	exchange := p.exchangeInput.Value()
	if exchange == "" || exchange == p.marketsFor {
		return nil
	}
	return func() tea.Msg { return ExchangeCommittedMsg{Exchange: exchange} }
}

func fetchRequested() tea.Msg {
	return FetchRequestedMsg{}
}

// SetFocus sets the focus state of the panel.
func (p *QueryPanel) SetFocus(focused bool) {
	p.focused = focused
	if !focused {
		p.showDropdown = false
	}
}

// SetSize sets the panel dimensions.
func (p *QueryPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetMarkets replaces the autocomplete candidates for exchange.
func (p *QueryPanel) SetMarkets(exchange string, markets []string) {
	p.marketsFor = exchange
	p.dropdownItems = markets
	p.filterDropdown(p.symbolInput.Value())
	p.showDropdown = false
}

// Exchange returns the exchange text as typed.
func (p *QueryPanel) Exchange() string {
	return p.exchangeInput.Value()
}

// Symbol returns the symbol text as typed.
func (p *QueryPanel) Symbol() string {
	return p.symbolInput.Value()
}

// CurrentField returns the focused field.
func (p *QueryPanel) CurrentField() QueryField {
	return p.currentField
}

// DropdownOpen reports whether the symbol dropdown is showing.
func (p *QueryPanel) DropdownOpen() bool {
	return p.showDropdown
}

// FetchRequestedMsg is sent when the fetch button is pressed.
type FetchRequestedMsg struct{}

// ExchangeCommittedMsg is sent when focus leaves the exchange field.
type ExchangeCommittedMsg struct {
	Exchange string
}
