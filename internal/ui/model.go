package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-portfolio/internal/export"
	"github.com/rovshanmuradov/solana-portfolio/internal/portfolio"
)

// positionsMsg delivers one settled fetch cycle to the view.
type positionsMsg struct {
	generation int
	positions  []portfolio.Position
	err        error
}

// Model is the bubbletea model for the portfolio view.
type Model struct {
	agg    *portfolio.Aggregator
	logger *zap.Logger

	owners   []solana.PublicKey
	ownerIdx int

	positions []portfolio.Position
	visible   []portfolio.Position
	cursor    int

	search    textinput.Model
	searching bool
	hideDust  bool
	epsilon   float64
	highlight string

	// generation identifies the fetch cycle this view is waiting for; late
	// results from an older cycle are dropped on arrival.
	generation int
	cancel     context.CancelFunc
	loading    bool
	err        error

	exporter  *export.PositionExporter
	exportDir string
	status    string

	keys   KeyMap
	width  int
	height int
}

// SetExporter enables the export key for the view. Without it the key is
// ignored.
func (m *Model) SetExporter(exporter *export.PositionExporter, dir string) {
	m.exporter = exporter
	m.exportDir = dir
}

func NewModel(agg *portfolio.Aggregator, owners []solana.PublicKey, epsilon float64, highlight string, logger *zap.Logger) Model {
	search := textinput.New()
	search.Placeholder = "search mint, name or symbol"
	search.CharLimit = 64

	return Model{
		agg:       agg,
		logger:    logger.Named("ui"),
		owners:    owners,
		search:    search,
		hideDust:  true,
		epsilon:   epsilon,
		highlight: highlight,
		keys:      DefaultKeyMap(),
	}
}

// refreshRequestMsg asks Update to start a fetch cycle. Init emits it
// instead of starting the cycle itself: the generation bump must land on the
// stored model, and mutations made from Init's value receiver are lost.
type refreshRequestMsg struct{}

func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return refreshRequestMsg{} }
}

// refreshCmd starts a new fetch cycle for the current owner, cancelling any
// cycle still in flight.
func (m *Model) refreshCmd() tea.Cmd {
	if len(m.owners) == 0 {
		return nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.agg.Invalidate()
	m.generation++
	m.loading = true
	m.err = nil

	gen := m.generation
	owner := m.owners[m.ownerIdx]
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	agg := m.agg
	return func() tea.Msg {
		positions, err := agg.Refresh(ctx, owner)
		return positionsMsg{generation: gen, positions: positions, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case refreshRequestMsg:
		cmd := m.refreshCmd()
		return m, cmd

	case positionsMsg:
		return m.handlePositions(msg)

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handlePositions(msg positionsMsg) (tea.Model, tea.Cmd) {
	if msg.generation != m.generation {
		// A cycle we already abandoned; its settlement must not touch state.
		return m, nil
	}
	m.loading = false
	if msg.err != nil {
		if msg.err == portfolio.ErrStale {
			return m, nil
		}
		// Transport fault: clear the previous list rather than show stale
		// rows next to an error banner.
		m.err = msg.err
		m.positions = nil
		m.visible = nil
		m.cursor = 0
		return m, nil
	}
	m.err = nil
	m.positions = msg.positions
	portfolio.MarkHighlight(m.positions, m.highlight)
	m.applyView()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.cancel != nil {
			m.cancel()
		}
		m.agg.Invalidate()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		m.status = ""
		cmd := m.refreshCmd()
		return m, cmd

	case key.Matches(msg, m.keys.Export):
		return m.exportVisible()

	case key.Matches(msg, m.keys.ToggleDust):
		m.hideDust = !m.hideDust
		m.applyView()
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.ClearSearch):
		m.search.SetValue("")
		m.applyView()
		return m, nil

	case key.Matches(msg, m.keys.NextOwner):
		if len(m.owners) > 1 {
			m.ownerIdx = (m.ownerIdx + 1) % len(m.owners)
			m.positions = nil
			m.visible = nil
			m.cursor = 0
			cmd := m.refreshCmd()
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		if msg.Type == tea.KeyEsc {
			m.search.SetValue("")
		}
		m.applyView()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.applyView()
	return m, cmd
}

// exportVisible writes the currently filtered view to a CSV file.
func (m Model) exportVisible() (tea.Model, tea.Cmd) {
	if m.exporter == nil || len(m.positions) == 0 {
		return m, nil
	}
	var owner string
	if len(m.owners) > 0 {
		owner = m.owners[m.ownerIdx].String()
	}
	path, err := m.exporter.ExportPositions(m.positions, export.ExportOptions{
		Format:      export.FormatCSV,
		Owner:       owner,
		HideDust:    m.hideDust,
		DustEpsilon: m.epsilon,
		Query:       m.search.Value(),
		OutputDir:   m.exportDir,
	})
	if err != nil {
		m.status = "export failed: " + err.Error()
		m.logger.Warn("Export failed", zap.Error(err))
		return m, nil
	}
	m.status = "exported " + path
	return m, nil
}

// applyView recomputes the visible rows from the settled list.
func (m *Model) applyView() {
	m.visible = portfolio.ApplyView(m.positions, portfolio.ViewOptions{
		HideDust:    m.hideDust,
		DustEpsilon: m.epsilon,
		Query:       m.search.Value(),
	})
	if m.cursor >= len(m.visible) {
		m.cursor = 0
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Portfolio"))
	if len(m.owners) > 0 {
		b.WriteString(ownerStyle.Render(shortKey(m.owners[m.ownerIdx].String())))
	}
	b.WriteString("\n\n")

	if m.searching || m.search.Value() != "" {
		b.WriteString("  " + m.search.View() + "\n\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	case m.loading && len(m.visible) == 0:
		b.WriteString(helpStyle.Render("loading..."))
		b.WriteString("\n")
	case len(m.visible) == 0:
		b.WriteString(helpStyle.Render("no positions"))
		b.WriteString("\n")
	default:
		b.WriteString(m.renderTable())
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(helpStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("r refresh • d dust • / search • e export • tab wallet • q quit"))
	return b.String()
}

func (m Model) renderTable() string {
	var b strings.Builder
	b.WriteString(headerRowStyle.Render(fmt.Sprintf("  %-12s %-24s %18s", "SYMBOL", "NAME", "AMOUNT")))
	b.WriteString("\n")

	for i, p := range m.visible {
		symbol := p.Symbol
		name := p.Name
		if !p.Attached && symbol == "" && name == "" {
			name = "metadata not attached"
		}
		if symbol == "" {
			symbol = shortKey(p.Mint.String())
		}

		line := fmt.Sprintf("  %-12s %-24s %18s", clip(symbol, 12), clip(name, 24), p.AmountText)

		style := rowStyle
		switch {
		case p.Highlight:
			style = highlightRowStyle
		case i == m.cursor:
			style = selectedRowStyle
		case !p.Attached && p.Name == "":
			style = detachedStyle
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// shortKey and clip truncate by runes; token names are not always ASCII and
// byte slicing would split a multibyte rune mid-sequence.
func shortKey(s string) string {
	r := []rune(s)
	if len(r) <= 12 {
		return s
	}
	return string(r[:4]) + "…" + string(r[len(r)-4:])
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
