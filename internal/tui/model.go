// Package tui is the terminal panel: the transcript in a scrolling viewport
// next to a table-of-contents sidebar with search.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hpungsan/chattoc/internal/config"
	"github.com/hpungsan/chattoc/internal/dom"
	"github.com/hpungsan/chattoc/internal/panel"
	"github.com/hpungsan/chattoc/internal/section"
	"github.com/hpungsan/chattoc/internal/toc"
)

// SidebarWidth is the outer width of the table-of-contents sidebar.
const SidebarWidth = 40

// DefaultRefresh is how often the model polls the panel state.
const DefaultRefresh = 150 * time.Millisecond

// Config wires the terminal panel to a running engine.
type Config struct {
	Engine   *toc.Engine[*dom.Node]
	Document *dom.Document
	Panel    *panel.Live[*dom.Node]
	Page     string
	Geometry toc.Geometry
	Refresh  time.Duration
}

type focus int

const (
	focusTranscript focus = iota
	focusSidebar
	focusSearch
)

type tickMsg time.Time

// Model is the bubbletea model of the terminal panel.
type Model struct {
	engine  *toc.Engine[*dom.Node]
	doc     *dom.Document
	panel   *panel.Live[*dom.Node]
	page    string
	refresh time.Duration

	viewport viewport.Model
	search   textinput.Model
	view     *dom.Viewport

	state  panel.State
	loaded bool
	cursor int
	focus  focus
	width  int
	height int
}

// New creates the model. The engine must already be initialized with cfg.Panel.
func New(cfg Config) Model {
	geometry := cfg.Geometry
	if len(geometry.Thresholds) == 0 {
		geometry = toc.DefaultGeometry()
	}
	refresh := cfg.Refresh
	if refresh <= 0 {
		refresh = DefaultRefresh
	}

	search := textinput.New()
	search.Placeholder = "search sections"
	search.Prompt = "/ "
	search.CharLimit = 200

	m := Model{
		engine:   cfg.Engine,
		doc:      cfg.Document,
		panel:    cfg.Panel,
		page:     cfg.Page,
		refresh:  refresh,
		viewport: viewport.New(80, 22),
		search:   search,
		view:     dom.NewViewport(cfg.Document, 22, geometry),
		width:    80,
		height:   24,
	}
	m.sync()
	return m
}

func (m Model) Init() tea.Cmd {
	return tick(m.refresh)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.reportVisibility()
		return m, nil

	case tickMsg:
		m.sync()
		return m, tick(m.refresh)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.reportVisibility()
		return m, cmd

	case tea.KeyMsg:
		if m.focus == focusSearch {
			return m.updateSearch(msg)
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "tab":
			if m.focus == focusSidebar {
				m.focus = focusTranscript
			} else if m.state.Open {
				m.focus = focusSidebar
			}
			return m, nil

		case "/":
			if !m.state.Open {
				m.engine.SetOpen(true)
				m.sync()
			}
			m.focus = focusSearch
			cmd := m.search.Focus()
			return m, cmd

		case "t":
			m.engine.Toggle()
			m.sync()
			if !m.state.Open {
				m.focus = focusTranscript
			}
			return m, nil

		case "g", "home":
			m.viewport.GotoTop()
			m.reportVisibility()
			return m, nil
		}

		if m.focus == focusSidebar {
			switch msg.String() {
			case "up", "k":
				if m.cursor > 0 {
					m.cursor--
				}
			case "down", "j":
				if m.cursor < len(m.visible())-1 {
					m.cursor++
				}
			case "enter":
				if items := m.visible(); m.cursor < len(items) {
					m.activate(items[m.cursor].AnchorID)
				}
			}
			return m, nil
		}

		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.reportVisibility()
		return m, cmd
	}

	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.search.SetValue("")
		m.search.Blur()
		m.focus = focusSidebar
		m.cursor = 0
		return m, nil
	case "enter":
		m.search.Blur()
		m.focus = focusSidebar
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.cursor = 0
	return m, cmd
}

// activate runs click-to-scroll: the engine checks the anchor is still live,
// then the transcript is scrolled so the message starts at the top.
func (m *Model) activate(anchorID string) {
	if !m.engine.Activate(anchorID) {
		return
	}
	if m.view.Reveal(anchorID) {
		m.viewport.SetYOffset(m.view.Top())
	}
	m.reportVisibility()
}

// sync pulls the panel state. The transcript is re-laid out only when the
// revision moved, since a rebuild is what follows a content change.
func (m *Model) sync() {
	st := m.panel.State()
	changed := !m.loaded || st.Revision != m.state.Revision
	m.state = st
	if !changed {
		return
	}
	m.loaded = true
	m.viewport.SetContent(strings.Join(m.doc.Layout().Lines, "\n"))
	if n := len(m.visible()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	m.resize()
	m.reportVisibility()
}

// reportVisibility feeds the threshold crossings of the current scroll
// position to the engine's live subscription.
func (m *Model) reportVisibility() {
	m.view.Resize(m.viewport.Height)
	m.view.Scroll(m.viewport.YOffset)
	if signals := m.view.Signals(m.engine.Visibility()); len(signals) > 0 {
		m.engine.ReportVisibility(signals)
	}
	m.state = m.panel.State()
}

func (m *Model) resize() {
	w := m.width
	if m.state.Open {
		w -= SidebarWidth
	}
	m.viewport.Width = max(w, 10)
	m.viewport.Height = max(m.height-2, 1)
	m.search.Width = SidebarWidth - 8
}

// visible returns the sidebar rows left after the search filter.
func (m Model) visible() []panel.Item {
	return m.state.Filter(m.search.Value())
}

// Active returns the anchor the sidebar marks as current.
func (m Model) Active() string {
	return m.state.Active
}

// Offset returns the first transcript line on screen.
func (m Model) Offset() int {
	return m.viewport.YOffset
}

func (m Model) View() string {
	header := headerStyle.Render("chattoc") + pageStyle.Render(fmt.Sprintf("%s · %d sections", m.page, len(m.state.Items)))

	body := m.viewport.View()
	if m.state.Open {
		sidebar := m.renderSidebar()
		if m.state.Options.PanelSide == config.SideLeft {
			body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, body)
		} else {
			body = lipgloss.JoinHorizontal(lipgloss.Top, body, sidebar)
		}
	}

	controls := controlsStyle.Render("TAB: focus  /: search  ENTER: jump  T: toggle  G: top  Q: quit")
	return header + "\n" + body + "\n" + controls
}

func (m Model) renderSidebar() string {
	inner := SidebarWidth - 4
	var sb strings.Builder

	sb.WriteString(m.search.View())
	sb.WriteString("\n")

	items := m.visible()
	if len(items) == 0 {
		sb.WriteString(emptyStyle.Render(toc.EmptyMessage))
	}

	highlight := lipgloss.NewStyle().Background(lipgloss.Color(m.state.Options.HighlightColor)).Foreground(lipgloss.Color("#000000"))
	rows := max(m.height-5, 1)
	start := scrollStart(m.anchorIndex(items), rows)
	end := min(start+rows, len(items))
	for i := start; i < end; i++ {
		it := items[i]
		if i > start {
			sb.WriteString("\n")
		}
		marker := "  "
		if it.AnchorID == m.state.Active {
			marker = "▸ "
		}
		badge := userBadgeStyle.Render(string(it.Badge))
		if it.Badge == section.BadgeAssistant {
			badge = assistantBadgeStyle.Render(string(it.Badge))
		}
		prefix := fmt.Sprintf("%s%s ", marker, positionStyle.Render(it.Label()))
		room := inner - lipgloss.Width(prefix) - lipgloss.Width(badge) - 1
		title := truncate(it.Title, room)

		switch {
		case it.AnchorID == m.state.Highlight:
			title = highlight.Render(title)
		case m.focus == focusSidebar && i == m.cursor:
			title = cursorStyle.Render(title)
		case it.AnchorID == m.state.Active:
			title = activeStyle.Render(title)
		}
		sb.WriteString(prefix + badge + " " + title)
	}

	style := sidebarStyle
	if m.focus != focusTranscript {
		style = focusedSidebarStyle
	}
	return style.Width(inner).Height(max(m.height-4, 1)).Render(sb.String())
}

// anchorIndex is the row the sidebar keeps on screen: the cursor while the
// sidebar has focus, the active entry otherwise.
func (m Model) anchorIndex(items []panel.Item) int {
	if m.focus != focusTranscript {
		return m.cursor
	}
	for i, it := range items {
		if it.AnchorID == m.state.Active {
			return i
		}
	}
	return 0
}

// scrollStart returns the first row to draw so that row idx fits in rows lines.
func scrollStart(idx, rows int) int {
	if idx < rows {
		return 0
	}
	return idx - rows + 1
}

// truncate cuts s to at most n cells, ending with an ellipsis when cut.
func truncate(s string, n int) string {
	if n <= 1 {
		return ""
	}
	if lipgloss.Width(s) <= n {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > n {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + section.Ellipsis
}
