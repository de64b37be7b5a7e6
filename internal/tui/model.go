// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tui is the interactive book search widget. Every keystroke in the
// text input is forwarded to a typeahead subscription; the widget renders
// whatever search state the subscription emits.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/bookbrowser/internal/typeahead"
	"github.com/pdiddy/bookbrowser/pkg/types"
)

// SearchState is the typeahead state for book lookups.
type SearchState = typeahead.State[types.BookSummary]

const maxVisibleResults = 10

// stateMsg carries one state from the subscription.
type stateMsg SearchState

// closedMsg reports that the subscription's state stream ended.
type closedMsg struct{}

// Styles holds the widget's lipgloss styles.
type Styles struct {
	Title    lipgloss.Style
	Cursor   lipgloss.Style
	Selected lipgloss.Style
	Authors  lipgloss.Style
	Error    lipgloss.Style
	Dim      lipgloss.Style
	Help     lipgloss.Style
}

// DefaultStyles returns the standard color scheme.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1),
		Cursor:   lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		Selected: lipgloss.NewStyle().Bold(true),
		Authors:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Dim:      lipgloss.NewStyle().Faint(true),
		Help:     lipgloss.NewStyle().Faint(true).MarginTop(1),
	}
}

// Model is the bubbletea model of the search widget.
type Model struct {
	input   textinput.Model
	spinner spinner.Model
	styles  Styles

	queries chan<- string
	states  <-chan SearchState
	done    <-chan struct{}

	state    SearchState
	resolved bool
	spinning bool
	cursor   int

	selected *types.BookSummary
	quitting bool
}

// NewModel returns a widget that writes raw input to queries and renders
// states. done is closed when the subscription has shut down; sends are
// abandoned after that.
func NewModel(queries chan<- string, states <-chan SearchState, done <-chan struct{}) Model {
	ti := textinput.New()
	ti.Placeholder = "Search books by title, author, or description"
	ti.Prompt = "🔍 "
	ti.CharLimit = 200
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		input:   ti,
		spinner: sp,
		styles:  DefaultStyles(),
		queries: queries,
		states:  states,
		done:    done,
	}
}

// Selected returns the book chosen with enter, if any.
func (m Model) Selected() (types.BookSummary, bool) {
	if m.selected == nil {
		return types.BookSummary{}, false
	}
	return *m.selected, true
}

// State returns the last state received from the subscription.
func (m Model) State() SearchState { return m.state }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForState(m.states))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateMsg:
		return m.handleState(SearchState(msg))

	case closedMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		if !m.state.Searching {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		if m.cursor < len(m.state.Results) {
			chosen := m.state.Results[m.cursor]
			m.selected = &chosen
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case "up", "ctrl+p":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "ctrl+n":
		if m.cursor < len(m.state.Results)-1 {
			m.cursor++
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.send(after)
	}
	return m, cmd
}

func (m Model) handleState(s SearchState) (tea.Model, tea.Cmd) {
	m.state = s
	if !s.Searching {
		m.resolved = true
	}
	if m.cursor >= len(s.Results) {
		m.cursor = max(len(s.Results)-1, 0)
	}

	cmds := []tea.Cmd{waitForState(m.states)}
	if s.Searching && !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

// send forwards one raw input value. The pipeline reads its input
// continuously, so this blocks only until the event loop picks it up.
func (m Model) send(q string) {
	select {
	case m.queries <- q:
	case <-m.done:
	}
}

func waitForState(states <-chan SearchState) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-states
		if !ok {
			return closedMsg{}
		}
		return stateMsg(s)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("BookBrowser"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.state.Searching:
		b.WriteString(m.spinner.View() + " searching...\n")
	case m.state.Failed:
		b.WriteString(m.styles.Error.Render("search failed") + "\n")
	case m.resolved && len(m.state.Results) == 0 && strings.TrimSpace(m.input.Value()) != "":
		b.WriteString(m.styles.Dim.Render("no results") + "\n")
	default:
		b.WriteString("\n")
	}

	for i, r := range m.state.Results {
		if i >= maxVisibleResults {
			b.WriteString(m.styles.Dim.Render(fmt.Sprintf("  … %d more", len(m.state.Results)-i)) + "\n")
			break
		}
		b.WriteString(m.renderRow(i, r))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Help.Render("↑/↓ move • enter select • esc quit"))
	return b.String()
}

func (m Model) renderRow(i int, r types.BookSummary) string {
	marker := "  "
	title := r.Title
	if i == m.cursor {
		marker = m.styles.Cursor.Render("> ")
		title = m.styles.Selected.Render(title)
	}
	row := marker + title
	if authors := r.AuthorsDescription(); authors != "" {
		row += "  " + m.styles.Authors.Render(authors)
	}
	return row
}

// Run starts a subscription on p, drives it from an interactive widget on
// in/out, and returns the book the user picked. Quitting the widget tears
// the subscription down.
func Run(ctx context.Context, p *typeahead.Pipeline[types.BookSummary], in io.Reader, out io.Writer) (types.BookSummary, bool, error) {
	queries := make(chan string)
	sub := p.Subscribe(ctx, queries)
	defer sub.Close()

	model := NewModel(queries, sub.States(), sub.Done())
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := program.Run()
	if err != nil {
		return types.BookSummary{}, false, fmt.Errorf("running search widget: %w", err)
	}

	chosen, ok := final.(Model).Selected()
	return chosen, ok, nil
}
