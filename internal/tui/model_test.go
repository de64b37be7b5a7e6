// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bookbrowser/pkg/types"
)

type harness struct {
	model   Model
	queries chan string
	states  chan SearchState
	done    chan struct{}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		queries: make(chan string, 16),
		states:  make(chan SearchState, 16),
		done:    make(chan struct{}),
	}
	h.model = NewModel(h.queries, h.states, h.done)
	return h
}

func (h *harness) update(msg tea.Msg) tea.Cmd {
	m, cmd := h.model.Update(msg)
	h.model = m.(Model)
	return cmd
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (h *harness) nextQuery(t *testing.T) string {
	t.Helper()
	select {
	case q := <-h.queries:
		return q
	case <-time.After(time.Second):
		t.Fatal("no query forwarded")
		return ""
	}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func results(titles ...string) []types.BookSummary {
	out := make([]types.BookSummary, len(titles))
	for i, title := range titles {
		out[i] = types.BookSummary{ID: int64(i + 1), Title: title}
	}
	return out
}

func TestTypingForwardsEveryValue(t *testing.T) {
	h := newHarness(t)
	h.typeText("dun")

	assert.Equal(t, "d", h.nextQuery(t))
	assert.Equal(t, "du", h.nextQuery(t))
	assert.Equal(t, "dun", h.nextQuery(t))

	h.update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "du", h.nextQuery(t))
}

func TestNavigationKeysAreNotForwarded(t *testing.T) {
	h := newHarness(t)
	h.update(tea.KeyMsg{Type: tea.KeyDown})
	h.update(tea.KeyMsg{Type: tea.KeyUp})
	h.update(tea.KeyMsg{Type: tea.KeyLeft})

	select {
	case q := <-h.queries:
		t.Fatalf("unexpected query %q", q)
	default:
	}
}

func TestSendAbandonedAfterDone(t *testing.T) {
	h := newHarness(t)
	h.queries = make(chan string) // unbuffered and never read
	h.model = NewModel(h.queries, h.states, h.done)
	close(h.done)

	finished := make(chan struct{})
	go func() {
		h.typeText("x")
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("typing blocked after the subscription shut down")
	}
}

func TestStateRendering(t *testing.T) {
	h := newHarness(t)
	h.typeText("dune")

	cmd := h.update(stateMsg{Searching: true})
	require.NotNil(t, cmd, "searching starts the spinner and keeps listening")
	assert.Contains(t, h.model.View(), "searching...")

	h.update(stateMsg{Results: []types.BookSummary{{
		Title:    "Dune",
		Creators: []types.Creator{{FullName: "Frank Herbert"}, {FullName: "Brian Herbert"}},
	}}})
	view := h.model.View()
	assert.NotContains(t, view, "searching...")
	assert.Contains(t, view, "Dune")
	assert.Contains(t, view, "Frank Herbert , Brian Herbert")

	h.update(stateMsg{Failed: true, Results: []types.BookSummary{}})
	view = h.model.View()
	assert.Contains(t, view, "search failed")
	assert.NotContains(t, view, "Frank Herbert")

	h.update(stateMsg{Results: []types.BookSummary{}})
	assert.Contains(t, h.model.View(), "no results")
}

func TestNoResultsHintNeedsInput(t *testing.T) {
	h := newHarness(t)
	h.update(stateMsg{Results: []types.BookSummary{}})
	assert.NotContains(t, h.model.View(), "no results")
}

func TestCursorMovesAndClamps(t *testing.T) {
	h := newHarness(t)
	h.update(stateMsg{Results: results("A", "B", "C")})

	h.update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, h.model.cursor)

	h.update(tea.KeyMsg{Type: tea.KeyDown})
	h.update(tea.KeyMsg{Type: tea.KeyDown})
	h.update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, h.model.cursor)

	h.update(stateMsg{Results: results("X")})
	assert.Equal(t, 0, h.model.cursor, "cursor clamps to the new result list")
}

func TestEnterSelectsAndQuits(t *testing.T) {
	h := newHarness(t)
	h.update(stateMsg{Results: results("A", "B")})
	h.update(tea.KeyMsg{Type: tea.KeyDown})

	cmd := h.update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, isQuit(cmd))

	chosen, ok := h.model.Selected()
	require.True(t, ok)
	assert.Equal(t, "B", chosen.Title)
	assert.Empty(t, h.model.View())
}

func TestEnterWithoutResultsDoesNothing(t *testing.T) {
	h := newHarness(t)
	cmd := h.update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, isQuit(cmd))
	_, ok := h.model.Selected()
	assert.False(t, ok)
}

func TestEscQuitsWithoutSelection(t *testing.T) {
	h := newHarness(t)
	h.update(stateMsg{Results: results("A")})

	cmd := h.update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, isQuit(cmd))
	_, ok := h.model.Selected()
	assert.False(t, ok)
}

func TestWaitForState(t *testing.T) {
	h := newHarness(t)
	h.states <- SearchState{Searching: true}
	msg := waitForState(h.states)()
	assert.Equal(t, stateMsg{Searching: true}, msg)

	close(h.states)
	msg = waitForState(h.states)()
	assert.Equal(t, closedMsg{}, msg)

	cmd := h.update(msg)
	assert.True(t, isQuit(cmd), "a closed stream ends the widget")
}

func TestLongResultListIsCapped(t *testing.T) {
	h := newHarness(t)
	titles := make([]string, 15)
	for i := range titles {
		titles[i] = string(rune('A' + i))
	}
	h.update(stateMsg{Results: results(titles...)})
	assert.Contains(t, h.model.View(), "5 more")
}
