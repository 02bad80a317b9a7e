package monitor

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/choreo/internal/config"
	"github.com/san-kum/choreo/internal/scenario"
	"github.com/san-kum/choreo/internal/signal"
)

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newModel(t *testing.T, name string) Model {
	t.Helper()
	sc, err := scenario.Builtin(name)
	require.NoError(t, err)
	m, err := New(config.DefaultConfig(), sc, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestTicksAdvanceEngine(t *testing.T) {
	m := newModel(t, "pointer-burst")
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 30; i++ {
		m = step(t, m, TickMsg(start.Add(time.Duration(i)*16*time.Millisecond)))
	}
	// the first tick only starts the wall clock
	assert.Equal(t, 29*16*time.Millisecond, m.Elapsed())
	assert.Equal(t, 29, m.rec.ticks)
	assert.Greater(t, m.rec.emits, 0)
	assert.Len(t, m.rec.energy, 29)

	view := m.View()
	assert.True(t, strings.Contains(view, "CHOREO"))
	assert.True(t, strings.Contains(view, "LIVE"))
}

func TestPauseStopsClock(t *testing.T) {
	m := newModel(t, "idle")
	start := time.Now()
	m = step(t, m, TickMsg(start))
	m = step(t, m, key(' '))
	m = step(t, m, TickMsg(start.Add(100*time.Millisecond)))

	assert.Zero(t, m.Elapsed())
	assert.Contains(t, m.View(), "PAUSED")

	m = step(t, m, key(' '))
	m = step(t, m, TickMsg(start.Add(116*time.Millisecond)))
	assert.Equal(t, 16*time.Millisecond, m.Elapsed())
}

func TestKeys(t *testing.T) {
	m := newModel(t, "idle")
	assert.Equal(t, signal.Fields[0].Name, m.Field())

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, signal.Fields[1].Name, m.Field())

	m = step(t, m, key('j'))
	assert.Equal(t, scrollStep, m.scroll)
	m = step(t, m, key('k'))
	m = step(t, m, key('k'))
	assert.Equal(t, 0.0, m.scroll)

	m = step(t, m, key('h'))
	assert.True(t, m.eng.Hidden())
	assert.Contains(t, m.View(), "HIDDEN")

	m = step(t, m, key('m'))
	assert.True(t, m.eng.ReducedMotion())
	assert.False(t, m.eng.Running())

	m = step(t, m, key('t'))
	assert.Equal(t, 1, m.theme)

	_, cmd := m.Update(key('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
