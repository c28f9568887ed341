// Package tui is an interactive harness for the engine: it converts typed
// characters into synthetic key events, runs them through a live pipeline,
// and displays the state of every component beside the text the engine
// actually produced. Function keys trigger the engine keys that have no
// character of their own (repeat, alternate repeat, selection, caps word).
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/keyweave/keyweave/internal/event"
	"github.com/keyweave/keyweave/internal/keycode"
	"github.com/keyweave/keyweave/internal/layout"
	"github.com/keyweave/keyweave/internal/logging"
	"github.com/keyweave/keyweave/internal/pipeline"
	"github.com/keyweave/keyweave/internal/pty"
	"github.com/keyweave/keyweave/internal/ui"
)

const eventLogSize = 12

// Run starts the inspector over the given layout.
func Run(lay *layout.Layout, opts pipeline.Options) error {
	// The tap delay would stall the UI thread for no visible benefit.
	opts.TapDelay = 0
	opts.Sleep = func(time.Duration) {}

	m := newModel(lay, opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// screenEmitter renders engine output as it would appear in a terminal. It
// interprets the PTY encoding of each press: printable bytes build up the
// text pane, backspace deletes, escape sequences are shown symbolically in
// the event log.
type screenEmitter struct {
	mods keycode.Mods
	text strings.Builder
	log  []string
}

func (e *screenEmitter) Modifiers(m keycode.Mods) {
	e.mods = m
}

func (e *screenEmitter) Key(kc keycode.Keycode, pressed bool) {
	if !pressed {
		return
	}

	e.logEvent(kc.WithMods(e.mods | kc.Mods()).String())

	data := pty.Encode(kc, e.mods)
	switch {
	case len(data) == 1 && data[0] == 0x7f:
		e.backspace()
	case len(data) == 1 && data[0] == '\r':
		e.text.WriteByte('\n')
	case len(data) == 1 && data[0] >= ' ' && data[0] < 0x7f:
		e.text.WriteByte(data[0])
	}
}

func (e *screenEmitter) logEvent(s string) {
	e.log = append(e.log, s)
	if len(e.log) > eventLogSize {
		e.log = e.log[len(e.log)-eventLogSize:]
	}
}

func (e *screenEmitter) backspace() {
	s := e.text.String()
	if s == "" {
		return
	}
	e.text.Reset()
	e.text.WriteString(s[:len(s)-1])
}

type tickMsg time.Time

type model struct {
	engine  *pipeline.Pipeline
	emitter *screenEmitter
	width   int
	height  int
}

func newModel(lay *layout.Layout, opts pipeline.Options) *model {
	emitter := &screenEmitter{}
	engine := pipeline.New(lay, emitter, opts, logging.Discard())
	return &model{engine: engine, emitter: emitter}
}

func (m *model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func clock() uint16 {
	return uint16(time.Now().UnixMilli())
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.engine.Tick(clock())
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyRunes:
		for _, r := range msg.Runes {
			kc, shift, ok := keycode.FromRune(r)
			if !ok {
				continue
			}
			m.tap(kc, shift)
		}
		return m, nil

	case tea.KeyEnter:
		m.tap(keycode.KeyEnter, false)
	case tea.KeySpace:
		m.tap(keycode.KeySpace, false)
	case tea.KeyBackspace:
		m.tap(keycode.KeyBackspace, false)
	case tea.KeyTab:
		m.tap(keycode.KeyTab, false)

	// The engine keys have no typed character; the function row stands in
	// for them.
	case tea.KeyF1:
		m.tap(keycode.KeyRepeat, false)
	case tea.KeyF2:
		m.tap(keycode.KeyAltRepeat, false)
	case tea.KeyF3:
		m.tap(keycode.KeySelectWord, false)
	case tea.KeyF4:
		m.tap(keycode.KeyCapsWord, false)
	case tea.KeyF5:
		m.tap(keycode.KeyLayerLock, false)
	}
	return m, nil
}

// tap feeds a press and release pair of synthetic events to the engine.
// Virtual positions bypass the position-based chord heuristics, which need
// a real matrix to mean anything.
func (m *model) tap(kc keycode.Keycode, shift bool) {
	now := clock()
	if shift {
		m.press(keycode.KeyLeftShift, true, now)
	}
	m.press(kc, true, now)
	m.press(kc, false, now)
	if shift {
		m.press(keycode.KeyLeftShift, false, now)
	}
}

func (m *model) press(kc keycode.Keycode, pressed bool, now uint16) {
	m.engine.Handle(event.Event{
		Pos:     event.VirtualPos,
		Key:     kc,
		Pressed: pressed,
		Time:    now,
	})
}

func (m *model) View() string {
	text := m.emitter.text.String()
	textPane := ui.BoxStyle.Width(max(40, m.width-32)).Render(text + "▌")

	statePane := ui.HighlightBoxStyle.Render(m.stateView())
	logPane := ui.BoxStyle.Render(m.logView())

	body := lipgloss.JoinHorizontal(lipgloss.Top, textPane,
		lipgloss.JoinVertical(lipgloss.Left, statePane, logPane))

	help := ui.Muted("type to feed the engine · F1 repeat · F2 alt-repeat · " +
		"F3 select word · F4 caps word · F5 layer lock · esc quits")

	return lipgloss.JoinVertical(lipgloss.Left,
		ui.Title("keyweave inspector"), body, help)
}

func (m *model) stateView() string {
	var sb strings.Builder

	pending := "none"
	if kc := m.engine.Chord().Pending(); kc != keycode.KeyNone {
		pending = kc.String()
	}
	fmt.Fprintf(&sb, "chord      %s\n", pending)

	last := "none"
	if kc := m.engine.Repeat().LastKeycode(); kc != keycode.KeyNone {
		last = kc.WithMods(m.engine.Repeat().LastMods()).String()
	}
	fmt.Fprintf(&sb, "repeat     %s (count %d)\n", last, m.engine.Repeat().Count())
	fmt.Fprintf(&sb, "sentence   %s\n", m.engine.SentenceCase().State())
	fmt.Fprintf(&sb, "selection  %s\n", m.engine.SelectWord().State())
	fmt.Fprintf(&sb, "caps word  %v\n", m.engine.CapsWord().Active())
	fmt.Fprintf(&sb, "locked     0x%02x\n", m.engine.LayerLock().LockedLayers())
	fmt.Fprintf(&sb, "mods       0x%02x\n", uint8(m.engine.Mods()|m.engine.WeakMods()|m.engine.OneshotMods()))
	fmt.Fprintf(&sb, "layers     0x%02x", m.engine.LayerState())

	return sb.String()
}

func (m *model) logView() string {
	if len(m.emitter.log) == 0 {
		return ui.Muted("no output yet")
	}
	return strings.Join(m.emitter.log, "\n")
}
