// Package tui is the terminal surface: it renders session snapshots and
// turns keystrokes into session events. It holds no game state of its
// own; everything it shows arrives as a Snapshot from the lifecycle.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aleklund/netchess/internal/rules"
	"github.com/aleklund/netchess/internal/session"
)

// snapshotMsg carries a lifecycle snapshot into the bubbletea loop.
type snapshotMsg session.Snapshot

// DoneMsg ends the program once the session loop has returned.
type DoneMsg struct{ Err error }

type Model struct {
	events   chan<- session.Event
	snap     session.Snapshot
	input    textinput.Model
	flash    string
	quitting bool
}

func New(events chan<- session.Event) Model {
	ti := textinput.New()
	ti.Placeholder = "e2e4"
	ti.Prompt = "move> "
	ti.CharLimit = 5
	ti.Focus()
	return Model{events: events, input: ti}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = session.Snapshot(msg)
		return m, nil

	case DoneMsg:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			m.events <- session.Quit{}
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEnter:
			value := m.input.Value()
			m.input.Reset()
			if value == "" {
				return m, nil
			}
			mv, err := ParseMove(value)
			if err != nil {
				m.flash = err.Error()
				return m, nil
			}
			m.flash = ""
			m.events <- session.MoveAttempt{Move: mv}
			return m, nil

		case tea.KeyRunes:
			// R restarts, but only on an empty line so move typing is
			// never hijacked.
			if len(msg.Runes) == 1 && msg.Runes[0] == 'R' && m.input.Value() == "" {
				m.flash = ""
				m.events <- session.Restart{}
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ParseMove reads coordinate notation: four characters for a plain move,
// a fifth for the promotion piece ("e7e8q").
func ParseMove(s string) (rules.Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return rules.Move{}, fmt.Errorf("moves look like e2e4 or e7e8q")
	}
	from, to := s[0:2], s[2:4]
	for _, sq := range []string{from, to} {
		if sq[0] < 'a' || sq[0] > 'h' || sq[1] < '1' || sq[1] > '8' {
			return rules.Move{}, fmt.Errorf("%q is not a square", sq)
		}
	}
	mv := rules.Move{From: from, To: to}
	if len(s) == 5 {
		switch s[4] {
		case 'q', 'r', 'b', 'n':
			mv.Promotion = s[4:5]
		default:
			return rules.Move{}, fmt.Errorf("promotion piece must be one of q r b n")
		}
	}
	return mv, nil
}

// Renderer forwards lifecycle snapshots into a running program.
type Renderer struct {
	p *tea.Program
}

func NewRenderer(p *tea.Program) *Renderer {
	return &Renderer{p: p}
}

func (r *Renderer) Render(s session.Snapshot) {
	r.p.Send(snapshotMsg(s))
}
