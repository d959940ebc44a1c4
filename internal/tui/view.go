package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aleklund/netchess/internal/protocol"
	"github.com/aleklund/netchess/internal/rules"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	boardStyle  = lipgloss.NewStyle().Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle   = lipgloss.NewStyle().Faint(true).Italic(true)
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("netchess — room %s", m.snap.Room)))
	b.WriteString("\n\n")

	switch m.snap.Phase {
	case protocol.PhaseIdle, protocol.PhaseConnecting:
		b.WriteString(statusStyle.Render("connecting to relay..."))
		b.WriteString("\n")

	case protocol.PhaseWaitingForPeer:
		b.WriteString(statusStyle.Render("waiting for opponent to join..."))
		b.WriteString("\n")

	case protocol.PhaseActive:
		b.WriteString(boardStyle.Render(m.snap.Board))
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.statusLine()))
		b.WriteString("\n\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")

	case protocol.PhaseTerminated:
		b.WriteString(errorStyle.Render(terminationText(m.snap.Reason, m.snap.Detail)))
		b.WriteString("\n\n")
		b.WriteString(hintStyle.Render("press R to restart, Esc to quit"))
		b.WriteString("\n")
	}

	if m.flash != "" {
		b.WriteString(errorStyle.Render(m.flash))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) statusLine() string {
	you := sideName(m.snap.Role)

	switch m.snap.Status.Outcome {
	case rules.Win:
		if m.snap.Status.Winner == m.snap.Role {
			return fmt.Sprintf("checkmate — you win! (%d moves)  R restarts", m.snap.Moves)
		}
		return fmt.Sprintf("checkmate — you lose (%d moves)  R restarts", m.snap.Moves)
	case rules.Draw:
		return fmt.Sprintf("draw (%d moves)  R restarts", m.snap.Moves)
	}

	turn := "opponent's turn"
	if m.snap.Turn == m.snap.Role {
		turn = "your turn"
	}
	return fmt.Sprintf("you are %s — %s — move %d", you, turn, m.snap.Moves+1)
}

func terminationText(reason protocol.Reason, detail string) string {
	switch reason {
	case protocol.ReasonPeerLeft:
		return "opponent disconnected"
	case protocol.ReasonDesync:
		return "boards diverged from opponent: " + detail
	case protocol.ReasonConnError:
		return "connection error: " + detail
	default:
		return "session ended"
	}
}

func sideName(s rules.Side) string {
	if s == rules.SideFirst {
		return "White"
	}
	return "Black"
}
