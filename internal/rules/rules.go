// Package rules defines the capability the session core expects from a
// move-legality engine. Any conforming implementation is substitutable;
// the core never inspects a board beyond what this interface exposes.
package rules

type Side string

const (
	SideFirst  Side = "first"
	SideSecond Side = "second"
)

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == SideFirst {
		return SideSecond
	}
	return SideFirst
}

// Move is one half-move. From and To are engine-interpreted square names
// ("e2", "e4"); Promotion is an optional piece letter ("q", "n", ...).
type Move struct {
	From      string
	To        string
	Promotion string
}

func (m Move) String() string {
	return m.From + m.To + m.Promotion
}

type Outcome string

const (
	Ongoing Outcome = "ongoing"
	Win     Outcome = "win"
	Draw    Outcome = "draw"
)

// Status is the terminal state of a board. Winner is meaningful only when
// Outcome is Win.
type Status struct {
	Outcome Outcome
	Winner  Side
}

// Board is an engine-owned, opaque position. Values must be treated as
// immutable: Apply returns a fresh board and never alters its input.
type Board any

// Engine is the legality and terminal-state oracle both peers consult
// symmetrically.
type Engine interface {
	NewBoard() Board
	Legal(b Board, m Move) bool
	Apply(b Board, m Move) (Board, error)
	Digest(b Board) string
	Status(b Board) Status
	Text(b Board) string
}
