// Package game holds the authoritative local board. State is mutated only
// through Apply, which refuses illegal moves, so every board this package
// hands out has passed the engine's legality check.
package game

import (
	"errors"
	"fmt"

	"github.com/aleklund/netchess/internal/rules"
)

var ErrIllegalMove = errors.New("illegal move")

type State struct {
	Board rules.Board
	Turn  rules.Side
	Moves int
}

// New starts a fresh game with the first seat to move.
func New(eng rules.Engine) State {
	return State{
		Board: eng.NewBoard(),
		Turn:  rules.SideFirst,
		Moves: 0,
	}
}

// Apply validates mv against s, applies it and flips the turn. It returns
// the next state plus the digest of the post-move board. On failure the
// input state is returned unchanged.
func Apply(eng rules.Engine, s State, mv rules.Move) (State, string, error) {
	if !eng.Legal(s.Board, mv) {
		return s, "", ErrIllegalMove
	}
	board, err := eng.Apply(s.Board, mv)
	if err != nil {
		// The engine can still refuse a move its legality check let
		// through; callers only ever branch on the sentinel.
		return s, "", fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	next := State{
		Board: board,
		Turn:  s.Turn.Other(),
		Moves: s.Moves + 1,
	}
	return next, eng.Digest(board), nil
}
