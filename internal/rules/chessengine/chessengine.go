// Package chessengine adapts github.com/notnil/chess to the rules.Engine
// capability. The first seat plays White.
package chessengine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/notnil/chess"

	"github.com/aleklund/netchess/internal/rules"
)

type Engine struct{}

func New() Engine { return Engine{} }

func (Engine) NewBoard() rules.Board {
	return chess.NewGame()
}

func (Engine) Legal(b rules.Board, m rules.Move) bool {
	g, ok := b.(*chess.Game)
	if !ok {
		return false
	}
	mv, err := decode(g, m)
	if err != nil {
		return false
	}
	// Decoding only resolves coordinates; play the move on a clone to
	// check it against the position (and that the game is still going).
	return g.Clone().Move(mv) == nil
}

func (Engine) Apply(b rules.Board, m rules.Move) (rules.Board, error) {
	g, ok := b.(*chess.Game)
	if !ok {
		return nil, fmt.Errorf("chessengine: not a chess board: %T", b)
	}
	mv, err := decode(g, m)
	if err != nil {
		return nil, err
	}
	next := g.Clone()
	if err := next.Move(mv); err != nil {
		return nil, err
	}
	return next, nil
}

// Digest hashes the full FEN, so clocks and castling rights count toward
// agreement, not just piece placement.
func (Engine) Digest(b rules.Board) string {
	g, ok := b.(*chess.Game)
	if !ok {
		return ""
	}
	sum := sha256.Sum256([]byte(g.FEN()))
	return hex.EncodeToString(sum[:])
}

func (Engine) Status(b rules.Board) rules.Status {
	g, ok := b.(*chess.Game)
	if !ok {
		return rules.Status{Outcome: rules.Ongoing}
	}
	switch g.Outcome() {
	case chess.WhiteWon:
		return rules.Status{Outcome: rules.Win, Winner: rules.SideFirst}
	case chess.BlackWon:
		return rules.Status{Outcome: rules.Win, Winner: rules.SideSecond}
	case chess.Draw:
		return rules.Status{Outcome: rules.Draw}
	default:
		return rules.Status{Outcome: rules.Ongoing}
	}
}

func (Engine) Text(b rules.Board) string {
	g, ok := b.(*chess.Game)
	if !ok {
		return ""
	}
	return g.Position().Board().Draw()
}

// decode resolves a coordinate move against the current position. It
// only parses; Game.Move is what rejects moves the position forbids.
func decode(g *chess.Game, m rules.Move) (*chess.Move, error) {
	return chess.UCINotation{}.Decode(g.Position(), m.String())
}
