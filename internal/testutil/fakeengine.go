// Package testutil holds test doubles for the session core: a scriptable
// rules engine and an in-process relay speaking the real wire contract.
package testutil

import (
	"errors"
	"strings"

	"github.com/aleklund/netchess/internal/rules"
)

var (
	errIllegal = errors.New("fakeengine: illegal move")
	errRefused = errors.New("fakeengine: refused by apply")
)

// FakeEngine is a rules engine whose board is just the list of applied
// moves. Every move is legal unless scripted otherwise, and the digest is
// derived from the move list, so two boards fed the same moves agree.
type FakeEngine struct {
	// Illegal rejects specific moves by their "fromto" string.
	Illegal map[string]bool
	// FailApply makes Apply error for specific moves even after Legal
	// accepted them.
	FailApply map[string]bool
	// Final, when set, is reported once the board holds at least
	// FinalAfter moves.
	Final      rules.Status
	FinalAfter int
}

func NewFakeEngine() *FakeEngine {
	return &FakeEngine{Illegal: map[string]bool{}, FailApply: map[string]bool{}}
}

func (e *FakeEngine) NewBoard() rules.Board {
	return []string{}
}

func (e *FakeEngine) Legal(b rules.Board, m rules.Move) bool {
	if m.From == "" || m.To == "" {
		return false
	}
	return !e.Illegal[m.String()]
}

func (e *FakeEngine) Apply(b rules.Board, m rules.Move) (rules.Board, error) {
	if !e.Legal(b, m) {
		return nil, errIllegal
	}
	if e.FailApply[m.String()] {
		return nil, errRefused
	}
	moves := b.([]string)
	next := make([]string, len(moves), len(moves)+1)
	copy(next, moves)
	return append(next, m.String()), nil
}

func (e *FakeEngine) Digest(b rules.Board) string {
	return "d:" + strings.Join(b.([]string), ",")
}

func (e *FakeEngine) Status(b rules.Board) rules.Status {
	if e.FinalAfter > 0 && len(b.([]string)) >= e.FinalAfter {
		return e.Final
	}
	return rules.Status{Outcome: rules.Ongoing}
}

func (e *FakeEngine) Text(b rules.Board) string {
	return strings.Join(b.([]string), "\n")
}
