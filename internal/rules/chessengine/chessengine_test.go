package chessengine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aleklund/netchess/internal/rules"
)

func TestLegal(t *testing.T) {
	eng := New()
	board := eng.NewBoard()

	cases := []struct {
		name string
		mv   rules.Move
		want bool
	}{
		{name: "opening pawn push", mv: rules.Move{From: "e2", To: "e4"}, want: true},
		{name: "knight jump", mv: rules.Move{From: "g1", To: "f3"}, want: true},
		{name: "moving opponent piece", mv: rules.Move{From: "e7", To: "e5"}, want: false},
		{name: "empty square", mv: rules.Move{From: "e4", To: "e5"}, want: false},
		{name: "blocked rook", mv: rules.Move{From: "a1", To: "a5"}, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := eng.Legal(board, tc.mv); got != tc.want {
				t.Fatalf("Legal(%v): got %v, want %v", tc.mv, got, tc.want)
			}
		})
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	eng := New()
	board := eng.NewBoard()
	before := eng.Digest(board)

	_, err := eng.Apply(board, rules.Move{From: "e2", To: "e4"})
	require.NoError(t, err)
	require.Equal(t, before, eng.Digest(board), "input board changed")
}

func TestDigestAgreesAcrossIndependentBoards(t *testing.T) {
	eng := New()
	moves := []rules.Move{
		{From: "e2", To: "e4"},
		{From: "e7", To: "e5"},
		{From: "g1", To: "f3"},
		{From: "b8", To: "c6"},
		{From: "f1", To: "b5"},
	}

	a, b := eng.NewBoard(), eng.NewBoard()
	for i, mv := range moves {
		var err error
		a, err = eng.Apply(a, mv)
		require.NoError(t, err)
		b, err = eng.Apply(b, mv)
		require.NoError(t, err)
		require.Equalf(t, eng.Digest(a), eng.Digest(b), "digest diverged after move %d", i+1)
	}
}

func TestStatusScholarsMate(t *testing.T) {
	eng := New()
	board := eng.NewBoard()
	for _, mv := range []rules.Move{
		{From: "e2", To: "e4"},
		{From: "e7", To: "e5"},
		{From: "f1", To: "c4"},
		{From: "b8", To: "c6"},
		{From: "d1", To: "h5"},
		{From: "g8", To: "f6"},
		{From: "h5", To: "f7"},
	} {
		var err error
		board, err = eng.Apply(board, mv)
		require.NoError(t, err)
	}

	status := eng.Status(board)
	require.Equal(t, rules.Win, status.Outcome)
	require.Equal(t, rules.SideFirst, status.Winner)

	// no move is legal in a finished game
	require.False(t, eng.Legal(board, rules.Move{From: "a7", To: "a6"}))
}

func TestPromotion(t *testing.T) {
	eng := New()
	board := eng.NewBoard()
	for _, mv := range []rules.Move{
		{From: "h2", To: "h4"},
		{From: "g7", To: "g5"},
		{From: "h4", To: "g5"},
		{From: "g8", To: "f6"},
		{From: "g5", To: "g6"},
		{From: "d7", To: "d5"},
		{From: "g6", To: "g7"},
		{From: "d5", To: "d4"},
	} {
		var err error
		board, err = eng.Apply(board, mv)
		require.NoError(t, err)
	}

	// capture-promotion onto the rook's square
	require.True(t, eng.Legal(board, rules.Move{From: "g7", To: "h8", Promotion: "q"}))
	_, err := eng.Apply(board, rules.Move{From: "g7", To: "h8", Promotion: "q"})
	require.NoError(t, err)
}

func TestTextRendersBoard(t *testing.T) {
	eng := New()
	text := eng.Text(eng.NewBoard())
	require.NotEmpty(t, text)
}
