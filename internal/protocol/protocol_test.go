package protocol

import (
	"errors"
	"testing"

	"github.com/aleklund/netchess/internal/game"
	"github.com/aleklund/netchess/internal/rules"
	"github.com/aleklund/netchess/internal/testutil"
)

// active returns a paired session with the given seat.
func active(eng rules.Engine, role rules.Side) State {
	s := Connecting(eng)
	_, s, _ = Apply(eng, s, RoleAssigned{Role: role})
	_, s, _ = Apply(eng, s, PeerJoined{})
	return s
}

func TestJoinSequence(t *testing.T) {
	eng := testutil.NewFakeEngine()
	s := Connecting(eng)
	if s.Phase != PhaseConnecting {
		t.Fatalf("want connecting, got %v", s.Phase)
	}

	_, s, err := Apply(eng, s, RoleAssigned{Role: rules.SideSecond})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Phase != PhaseWaitingForPeer || s.Role != rules.SideSecond {
		t.Fatalf("after joined: got %+v", s)
	}

	_, s, err = Apply(eng, s, PeerJoined{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Phase != PhaseActive {
		t.Fatalf("after peer_joined: want active, got %v", s.Phase)
	}
	if s.Game.Turn != rules.SideFirst {
		t.Fatalf("new session must open on first's turn, got %v", s.Game.Turn)
	}
}

func TestLocalMoveRejections(t *testing.T) {
	eng := testutil.NewFakeEngine()
	eng.Illegal["a1a2"] = true

	cases := []struct {
		name    string
		state   State
		mv      rules.Move
		wantErr error
	}{
		{
			name:    "before pairing",
			state:   Connecting(eng),
			mv:      rules.Move{From: "e2", To: "e4"},
			wantErr: ErrNotActive,
		},
		{
			name:    "not our turn",
			state:   active(eng, rules.SideSecond),
			mv:      rules.Move{From: "e7", To: "e5"},
			wantErr: ErrWrongTurn,
		},
		{
			name:    "illegal move",
			state:   active(eng, rules.SideFirst),
			mv:      rules.Move{From: "a1", To: "a2"},
			wantErr: game.ErrIllegalMove,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			effects, next, err := Apply(eng, tc.state, LocalMove{Move: tc.mv})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if len(effects) != 0 {
				t.Fatalf("rejected move must not transmit, got %v", effects)
			}
			if next.Game.Moves != tc.state.Game.Moves {
				t.Fatalf("rejected move mutated the board")
			}
		})
	}
}

func TestLocalMoveAppliesAndTransmits(t *testing.T) {
	eng := testutil.NewFakeEngine()
	s := active(eng, rules.SideFirst)

	effects, s, err := Apply(eng, s, LocalMove{Move: rules.Move{From: "e2", To: "e4"}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(effects) != 1 {
		t.Fatalf("want one SendMove effect, got %v", effects)
	}
	send, ok := effects[0].(SendMove)
	if !ok || send.Digest == "" {
		t.Fatalf("want SendMove with digest, got %#v", effects[0])
	}
	if s.Game.Turn != rules.SideSecond || s.Game.Moves != 1 {
		t.Fatalf("optimistic apply missing: %+v", s.Game)
	}
}

func TestRemoteMoveApplies(t *testing.T) {
	eng := testutil.NewFakeEngine()
	s := active(eng, rules.SideSecond)

	// precompute the digest the sender would have sent
	_, digest, err := game.Apply(eng, s.Game, rules.Move{From: "e2", To: "e4"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	effects, s, err := Apply(eng, s, RemoteMove{Move: rules.Move{From: "e2", To: "e4"}, Digest: digest})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(effects) != 0 {
		t.Fatalf("remote move must not echo, got %v", effects)
	}
	if s.Phase != PhaseActive || s.Game.Turn != rules.SideSecond || s.Game.Moves != 1 {
		t.Fatalf("after remote move: %+v", s)
	}
}

func TestRemoteMoveDesyncs(t *testing.T) {
	eng := testutil.NewFakeEngine()
	eng.Illegal["z9z9"] = true

	cases := []struct {
		name  string
		state State
		in    RemoteMove
	}{
		{
			name:  "out of turn framing",
			state: active(eng, rules.SideFirst), // our turn, yet a frame arrives
			in:    RemoteMove{Move: rules.Move{From: "e7", To: "e5"}, Digest: "d:e7e5"},
		},
		{
			name:  "fails local legality",
			state: active(eng, rules.SideSecond),
			in:    RemoteMove{Move: rules.Move{From: "z9", To: "z9"}, Digest: "d:z9z9"},
		},
		{
			name:  "digest mismatch",
			state: active(eng, rules.SideSecond),
			in:    RemoteMove{Move: rules.Move{From: "e2", To: "e4"}, Digest: "d:something-else"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.state.Game
			_, next, err := Apply(eng, tc.state, tc.in)
			if err != nil {
				t.Fatalf("desync is a transition, not an error: %v", err)
			}
			if next.Phase != PhaseTerminated || next.Reason != ReasonDesync {
				t.Fatalf("want terminated(desync), got %+v", next)
			}
			if next.Game.Moves != before.Moves {
				t.Fatalf("desync must not mutate the board")
			}
		})
	}
}

func TestTerminatedIsAbsorbing(t *testing.T) {
	eng := testutil.NewFakeEngine()
	s := active(eng, rules.SideFirst)
	_, s, _ = Apply(eng, s, PeerGone{})
	if s.Phase != PhaseTerminated || s.Reason != ReasonPeerLeft {
		t.Fatalf("want terminated(peer_left), got %+v", s)
	}

	_, next, err := Apply(eng, s, LocalMove{Move: rules.Move{From: "e2", To: "e4"}})
	if !errors.Is(err, ErrNotActive) {
		t.Fatalf("want ErrNotActive, got %v", err)
	}
	if next.Phase != PhaseTerminated {
		t.Fatalf("terminated must absorb inputs, got %v", next.Phase)
	}
}

func TestFatalTransportAndServerInputs(t *testing.T) {
	eng := testutil.NewFakeEngine()

	_, s, _ := Apply(eng, active(eng, rules.SideFirst), TransportFailed{Err: errors.New("read: connection reset")})
	if s.Phase != PhaseTerminated || s.Reason != ReasonConnError {
		t.Fatalf("transport failure: got %+v", s)
	}

	_, s, _ = Apply(eng, Connecting(eng), ServerError{Reason: "room full"})
	if s.Phase != PhaseTerminated || s.Reason != ReasonConnError {
		t.Fatalf("server error: got %+v", s)
	}
}

func TestUnexpectedFrameTerminates(t *testing.T) {
	eng := testutil.NewFakeEngine()

	// move frame while still waiting for the peer
	s := Connecting(eng)
	_, s, _ = Apply(eng, s, RoleAssigned{Role: rules.SideFirst})
	_, next, err := Apply(eng, s, RemoteMove{Move: rules.Move{From: "e2", To: "e4"}, Digest: "d:e2e4"})
	if !errors.Is(err, ErrUnexpectedMessage) {
		t.Fatalf("want ErrUnexpectedMessage, got %v", err)
	}
	if next.Phase != PhaseTerminated || next.Reason != ReasonConnError {
		t.Fatalf("want terminated(conn_error), got %+v", next)
	}
}
