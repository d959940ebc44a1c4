// Package protocol is the turn and desync state machine for one session
// generation. It is pure: Apply takes the current state and one input and
// returns effects for the caller to perform, the next state, and an error
// for inputs that were refused. All network and UI side effects live in
// the session package.
package protocol

import (
	"errors"
	"fmt"

	"github.com/aleklund/netchess/internal/game"
	"github.com/aleklund/netchess/internal/rules"
)

var (
	ErrNotActive         = errors.New("session not active")
	ErrWrongTurn         = errors.New("not your turn")
	ErrUnexpectedMessage = errors.New("unexpected message for phase")
)

type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseConnecting     Phase = "connecting"
	PhaseWaitingForPeer Phase = "waiting_for_peer"
	PhaseActive         Phase = "active"
	PhaseTerminated     Phase = "terminated"
)

type Reason string

const (
	ReasonQuit      Reason = "quit"
	ReasonPeerLeft  Reason = "peer_left"
	ReasonDesync    Reason = "desync"
	ReasonConnError Reason = "conn_error"
)

// State is the protocol view of one generation: where we are in the
// connect/pair/play cycle, which seat we hold, and the board.
type State struct {
	Phase  Phase
	Reason Reason
	Detail string
	Role   rules.Side
	Game   game.State
}

// Connecting is the state right after a dial succeeds and join is sent.
func Connecting(eng rules.Engine) State {
	return State{Phase: PhaseConnecting, Game: game.New(eng)}
}

// Input is one event fed to the machine: a decoded peer/relay frame or a
// local move attempt.
type Input interface{ isInput() }

type RoleAssigned struct{ Role rules.Side }
type PeerJoined struct{}
type LocalMove struct{ Move rules.Move }
type RemoteMove struct {
	Move   rules.Move
	Digest string
}
type PeerGone struct{}
type TransportFailed struct{ Err error }
type ServerError struct{ Reason string }

func (RoleAssigned) isInput()    {}
func (PeerJoined) isInput()      {}
func (LocalMove) isInput()       {}
func (RemoteMove) isInput()      {}
func (PeerGone) isInput()        {}
func (TransportFailed) isInput() {}
func (ServerError) isInput()     {}

// Effect is an action the caller must perform after a successful Apply.
type Effect interface{ isEffect() }

// SendMove transmits a locally applied move to the peer.
type SendMove struct {
	Move   rules.Move
	Digest string
}

func (SendMove) isEffect() {}

// Apply advances the machine by one input.
//
// Refused local inputs (wrong turn, illegal move, not active) come back as
// an error with the state unchanged; nothing is transmitted. Fatal peer or
// transport conditions return a terminated state. Desync is deliberately
// fatal: both peers validate symmetrically, so once their boards disagree
// there is no authority to arbitrate, and the only sound option is to
// surface it and let the players restart.
func Apply(eng rules.Engine, s State, in Input) ([]Effect, State, error) {
	if s.Phase == PhaseTerminated {
		return nil, s, ErrNotActive
	}

	switch in := in.(type) {
	case RoleAssigned:
		if s.Phase != PhaseConnecting {
			next := terminate(s, ReasonConnError, "joined frame out of sequence")
			return nil, next, ErrUnexpectedMessage
		}
		s.Role = in.Role
		s.Phase = PhaseWaitingForPeer
		return nil, s, nil

	case PeerJoined:
		if s.Phase != PhaseWaitingForPeer {
			next := terminate(s, ReasonConnError, "peer_joined frame out of sequence")
			return nil, next, ErrUnexpectedMessage
		}
		s.Phase = PhaseActive
		return nil, s, nil

	case LocalMove:
		if s.Phase != PhaseActive {
			return nil, s, ErrNotActive
		}
		if s.Game.Turn != s.Role {
			return nil, s, ErrWrongTurn
		}
		next, digest, err := game.Apply(eng, s.Game, in.Move)
		if err != nil {
			return nil, s, err
		}
		s.Game = next
		return []Effect{SendMove{Move: in.Move, Digest: digest}}, s, nil

	case RemoteMove:
		if s.Phase != PhaseActive {
			next := terminate(s, ReasonConnError, "move frame before session active")
			return nil, next, ErrUnexpectedMessage
		}
		if s.Game.Turn == s.Role {
			return nil, terminate(s, ReasonDesync, "peer moved out of turn"), nil
		}
		next, digest, err := game.Apply(eng, s.Game, in.Move)
		if err != nil {
			return nil, terminate(s, ReasonDesync, fmt.Sprintf("remote move %s failed local validation", in.Move)), nil
		}
		if digest != in.Digest {
			return nil, terminate(s, ReasonDesync, fmt.Sprintf("board digest mismatch after %s", in.Move)), nil
		}
		s.Game = next
		return nil, s, nil

	case PeerGone:
		return nil, terminate(s, ReasonPeerLeft, "opponent left the room"), nil

	case TransportFailed:
		return nil, terminate(s, ReasonConnError, in.Err.Error()), nil

	case ServerError:
		return nil, terminate(s, ReasonConnError, "relay rejected session: "+in.Reason), nil

	default:
		return nil, s, fmt.Errorf("protocol: unknown input %T", in)
	}
}

func terminate(s State, r Reason, detail string) State {
	s.Phase = PhaseTerminated
	s.Reason = r
	s.Detail = detail
	return s
}
