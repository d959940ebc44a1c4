// Package wire defines the framing contract shared by both clients and the
// relay. Frames are JSON envelopes carrying a protocol version, a message
// type tag and a type-specific payload. The relay forwards move frames
// verbatim, so both peers must agree on this encoding exactly.
package wire

import (
	"encoding/json"
	"fmt"
)

// Version is bumped whenever the envelope or any payload changes shape.
// Peers reject frames from any other version.
const Version = 1

const (
	TypeJoin       = "join"
	TypeJoined     = "joined"
	TypePeerJoined = "peer_joined"
	TypeMove       = "move"
	TypePeerLeft   = "peer_left"
	TypeError      = "error"
)

// Role values carried in joined frames. The relay assigns first to the
// earlier arrival in the room.
const (
	RoleFirst  = "first"
	RoleSecond = "second"
)

type envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message is a decoded wire frame.
type Message interface{ isMessage() }

// Join is sent client -> relay immediately after connecting.
type Join struct {
	Room string `json:"room"`
}

// Joined is the relay's reply to Join, carrying the seat assignment.
type Joined struct {
	Role string `json:"role"`
}

// PeerJoined tells a waiting client that the second seat filled.
type PeerJoined struct{}

// Move carries one half-move plus the sender's post-move board digest.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	Digest    string `json:"digest"`
}

// PeerLeft tells a client its opponent's connection is gone.
type PeerLeft struct{}

// Error is a protocol-level rejection, sent in either direction.
type Error struct {
	Reason string `json:"reason"`
}

func (Join) isMessage()       {}
func (Joined) isMessage()     {}
func (PeerJoined) isMessage() {}
func (Move) isMessage()       {}
func (PeerLeft) isMessage()   {}
func (Error) isMessage()      {}

// ProtocolError reports a frame that could not be decoded: bad JSON, an
// unknown type tag or a version mismatch. It travels in-band through the
// receive path so the main loop can terminate the session cleanly.
type ProtocolError struct {
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Detail)
}

// Encode wraps m in a versioned envelope.
func Encode(m Message) ([]byte, error) {
	var typ string
	switch m.(type) {
	case Join:
		typ = TypeJoin
	case Joined:
		typ = TypeJoined
	case PeerJoined:
		typ = TypePeerJoined
	case Move:
		typ = TypeMove
	case PeerLeft:
		typ = TypePeerLeft
	case Error:
		typ = TypeError
	default:
		return nil, fmt.Errorf("wire: cannot encode %T", m)
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{V: Version, Type: typ, Payload: payload})
}

// Decode parses a frame into its typed message. All failures come back as
// *ProtocolError.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ProtocolError{Detail: "bad json: " + err.Error()}
	}
	if env.V != Version {
		return nil, &ProtocolError{Detail: fmt.Sprintf("version %d, want %d", env.V, Version)}
	}

	var (
		msg Message
		err error
	)
	switch env.Type {
	case TypeJoin:
		var m Join
		err = json.Unmarshal(env.Payload, &m)
		msg = m
	case TypeJoined:
		var m Joined
		err = json.Unmarshal(env.Payload, &m)
		msg = m
	case TypePeerJoined:
		msg = PeerJoined{}
	case TypeMove:
		var m Move
		err = json.Unmarshal(env.Payload, &m)
		msg = m
	case TypePeerLeft:
		msg = PeerLeft{}
	case TypeError:
		var m Error
		err = json.Unmarshal(env.Payload, &m)
		msg = m
	default:
		return nil, &ProtocolError{Detail: "unknown type " + env.Type}
	}
	if err != nil {
		return nil, &ProtocolError{Detail: env.Type + " payload: " + err.Error()}
	}
	return msg, nil
}
