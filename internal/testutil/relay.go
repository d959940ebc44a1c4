package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/aleklund/netchess/pkg/wire"
)

// Relay is an in-process relay server speaking the real wire contract:
// it pairs exactly two clients per room name (first arrival gets the
// first seat), forwards move frames between them verbatim, and reports
// peer departures. It exists so connection and session tests can run
// against the protocol end to end without a real server.
type Relay struct {
	srv   *httptest.Server
	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	seats map[string]*seat // role -> seat
}

type seat struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (s *seat) write(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = s.ws.Write(ctx, websocket.MessageText, data)
}

func (s *seat) send(msg wire.Message) {
	data, err := wire.Encode(msg)
	if err != nil {
		return
	}
	s.write(data)
}

// NewRelay starts a relay on a loopback listener. Close stops it.
func NewRelay() *Relay {
	r := &Relay{rooms: make(map[string]*room)}
	r.srv = httptest.NewServer(http.HandlerFunc(r.handle))
	return r
}

// Addr returns the host:port clients should dial.
func (r *Relay) Addr() string {
	return strings.TrimPrefix(r.srv.URL, "http://")
}

func (r *Relay) Close() {
	r.srv.Close()
}

func (r *Relay) handle(w http.ResponseWriter, req *http.Request) {
	ws, err := websocket.Accept(w, req, nil)
	if err != nil {
		return
	}
	defer ws.Close(websocket.StatusNormalClosure, "bye")

	me := &seat{ws: ws}

	// First frame must be a join.
	ctx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	_, data, err := ws.Read(ctx)
	cancel()
	if err != nil {
		return
	}
	msg, err := wire.Decode(data)
	if err != nil {
		me.send(wire.Error{Reason: "malformed join"})
		return
	}
	join, ok := msg.(wire.Join)
	if !ok {
		me.send(wire.Error{Reason: "expected join"})
		return
	}

	role, other, ok := r.enter(join.Room, me)
	if !ok {
		me.send(wire.Error{Reason: "room full"})
		return
	}
	defer r.leave(join.Room, role)

	me.send(wire.Joined{Role: role})
	if other != nil {
		// Second arrival completes the pair.
		me.send(wire.PeerJoined{})
		other.send(wire.PeerJoined{})
	}

	// Forward loop: moves go to the opposite seat verbatim.
	for {
		_, data, err := ws.Read(req.Context())
		if err != nil {
			return
		}
		msg, err := wire.Decode(data)
		if err != nil {
			continue
		}
		if _, ok := msg.(wire.Move); !ok {
			continue
		}
		if peer := r.peerOf(join.Room, role); peer != nil {
			peer.write(data)
		}
	}
}

// enter seats s in the named room. It reports the assigned role and, when
// this arrival fills the room, the already-waiting seat.
func (r *Relay) enter(name string, s *seat) (string, *seat, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[name]
	if rm == nil {
		rm = &room{seats: make(map[string]*seat)}
		r.rooms[name] = rm
	}
	switch len(rm.seats) {
	case 0:
		rm.seats[wire.RoleFirst] = s
		return wire.RoleFirst, nil, true
	case 1:
		// Take whichever seat is free; after a departure that can be
		// the first one even though this client arrived later.
		role, peerRole := wire.RoleSecond, wire.RoleFirst
		if _, taken := rm.seats[wire.RoleFirst]; !taken {
			role, peerRole = wire.RoleFirst, wire.RoleSecond
		}
		rm.seats[role] = s
		return role, rm.seats[peerRole], true
	default:
		return "", nil, false
	}
}

func (r *Relay) leave(name, role string) {
	r.mu.Lock()
	rm := r.rooms[name]
	var peer *seat
	if rm != nil {
		delete(rm.seats, role)
		for _, s := range rm.seats {
			peer = s
		}
		if len(rm.seats) == 0 {
			delete(r.rooms, name)
		}
	}
	r.mu.Unlock()

	if peer != nil {
		peer.send(wire.PeerLeft{})
	}
}

func (r *Relay) peerOf(name, role string) *seat {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm := r.rooms[name]
	if rm == nil {
		return nil
	}
	for otherRole, s := range rm.seats {
		if otherRole != role {
			return s
		}
	}
	return nil
}
