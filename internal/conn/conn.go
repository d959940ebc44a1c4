// Package conn owns the relay connection: it dials, frames outgoing
// messages, and runs the receive path that decodes inbound bytes into
// typed messages. Decoded messages (and decode failures) are delivered
// in-band on a single-consumer inbox channel, tagged with the session
// generation the connection belongs to, so the main loop can discard
// frames that raced a restart.
package conn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/aleklund/netchess/pkg/wire"
)

// ErrClosed is returned by Send once the connection is gone.
var ErrClosed = errors.New("connection closed")

// Dial failure kinds, surfaced to the user during setup.
const (
	KindRefused = "refused"
	KindTimeout = "timeout"
	KindReset   = "reset"
)

// DialError classifies a failed connection attempt.
type DialError struct {
	Kind string
	Err  error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("connect (%s): %v", e.Kind, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

// Inbound is one item on the receive queue: either a decoded message or
// the error that ended (or interrupted) the stream. Exactly one of Msg
// and Err is set.
type Inbound struct {
	Gen int
	Msg wire.Message
	Err error
}

// Manager is the live connection for one session generation. The receive
// loop runs until the peer or Close ends the stream; it never touches
// session state, only the inbox.
type Manager struct {
	ws        *websocket.Conn
	gen       int
	inbox     chan<- Inbound
	log       *zap.Logger
	closeOnce sync.Once
}

// Dial connects to the relay and starts the receive loop. addr is either
// host:port or a full ws:// URL. The attempt is bounded by ctx.
func Dial(ctx context.Context, addr string, gen int, inbox chan<- Inbound, log *zap.Logger) (*Manager, error) {
	url := addr
	if !strings.Contains(addr, "://") {
		url = "ws://" + addr + "/ws"
	}

	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, &DialError{Kind: classify(err), Err: err}
	}

	m := &Manager{
		ws:    ws,
		gen:   gen,
		inbox: inbox,
		log:   log.Named("conn").With(zap.Int("gen", gen)),
	}
	go m.receive()
	return m, nil
}

// Send frames and transmits one message, best effort. Writes on a closed
// connection report ErrClosed.
func (m *Manager) Send(ctx context.Context, msg wire.Message) error {
	data, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := m.ws.Write(ctx, websocket.MessageText, data); err != nil {
		m.log.Debug("send failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return nil
}

// Close tears the connection down and unblocks the receive loop. Safe to
// call any number of times.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		_ = m.ws.Close(websocket.StatusNormalClosure, "bye")
	})
}

func (m *Manager) receive() {
	for {
		_, data, err := m.ws.Read(context.Background())
		if err != nil {
			// Terminal for this connection. The consumer decides whether
			// it is a peer departure or a transport fault.
			m.inbox <- Inbound{Gen: m.gen, Err: err}
			return
		}

		msg, err := wire.Decode(data)
		if err != nil {
			// Malformed frame: delivered like any other message, never
			// raised across the goroutine boundary.
			m.log.Warn("undecodable frame", zap.Error(err))
			m.inbox <- Inbound{Gen: m.gen, Err: err}
			continue
		}
		m.inbox <- Inbound{Gen: m.gen, Msg: msg}
	}
}

func classify(err error) string {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindRefused
	}
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return KindTimeout
	}
	return KindReset
}
