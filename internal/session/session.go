// Package session is the top-level controller. It owns the single live
// Session (room, seat, generation), the connection for the current
// generation, and the event loop that is the sole mutator of game and
// session state. The receive path only ever enqueues; everything it
// enqueues is applied here, in receipt order.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/aleklund/netchess/internal/conn"
	"github.com/aleklund/netchess/internal/protocol"
	"github.com/aleklund/netchess/internal/rules"
	"github.com/aleklund/netchess/pkg/wire"
)

// InputError reports an invalid room name, before any network activity.
type InputError struct {
	Detail string
}

func (e *InputError) Error() string { return "invalid room name: " + e.Detail }

// ValidateRoom rejects empty and whitespace-containing room names. Names
// are compared exactly by the relay, so no trimming happens here either.
func ValidateRoom(name string) error {
	if name == "" {
		return &InputError{Detail: "empty"}
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return &InputError{Detail: "contains whitespace"}
	}
	return nil
}

// Event is one local input: a move attempt or a restart/quit signal.
type Event interface{ isEvent() }

type MoveAttempt struct{ Move rules.Move }
type Restart struct{}
type Quit struct{}

func (MoveAttempt) isEvent() {}
func (Restart) isEvent()     {}
func (Quit) isEvent()        {}

// Snapshot is the board-state view handed to the renderer after every
// observable change.
type Snapshot struct {
	Room       string
	Generation int
	Phase      protocol.Phase
	Reason     protocol.Reason
	Detail     string
	Role       rules.Side
	Turn       rules.Side
	Moves      int
	Status     rules.Status
	Board      string
}

// Renderer consumes snapshots. Implementations must not block the loop.
type Renderer interface {
	Render(Snapshot)
}

type Config struct {
	ServerAddr  string
	Room        string
	DialTimeout time.Duration
	Tick        time.Duration
}

// Lifecycle drives the connect -> pair -> play -> end cycle for one
// process. Exactly one Run may be in flight.
type Lifecycle struct {
	cfg      Config
	eng      rules.Engine
	renderer Renderer
	events   <-chan Event
	inbox    chan conn.Inbound
	log      *zap.Logger

	gen   int
	state protocol.State
	mgr   *conn.Manager
}

func New(cfg Config, eng rules.Engine, renderer Renderer, events <-chan Event, log *zap.Logger) (*Lifecycle, error) {
	if err := ValidateRoom(cfg.Room); err != nil {
		return nil, err
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.Tick <= 0 {
		cfg.Tick = 30 * time.Millisecond
	}
	return &Lifecycle{
		cfg:      cfg,
		eng:      eng,
		renderer: renderer,
		events:   events,
		inbox:    make(chan conn.Inbound, 64),
		log:      log.Named("session"),
	}, nil
}

// Run blocks until Quit, context cancellation, or a failed setup dial.
// A nil return means a clean user-initiated exit.
func (l *Lifecycle) Run(ctx context.Context) error {
	defer l.closeConn()

	if err := l.start(ctx); err != nil {
		// Connection failure during setup is fatal to the process; later
		// failures land in the terminated phase instead.
		return fmt.Errorf("session setup: %w", err)
	}

	ticker := time.NewTicker(l.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if quit := l.tick(ctx); quit {
				l.log.Info("quit", zap.Int("gen", l.gen))
				return nil
			}
		}
	}
}

// tick applies all queued inbound messages in receipt order, then at most
// one local action, with Quit taking priority over Restart over a move.
func (l *Lifecycle) tick(ctx context.Context) bool {
	for {
		select {
		case in := <-l.inbox:
			l.handleInbound(in)
			continue
		default:
		}
		break
	}

	var (
		restart bool
		move    *MoveAttempt
	)
	for {
		select {
		case ev := <-l.events:
			switch ev := ev.(type) {
			case Quit:
				return true
			case Restart:
				restart = true
			case MoveAttempt:
				if move == nil {
					move = &ev
				}
			}
			continue
		default:
		}
		break
	}

	switch {
	case restart:
		l.restart(ctx)
	case move != nil:
		l.localMove(ctx, move.Move)
	}
	return false
}

// start opens a connection for the current generation and sends the join
// frame. Pairing completes asynchronously through the inbox.
func (l *Lifecycle) start(ctx context.Context) error {
	l.state = protocol.Connecting(l.eng)
	l.render()

	dialCtx, cancel := context.WithTimeout(ctx, l.cfg.DialTimeout)
	defer cancel()
	mgr, err := conn.Dial(dialCtx, l.cfg.ServerAddr, l.gen, l.inbox, l.log)
	if err != nil {
		return err
	}
	l.mgr = mgr
	l.log.Info("connected",
		zap.String("server", l.cfg.ServerAddr),
		zap.String("room", l.cfg.Room),
		zap.Int("gen", l.gen))

	if err := mgr.Send(ctx, wire.Join{Room: l.cfg.Room}); err != nil {
		l.apply(protocol.TransportFailed{Err: err})
		return nil
	}
	return nil
}

// restart discards the current session and re-runs the join sequence with
// the same room name under the next generation. The peer must do the same
// for a new active pairing to form.
func (l *Lifecycle) restart(ctx context.Context) {
	l.closeConn()
	l.gen++
	l.log.Info("restart", zap.Int("gen", l.gen))
	if err := l.start(ctx); err != nil {
		// Not a setup failure anymore: surface it like any other fatal
		// condition and leave quit/restart to the user.
		l.state = protocol.State{Phase: protocol.PhaseTerminated, Reason: protocol.ReasonConnError, Detail: err.Error()}
		l.render()
	}
}

func (l *Lifecycle) handleInbound(in conn.Inbound) {
	if in.Gen != l.gen {
		// A frame that raced teardown of an earlier generation.
		l.log.Debug("discarding stale frame", zap.Int("frame_gen", in.Gen), zap.Int("gen", l.gen))
		return
	}

	var input protocol.Input
	switch {
	case in.Err != nil:
		var perr *wire.ProtocolError
		if errors.As(in.Err, &perr) {
			l.log.Warn("protocol error", zap.Error(perr))
			input = protocol.TransportFailed{Err: perr}
		} else if l.state.Phase == protocol.PhaseActive {
			// Transport-level disconnect mid-game reads as the peer
			// going away, same as an explicit peer_left.
			input = protocol.PeerGone{}
		} else {
			input = protocol.TransportFailed{Err: in.Err}
		}
	default:
		switch msg := in.Msg.(type) {
		case wire.Joined:
			role := rules.SideFirst
			if msg.Role == wire.RoleSecond {
				role = rules.SideSecond
			}
			input = protocol.RoleAssigned{Role: role}
		case wire.PeerJoined:
			input = protocol.PeerJoined{}
		case wire.Move:
			input = protocol.RemoteMove{
				Move:   rules.Move{From: msg.From, To: msg.To, Promotion: msg.Promotion},
				Digest: msg.Digest,
			}
		case wire.PeerLeft:
			input = protocol.PeerGone{}
		case wire.Error:
			input = protocol.ServerError{Reason: msg.Reason}
		default:
			input = protocol.TransportFailed{Err: fmt.Errorf("unexpected %T frame", msg)}
		}
	}

	l.apply(input)
}

func (l *Lifecycle) localMove(ctx context.Context, mv rules.Move) {
	effects, next, err := protocol.Apply(l.eng, l.state, protocol.LocalMove{Move: mv})
	if err != nil {
		// Local rejection is silent: no transmission, no state change.
		l.log.Debug("move rejected", zap.String("move", mv.String()), zap.Error(err))
		return
	}
	l.state = next
	l.perform(ctx, effects)
	l.render()
}

// apply runs one protocol input and its effects, tearing the connection
// down if the session ends.
func (l *Lifecycle) apply(input protocol.Input) {
	effects, next, err := protocol.Apply(l.eng, l.state, input)
	if err != nil {
		l.log.Warn("input refused", zap.Error(err))
	}
	changed := next.Phase != l.state.Phase || next.Game.Moves != l.state.Game.Moves
	l.state = next
	l.perform(context.Background(), effects)
	if l.state.Phase == protocol.PhaseTerminated {
		l.log.Info("session ended",
			zap.String("reason", string(l.state.Reason)),
			zap.String("detail", l.state.Detail))
		l.closeConn()
	}
	if changed {
		l.render()
	}
}

func (l *Lifecycle) perform(ctx context.Context, effects []protocol.Effect) {
	for _, eff := range effects {
		switch eff := eff.(type) {
		case protocol.SendMove:
			msg := wire.Move{
				From:      eff.Move.From,
				To:        eff.Move.To,
				Promotion: eff.Move.Promotion,
				Digest:    eff.Digest,
			}
			if err := l.mgr.Send(ctx, msg); err != nil {
				l.apply(protocol.TransportFailed{Err: err})
			}
		}
	}
}

func (l *Lifecycle) closeConn() {
	if l.mgr != nil {
		l.mgr.Close()
	}
}

func (l *Lifecycle) render() {
	s := l.state
	snap := Snapshot{
		Room:       l.cfg.Room,
		Generation: l.gen,
		Phase:      s.Phase,
		Reason:     s.Reason,
		Detail:     s.Detail,
		Role:       s.Role,
		Turn:       s.Game.Turn,
		Moves:      s.Game.Moves,
		Status:     rules.Status{Outcome: rules.Ongoing},
		Board:      "",
	}
	if s.Game.Board != nil {
		snap.Status = l.eng.Status(s.Game.Board)
		snap.Board = l.eng.Text(s.Game.Board)
	}
	l.renderer.Render(snap)
}
