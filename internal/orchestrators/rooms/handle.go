package rooms

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/KirkDiggler/rpg-arena/internal/engine/room"
	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
)

// DefaultOutboundBuffer is the delta buffer given to each joining player
const DefaultOutboundBuffer = 64

// Handle is a live room owned by the scheduler. Methods are safe for
// concurrent use.
type Handle struct {
	room     *room.Room
	shard    int
	shutdown chan string
	done     chan struct{}
	broken   atomic.Bool
}

// ID returns the room ID
func (h *Handle) ID() string { return h.room.ID() }

// Shard returns the load bucket the room was placed on
func (h *Handle) Shard() int { return h.shard }

// Done is closed once the room goroutine has exited
func (h *Handle) Done() <-chan struct{} { return h.done }

// State returns the room state as of the last completed tick. A room whose
// failure handling itself panicked reports Disposed.
func (h *Handle) State() room.State {
	if h.broken.Load() {
		return room.StateDisposed
	}
	return h.room.State()
}

// Send stages an input for the next tick
func (h *Handle) Send(in room.Input) error {
	select {
	case <-h.done:
		return errors.StateConflictf("room %s is disposed", h.ID())
	default:
	}
	return h.room.Enqueue(in)
}

// Join enqueues a join and waits for the room to accept it. The returned
// channel receives one delta per tick and is closed when the player leaves
// or the room is disposed. If ctx ends first and the room still accepts the
// join, the player is removed again on the following tick.
func (h *Handle) Join(ctx context.Context, playerID string, loadout *arena.Loadout) (<-chan room.Delta, error) {
	out := make(chan room.Delta, DefaultOutboundBuffer)
	reply, err := h.send(room.Input{
		PlayerID: playerID,
		Kind:     room.InputJoin,
		Loadout:  loadout,
		Outbound: out,
	})
	if err != nil {
		return nil, err
	}

	pending, err := h.await(ctx, reply)
	if pending {
		go h.abandonJoin(playerID, reply)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// abandonJoin waits for the outcome of a join nobody is waiting on and
// queues a leave if it was accepted
func (h *Handle) abandonJoin(playerID string, reply <-chan error) {
	select {
	case err := <-reply:
		if err != nil {
			return
		}
	case <-h.done:
		return
	}

	if err := h.Send(room.Input{PlayerID: playerID, Kind: room.InputLeave}); err != nil {
		slog.Debug("Could not remove abandoned join",
			"room_id", h.ID(),
			"player_id", playerID,
			"error", err)
		return
	}
	slog.Info("Removing player whose join was abandoned",
		"room_id", h.ID(),
		"player_id", playerID)
}

// Leave removes the player and closes their delta channel
func (h *Handle) Leave(ctx context.Context, playerID string) error {
	return h.request(ctx, room.Input{PlayerID: playerID, Kind: room.InputLeave})
}

// Ready marks the player ready while the room is waiting
func (h *Handle) Ready(ctx context.Context, playerID string) error {
	return h.request(ctx, room.Input{PlayerID: playerID, Kind: room.InputReady})
}

// request sends in and waits for the tick that applies it
func (h *Handle) request(ctx context.Context, in room.Input) error {
	reply, err := h.send(in)
	if err != nil {
		return err
	}
	_, err = h.await(ctx, reply)
	return err
}

func (h *Handle) send(in room.Input) (<-chan error, error) {
	reply := make(chan error, 1)
	in.Reply = reply
	if err := h.Send(in); err != nil {
		return nil, err
	}
	return reply, nil
}

// await waits for the reply. pending is true when ctx ended before the
// room answered.
func (h *Handle) await(ctx context.Context, reply <-chan error) (pending bool, err error) {
	select {
	case err := <-reply:
		return false, err
	case <-h.done:
		// the room may have replied just before exiting
		select {
		case err := <-reply:
			return false, err
		default:
			return false, errors.StateConflictf("room %s is disposed", h.ID())
		}
	case <-ctx.Done():
		return true, errors.WrapWithCode(ctx.Err(), errors.CodeCanceled, "waiting for room")
	}
}

func (h *Handle) requestShutdown(reason string) {
	select {
	case h.shutdown <- reason:
	default:
	}
}

// guard runs fn on the room goroutine, turning a panic into a failed room.
// It returns false when even failing the room panicked and the goroutine
// must stop.
func (h *Handle) guard(fn func()) (ok bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err := errors.FromPanic(r, "room tick panicked").WithMeta("room_id", h.ID())
		slog.Error("Room tick panicked",
			"room_id", h.ID(),
			"tick", h.room.Tick(),
			"error", err)
		ok = h.fail(err)
	}()

	fn()
	return true
}

func (h *Handle) fail(err error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Room failure handling panicked, abandoning room",
				"room_id", h.ID(),
				"panic", r)
			h.broken.Store(true)
			ok = false
		}
	}()

	h.room.Fail(err)
	return true
}
