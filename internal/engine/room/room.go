// Package room is the live tick-driven simulator. A Room is owned by one
// goroutine: only Enqueue and State may be called from elsewhere.
package room

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/KirkDiggler/rpg-arena/internal/engine/catalog"
	"github.com/KirkDiggler/rpg-arena/internal/engine/combat"
	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	combatent "github.com/KirkDiggler/rpg-arena/internal/entities/combat"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	"github.com/KirkDiggler/rpg-arena/internal/pkg/rng"
)

const npcTeam = "npc"

type member struct {
	playerID string
	out      chan<- Delta
	ready    bool
	loadout  arena.Loadout
	score    int
	dropped  uint64
}

// action is a combat intent that passed its checks when it was drained and
// waits for the combat phase
type action struct {
	actor     *Actor
	kind      InputKind
	skill     combatent.Skill
	target    *Actor
	item      *Item
	origin    Vec
	dir       Vec
	prevReady uint64
}

// Room is one match
type Room struct {
	settings Settings
	catalog  *catalog.Catalog
	resolver *combat.Resolver
	logger   *slog.Logger

	state       State
	published   atomic.Int32
	tick        uint64
	enteredAt   uint64
	transitions []Transition

	entities map[string]Entity
	order    []string

	members     map[string]*member
	memberOrder []string

	queue   *InputQueue
	actions []action

	events       []Event
	changed      map[string]bool
	removed      []string
	result       *Result
	nextID       uint64
	startPlayers int
}

// New creates a room in the Empty state
func New(settings Settings, cat *catalog.Catalog) (*Room, error) {
	if err := settings.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid room settings")
	}
	if cat == nil {
		return nil, errors.InvalidArgument("catalog is required")
	}
	for _, n := range settings.NPCs {
		if err := cat.ValidateLoadout(n.Loadout); err != nil {
			return nil, errors.Wrapf(err, "invalid loadout for npc %s", n.ID)
		}
	}
	if err := cat.ValidateLoadout(settings.DefaultLoadout); err != nil {
		return nil, errors.Wrap(err, "invalid default loadout")
	}

	resolver, err := combat.NewResolver(&combat.Config{
		Roller:   rng.NewSeeded(settings.Seed),
		TickRate: settings.TickRate,
	})
	if err != nil {
		return nil, err
	}

	return &Room{
		settings: settings,
		catalog:  cat,
		resolver: resolver,
		logger:   slog.With("room_id", settings.ID),
		entities: make(map[string]Entity),
		members:  make(map[string]*member),
		queue:    NewInputQueue(settings.InputQueueSize),
		changed:  make(map[string]bool),
	}, nil
}

// ID returns the room id
func (r *Room) ID() string { return r.settings.ID }

// State is safe to call from any goroutine
func (r *Room) State() State { return State(r.published.Load()) }

// TickInterval is the wall time between ticks
func (r *Room) TickInterval() time.Duration {
	return time.Second / time.Duration(r.settings.TickRate)
}

// Tick returns the current tick
func (r *Room) Tick() uint64 { return r.tick }

// Transitions returns every state change so far
func (r *Room) Transitions() []Transition {
	return append([]Transition(nil), r.transitions...)
}

// Result returns the match result once the room finished
func (r *Room) Result() *Result { return r.result }

// Entity looks up an entity by id
func (r *Room) Entity(id string) (Entity, bool) {
	e, ok := r.entities[id]
	return e, ok
}

// EntityIDs lists entity ids in insertion order
func (r *Room) EntityIDs() []string {
	return append([]string(nil), r.order...)
}

// MemberCount returns the number of joined players
func (r *Room) MemberCount() int { return len(r.members) }

// QueueLen reports inputs waiting for the next tick
func (r *Room) QueueLen() int { return r.queue.Len() }

// Enqueue validates an input and stages it for the next tick. Safe for
// concurrent use. A full queue evicts its oldest input, whose Reply then
// receives a ResourceExhausted error.
func (r *Room) Enqueue(in Input) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if r.State() == StateDisposed {
		return errors.StateConflictf("room %s is disposed", r.settings.ID)
	}

	if evicted, ok := r.queue.Push(in); ok {
		evicted.reply(errors.ResourceExhausted(errors.ReasonInputDropped, "input queue full, input dropped"))
		r.logger.Debug("dropped oldest input",
			"player_id", evicted.PlayerID,
			"kind", evicted.Kind,
			"seq", evicted.Seq,
		)
	}
	return nil
}

// Step advances the room one tick:
//  1. drain inputs in FIFO order, checking combat intents as they arrive
//  2. integrate movement
//  3. resolve the intents that passed, one hit at a time
//  4. run lifecycles and remove dead entities
//  5. evaluate win conditions
//  6. emit one delta
//
// Steps 2 to 5 only run while the match is Running.
func (r *Room) Step() {
	if r.state == StateDisposed {
		return
	}
	r.tick++
	r.resetTickState()

	r.drainInputs()
	if r.state == StateRunning {
		r.thinkNPCs()
		r.integrate()
		if err := r.resolveCombat(); err != nil {
			r.Fail(err)
			return
		}
		r.runLifecycles()
		r.checkWinConditions()
	} else {
		r.advanceLobby()
	}
	r.emit()

	if r.state == StateDisposed {
		r.teardown()
	}
}

// Shutdown ends the room immediately. A running match is finished first so
// members get a Finished delta before their channels close.
func (r *Room) Shutdown(reason string) {
	r.end(&Result{Reason: reason})
}

// Fail ends the room after a fault inside a tick
func (r *Room) Fail(err error) {
	r.logger.Error("room failed", "tick", r.tick, "error", err)
	r.end(&Result{Reason: ReasonFault, Error: errors.GetMessage(err)})
}

func (r *Room) end(result *Result) {
	if r.state == StateDisposed {
		return
	}
	r.resetTickState()
	r.actions = nil

	result.Scores = r.scores()
	if r.state == StateRunning {
		r.result = result
		r.transition(StateFinished)
		r.emit()
		r.resetTickState()
	}
	if r.result == nil {
		r.result = result
	}
	r.transition(StateDisposed)
	r.emit()
	r.teardown()
}

func (r *Room) resetTickState() {
	r.events = nil
	r.removed = nil
	clear(r.changed)
}

func (r *Room) transition(to State) {
	from := r.state
	if !CanTransition(from, to) {
		panic(fmt.Sprintf("room %s: illegal transition %s -> %s", r.settings.ID, from, to))
	}

	r.transitions = append(r.transitions, Transition{From: from, To: to, Tick: r.tick})
	r.events = append(r.events, Event{Kind: EventState, Detail: to.String()})
	r.state = to
	r.enteredAt = r.tick
	r.published.Store(int32(to))

	r.logger.Info("room state changed",
		"from", from.String(),
		"to", to.String(),
		"tick", r.tick,
		"members", len(r.members),
	)
}

func (r *Room) elapsed() uint64 {
	return r.tick - r.enteredAt
}

func (r *Room) advanceLobby() {
	switch r.state {
	case StateEmpty:
		if idle := r.settings.ticks(r.settings.IdleTimeout); idle > 0 && r.elapsed() >= idle {
			r.transition(StateDisposed)
		}

	case StateWaiting:
		quorum := len(r.members) >= r.settings.MinPlayers
		switch {
		case len(r.members) == 0:
			r.transition(StateDisposed)
		case quorum && r.allReady():
			r.transition(StateCountdown)
		case r.elapsed() >= r.settings.ticks(r.settings.FillTimeout):
			if quorum {
				r.transition(StateCountdown)
			} else {
				r.transition(StateDisposed)
			}
		}

	case StateCountdown:
		switch {
		case len(r.members) == 0:
			r.transition(StateDisposed)
		case r.elapsed() >= r.settings.ticks(r.settings.Countdown):
			r.start()
		}

	case StateFinished:
		if len(r.members) == 0 || r.elapsed() >= r.settings.ticks(r.settings.ResultsWindow) {
			r.transition(StateDisposed)
		}
	}
}

func (r *Room) allReady() bool {
	for _, m := range r.members {
		if !m.ready {
			return false
		}
	}
	return true
}

func (r *Room) start() {
	r.transition(StateRunning)
	r.startPlayers = len(r.members)

	for i, pid := range r.memberOrder {
		m := r.members[pid]
		fighter, err := r.catalog.Fighter(pid, m.loadout)
		if err != nil {
			// loadouts are validated at join
			panic(fmt.Sprintf("room %s: loadout for %s became invalid: %v", r.settings.ID, pid, err))
		}
		pos := r.settings.SpawnPoints[i%len(r.settings.SpawnPoints)]
		r.spawn(newActor(pid, KindPlayer, pid, pos, fighter.Profile, fighter.Skills))
	}

	for _, n := range r.settings.NPCs {
		fighter, err := r.catalog.Fighter(n.ID, n.Loadout)
		if err != nil {
			panic(fmt.Sprintf("room %s: npc %s loadout invalid: %v", r.settings.ID, n.ID, err))
		}
		a := newActor(n.ID, KindNPC, npcTeam, n.Position, fighter.Profile, fighter.Skills)
		a.brain = n.Brain
		r.spawn(a)
	}

	for _, it := range r.settings.Items {
		r.spawn(&Item{id: it.ID, pos: it.Position, heal: it.Heal})
	}
}

func (r *Room) spawn(e Entity) {
	r.entities[e.GetID()] = e
	r.order = append(r.order, e.GetID())
	r.changed[e.GetID()] = true
	r.events = append(r.events, Event{Kind: EventSpawned, Actor: e.GetID(), Detail: e.GetType()})
}

func (r *Room) remove(id string) {
	if _, ok := r.entities[id]; !ok {
		return
	}
	delete(r.entities, id)
	delete(r.changed, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.removed = append(r.removed, id)
}

func (r *Room) scores() map[string]int {
	out := make(map[string]int, len(r.members))
	for pid, m := range r.members {
		out[pid] = m.score
	}
	return out
}

func (r *Room) emit() {
	delta := Delta{
		RoomID:  r.settings.ID,
		Tick:    r.tick,
		State:   r.state,
		Removed: r.removed,
		Events:  r.events,
	}
	for _, id := range r.order {
		if r.changed[id] {
			delta.Changed = append(delta.Changed, r.entities[id].Snapshot())
		}
	}
	if r.state == StateFinished || r.state == StateDisposed {
		delta.Result = r.result
	}

	for _, pid := range r.memberOrder {
		m := r.members[pid]
		select {
		case m.out <- delta:
		default:
			m.dropped++
			if m.dropped == 1 || m.dropped%100 == 0 {
				r.logger.Warn("member outbound full, delta dropped",
					"player_id", pid,
					"tick", r.tick,
					"dropped", m.dropped,
				)
			}
		}
	}
}

func (r *Room) teardown() {
	for _, pid := range r.memberOrder {
		close(r.members[pid].out)
	}
	r.members = map[string]*member{}
	r.memberOrder = nil
	r.entities = map[string]Entity{}
	r.order = nil

	// anything still queued will never be applied
	for _, in := range r.queue.Drain() {
		in.reply(errors.StateConflictf("room %s is disposed", r.settings.ID))
	}
}
