package room

import (
	"sync"

	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
)

// InputKind names what a player asked for
type InputKind string

// Input kinds
const (
	InputJoin    InputKind = "join"
	InputLeave   InputKind = "leave"
	InputReady   InputKind = "ready"
	InputMove    InputKind = "move"
	InputAttack  InputKind = "attack"
	InputSkill   InputKind = "skill"
	InputUseItem InputKind = "use_item"
)

// Input is a player command. Seq is the client's ordering hint; the room
// never uses it for identity.
type Input struct {
	Seq       uint64         `json:"seq"`
	PlayerID  string         `json:"player_id"`
	Kind      InputKind      `json:"kind"`
	Direction Vec            `json:"direction,omitempty"`
	TargetID  string         `json:"target_id,omitempty"`
	SkillID   string         `json:"skill_id,omitempty"`
	Loadout   *arena.Loadout `json:"loadout,omitempty"`

	// Outbound receives deltas once a join is accepted
	Outbound chan<- Delta `json:"-"`
	// Reply, when set, receives nil or the reason the input was discarded.
	// It must be buffered.
	Reply chan<- error `json:"-"`
}

// Validate checks the input shape. Malformed input is discarded before it
// reaches the queue.
func (in *Input) Validate() error {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("player_id", in.PlayerID, vb)

	switch in.Kind {
	case InputJoin:
		if in.Outbound == nil {
			vb.RequiredField("outbound")
		}
	case InputLeave, InputReady, InputAttack:
	case InputMove:
		errors.ValidateFinite("direction.x", in.Direction.X, vb)
		errors.ValidateFinite("direction.y", in.Direction.Y, vb)
	case InputSkill:
		errors.ValidateRequired("skill_id", in.SkillID, vb)
	case InputUseItem:
		errors.ValidateRequired("target_id", in.TargetID, vb)
	default:
		vb.InvalidField("kind", string(in.Kind))
	}

	return vb.Build()
}

func (in *Input) reply(err error) {
	if in.Reply == nil {
		return
	}
	select {
	case in.Reply <- err:
	default:
	}
}

// InputQueue is a fixed size ring shared by many producers and the room
// goroutine. When full, the oldest unapplied input is dropped.
type InputQueue struct {
	mu      sync.Mutex
	data    []Input
	head    int
	count   int
	dropped uint64
}

// NewInputQueue creates a queue holding up to capacity inputs
func NewInputQueue(capacity int) *InputQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &InputQueue{data: make([]Input, capacity)}
}

// Push stages an input. It returns the input that was evicted to make room,
// if any.
func (q *InputQueue) Push(in Input) (Input, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var evicted Input
	var didEvict bool
	if q.count == len(q.data) {
		evicted = q.data[q.head]
		didEvict = true
		q.data[q.head] = Input{}
		q.head = (q.head + 1) % len(q.data)
		q.count--
		q.dropped++
	}

	q.data[(q.head+q.count)%len(q.data)] = in
	q.count++
	return evicted, didEvict
}

// Drain returns staged inputs in FIFO order and empties the queue
func (q *InputQueue) Drain() []Input {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}
	out := make([]Input, q.count)
	for i := range out {
		idx := (q.head + i) % len(q.data)
		out[i] = q.data[idx]
		q.data[idx] = Input{}
	}
	q.head = 0
	q.count = 0
	return out
}

// Len reports the number of staged inputs
func (q *InputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Dropped reports how many inputs were evicted over the queue's life
func (q *InputQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
