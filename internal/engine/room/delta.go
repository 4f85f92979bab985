package room

// EventKind names something that happened during a tick
type EventKind string

// Room events
const (
	EventJoined   EventKind = "joined"
	EventLeft     EventKind = "left"
	EventReady    EventKind = "ready"
	EventState    EventKind = "state"
	EventSpawned  EventKind = "spawned"
	EventDamage   EventKind = "damage"
	EventMiss     EventKind = "miss"
	EventHeal     EventKind = "heal"
	EventBuff     EventKind = "buff"
	EventKilled   EventKind = "killed"
	EventExpired  EventKind = "expired"
	EventPickedUp EventKind = "picked_up"
	EventRejected EventKind = "rejected"
)

// Event is one entry of a tick's event list
type Event struct {
	Kind    EventKind `json:"kind"`
	Actor   string    `json:"actor,omitempty"`
	Target  string    `json:"target,omitempty"`
	SkillID string    `json:"skill_id,omitempty"`
	Amount  int       `json:"amount,omitempty"`
	Crit    bool      `json:"crit,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// EntitySnapshot is the wire view of an entity
type EntitySnapshot struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	OwnerID  string `json:"owner_id,omitempty"`
	Position Vec    `json:"position"`
	HP       int    `json:"hp,omitempty"`
	MaxHP    int    `json:"max_hp,omitempty"`
	Alive    bool   `json:"alive"`
}

// Result is the final outcome of a match
type Result struct {
	WinnerID string         `json:"winner_id,omitempty"`
	Reason   string         `json:"reason"`
	Scores   map[string]int `json:"scores"`
	Error    string         `json:"error,omitempty"`
}

// Result reasons
const (
	ReasonScoreLimit  = "score_limit"
	ReasonTimeLimit   = "time_limit"
	ReasonElimination = "elimination"
	ReasonAbandoned   = "abandoned"
	ReasonShutdown    = "shutdown"
	ReasonFault       = "fault"
)

// Delta is the per-tick broadcast. Changed holds entities added or changed
// this tick, Removed the ids that left the entity set.
type Delta struct {
	RoomID  string           `json:"room_id"`
	Tick    uint64           `json:"tick"`
	State   State            `json:"state"`
	Changed []EntitySnapshot `json:"changed,omitempty"`
	Removed []string         `json:"removed,omitempty"`
	Events  []Event          `json:"events,omitempty"`
	Result  *Result          `json:"result,omitempty"`
}
