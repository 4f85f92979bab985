package arena

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"google.golang.org/protobuf/encoding/protowire"
)

// EventKind tags an entry in a battle replay
type EventKind uint8

// Replay event kinds
const (
	EventSpawn EventKind = iota + 1
	EventMove
	EventDamage
	EventMiss
	EventHeal
	EventBuff
	EventDeath
	EventEnd
)

var eventKindNames = map[EventKind]string{
	EventSpawn:  "spawn",
	EventMove:   "move",
	EventDamage: "damage",
	EventMiss:   "miss",
	EventHeal:   "heal",
	EventBuff:   "buff",
	EventDeath:  "death",
	EventEnd:    "end",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", uint8(k))
}

// Event is one step of a battle replay
type Event struct {
	Tick    uint32    `json:"tick"`
	Kind    EventKind `json:"kind"`
	Actor   string    `json:"actor,omitempty"`
	Target  string    `json:"target,omitempty"`
	SkillID string    `json:"skill_id,omitempty"`
	Amount  int32     `json:"amount,omitempty"`
	Crit    bool      `json:"crit,omitempty"`
}

// Field numbers of the replay wire format. Each event is a length-delimited
// field 1 of the log message.
const (
	fieldEvent   protowire.Number = 1
	fieldTick    protowire.Number = 1
	fieldKind    protowire.Number = 2
	fieldActor   protowire.Number = 3
	fieldTarget  protowire.Number = 4
	fieldSkillID protowire.Number = 5
	fieldAmount  protowire.Number = 6
	fieldCrit    protowire.Number = 7
)

// MarshalReplay encodes events in protobuf wire format. The encoding is
// canonical: equal logs always produce equal bytes.
func MarshalReplay(events []Event) []byte {
	var out []byte
	for _, ev := range events {
		out = protowire.AppendTag(out, fieldEvent, protowire.BytesType)
		out = protowire.AppendBytes(out, marshalEvent(ev))
	}
	return out
}

func marshalEvent(ev Event) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldTick, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ev.Tick))
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ev.Kind))
	if ev.Actor != "" {
		b = protowire.AppendTag(b, fieldActor, protowire.BytesType)
		b = protowire.AppendString(b, ev.Actor)
	}
	if ev.Target != "" {
		b = protowire.AppendTag(b, fieldTarget, protowire.BytesType)
		b = protowire.AppendString(b, ev.Target)
	}
	if ev.SkillID != "" {
		b = protowire.AppendTag(b, fieldSkillID, protowire.BytesType)
		b = protowire.AppendString(b, ev.SkillID)
	}
	if ev.Amount != 0 {
		b = protowire.AppendTag(b, fieldAmount, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(ev.Amount)))
	}
	if ev.Crit {
		b = protowire.AppendTag(b, fieldCrit, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	return b
}

// UnmarshalReplay decodes a log written by MarshalReplay. Unknown fields
// are skipped.
func UnmarshalReplay(data []byte) ([]Event, error) {
	var events []Event
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("replay: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		if num != fieldEvent || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("replay: bad field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		raw, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("replay: bad event: %w", protowire.ParseError(n))
		}
		data = data[n:]

		ev, err := unmarshalEvent(raw)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func unmarshalEvent(b []byte) (Event, error) {
	var ev Event
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return ev, fmt.Errorf("replay: bad event tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return ev, fmt.Errorf("replay: bad varint in field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldTick:
				ev.Tick = uint32(v)
			case fieldKind:
				ev.Kind = EventKind(v)
			case fieldAmount:
				ev.Amount = int32(protowire.DecodeZigZag(v))
			case fieldCrit:
				ev.Crit = protowire.DecodeBool(v)
			}
		case typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return ev, fmt.Errorf("replay: bad string in field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldActor:
				ev.Actor = v
			case fieldTarget:
				ev.Target = v
			case fieldSkillID:
				ev.SkillID = v
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return ev, fmt.Errorf("replay: bad field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return ev, nil
}

// Digest is the xxhash of the canonical replay encoding. Two battles with
// the same digest produced the same event log.
func Digest(events []Event) uint64 {
	return xxhash.Sum64(MarshalReplay(events))
}
