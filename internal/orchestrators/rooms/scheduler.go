// Package rooms runs live rooms. Each room is owned by one goroutine that
// steps it on a ticker; a panic inside a tick fails that room only.
package rooms

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/KirkDiggler/rpg-arena/internal/engine/catalog"
	"github.com/KirkDiggler/rpg-arena/internal/engine/room"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	"github.com/KirkDiggler/rpg-arena/internal/pkg/idgen"
)

// Defaults for the scheduler
const (
	DefaultMaxRooms = 256
	DefaultShards   = 4
)

// Config holds the dependencies for the scheduler
type Config struct {
	Catalog     *catalog.Catalog
	IDGenerator idgen.Generator
	// MaxRooms caps concurrently running rooms
	MaxRooms int
	// Shards is the number of load buckets rooms are spread over
	Shards int
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.Catalog == nil {
		vb.RequiredField("Catalog")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.MaxRooms < 0 {
		vb.Fieldf("MaxRooms", "must not be negative, got %d", c.MaxRooms)
	}
	if c.Shards < 0 {
		vb.Fieldf("Shards", "must not be negative, got %d", c.Shards)
	}

	return vb.Build()
}

// Scheduler creates rooms and owns their goroutines
type Scheduler struct {
	catalog  *catalog.Catalog
	idGen    idgen.Generator
	maxRooms int

	mu     sync.Mutex
	rooms  map[string]*Handle
	load   []int
	closed bool
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler
func NewScheduler(cfg *Config) (*Scheduler, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	maxRooms := cfg.MaxRooms
	if maxRooms == 0 {
		maxRooms = DefaultMaxRooms
	}
	shards := cfg.Shards
	if shards == 0 {
		shards = DefaultShards
	}

	return &Scheduler{
		catalog:  cfg.Catalog,
		idGen:    cfg.IDGenerator,
		maxRooms: maxRooms,
		rooms:    make(map[string]*Handle),
		load:     make([]int, shards),
	}, nil
}

// CreateRoom builds a room from settings and starts its goroutine. An empty
// settings ID is generated.
func (s *Scheduler) CreateRoom(settings room.Settings) (*Handle, error) {
	if settings.ID == "" {
		settings.ID = s.idGen.Generate()
	}

	r, err := room.New(settings, s.catalog)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.StateConflict("scheduler is shut down")
	}
	if _, exists := s.rooms[settings.ID]; exists {
		s.mu.Unlock()
		return nil, errors.AlreadyExistsf("room %s already exists", settings.ID)
	}
	if len(s.rooms) >= s.maxRooms {
		s.mu.Unlock()
		return nil, errors.ResourceExhaustedf(errors.ReasonRoomFull, "scheduler at capacity (%d rooms)", s.maxRooms)
	}

	h := &Handle{
		room:     r,
		shard:    s.leastLoaded(),
		shutdown: make(chan string, 1),
		done:     make(chan struct{}),
	}
	s.load[h.shard]++
	s.rooms[r.ID()] = h
	s.wg.Add(1)
	s.mu.Unlock()

	slog.Info("Room created",
		"room_id", r.ID(),
		"shard", h.shard,
		"tick_rate", settings.TickRate)

	go s.run(h)
	return h, nil
}

// leastLoaded returns the shard with the fewest rooms, lowest index first.
// Caller holds mu.
func (s *Scheduler) leastLoaded() int {
	best := 0
	for i, n := range s.load {
		if n < s.load[best] {
			best = i
		}
	}
	return best
}

// Get returns the handle of a live room
func (s *Scheduler) Get(roomID string) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.rooms[roomID]
	if !ok {
		return nil, errors.NotFoundf("room %s not found", roomID)
	}
	return h, nil
}

// Summary describes a live room
type Summary struct {
	ID    string
	State room.State
	Shard int
}

// List returns every live room ordered by ID
func (s *Scheduler) List() []Summary {
	s.mu.Lock()
	out := make([]Summary, 0, len(s.rooms))
	for id, h := range s.rooms {
		out = append(out, Summary{ID: id, State: h.State(), Shard: h.shard})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Load returns the number of rooms on each shard
func (s *Scheduler) Load() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.load...)
}

// Shutdown asks a room to end. Members of a running match get a Finished
// delta before their channels close.
func (s *Scheduler) Shutdown(roomID, reason string) error {
	h, err := s.Get(roomID)
	if err != nil {
		return err
	}
	h.requestShutdown(reason)
	return nil
}

// ShutdownAll stops accepting rooms, shuts down every live room and waits
// for their goroutines or ctx
func (s *Scheduler) ShutdownAll(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	handles := make([]*Handle, 0, len(s.rooms))
	for _, h := range s.rooms {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.requestShutdown(room.ReasonShutdown)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.InfoContext(ctx, "All rooms stopped", "rooms", len(handles))
		return nil
	case <-ctx.Done():
		return errors.WrapWithCode(ctx.Err(), errors.CodeCanceled, "rooms did not stop in time")
	}
}

func (s *Scheduler) run(h *Handle) {
	defer s.release(h)

	ticker := time.NewTicker(h.room.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case reason := <-h.shutdown:
			if !h.guard(func() { h.room.Shutdown(reason) }) {
				return
			}
		case <-ticker.C:
			if !h.guard(h.room.Step) {
				return
			}
		}
		if h.room.State() == room.StateDisposed {
			return
		}
	}
}

func (s *Scheduler) release(h *Handle) {
	s.mu.Lock()
	delete(s.rooms, h.room.ID())
	s.load[h.shard]--
	s.mu.Unlock()

	close(h.done)
	s.wg.Done()

	slog.Info("Room disposed",
		"room_id", h.room.ID(),
		"tick", h.room.Tick())
}
