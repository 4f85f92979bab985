// Package roomws exposes live rooms over websockets
package roomws

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"

	"github.com/KirkDiggler/rpg-arena/internal/engine/room"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	"github.com/KirkDiggler/rpg-arena/internal/orchestrators/rooms"
)

// Defaults for HandlerConfig
const (
	DefaultReadLimit    = 16 << 10
	DefaultLeaveTimeout = 2 * time.Second
)

// errSessionOver ends a session after the player left or the room closed
// their delta stream.
var errSessionOver = stderrors.New("session over")

// Rooms is the part of the scheduler the gateway needs
type Rooms interface {
	CreateRoom(settings room.Settings) (*rooms.Handle, error)
	Get(roomID string) (*rooms.Handle, error)
	List() []rooms.Summary
}

// HandlerConfig configures a Handler
type HandlerConfig struct {
	Rooms Rooms
	// Settings are used for rooms created over HTTP. The zero value means
	// room.DefaultSettings.
	Settings room.Settings
	// OriginPatterns are passed to websocket.Accept. Empty means same
	// origin only.
	OriginPatterns []string
	ReadLimit      int64
	LeaveTimeout   time.Duration
}

// Validate validates the config
func (c *HandlerConfig) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.Rooms == nil {
		vb.RequiredField("Rooms")
	}
	return vb.Build()
}

// Handler serves the room HTTP and websocket routes
type Handler struct {
	rooms          Rooms
	settings       room.Settings
	originPatterns []string
	readLimit      int64
	leaveTimeout   time.Duration
}

// NewHandler creates a new room gateway
func NewHandler(cfg *HandlerConfig) (*Handler, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	h := &Handler{
		rooms:          cfg.Rooms,
		settings:       cfg.Settings,
		originPatterns: cfg.OriginPatterns,
		readLimit:      cfg.ReadLimit,
		leaveTimeout:   cfg.LeaveTimeout,
	}
	if h.settings.TickRate == 0 {
		h.settings = room.DefaultSettings()
	}
	if h.readLimit <= 0 {
		h.readLimit = DefaultReadLimit
	}
	if h.leaveTimeout <= 0 {
		h.leaveTimeout = DefaultLeaveTimeout
	}
	return h, nil
}

// Routes returns the gateway mux:
//
//	GET  /rooms                              list live rooms
//	POST /rooms                              create a room with the default settings
//	GET  /rooms/{room_id}/ws?player_id=...   join a room over a websocket
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rooms", h.listRooms)
	mux.HandleFunc("POST /rooms", h.createRoom)
	mux.HandleFunc("GET /rooms/{room_id}/ws", h.serveSocket)
	return mux
}

// RoomView is the HTTP form of a live room
type RoomView struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Shard int    `json:"shard"`
}

func (h *Handler) listRooms(w http.ResponseWriter, _ *http.Request) {
	summaries := h.rooms.List()
	out := make([]RoomView, len(summaries))
	for i, sum := range summaries {
		out[i] = RoomView{ID: sum.ID, State: sum.State.String(), Shard: sum.Shard}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	settings := h.settings
	settings.ID = ""

	handle, err := h.rooms.CreateRoom(settings)
	if err != nil {
		slog.WarnContext(r.Context(), "Failed to create room", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, RoomView{
		ID:    handle.ID(),
		State: handle.State().String(),
		Shard: handle.Shard(),
	})
}

func (h *Handler) serveSocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		writeError(w, errors.InvalidArgument("player_id is required"))
		return
	}

	handle, err := h.rooms.Get(roomID)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.WarnContext(r.Context(), "Failed to accept websocket",
			"room_id", roomID,
			"player_id", playerID,
			"error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()
	conn.SetReadLimit(h.readLimit)

	sess := &session{
		conn:         conn,
		room:         handle,
		playerID:     playerID,
		leaveTimeout: h.leaveTimeout,
	}
	if err := sess.run(r.Context()); err != nil {
		slog.InfoContext(r.Context(), "Room session ended",
			"room_id", roomID,
			"player_id", playerID,
			"error", err)
		return
	}
	slog.DebugContext(r.Context(), "Room session closed",
		"room_id", roomID,
		"player_id", playerID)
}

type session struct {
	conn         *websocket.Conn
	room         *rooms.Handle
	playerID     string
	leaveTimeout time.Duration
	left         bool
}

// run joins the room with the first frame, then pumps inputs in and deltas
// out until either side stops.
func (s *session) run(ctx context.Context) error {
	var first room.Input
	if err := wsjson.Read(ctx, s.conn, &first); err != nil {
		return ignoreClose(err)
	}
	if first.Kind != room.InputJoin {
		err := errors.InvalidArgumentf("first frame must be a join, got %q", first.Kind)
		_ = wsjson.Write(ctx, s.conn, errorFrame(err))
		_ = s.conn.Close(websocket.StatusPolicyViolation, "join required")
		return err
	}

	deltas, err := s.room.Join(ctx, s.playerID, first.Loadout)
	if err != nil {
		_ = wsjson.Write(ctx, s.conn, errorFrame(err))
		_ = s.conn.Close(websocket.StatusPolicyViolation, "join rejected")
		return err
	}
	defer s.leave()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.writeLoop(gctx, deltas) })
	g.Go(func() error { return s.readLoop(gctx) })

	err = g.Wait()
	if stderrors.Is(err, errSessionOver) {
		_ = s.conn.Close(websocket.StatusNormalClosure, "left room")
		return nil
	}
	return ignoreClose(err)
}

func (s *session) writeLoop(ctx context.Context, deltas <-chan room.Delta) error {
	for {
		select {
		case delta, ok := <-deltas:
			if !ok {
				s.left = true
				return errSessionOver
			}
			if err := wsjson.Write(ctx, s.conn, Frame{Type: FrameDelta, Delta: &delta}); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *session) readLoop(ctx context.Context) error {
	for {
		var in room.Input
		if err := wsjson.Read(ctx, s.conn, &in); err != nil {
			return err
		}
		in.PlayerID = s.playerID

		var err error
		switch in.Kind {
		case room.InputJoin:
			err = errors.StateConflictf("player %s already joined", s.playerID)
		case room.InputReady:
			err = s.room.Ready(ctx, s.playerID)
		case room.InputLeave:
			// the room closes the delta stream, which ends the write loop
			return s.room.Leave(ctx, s.playerID)
		default:
			err = s.room.Send(in)
		}
		if err != nil {
			if writeErr := wsjson.Write(ctx, s.conn, errorFrame(err)); writeErr != nil {
				return writeErr
			}
		}
	}
}

// leave removes the player when the socket went away without a leave
func (s *session) leave() {
	if s.left {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.leaveTimeout)
	defer cancel()
	if err := s.room.Leave(ctx, s.playerID); err != nil && !errors.IsStateConflict(err) {
		slog.Warn("Failed to leave room after disconnect",
			"room_id", s.room.ID(),
			"player_id", s.playerID,
			"error", err)
	}
}

func ignoreClose(err error) error {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return nil
	}
	if stderrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.GetCode(err).HTTPStatus(), errorFrame(err).Error)
}
