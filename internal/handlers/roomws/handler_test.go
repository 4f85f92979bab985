package roomws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-arena/internal/engine/catalog"
	"github.com/KirkDiggler/rpg-arena/internal/engine/room"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
	"github.com/KirkDiggler/rpg-arena/internal/handlers/roomws"
	"github.com/KirkDiggler/rpg-arena/internal/orchestrators/rooms"
	"github.com/KirkDiggler/rpg-arena/internal/pkg/idgen"
	"github.com/KirkDiggler/rpg-arena/internal/testutils"
)

const waitFor = 3 * time.Second

type HandlerTestSuite struct {
	suite.Suite
	sched  *rooms.Scheduler
	server *httptest.Server
	ctx    context.Context
	cancel context.CancelFunc
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func fastSettings() room.Settings {
	settings := room.DefaultSettings()
	settings.TickRate = 100
	settings.MinPlayers = 1
	settings.Countdown = 0
	settings.IdleTimeout = 0
	return settings
}

func (s *HandlerTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), waitFor)

	sched, err := rooms.NewScheduler(&rooms.Config{
		Catalog:     catalog.Default(),
		IDGenerator: idgen.NewSequential("room"),
		MaxRooms:    2,
	})
	s.Require().NoError(err)
	s.sched = sched

	handler, err := roomws.NewHandler(&roomws.HandlerConfig{
		Rooms:    sched,
		Settings: fastSettings(),
	})
	s.Require().NoError(err)
	s.server = httptest.NewServer(handler.Routes())
}

func (s *HandlerTestSuite) TearDownTest() {
	s.server.Close()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	s.NoError(s.sched.ShutdownAll(ctx))
	s.cancel()
}

func (s *HandlerTestSuite) createRoom() roomws.RoomView {
	resp, err := http.Post(s.server.URL+"/rooms", "application/json", nil)
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var view roomws.RoomView
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&view))
	return view
}

func (s *HandlerTestSuite) dial(roomID, playerID string) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/rooms/" + roomID + "/ws"
	if playerID != "" {
		url += "?player_id=" + playerID
	}
	return websocket.Dial(s.ctx, url, nil)
}

// readUntil reads frames until match returns true
func (s *HandlerTestSuite) readUntil(conn *websocket.Conn, match func(roomws.Frame) bool) roomws.Frame {
	for {
		var frame roomws.Frame
		s.Require().NoError(wsjson.Read(s.ctx, conn, &frame))
		if match(frame) {
			return frame
		}
	}
}

func inState(state room.State) func(roomws.Frame) bool {
	return func(f roomws.Frame) bool {
		return f.Type == roomws.FrameDelta && f.Delta.State == state
	}
}

func (s *HandlerTestSuite) TestNewHandlerRequiresRooms() {
	_, err := roomws.NewHandler(&roomws.HandlerConfig{})
	s.True(errors.IsInvalidArgument(err))
}

func (s *HandlerTestSuite) TestCreateAndListRooms() {
	created := s.createRoom()
	s.Equal("room_1", created.ID)
	s.Equal("empty", created.State)

	resp, err := http.Get(s.server.URL + "/rooms")
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()

	var views []roomws.RoomView
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&views))
	s.Require().Len(views, 1)
	s.Equal("room_1", views[0].ID)
}

func (s *HandlerTestSuite) TestCreateRoomAtCapacity() {
	s.createRoom()
	s.createRoom()

	resp, err := http.Post(s.server.URL+"/rooms", "application/json", nil)
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()
	s.Equal(http.StatusTooManyRequests, resp.StatusCode)

	var body roomws.ErrorFrame
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal(string(errors.ReasonRoomFull), body.Reason)
}

func (s *HandlerTestSuite) TestDialRequiresPlayer() {
	view := s.createRoom()
	_, resp, err := s.dial(view.ID, "")
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *HandlerTestSuite) TestDialUnknownRoom() {
	_, resp, err := s.dial("room_missing", "p1")
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *HandlerTestSuite) TestJoinReadyAndPlay() {
	view := s.createRoom()
	conn, _, err := s.dial(view.ID, "p1")
	s.Require().NoError(err)
	defer func() { _ = conn.CloseNow() }()

	loadout := testutils.WarriorLoadout()
	s.Require().NoError(wsjson.Write(s.ctx, conn, room.Input{Kind: room.InputJoin, Loadout: &loadout}))

	joined := s.readUntil(conn, inState(room.StateWaiting))
	s.Equal(view.ID, joined.Delta.RoomID)

	// the connection decides who the player is
	s.Require().NoError(wsjson.Write(s.ctx, conn, room.Input{PlayerID: "someone-else", Kind: room.InputReady}))
	s.readUntil(conn, inState(room.StateRunning))

	s.Require().NoError(wsjson.Write(s.ctx, conn, room.Input{Kind: room.InputMove, Direction: room.Vec{X: 1}}))
	moved := s.readUntil(conn, func(f roomws.Frame) bool {
		if f.Type != roomws.FrameDelta {
			return false
		}
		for _, e := range f.Delta.Changed {
			if e.ID == "p1" && e.Position.X > 5 {
				return true
			}
		}
		return false
	})
	s.Equal(room.StateRunning, moved.Delta.State)
}

func (s *HandlerTestSuite) TestRejectedInputGetsErrorFrame() {
	view := s.createRoom()
	conn, _, err := s.dial(view.ID, "p1")
	s.Require().NoError(err)
	defer func() { _ = conn.CloseNow() }()

	s.Require().NoError(wsjson.Write(s.ctx, conn, room.Input{Kind: room.InputJoin}))
	s.readUntil(conn, inState(room.StateWaiting))

	s.Require().NoError(wsjson.Write(s.ctx, conn, room.Input{Kind: room.InputJoin}))
	frame := s.readUntil(conn, func(f roomws.Frame) bool { return f.Type == roomws.FrameError })
	s.Equal(string(errors.CodeFailedPrecondition), frame.Error.Code)
	s.Equal(string(errors.ReasonStateConflict), frame.Error.Reason)
}

func (s *HandlerTestSuite) TestFirstFrameMustJoin() {
	view := s.createRoom()
	conn, _, err := s.dial(view.ID, "p1")
	s.Require().NoError(err)
	defer func() { _ = conn.CloseNow() }()

	s.Require().NoError(wsjson.Write(s.ctx, conn, room.Input{Kind: room.InputReady}))

	var frame roomws.Frame
	s.Require().NoError(wsjson.Read(s.ctx, conn, &frame))
	s.Equal(roomws.FrameError, frame.Type)
	s.Equal(string(errors.CodeInvalidArgument), frame.Error.Code)

	_, _, err = conn.Read(s.ctx)
	s.Equal(websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func (s *HandlerTestSuite) TestLeaveClosesSocketAndDisposesRoom() {
	view := s.createRoom()
	conn, _, err := s.dial(view.ID, "p1")
	s.Require().NoError(err)
	defer func() { _ = conn.CloseNow() }()

	s.Require().NoError(wsjson.Write(s.ctx, conn, room.Input{Kind: room.InputJoin}))
	s.readUntil(conn, inState(room.StateWaiting))
	s.Require().NoError(wsjson.Write(s.ctx, conn, room.Input{Kind: room.InputLeave}))

	for {
		_, _, err := conn.Read(s.ctx)
		if err != nil {
			s.Equal(websocket.StatusNormalClosure, websocket.CloseStatus(err))
			break
		}
	}

	s.Eventually(func() bool {
		_, err := s.sched.Get(view.ID)
		return errors.IsNotFound(err)
	}, waitFor, 5*time.Millisecond)
}

func (s *HandlerTestSuite) TestDisconnectLeavesRoom() {
	view := s.createRoom()
	conn, _, err := s.dial(view.ID, "p1")
	s.Require().NoError(err)

	s.Require().NoError(wsjson.Write(s.ctx, conn, room.Input{Kind: room.InputJoin}))
	s.readUntil(conn, inState(room.StateWaiting))
	s.Require().NoError(conn.Close(websocket.StatusNormalClosure, "bye"))

	s.Eventually(func() bool {
		_, err := s.sched.Get(view.ID)
		return errors.IsNotFound(err)
	}, waitFor, 5*time.Millisecond)
}
