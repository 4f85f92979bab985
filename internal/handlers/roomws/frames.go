package roomws

import (
	"github.com/KirkDiggler/rpg-arena/internal/engine/room"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
)

// FrameType tags a server to client frame
type FrameType string

// Frame types
const (
	FrameDelta FrameType = "delta"
	FrameError FrameType = "error"
)

// Frame is what the server writes to the socket. Clients write bare
// room.Input values; the player ID is taken from the connection.
type Frame struct {
	Type  FrameType   `json:"type"`
	Delta *room.Delta `json:"delta,omitempty"`
	Error *ErrorFrame `json:"error,omitempty"`
}

// ErrorFrame reports a rejected input
type ErrorFrame struct {
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

func errorFrame(err error) Frame {
	return Frame{
		Type: FrameError,
		Error: &ErrorFrame{
			Code:    string(errors.GetCode(err)),
			Reason:  string(errors.GetReason(err)),
			Message: errors.GetMessage(err),
		},
	}
}
