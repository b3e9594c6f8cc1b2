package ipc

import (
	"errors"

	"github.com/matjam/smoothtile/internal/engine"
	"github.com/matjam/smoothtile/internal/transition"
	"github.com/matjam/smoothtile/internal/types"
)

type CommandType string

const (
	CommandStop   CommandType = "stop"
	CommandFrame  CommandType = "frame"
	CommandStatus CommandType = "status"
)

var ErrStopped = errors.New("manager stopped")

type Command struct {
	Type  CommandType `json:"type"`
	Frame int         `json:"frame"`
	Style types.Style `json:"style,omitempty"`
}

// FrameRequest is the body of POST /frame.
type FrameRequest struct {
	Frame int         `json:"frame"`
	Style types.Style `json:"style,omitempty"`
}

// Status is a snapshot of the viewer taken on the manager's loop.
type Status struct {
	Rendered      bool             `json:"rendered"`
	State         string           `json:"state"`
	DesiredFrame  int              `json:"desired_frame"`
	DesiredStyle  types.Style      `json:"desired_style,omitempty"`
	ChangingFrame *int             `json:"changing_frame,omitempty"`
	ChangedFrame  *int             `json:"changed_frame,omitempty"`
	Frames        int              `json:"frames"`
	Controller    transition.Stats `json:"controller"`
	Engine        engine.Stats     `json:"engine"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
	PID     int    `json:"pid"`
	Socket  string `json:"socket"`
	Config  string `json:"config"`
	Item    string `json:"item"`
	Viewer  Status `json:"viewer"`
}

type ManagerInterface interface {
	Status() Status
	Metadata() types.Metadata
	EnqueueCommand(Command) error
}

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}
