package api

import "github.com/open-teleop/legged-teleop/domain/teleop"

// --- Data Structures for HTTP and WebSocket Messages ---

// IndicatorRequest is the body of PUT /api/v1/teleop/indicator.
type IndicatorRequest struct {
	Color *teleop.IndicatorColor `json:"color"`
}

// InputReply is sent back on the input WebSocket when a sample is rejected
// or dropped.
type InputReply struct {
	Session string `json:"session"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// Input reply statuses
const (
	InputStatusRejected = "rejected"
	InputStatusDropped  = "dropped"
)
