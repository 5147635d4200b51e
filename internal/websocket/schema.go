package websocket

import "github.com/stemsi/speaking-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionGenerate Action = "generate"
	ActionPing     Action = "ping"
)

// Request is any client message. Topics is read for ActionGenerate only.
type Request struct {
	Action Action   `json:"action"`
	Topics []string `json:"topics,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventAccepted  Event = "accepted"
	EventGenerated Event = "topic_generated"
	EventFailed    Event = "topic_failed"
	EventCompleted Event = "completed"
	EventPong      Event = "pong"
)

// AcceptedResponse acknowledges a batch before any topic settles.
type AcceptedResponse struct {
	Event Event `json:"event"`
	Total int   `json:"total"`
}

// TopicGeneratedResponse reports one stored question.
type TopicGeneratedResponse struct {
	Event    Event                   `json:"event"`
	Index    int                     `json:"index"`
	Question model.GeneratedQuestion `json:"question"`
}

// TopicFailedResponse reports one topic that produced no question.
type TopicFailedResponse struct {
	Event Event            `json:"event"`
	Index int              `json:"index"`
	Error model.TopicError `json:"error"`
}

// CompletedResponse closes a batch with the same status the HTTP
// endpoint would have returned.
type CompletedResponse struct {
	Event     Event `json:"event"`
	Status    int   `json:"status"`
	Generated int   `json:"generated"`
	Failed    int   `json:"failed"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
