package ports

import "time"

// Stage event types
const (
	EventStage  = "stage"
	EventDone   = "done"
	EventFailed = "failed"
)

// StageEvent reports progress of a background task to connected browsers
type StageEvent struct {
	SessionID string    `json:"session_id"`
	TaskID    string    `json:"task_id"`
	Kind      string    `json:"kind"`
	EventType string    `json:"event_type"`
	Stage     string    `json:"stage,omitempty"`
	Progress  float64   `json:"progress"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher fans stage events out to subscribers
type EventPublisher interface {
	Publish(event StageEvent)
}
