package model

// EventType identifies a realtime broadcast event.
type EventType string

const (
	// EventTypeMessage carries a newly persisted message.
	EventTypeMessage EventType = "message"
	// EventTypeSequenceUpdate carries a sequence after any mutation.
	EventTypeSequenceUpdate EventType = "sequence_update"
)

// MessageEvent is broadcast whenever a message is appended to a session.
type MessageEvent struct {
	SessionID string  `json:"sessionId"`
	Message   Message `json:"message"`
}

// SequenceUpdateEvent is broadcast whenever a sequence or its steps change.
type SequenceUpdateEvent struct {
	Sequence Sequence `json:"sequence"`
}
