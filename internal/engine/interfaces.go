package engine

import (
	"context"

	"github.com/talentarc-ai/outreach-platform/internal/model"
)

// SequenceStore is the slice of persistence the dispatcher mutates.
type SequenceStore interface {
	CreateSequenceWithSteps(ctx context.Context, seq *model.Sequence, sessionID string) error
	GetSequence(ctx context.Context, id string) (*model.Sequence, error)
	UpdateSequence(ctx context.Context, seq *model.Sequence) error
	GetStep(ctx context.Context, id string) (*model.Step, error)
	AddStep(ctx context.Context, step *model.Step) error
	UpdateStep(ctx context.Context, step *model.Step) error
	MaxStepNumber(ctx context.Context, sequenceID string) (int, error)
}

// MessageStore is the slice of persistence the orchestrator appends to.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *model.Message) error
	UpdateMessageToolCall(ctx context.Context, messageID string, tc *model.ToolCallInfo) error
}

// SessionStore loads session state. The orchestrator reads the session
// under its per-session lock so each turn sees the history the previous
// turn produced.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*model.Session, error)
	TouchSession(ctx context.Context, id string) error
}

// Broadcaster fans out persisted messages and sequence mutations to
// connected clients. Implementations must tolerate being called on every
// mutation; failures are logged by the implementation, never surfaced.
type Broadcaster interface {
	BroadcastMessage(ctx context.Context, msg *model.Message)
	BroadcastSequence(ctx context.Context, seq *model.Sequence)
}

// NopBroadcaster discards all events. Useful in tests and when NATS is
// not configured.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastMessage(ctx context.Context, msg *model.Message) {}

func (NopBroadcaster) BroadcastSequence(ctx context.Context, seq *model.Sequence) {}
