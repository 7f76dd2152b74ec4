// Package store provides SQLite-backed persistence for the outreach platform.
package store

import (
	"context"
	"errors"

	"github.com/talentarc-ai/outreach-platform/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface consumed by the services and the
// conversation engine.
type Store interface {
	// Users
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpsertUser(ctx context.Context, user *model.User) error

	// Sessions
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	LatestSessionForUser(ctx context.Context, userID string) (*model.Session, error)
	TouchSession(ctx context.Context, id string) error

	// Messages
	AppendMessage(ctx context.Context, msg *model.Message) error
	UpdateMessageToolCall(ctx context.Context, messageID string, tc *model.ToolCallInfo) error
	ListMessages(ctx context.Context, sessionID string) ([]model.Message, error)

	// Sequences and steps
	CreateSequence(ctx context.Context, seq *model.Sequence) error
	CreateSequenceWithSteps(ctx context.Context, seq *model.Sequence, sessionID string) error
	GetSequence(ctx context.Context, id string) (*model.Sequence, error)
	ListSequencesByUser(ctx context.Context, userID string) ([]model.Sequence, error)
	UpdateSequence(ctx context.Context, seq *model.Sequence) error
	AddStep(ctx context.Context, step *model.Step) error
	GetStep(ctx context.Context, id string) (*model.Step, error)
	UpdateStep(ctx context.Context, step *model.Step) error
	MaxStepNumber(ctx context.Context, sequenceID string) (int, error)

	Ping(ctx context.Context) error
	Close() error
}
