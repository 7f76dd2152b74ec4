package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talentarc-ai/outreach-platform/internal/model"
	"github.com/talentarc-ai/outreach-platform/pkg/logger"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), &logger.Logger{Logger: zap.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedSession(t *testing.T, s *SQLiteStore, id, userID string) *model.Session {
	t.Helper()
	now := time.Now().UTC()
	session := &model.Session{ID: id, UserID: userID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateSession(context.Background(), session))
	return session
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestUserUpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.GetUser(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)

	user := &model.User{
		ID:          "user-1",
		Name:        "Riley",
		Email:       "riley@example.com",
		Company:     "Acme",
		Role:        "Recruiter",
		Preferences: map[string]string{"tone": "casual"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.UpsertUser(ctx, user))

	got, err := s.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Riley", got.Name)
	assert.Equal(t, "casual", got.Preferences["tone"])

	user.Name = "Riley Chen"
	require.NoError(t, s.UpsertUser(ctx, user))
	got, err = s.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Riley Chen", got.Name)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedSession(t, s, "sess-1", "user-1")

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Nil(t, got.CurrentSequenceID)
	assert.Empty(t, got.Messages)

	_, err = s.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.TouchSession(ctx, "missing"), ErrNotFound)
	require.NoError(t, s.TouchSession(ctx, "sess-1"))
}

func TestLatestSessionForUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LatestSessionForUser(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)

	base := time.Now().UTC()
	older := &model.Session{ID: "sess-old", UserID: "user-1", CreatedAt: base.Add(-time.Hour), UpdatedAt: base.Add(-time.Hour)}
	newer := &model.Session{ID: "sess-new", UserID: "user-1", CreatedAt: base, UpdatedAt: base}
	require.NoError(t, s.CreateSession(ctx, older))
	require.NoError(t, s.CreateSession(ctx, newer))

	got, err := s.LatestSessionForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-new", got.ID)
}

func TestMessagesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSession(t, s, "sess-1", "user-1")

	base := time.Now().UTC()
	require.NoError(t, s.AppendMessage(ctx, &model.Message{
		ID: "msg-1", SessionID: "sess-1", Role: model.RoleUser,
		Content: "hello", CreatedAt: base,
	}))
	require.NoError(t, s.AppendMessage(ctx, &model.Message{
		ID: "msg-2", SessionID: "sess-1", Role: model.RoleAssistant,
		Content:   "working on it",
		ToolCall:  &model.ToolCallInfo{Name: "generate_sequence", Status: model.ToolCallRequested},
		CreatedAt: base.Add(time.Second),
	}))

	require.NoError(t, s.UpdateMessageToolCall(ctx, "msg-2", &model.ToolCallInfo{
		Name:   "generate_sequence",
		Status: model.ToolCallCompleted,
		Result: "Created outreach sequence 'X' with 3 steps",
	}))

	msgs, err := s.ListMessages(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg-1", msgs[0].ID)
	assert.Nil(t, msgs[0].ToolCall)
	require.NotNil(t, msgs[1].ToolCall)
	assert.Equal(t, model.ToolCallCompleted, msgs[1].ToolCall.Status)
	assert.Equal(t, "Created outreach sequence 'X' with 3 steps", msgs[1].ToolCall.Result)

	// Session load includes history.
	session, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, session.Messages, 2)

	assert.ErrorIs(t, s.UpdateMessageToolCall(ctx, "missing", nil), ErrNotFound)
}

func sampleSequence(userID string, steps int) *model.Sequence {
	now := time.Now().UTC()
	seq := &model.Sequence{
		ID:          "seq-" + userID,
		UserID:      userID,
		Name:        "Backend Engineer at Acme Outreach",
		CompanyName: "Acme",
		RoleName:    "Backend Engineer",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i := 1; i <= steps; i++ {
		seq.Steps = append(seq.Steps, model.Step{
			ID:         seq.ID + "-step-" + string(rune('0'+i)),
			SequenceID: seq.ID,
			StepNumber: i,
			Type:       model.StepTypeEmail,
			Content:    "body",
			WaitTime:   i - 1,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	return seq
}

func TestCreateSequenceWithSteps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSession(t, s, "sess-1", "user-1")

	seq := sampleSequence("user-1", 3)
	require.NoError(t, s.CreateSequenceWithSteps(ctx, seq, "sess-1"))

	got, err := s.GetSequence(ctx, seq.ID)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer at Acme Outreach", got.Name)
	require.Len(t, got.Steps, 3)
	assert.Equal(t, 1, got.Steps[0].StepNumber)
	assert.Equal(t, 3, got.Steps[2].StepNumber)

	session, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, session.CurrentSequenceID)
	assert.Equal(t, seq.ID, *session.CurrentSequenceID)
}

func TestCreateSequenceWithStepsRollsBackOnBadSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seq := sampleSequence("user-1", 2)
	err := s.CreateSequenceWithSteps(ctx, seq, "missing-session")
	require.Error(t, err)

	// Nothing from the failed transaction is visible.
	_, err = s.GetSequence(ctx, seq.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	n, err := s.MaxStepNumber(ctx, seq.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListSequencesByUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.ListSequencesByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.CreateSequence(ctx, sampleSequence("user-1", 0)))
	require.NoError(t, s.CreateSequence(ctx, sampleSequence("user-2", 0)))

	got, err = s.ListSequencesByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "user-1", got[0].UserID)
}

func TestUpdateSequence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seq := sampleSequence("user-1", 0)
	require.NoError(t, s.CreateSequence(ctx, seq))

	seq.Name = "Renamed"
	seq.UpdatedAt = time.Now().UTC()
	require.NoError(t, s.UpdateSequence(ctx, seq))

	got, err := s.GetSequence(ctx, seq.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	missing := sampleSequence("ghost", 0)
	assert.ErrorIs(t, s.UpdateSequence(ctx, missing), ErrNotFound)
}

func TestStepOperations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSession(t, s, "sess-1", "user-1")

	seq := sampleSequence("user-1", 2)
	require.NoError(t, s.CreateSequenceWithSteps(ctx, seq, "sess-1"))

	max, err := s.MaxStepNumber(ctx, seq.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, max)

	now := time.Now().UTC()
	step := &model.Step{
		ID: "step-3", SequenceID: seq.ID, StepNumber: 3,
		Type: model.StepTypePhone, Content: "call them",
		WaitTime: 2, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.AddStep(ctx, step))

	max, err = s.MaxStepNumber(ctx, seq.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, max)

	// Duplicate step number within a sequence is rejected.
	dup := &model.Step{
		ID: "step-dup", SequenceID: seq.ID, StepNumber: 3,
		Type: model.StepTypeEmail, Content: "dup", CreatedAt: now, UpdatedAt: now,
	}
	require.Error(t, s.AddStep(ctx, dup))

	got, err := s.GetStep(ctx, "step-3")
	require.NoError(t, err)
	assert.Equal(t, model.StepTypePhone, got.Type)

	got.Content = "call them tomorrow"
	got.WaitTime = 5
	got.UpdatedAt = time.Now().UTC()
	require.NoError(t, s.UpdateStep(ctx, got))

	reloaded, err := s.GetStep(ctx, "step-3")
	require.NoError(t, err)
	assert.Equal(t, "call them tomorrow", reloaded.Content)
	assert.Equal(t, 5, reloaded.WaitTime)

	_, err = s.GetStep(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
