package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentarc-ai/outreach-platform/internal/llm"
	"github.com/talentarc-ai/outreach-platform/internal/model"
)

// fakeMessageStore records appended messages in order.
type fakeMessageStore struct {
	appended  []*model.Message
	appendErr error
	updateErr error
}

func (s *fakeMessageStore) AppendMessage(_ context.Context, msg *model.Message) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, msg)
	return nil
}

func (s *fakeMessageStore) UpdateMessageToolCall(_ context.Context, messageID string, tc *model.ToolCallInfo) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	for _, msg := range s.appended {
		if msg.ID == messageID {
			msg.ToolCall = tc
			return nil
		}
	}
	return errors.New("message not found")
}

// fakeSessionStore serves a single session whose history is whatever the
// message store has accumulated for it, mirroring how the real store
// loads a session with its messages.
type fakeSessionStore struct {
	session  *model.Session
	messages *fakeMessageStore
	getErr   error
	touched  int
}

func (s *fakeSessionStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	sess := *s.session
	sess.Messages = nil
	for _, msg := range s.messages.appended {
		if msg.SessionID == id {
			sess.Messages = append(sess.Messages, *msg)
		}
	}
	return &sess, nil
}

func (s *fakeSessionStore) TouchSession(_ context.Context, _ string) error {
	s.touched++
	return nil
}

type orchestratorEnv struct {
	orchestrator *Orchestrator
	client       *fakeLLM
	messages     *fakeMessageStore
	sessions     *fakeSessionStore
	store        *fakeSequenceStore
}

func newOrchestratorEnv(client *fakeLLM, store *fakeSequenceStore) *orchestratorEnv {
	messages := &fakeMessageStore{}
	sessions := &fakeSessionStore{
		session:  &model.Session{ID: "sess-1", UserID: "user-1"},
		messages: messages,
	}
	d := NewDispatcher(store, client, "fake-model", NopBroadcaster{}, testLogger(), 5*time.Second)
	o := NewOrchestrator(client, "fake-model", sessions, messages, d, NopBroadcaster{}, testLogger(), 5*time.Second)
	return &orchestratorEnv{
		orchestrator: o,
		client:       client,
		messages:     messages,
		sessions:     sessions,
		store:        store,
	}
}

func userMessage(id, content string) *model.Message {
	return &model.Message{
		ID:        id,
		SessionID: "sess-1",
		Role:      model.RoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func TestHandleUserMessagePlainReply(t *testing.T) {
	client := &fakeLLM{responses: []*llm.CompletionResponse{{
		Content: "What company and role are you hiring for?",
	}}}
	env := newOrchestratorEnv(client, newFakeSequenceStore())

	reply := env.orchestrator.HandleUserMessage(context.Background(), "sess-1", userMessage("msg-1", "Help me with outreach"))

	require.NotNil(t, reply)
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Equal(t, "What company and role are you hiring for?", reply.Content)
	assert.Nil(t, reply.ToolCall)

	// Single round, with tools offered.
	require.Len(t, client.requests, 1)
	assert.NotEmpty(t, client.requests[0].Tools)

	// Both the user turn and the reply are persisted, in order.
	require.Len(t, env.messages.appended, 2)
	assert.Equal(t, model.RoleUser, env.messages.appended[0].Role)
	assert.Equal(t, reply, env.messages.appended[1])
	assert.Equal(t, 1, env.sessions.touched)
}

func TestHandleUserMessageToolCallRoundTrip(t *testing.T) {
	store := newFakeSequenceStore()
	store.sequences["seq-1"] = &model.Sequence{ID: "seq-1", Name: "Acme Outreach"}

	client := &fakeLLM{responses: []*llm.CompletionResponse{
		{
			Content: "Updating the sequence name now.",
			ToolCalls: []llm.ToolCall{{
				ID:        "call-1",
				Name:      "update_sequence",
				Arguments: `{"sequence_id":"seq-1","updates":{"name":"Renamed"}}`,
			}},
		},
		{Content: "Done, the sequence is now called Renamed."},
	}}
	env := newOrchestratorEnv(client, store)

	reply := env.orchestrator.HandleUserMessage(context.Background(), "sess-1", userMessage("msg-1", "Rename it"))

	require.NotNil(t, reply)
	assert.Equal(t, "Done, the sequence is now called Renamed.", reply.Content)
	assert.Equal(t, "Renamed", store.sequences["seq-1"].Name)

	// Three messages persisted: the user turn, the invocation record, and
	// the final reply.
	require.Len(t, env.messages.appended, 3)
	callMsg := env.messages.appended[1]
	require.NotNil(t, callMsg.ToolCall)
	assert.Equal(t, "update_sequence", callMsg.ToolCall.Name)
	assert.Equal(t, model.ToolCallCompleted, callMsg.ToolCall.Status)
	assert.Equal(t, "Updated sequence 'Renamed' successfully", callMsg.ToolCall.Result)

	// Second round carries the invocation and the tool result, no tools.
	require.Len(t, client.requests, 2)
	second := client.requests[1]
	assert.Empty(t, second.Tools)
	last := second.Messages[len(second.Messages)-1]
	assert.Equal(t, "tool", last.Role)
	assert.Equal(t, "call-1", last.ToolCallID)
	assert.Equal(t, "Updated sequence 'Renamed' successfully", last.Content)
}

func TestHandleUserMessageFailedToolCall(t *testing.T) {
	client := &fakeLLM{responses: []*llm.CompletionResponse{
		{
			ToolCalls: []llm.ToolCall{{
				ID:        "call-1",
				Name:      "update_sequence",
				Arguments: `{"sequence_id":"missing","updates":{}}`,
			}},
		},
		{Content: "I couldn't find that sequence."},
	}}
	env := newOrchestratorEnv(client, newFakeSequenceStore())

	reply := env.orchestrator.HandleUserMessage(context.Background(), "sess-1", userMessage("msg-1", "Rename it"))

	require.NotNil(t, reply)
	assert.Equal(t, "I couldn't find that sequence.", reply.Content)

	// The invocation record carries placeholder prose and a failed status.
	require.Len(t, env.messages.appended, 3)
	callMsg := env.messages.appended[1]
	assert.Equal(t, placeholderText, callMsg.Content)
	require.NotNil(t, callMsg.ToolCall)
	assert.Equal(t, model.ToolCallFailed, callMsg.ToolCall.Status)
	assert.Equal(t, "Sequence with ID missing not found", callMsg.ToolCall.Result)

	// The failed result still flows into the second round.
	require.Len(t, client.requests, 2)
	last := client.requests[1].Messages[len(client.requests[1].Messages)-1]
	assert.Equal(t, "Sequence with ID missing not found", last.Content)
}

func TestHandleUserMessageHonorsFirstToolCallOnly(t *testing.T) {
	store := newFakeSequenceStore()
	store.sequences["seq-1"] = &model.Sequence{ID: "seq-1", Name: "Acme Outreach"}

	client := &fakeLLM{responses: []*llm.CompletionResponse{
		{
			ToolCalls: []llm.ToolCall{
				{ID: "call-1", Name: "update_sequence", Arguments: `{"sequence_id":"seq-1","updates":{"name":"First"}}`},
				{ID: "call-2", Name: "update_sequence", Arguments: `{"sequence_id":"seq-1","updates":{"name":"Second"}}`},
			},
		},
		{Content: "Done."},
	}}
	env := newOrchestratorEnv(client, store)

	env.orchestrator.HandleUserMessage(context.Background(), "sess-1", userMessage("msg-1", "Rename twice"))

	assert.Equal(t, "First", store.sequences["seq-1"].Name)
}

func TestHandleUserMessageSecondTurnSeesFirstReply(t *testing.T) {
	client := &fakeLLM{responses: []*llm.CompletionResponse{
		{Content: "Acme it is. What role?"},
		{Content: "Got it, Backend Engineer at Acme."},
	}}
	env := newOrchestratorEnv(client, newFakeSequenceStore())

	env.orchestrator.HandleUserMessage(context.Background(), "sess-1", userMessage("msg-1", "We're hiring at Acme"))
	env.orchestrator.HandleUserMessage(context.Background(), "sess-1", userMessage("msg-2", "Backend Engineer"))

	// The second turn's context includes both sides of the first turn,
	// loaded fresh from the store rather than from a stale snapshot.
	require.Len(t, client.requests, 2)
	turns := client.requests[1].Messages
	require.Len(t, turns, 4)
	assert.Equal(t, "system", turns[0].Role)
	assert.Equal(t, "We're hiring at Acme", turns[1].Content)
	assert.Equal(t, "Acme it is. What role?", turns[2].Content)
	assert.Equal(t, "Backend Engineer", turns[3].Content)
}

func TestHandleUserMessageBoundsEveryRound(t *testing.T) {
	client := &fakeLLM{responses: []*llm.CompletionResponse{
		{
			ToolCalls: []llm.ToolCall{{
				ID:        "call-1",
				Name:      "generate_sequence",
				Arguments: `{"company_name":"Acme","role_name":"SRE"}`,
			}},
		},
		{Content: "Step 1\nType: email\nHello."},
		{Content: "Your sequence is ready."},
	}}
	env := newOrchestratorEnv(client, newFakeSequenceStore())

	env.orchestrator.HandleUserMessage(context.Background(), "sess-1", userMessage("msg-1", "Build me a sequence"))

	// Both orchestrator rounds and the generation call made inside the
	// tool run under a deadline.
	require.Len(t, client.deadlines, 3)
	for i, bounded := range client.deadlines {
		assert.True(t, bounded, "call %d ran without a deadline", i)
	}
}

func TestHandleUserMessageSessionLoadError(t *testing.T) {
	client := &fakeLLM{}
	env := newOrchestratorEnv(client, newFakeSequenceStore())
	env.sessions.getErr = errors.New("database locked")

	reply := env.orchestrator.HandleUserMessage(context.Background(), "sess-1", userMessage("msg-1", "Hello"))

	require.NotNil(t, reply)
	assert.Equal(t, apologyText, reply.Content)
	assert.Empty(t, client.requests)

	// Only the apology is persisted; the user turn never made it in.
	require.Len(t, env.messages.appended, 1)
	assert.Equal(t, model.RoleAssistant, env.messages.appended[0].Role)
}

func TestHandleUserMessageFirstRoundError(t *testing.T) {
	client := &fakeLLM{errs: []error{errors.New("provider down")}}
	env := newOrchestratorEnv(client, newFakeSequenceStore())

	reply := env.orchestrator.HandleUserMessage(context.Background(), "sess-1", userMessage("msg-1", "Hello"))

	require.NotNil(t, reply)
	assert.Equal(t, apologyText, reply.Content)
	require.Len(t, env.messages.appended, 2)
	assert.Equal(t, model.RoleUser, env.messages.appended[0].Role)
}

func TestHandleUserMessageSecondRoundError(t *testing.T) {
	store := newFakeSequenceStore()
	store.sequences["seq-1"] = &model.Sequence{ID: "seq-1", Name: "Acme Outreach"}

	client := &fakeLLM{
		responses: []*llm.CompletionResponse{
			{
				ToolCalls: []llm.ToolCall{{
					ID:        "call-1",
					Name:      "update_sequence",
					Arguments: `{"sequence_id":"seq-1","updates":{"name":"Renamed"}}`,
				}},
			},
			nil,
		},
		errs: []error{nil, errors.New("provider down")},
	}
	env := newOrchestratorEnv(client, store)

	reply := env.orchestrator.HandleUserMessage(context.Background(), "sess-1", userMessage("msg-1", "Rename it"))

	// The tool call itself succeeded; only the final reply degrades.
	require.NotNil(t, reply)
	assert.Equal(t, apologyText, reply.Content)
	assert.Equal(t, "Renamed", store.sequences["seq-1"].Name)
	assert.Equal(t, model.ToolCallCompleted, env.messages.appended[1].ToolCall.Status)
}

func TestBuildContextSkipsPendingUserMessage(t *testing.T) {
	env := newOrchestratorEnv(&fakeLLM{}, newFakeSequenceStore())

	userMsg := &model.Message{ID: "msg-3", Role: model.RoleUser, Content: "latest"}
	session := &model.Session{
		ID: "sess-1",
		Messages: []model.Message{
			{ID: "msg-1", Role: model.RoleUser, Content: "first"},
			{ID: "msg-2", Role: model.RoleAssistant, Content: "reply"},
			*userMsg,
		},
	}

	turns := env.orchestrator.buildContext(session, userMsg)

	require.Len(t, turns, 4)
	assert.Equal(t, "system", turns[0].Role)
	assert.Equal(t, "first", turns[1].Content)
	assert.Equal(t, "reply", turns[2].Content)
	assert.Equal(t, "latest", turns[3].Content)
}
