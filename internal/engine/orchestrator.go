// Package engine implements the agentic conversation engine: the per-turn
// orchestration loop, the tool-call dispatcher, and the sequence-text
// parser.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/talentarc-ai/outreach-platform/internal/llm"
	"github.com/talentarc-ai/outreach-platform/internal/model"
	"github.com/talentarc-ai/outreach-platform/pkg/logger"
	"github.com/talentarc-ai/outreach-platform/pkg/metrics"
)

// apologyText is the reply of last resort. Whatever breaks, the
// conversation ends in a valid assistant message carrying this.
const apologyText = "I apologize, but I encountered an error processing your request. Please try again."

// placeholderText stands in when the model requests a tool call with no
// accompanying prose.
const placeholderText = "I'll help with that."

var tracer = otel.Tracer("github.com/talentarc-ai/outreach-platform/internal/engine")

// Orchestrator drives the two-round tool-call protocol for each incoming
// user message.
type Orchestrator struct {
	llm         llm.Client
	model       string
	sessions    SessionStore
	messages    MessageStore
	dispatcher  *Dispatcher
	broadcaster Broadcaster
	logger      *logger.Logger
	timeout     time.Duration

	// Per-session serialization: a second message for the same session
	// must not begin until the first completes. Different sessions run
	// independently.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewOrchestrator creates an orchestrator. timeout bounds each text
// generation call; zero disables the bound.
func NewOrchestrator(
	llmClient llm.Client,
	modelName string,
	sessions SessionStore,
	messages MessageStore,
	dispatcher *Dispatcher,
	broadcaster Broadcaster,
	log *logger.Logger,
	timeout time.Duration,
) *Orchestrator {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &Orchestrator{
		llm:         llmClient,
		model:       modelName,
		sessions:    sessions,
		messages:    messages,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		logger:      log,
		timeout:     timeout,
		locks:       make(map[string]*sync.Mutex),
	}
}

// HandleUserMessage runs one turn of the conversation: it persists the
// user message, sends the session history plus that message to the model,
// executes at most one requested tool call, feeds the result back for a
// final reply, and persists every assistant message it produces. It
// always returns a valid assistant message; failures collapse into an
// apology reply.
//
// The session is loaded under the per-session lock so that a turn queued
// behind another sees the assistant replies the earlier turn produced.
func (o *Orchestrator) HandleUserMessage(ctx context.Context, sessionID string, userMsg *model.Message) *model.Message {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ctx, span := tracer.Start(ctx, "engine.HandleUserMessage")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		o.logger.Error("session load failed", zap.Error(err), zap.String("session_id", sessionID))
		return o.apologize(ctx, sessionID)
	}

	if err := o.messages.AppendMessage(ctx, userMsg); err != nil {
		o.logger.Error("user message persist failed", zap.Error(err), zap.String("session_id", sessionID))
		return o.apologize(ctx, sessionID)
	}
	if err := o.sessions.TouchSession(ctx, sessionID); err != nil {
		o.logger.Warn("session touch failed", zap.Error(err), zap.String("session_id", sessionID))
	}
	metrics.MessagesTotal.WithLabelValues(string(userMsg.Role)).Inc()
	o.broadcaster.BroadcastMessage(ctx, userMsg)

	turns := o.buildContext(session, userMsg)

	resp, err := o.complete(ctx, &llm.CompletionRequest{
		Model:    o.model,
		Messages: turns,
		Tools:    toolCatalog(),
	})
	if err != nil {
		o.logger.Error("first-round completion failed", zap.Error(err), zap.String("session_id", session.ID))
		return o.apologize(ctx, session.ID)
	}

	if len(resp.ToolCalls) == 0 {
		// Plain conversational reply, terminal path.
		return o.persistAssistant(ctx, session.ID, resp.Content, nil)
	}

	// Only the first requested call is honored; the rest are dropped.
	call := resp.ToolCalls[0]
	if len(resp.ToolCalls) > 1 {
		o.logger.Warn("model requested multiple tool calls, honoring the first",
			zap.Int("requested", len(resp.ToolCalls)), zap.String("tool", call.Name))
	}

	content := resp.Content
	if content == "" {
		content = placeholderText
	}

	callMsg := o.persistAssistant(ctx, session.ID, content, &model.ToolCallInfo{
		Name:   call.Name,
		Status: model.ToolCallRequested,
	})

	result, ok := o.dispatcher.Dispatch(ctx, call, session)

	status := model.ToolCallCompleted
	if !ok {
		status = model.ToolCallFailed
	}
	callMsg.ToolCall = &model.ToolCallInfo{Name: call.Name, Status: status, Result: result}
	if err := o.messages.UpdateMessageToolCall(ctx, callMsg.ID, callMsg.ToolCall); err != nil {
		o.logger.Error("tool call status update failed", zap.Error(err), zap.String("message_id", callMsg.ID))
		return o.apologize(ctx, session.ID)
	}
	o.broadcaster.BroadcastMessage(ctx, callMsg)

	// Second round: replay the context with the assistant's invocation
	// and the tool result appended, to get the final natural-language
	// reply. Either outcome of the dispatch flows back the same way.
	second := append(turns,
		llm.ChatMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: []llm.ToolCall{call},
		},
		llm.ChatMessage{
			Role:       "tool",
			Content:    result,
			ToolCallID: call.ID,
		},
	)

	finalResp, err := o.complete(ctx, &llm.CompletionRequest{
		Model:    o.model,
		Messages: second,
	})
	if err != nil {
		o.logger.Error("second-round completion failed", zap.Error(err), zap.String("session_id", session.ID))
		return o.apologize(ctx, session.ID)
	}

	return o.persistAssistant(ctx, session.ID, finalResp.Content, nil)
}

// buildContext assembles the model context: system instruction, full
// prior history, then the new user turn.
func (o *Orchestrator) buildContext(session *model.Session, userMsg *model.Message) []llm.ChatMessage {
	turns := make([]llm.ChatMessage, 0, len(session.Messages)+2)
	turns = append(turns, llm.ChatMessage{Role: "system", Content: systemPrompt})
	for _, msg := range session.Messages {
		if msg.ID == userMsg.ID {
			continue
		}
		turns = append(turns, llm.ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	turns = append(turns, llm.ChatMessage{Role: "user", Content: userMsg.Content})
	return turns
}

func (o *Orchestrator) complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.llm.Complete(ctx, req)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordLLMRequest(req.Model, status, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	metrics.LLMTokensTotal.WithLabelValues(resp.Model, "in").Add(float64(resp.TokensIn))
	metrics.LLMTokensTotal.WithLabelValues(resp.Model, "out").Add(float64(resp.TokensOut))
	return resp, nil
}

// persistAssistant appends an assistant message and broadcasts it. When
// even persistence fails the message is still returned so the caller has
// a valid reply; the failure is logged.
func (o *Orchestrator) persistAssistant(ctx context.Context, sessionID, content string, tc *model.ToolCallInfo) *model.Message {
	msg := &model.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Content:   content,
		ToolCall:  tc,
		CreatedAt: time.Now().UTC(),
	}

	if err := o.messages.AppendMessage(ctx, msg); err != nil {
		o.logger.Error("assistant message persist failed", zap.Error(err), zap.String("session_id", sessionID))
		return msg
	}

	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()
	o.broadcaster.BroadcastMessage(ctx, msg)
	return msg
}

func (o *Orchestrator) apologize(ctx context.Context, sessionID string) *model.Message {
	return o.persistAssistant(ctx, sessionID, apologyText, nil)
}

func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, exists := o.locks[sessionID]
	if !exists {
		lock = &sync.Mutex{}
		o.locks[sessionID] = lock
	}
	return lock
}
