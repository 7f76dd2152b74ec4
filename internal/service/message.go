package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/talentarc-ai/outreach-platform/internal/engine"
	"github.com/talentarc-ai/outreach-platform/internal/model"
	"github.com/talentarc-ai/outreach-platform/pkg/logger"
)

// MessageService accepts user messages and hands them to the
// conversation engine.
type MessageService struct {
	sessions     *SessionService
	orchestrator *engine.Orchestrator
	logger       *logger.Logger
}

// NewMessageService creates a new message service.
func NewMessageService(
	sessions *SessionService,
	orchestrator *engine.Orchestrator,
	log *logger.Logger,
) *MessageService {
	return &MessageService{
		sessions:     sessions,
		orchestrator: orchestrator,
		logger:       log,
	}
}

// Send resolves the user's current session and runs one turn of the
// conversation engine, which persists the user message under the
// session's turn lock. The user message is returned; the assistant's
// replies arrive over broadcast (and in the session history).
func (s *MessageService) Send(ctx context.Context, userID string, req *model.SendMessageRequest) (*model.Message, *model.Message, error) {
	session, err := s.sessions.CurrentForUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	role := model.RoleUser
	if req.Role != "" {
		role = model.Role(req.Role)
	}

	userMsg := &model.Message{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		Role:      role,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}

	reply := s.orchestrator.HandleUserMessage(ctx, session.ID, userMsg)

	return userMsg, reply, nil
}
