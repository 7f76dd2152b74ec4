// Package service provides business logic for the outreach platform.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentarc-ai/outreach-platform/internal/model"
	"github.com/talentarc-ai/outreach-platform/internal/store"
	"github.com/talentarc-ai/outreach-platform/pkg/logger"
)

// SessionService handles chat session operations.
type SessionService struct {
	store  store.Store
	logger *logger.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(st store.Store, log *logger.Logger) *SessionService {
	return &SessionService{
		store:  st,
		logger: log,
	}
}

// Create creates a new session for a user.
func (s *SessionService) Create(ctx context.Context, userID string) (*model.Session, error) {
	now := time.Now().UTC()

	session := &model.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Messages:  []model.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("user_id", userID),
	)

	return session, nil
}

// CurrentForUser returns the user's most recent session, creating one if
// none exists.
func (s *SessionService) CurrentForUser(ctx context.Context, userID string) (*model.Session, error) {
	session, err := s.store.LatestSessionForUser(ctx, userID)
	if err == nil {
		return session, nil
	}
	if err != store.ErrNotFound {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	return s.Create(ctx, userID)
}

// Get retrieves a session by ID with its messages.
func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	return s.store.GetSession(ctx, id)
}
