package service

import (
	"context"
	"fmt"
	"time"

	"github.com/talentarc-ai/outreach-platform/internal/model"
	"github.com/talentarc-ai/outreach-platform/internal/store"
	"github.com/talentarc-ai/outreach-platform/pkg/logger"
)

// UserService handles recruiter profile operations.
type UserService struct {
	store  store.Store
	logger *logger.Logger
}

// NewUserService creates a new user service.
func NewUserService(st store.Store, log *logger.Logger) *UserService {
	return &UserService{
		store:  st,
		logger: log,
	}
}

// GetProfile returns the user's profile, creating an empty one on first
// access.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err == nil {
		return user, nil
	}
	if err != store.ErrNotFound {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	now := time.Now().UTC()
	user = &model.User{
		ID:          userID,
		Preferences: map[string]string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

// UpdateProfile applies partial updates to the user's profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Company != nil {
		user.Company = *req.Company
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Preferences != nil {
		user.Preferences = req.Preferences
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.store.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}

	return user, nil
}
