package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentarc-ai/outreach-platform/internal/engine"
	"github.com/talentarc-ai/outreach-platform/internal/model"
	"github.com/talentarc-ai/outreach-platform/internal/store"
	"github.com/talentarc-ai/outreach-platform/pkg/logger"
	"github.com/talentarc-ai/outreach-platform/pkg/metrics"
)

// SequenceService handles direct (non-engine) sequence operations from
// the REST API.
type SequenceService struct {
	store       store.Store
	broadcaster engine.Broadcaster
	logger      *logger.Logger
}

// NewSequenceService creates a new sequence service.
func NewSequenceService(st store.Store, broadcaster engine.Broadcaster, log *logger.Logger) *SequenceService {
	if broadcaster == nil {
		broadcaster = engine.NopBroadcaster{}
	}
	return &SequenceService{
		store:       st,
		broadcaster: broadcaster,
		logger:      log,
	}
}

// ListForUser returns all sequences owned by a user.
func (s *SequenceService) ListForUser(ctx context.Context, userID string) ([]model.Sequence, error) {
	return s.store.ListSequencesByUser(ctx, userID)
}

// Get retrieves a sequence with its steps.
func (s *SequenceService) Get(ctx context.Context, id string) (*model.Sequence, error) {
	return s.store.GetSequence(ctx, id)
}

// Create creates an empty sequence from an explicit API request.
func (s *SequenceService) Create(ctx context.Context, userID string, req *model.CreateSequenceRequest) (*model.Sequence, error) {
	now := time.Now().UTC()

	name := req.Name
	if name == "" {
		name = "New Outreach Sequence"
	}

	seq := &model.Sequence{
		ID:               uuid.New().String(),
		UserID:           userID,
		Name:             name,
		CompanyName:      req.CompanyName,
		RoleName:         req.RoleName,
		CandidatePersona: req.CandidatePersona,
		Steps:            []model.Step{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.CreateSequence(ctx, seq); err != nil {
		return nil, fmt.Errorf("creating sequence: %w", err)
	}

	metrics.SequencesTotal.Inc()
	s.broadcaster.BroadcastSequence(ctx, seq)

	s.logger.Info("sequence created",
		zap.String("sequence_id", seq.ID),
		zap.String("user_id", userID),
	)

	return seq, nil
}

// Update applies partial updates to a sequence.
func (s *SequenceService) Update(ctx context.Context, id string, req *model.UpdateSequenceRequest) (*model.Sequence, error) {
	seq, err := s.store.GetSequence(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		seq.Name = *req.Name
	}
	if req.CompanyName != nil {
		seq.CompanyName = *req.CompanyName
	}
	if req.RoleName != nil {
		seq.RoleName = *req.RoleName
	}
	if req.CandidatePersona != nil {
		seq.CandidatePersona = *req.CandidatePersona
	}
	seq.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateSequence(ctx, seq); err != nil {
		return nil, fmt.Errorf("updating sequence: %w", err)
	}

	s.broadcaster.BroadcastSequence(ctx, seq)

	return seq, nil
}

// UpdateStep applies partial updates to a step, verifying it belongs to
// the given sequence. Returns the full updated sequence.
func (s *SequenceService) UpdateStep(ctx context.Context, sequenceID, stepID string, req *model.UpdateStepRequest) (*model.Sequence, error) {
	step, err := s.store.GetStep(ctx, stepID)
	if err != nil {
		return nil, err
	}
	if step.SequenceID != sequenceID {
		return nil, store.ErrNotFound
	}

	if req.Content != nil {
		step.Content = *req.Content
	}
	if req.Subject != nil {
		step.Subject = *req.Subject
	}
	if req.Type != nil {
		t := model.StepType(*req.Type)
		if model.ValidStepType(t) {
			step.Type = t
		}
	}
	if req.Timing != nil {
		step.Timing = *req.Timing
	}
	if req.WaitTime != nil {
		step.WaitTime = *req.WaitTime
	}
	step.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateStep(ctx, step); err != nil {
		return nil, fmt.Errorf("updating step: %w", err)
	}

	seq, err := s.store.GetSequence(ctx, sequenceID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.BroadcastSequence(ctx, seq)

	return seq, nil
}
