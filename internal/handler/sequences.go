package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/talentarc-ai/outreach-platform/internal/middleware"
	"github.com/talentarc-ai/outreach-platform/internal/model"
	"github.com/talentarc-ai/outreach-platform/internal/service"
	"github.com/talentarc-ai/outreach-platform/internal/store"
	"github.com/talentarc-ai/outreach-platform/pkg/logger"
)

// SequenceHandler handles sequence endpoints.
type SequenceHandler struct {
	service *service.SequenceService
	logger  *logger.Logger
}

// NewSequenceHandler creates a new sequence handler.
func NewSequenceHandler(svc *service.SequenceService, log *logger.Logger) *SequenceHandler {
	return &SequenceHandler{
		service: svc,
		logger:  log,
	}
}

// List handles GET /api/v1/sequences
func (h *SequenceHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	sequences, err := h.service.ListForUser(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list sequences")
		writeError(w, http.StatusInternalServerError, "failed to list sequences")
		return
	}

	if sequences == nil {
		sequences = []model.Sequence{}
	}
	writeJSON(w, http.StatusOK, sequences)
}

// Get handles GET /api/v1/sequences/:id
func (h *SequenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sequenceID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(sequenceID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	seq, err := h.service.Get(ctx, sequenceID)
	if err != nil {
		writeError(w, http.StatusNotFound, "sequence not found")
		return
	}

	writeJSON(w, http.StatusOK, seq)
}

// Create handles POST /api/v1/sequences
func (h *SequenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.CreateSequenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateSequenceName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	seq, err := h.service.Create(ctx, userID, &req)
	if err != nil {
		h.logger.Error("failed to create sequence")
		writeError(w, http.StatusInternalServerError, "failed to create sequence")
		return
	}

	writeJSON(w, http.StatusCreated, seq)
}

// Update handles PUT /api/v1/sequences/:id
func (h *SequenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sequenceID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(sequenceID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.UpdateSequenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	seq, err := h.service.Update(ctx, sequenceID, &req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "sequence not found")
			return
		}
		h.logger.Error("failed to update sequence")
		writeError(w, http.StatusInternalServerError, "failed to update sequence")
		return
	}

	writeJSON(w, http.StatusOK, seq)
}

// UpdateStep handles PUT /api/v1/sequences/:id/steps/:stepID
func (h *SequenceHandler) UpdateStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sequenceID := chi.URLParam(r, "id")
	stepID := chi.URLParam(r, "stepID")

	if err := middleware.ValidateID(sequenceID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateID(stepID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.UpdateStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	seq, err := h.service.UpdateStep(ctx, sequenceID, stepID, &req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "step not found")
			return
		}
		h.logger.Error("failed to update step")
		writeError(w, http.StatusInternalServerError, "failed to update step")
		return
	}

	writeJSON(w, http.StatusOK, seq)
}
