// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/talentarc-ai/outreach-platform/internal/middleware"
	"github.com/talentarc-ai/outreach-platform/internal/service"
	"github.com/talentarc-ai/outreach-platform/pkg/logger"
)

// SessionHandler handles session endpoints.
type SessionHandler struct {
	service *service.SessionService
	logger  *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(svc *service.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		service: svc,
		logger:  log,
	}
}

// Current handles GET /api/v1/sessions/current
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	session, err := h.service.CurrentForUser(ctx, userID)
	if err != nil {
		h.logger.Error("failed to load current session")
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	session, err := h.service.Create(ctx, userID)
	if err != nil {
		h.logger.Error("failed to create session")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, session)
}
