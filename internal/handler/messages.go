package handler

import (
	"encoding/json"
	"net/http"

	"github.com/talentarc-ai/outreach-platform/internal/middleware"
	"github.com/talentarc-ai/outreach-platform/internal/model"
	"github.com/talentarc-ai/outreach-platform/internal/service"
	"github.com/talentarc-ai/outreach-platform/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	messageService *service.MessageService
	logger         *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(msgSvc *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: msgSvc,
		logger:         log,
	}
}

// Send handles POST /api/v1/messages
//
// The user message is persisted and one engine turn runs synchronously;
// assistant messages are broadcast as they land and are also reflected in
// the session history. The response body is the user message, matching
// the frontend contract.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userMsg, _, err := h.messageService.Send(ctx, userID, &req)
	if err != nil {
		h.logger.Error("failed to send message")
		writeError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	writeJSON(w, http.StatusCreated, userMsg)
}
