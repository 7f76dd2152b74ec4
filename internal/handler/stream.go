package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	natsclient "github.com/talentarc-ai/outreach-platform/internal/nats"
	"github.com/talentarc-ai/outreach-platform/pkg/logger"
	"github.com/talentarc-ai/outreach-platform/pkg/metrics"
)

// StreamHandler serves the SSE event stream: every message and sequence
// update broadcast over NATS is relayed to connected clients.
type StreamHandler struct {
	broadcaster *natsclient.Broadcaster
	logger      *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(broadcaster *natsclient.Broadcaster, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		broadcaster: broadcaster,
		logger:      log,
	}
}

// Stream handles GET /api/v1/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	events := make(chan natsclient.Envelope, 64)
	sub, err := h.broadcaster.Subscribe(func(env natsclient.Envelope) {
		select {
		case events <- env:
		default:
			// Slow client; drop rather than block the NATS callback.
		}
	})
	if err != nil {
		h.logger.Error("stream subscribe failed")
		writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	defer sub.Unsubscribe()

	sendSSEEvent(w, flusher, "connected", map[string]string{"status": "ok"})

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case env := <-events:
			sendSSEEvent(w, flusher, string(env.Type), env.Data)
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	flusher.Flush()
}
