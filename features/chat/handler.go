package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"tubechat/backend/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

type chatRequest struct {
	Message string `json:"message"`
	VideoID string `json:"videoId"`
}

// Chat answers a question about a video as a stream of SSE data frames. Each
// content delta is one frame; a single {"done":true} frame terminates a
// successful answer.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.WarnContext(ctx, "invalid chat request body", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INVALID_JSON", "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Message == "" {
		h.writeError(ctx, w, "VALIDATION_ERROR", "Message is required", http.StatusBadRequest)
		return
	}

	slog.InfoContext(ctx, "chat request received", "video_id", req.VideoID, "correlationId", correlationID)

	relay, err := h.service.Answer(ctx, req.Message, req.VideoID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open answer stream", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "CHAT_ERROR", "Failed to process chat message", http.StatusInternalServerError)
		return
	}
	defer relay.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		slog.ErrorContext(ctx, "response writer does not support streaming", "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		delta, err := relay.Next()
		if errors.Is(err, io.EOF) {
			writeEvent(w, Event{Done: true})
			flusher.Flush()
			return
		}
		if err != nil {
			// Headers are already sent; terminate without a done frame so the
			// client can tell the answer was cut short.
			slog.ErrorContext(ctx, "answer stream failed", "error", err, "correlationId", correlationID)
			return
		}
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "client disconnected, aborting stream", "correlationId", correlationID)
			return
		}

		writeEvent(w, Event{Content: delta})
		flusher.Flush()
	}
}

func writeEvent(w io.Writer, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to marshal stream event", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
