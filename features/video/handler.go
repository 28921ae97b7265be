package video

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tubechat/backend/internal/middleware"
	"tubechat/backend/internal/youtube"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

type processRequest struct {
	VideoURL string `json:"videoUrl"`
}

type processResponse struct {
	VideoID          string `json:"videoId"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	ChannelTitle     string `json:"channelTitle"`
	Thumbnail        string `json:"thumbnail"`
	Duration         string `json:"duration"`
	TranscriptLength int    `json:"transcriptLength"`
	ChunkCount       int    `json:"chunkCount"`
}

func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.WarnContext(ctx, "invalid process request body", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INVALID_JSON", "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.VideoURL == "" {
		h.writeError(ctx, w, "VALIDATION_ERROR", "Video URL is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Process(ctx, req.VideoURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to process video", "error", err, "correlationId", correlationID)
		switch {
		case errors.Is(err, youtube.ErrInvalidReference):
			h.writeError(ctx, w, "INVALID_URL", "Invalid YouTube URL", http.StatusBadRequest)
		case errors.Is(err, youtube.ErrTranscriptUnavailable):
			h.writeError(ctx, w, "TRANSCRIPT_UNAVAILABLE", "No transcript is available for this video", http.StatusInternalServerError)
		default:
			h.writeError(ctx, w, "PROCESSING_ERROR", "Failed to process video", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": processResponse{
			VideoID:          result.VideoID,
			Title:            result.Metadata.Title,
			Description:      result.Metadata.Description,
			ChannelTitle:     result.Metadata.ChannelTitle,
			Thumbnail:        result.Metadata.ThumbnailURL,
			Duration:         result.Metadata.Duration,
			TranscriptLength: result.TranscriptLength,
			ChunkCount:       result.ChunkCount,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
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
