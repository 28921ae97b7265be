package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tubechat/backend/internal/adapter/completion"
	"tubechat/backend/internal/retrieval"
)

// Event is a single frame relayed to the client. Content frames carry a text
// delta; the final frame carries Done.
type Event struct {
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
}

// Relay yields answer deltas from the inference provider. Next returns io.EOF
// once the answer is complete.
type Relay interface {
	Next() (string, error)
	Close() error
}

type Retriever interface {
	TopChunks(ctx context.Context, question, videoID string, topK int) ([]retrieval.Match, error)
}

type Completer interface {
	Stream(ctx context.Context, messages []completion.Message) (Relay, error)
}

type Service struct {
	retriever Retriever
	completer Completer
	topK      int
}

func NewService(r Retriever, c Completer, topK int) *Service {
	return &Service{retriever: r, completer: c, topK: topK}
}

// Answer grounds the question in the video's transcript and opens a streaming
// answer. Retrieval is best effort: if it fails or no video is given, the
// question is answered without transcript context.
func (s *Service) Answer(ctx context.Context, message, videoID string) (Relay, error) {
	transcriptContext := s.retrieveContext(ctx, message, videoID)

	systemPrompt := fmt.Sprintf("You are a helpful AI assistant. Answer the following question: %s", message)
	if transcriptContext != "" {
		systemPrompt = fmt.Sprintf(
			"You are a helpful AI assistant that answers questions based on the provided context from a YouTube video. "+
				"Use the context to provide accurate and relevant answers. "+
				"If the context doesn't contain enough information to answer the question, say so.\n\nContext: %s\n\nQuestion: %s",
			transcriptContext, message,
		)
	}

	return s.completer.Stream(ctx, []completion.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: message},
	})
}

func (s *Service) retrieveContext(ctx context.Context, message, videoID string) string {
	if videoID == "" {
		return ""
	}

	matches, err := s.retriever.TopChunks(ctx, message, videoID, s.topK)
	if err != nil {
		slog.WarnContext(ctx, "context retrieval failed, answering without context", "video_id", videoID, "error", err)
		return ""
	}

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Text != "" {
			parts = append(parts, m.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
