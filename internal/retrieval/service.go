package retrieval

import (
	"context"
	"fmt"
	"time"

	"tubechat/backend/internal/middleware"
)

// Match is one retrieved transcript chunk, ordered by descending similarity.
type Match struct {
	Text       string                 `json:"text"`
	Score      float32                `json:"score"`
	ChunkIndex int                    `json:"chunkIndex"`
	Metadata   map[string]interface{} `json:"metadata"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int, videoID string) ([]Match, error)
}

type Service struct {
	embedder Embedder
	index    VectorIndex
	logger   *QueryLogger
}

func NewService(e Embedder, idx VectorIndex, l *QueryLogger) *Service {
	return &Service{embedder: e, index: idx, logger: l}
}

// TopChunks embeds the question and returns the topK most similar chunks of
// the given video.
func (s *Service) TopChunks(ctx context.Context, question, videoID string, topK int) ([]Match, error) {
	start := time.Now()

	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	matches, err := s.index.Query(ctx, vec, topK, videoID)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:         question,
			VideoID:       videoID,
			NumResults:    len(matches),
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}

	return matches, nil
}
