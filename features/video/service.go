package video

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	wstore "tubechat/backend/internal/adapter/weaviate"
	"tubechat/backend/internal/text"
	"tubechat/backend/internal/youtube"
)

// embedConcurrency bounds the number of in-flight embedding requests per video.
const embedConcurrency = 8

type TranscriptSource interface {
	Transcript(ctx context.Context, videoID string) ([]youtube.Fragment, error)
	Metadata(ctx context.Context, videoID string) youtube.Metadata
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Indexer interface {
	Upsert(ctx context.Context, entries []wstore.Entry) error
}

// Result summarizes one processed video.
type Result struct {
	VideoID          string
	Metadata         youtube.Metadata
	TranscriptLength int
	ChunkCount       int
}

type Service struct {
	source    TranscriptSource
	embedder  Embedder
	index     Indexer
	chunkSize int
	overlap   int
	now       func() time.Time
}

func NewService(source TranscriptSource, embedder Embedder, index Indexer, chunkSize, overlap int) *Service {
	return &Service{
		source:    source,
		embedder:  embedder,
		index:     index,
		chunkSize: chunkSize,
		overlap:   overlap,
		now:       time.Now,
	}
}

// Process resolves the video reference, pulls transcript and metadata,
// chunks and embeds the transcript, and indexes the chunks. Nothing is
// written for a video without a usable transcript.
func (s *Service) Process(ctx context.Context, videoURL string) (*Result, error) {
	videoID, err := youtube.ResolveID(videoURL)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "processing video", "video_id", videoID)

	var (
		meta      youtube.Metadata
		fragments []youtube.Fragment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		meta = s.source.Metadata(gctx, videoID)
		return nil
	})
	g.Go(func() error {
		var err error
		fragments, err = s.source.Transcript(gctx, videoID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	transcript := youtube.Flatten(fragments)
	if transcript == "" {
		return nil, fmt.Errorf("video %s: %w", videoID, youtube.ErrTranscriptUnavailable)
	}

	chunks, err := text.Split(transcript, s.chunkSize, s.overlap)
	if err != nil {
		return nil, fmt.Errorf("chunking transcript: %w", err)
	}

	vectors := make([][]float32, len(chunks))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(embedConcurrency)
	for i, chunk := range chunks {
		eg.Go(func() error {
			vec, err := s.embedder.Embed(ectx, chunk)
			if err != nil {
				return fmt.Errorf("embedding chunk %d: %w", i, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	processedAt := s.now().UTC().Format(time.RFC3339)
	entries := make([]wstore.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = wstore.Entry{
			VideoID:      videoID,
			ChunkIndex:   i,
			Text:         chunk,
			Vector:       vectors[i],
			Title:        meta.Title,
			Description:  meta.Description,
			ChannelTitle: meta.ChannelTitle,
			ThumbnailURL: meta.ThumbnailURL,
			Duration:     meta.Duration,
			ProcessedAt:  processedAt,
		}
	}

	if err := s.index.Upsert(ctx, entries); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "video indexed",
		"video_id", videoID,
		"transcript_length", len(transcript),
		"chunk_count", len(chunks),
	)

	return &Result{
		VideoID:          videoID,
		Metadata:         meta,
		TranscriptLength: len(transcript),
		ChunkCount:       len(chunks),
	}, nil
}
