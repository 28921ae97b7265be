package video

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	wstore "tubechat/backend/internal/adapter/weaviate"
	"tubechat/backend/internal/youtube"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Transcript(ctx context.Context, videoID string) ([]youtube.Fragment, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]youtube.Fragment), args.Error(1)
}

func (m *mockSource) Metadata(ctx context.Context, videoID string) youtube.Metadata {
	args := m.Called(ctx, videoID)
	return args.Get(0).(youtube.Metadata)
}

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type mockIndexer struct {
	mock.Mock
}

func (m *mockIndexer) Upsert(ctx context.Context, entries []wstore.Entry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func TestService_Process(t *testing.T) {
	source := new(mockSource)
	embedder := new(mockEmbedder)
	indexer := new(mockIndexer)

	meta := youtube.Metadata{
		Title:        "Go Concurrency Patterns",
		Description:  "A talk about goroutines",
		ChannelTitle: "GopherCon",
		ThumbnailURL: "https://img.youtube.com/vi/abc12345678/maxresdefault.jpg",
		Duration:     "PT30M",
	}
	source.On("Metadata", mock.Anything, "abc12345678").Return(meta)
	source.On("Transcript", mock.Anything, "abc12345678").Return([]youtube.Fragment{
		{Text: strings.Repeat("go routines and channels ", 10), Start: 0},
		{Text: strings.Repeat("select statements ", 10), Start: 5},
	}, nil)
	embedder.On("Embed", mock.Anything, mock.AnythingOfType("string")).Return([]float32{0.1, 0.2}, nil)

	var captured []wstore.Entry
	indexer.On("Upsert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).([]wstore.Entry)
	}).Return(nil)

	svc := NewService(source, embedder, indexer, 100, 20)
	result, err := svc.Process(context.Background(), "https://www.youtube.com/watch?v=abc12345678")
	require.NoError(t, err)

	assert.Equal(t, "abc12345678", result.VideoID)
	assert.Equal(t, meta, result.Metadata)
	assert.Greater(t, result.ChunkCount, 1)
	assert.Equal(t, result.ChunkCount, len(captured))

	for i, entry := range captured {
		assert.Equal(t, "abc12345678", entry.VideoID)
		assert.Equal(t, i, entry.ChunkIndex)
		assert.Equal(t, []float32{0.1, 0.2}, entry.Vector)
		assert.Equal(t, "Go Concurrency Patterns", entry.Title)
		assert.NotEmpty(t, entry.ProcessedAt)
	}

	// Consecutive chunks share the configured overlap.
	require.Greater(t, len(captured), 1)
	first, second := captured[0].Text, captured[1].Text
	assert.Equal(t, first[len(first)-20:], second[:20])
}

func TestService_Process_InvalidURL(t *testing.T) {
	svc := NewService(new(mockSource), new(mockEmbedder), new(mockIndexer), 1000, 200)

	_, err := svc.Process(context.Background(), "https://www.youtube.com/feed/subscriptions")
	assert.ErrorIs(t, err, youtube.ErrInvalidReference)
}

func TestService_Process_NoTranscriptSkipsIndex(t *testing.T) {
	source := new(mockSource)
	embedder := new(mockEmbedder)
	indexer := new(mockIndexer)

	source.On("Metadata", mock.Anything, "abc12345678").Return(youtube.Metadata{Title: "Unknown Title"})
	source.On("Transcript", mock.Anything, "abc12345678").
		Return(nil, youtube.ErrTranscriptUnavailable)

	svc := NewService(source, embedder, indexer, 1000, 200)
	_, err := svc.Process(context.Background(), "https://youtu.be/abc12345678")
	assert.ErrorIs(t, err, youtube.ErrTranscriptUnavailable)

	indexer.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	embedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestService_Process_EmptyTranscriptSkipsIndex(t *testing.T) {
	source := new(mockSource)
	indexer := new(mockIndexer)

	source.On("Metadata", mock.Anything, "abc12345678").Return(youtube.Metadata{})
	source.On("Transcript", mock.Anything, "abc12345678").
		Return([]youtube.Fragment{{Text: "   "}}, nil)

	svc := NewService(source, new(mockEmbedder), indexer, 1000, 200)
	_, err := svc.Process(context.Background(), "https://youtu.be/abc12345678")
	assert.ErrorIs(t, err, youtube.ErrTranscriptUnavailable)

	indexer.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestService_Process_UpsertError(t *testing.T) {
	source := new(mockSource)
	embedder := new(mockEmbedder)
	indexer := new(mockIndexer)

	source.On("Metadata", mock.Anything, "abc12345678").Return(youtube.Metadata{})
	source.On("Transcript", mock.Anything, "abc12345678").
		Return([]youtube.Fragment{{Text: "short transcript"}}, nil)
	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.5}, nil)
	indexer.On("Upsert", mock.Anything, mock.Anything).Return(wstore.ErrIndexWrite)

	svc := NewService(source, embedder, indexer, 1000, 200)
	_, err := svc.Process(context.Background(), "https://youtu.be/abc12345678")
	assert.ErrorIs(t, err, wstore.ErrIndexWrite)
}
