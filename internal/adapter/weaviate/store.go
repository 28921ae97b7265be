package weaviate

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"tubechat/backend/internal/retrieval"
	"tubechat/backend/internal/vector"
)

var (
	ErrIndexWrite = errors.New("vector index write failed")
	ErrIndexQuery = errors.New("vector index query failed")
)

// Entry is one chunk bound for the index, carrying its vector and the video
// metadata it was tagged with at ingestion time.
type Entry struct {
	VideoID      string
	ChunkIndex   int
	Text         string
	Vector       []float32
	Title        string
	Description  string
	ChannelTitle string
	ThumbnailURL string
	Duration     string
	ProcessedAt  string
}

// ID is the logical upsert key. Re-processing a video writes the same ids
// again, replacing entries at matching indices.
func (e Entry) ID() string {
	return fmt.Sprintf("%s_chunk_%d", e.VideoID, e.ChunkIndex)
}

// objectID derives the stable Weaviate object UUID from the logical id, so
// repeated batches replace rather than duplicate.
func (e Entry) objectID() strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte("tubechat:"+e.ID())).String())
}

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// Upsert writes all entries in a single batch. A failed batch fails as a
// whole; entries written by a previous run are never rolled back.
func (s *Store) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	objects := make([]*models.Object, len(entries))
	for i, e := range entries {
		objects[i] = &models.Object{
			Class: vector.ClassName,
			ID:    e.objectID(),
			Properties: map[string]interface{}{
				"text":         e.Text,
				"videoId":      e.VideoID,
				"chunkIndex":   e.ChunkIndex,
				"title":        e.Title,
				"description":  e.Description,
				"channelTitle": e.ChannelTitle,
				"thumbnailUrl": e.ThumbnailURL,
				"duration":     e.Duration,
				"processedAt":  e.ProcessedAt,
			},
			Vector: models.C11yVector(e.Vector),
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("%w: %s", ErrIndexWrite, r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// Query returns the topK nearest chunks of one video, highest similarity
// first. The videoId filter provides per-video isolation regardless of how
// many videos share the class.
func (s *Store) Query(ctx context.Context, vec []float32, topK int, videoID string) ([]retrieval.Match, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	where := filters.Where().
		WithPath([]string{"videoId"}).
		WithOperator(filters.Equal).
		WithValueString(videoID)

	fields := []graphql.Field{
		{Name: "text"},
		{Name: "videoId"},
		{Name: "chunkIndex"},
		{Name: "title"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithWhere(where).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexQuery, err)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrIndexQuery, res.Errors[0].Message)
	}

	var matches []retrieval.Match
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return matches, nil
	}
	chunks, ok := data[vector.ClassName].([]interface{})
	if !ok {
		return matches, nil
	}

	for _, c := range chunks {
		props, ok := c.(map[string]interface{})
		if !ok {
			continue
		}

		match := retrieval.Match{Metadata: make(map[string]interface{})}
		if text, ok := props["text"].(string); ok {
			match.Text = text
		}
		if idx, ok := props["chunkIndex"].(float64); ok {
			match.ChunkIndex = int(idx)
		}
		if videoID, ok := props["videoId"].(string); ok {
			match.Metadata["videoId"] = videoID
		}
		if title, ok := props["title"].(string); ok {
			match.Metadata["title"] = title
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				match.Score = float32(certainty)
			}
			if id, ok := additional["id"].(string); ok {
				match.Metadata["id"] = id
			}
		}

		matches = append(matches, match)
	}

	return matches, nil
}

// CountChunks reports the total number of indexed chunks across all videos.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIndexQuery, err)
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("%w: %v", ErrIndexQuery, res.Errors[0].Message)
	}

	if agg, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if rows, ok := agg[vector.ClassName].([]interface{}); ok && len(rows) > 0 {
			if row, ok := rows[0].(map[string]interface{}); ok {
				if meta, ok := row["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}
