package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

// ClassName holds every indexed transcript chunk. One class acts as the
// namespace; per-video isolation happens through the videoId filter at
// query time.
const ClassName = "VideoChunk"

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// EnsureSchema provisions the chunk class if missing and backfills any
// missing properties on an existing class. Provisioning is explicit: upsert
// and query never create the class themselves.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	exists, err := client.ClassExists(ctx, ClassName)
	if err != nil {
		return err
	}

	properties := []*models.Property{
		{
			Name:     "text",
			DataType: []string{"text"},
		},
		{
			Name:     "videoId",
			DataType: []string{"string"}, // exact match filter key
		},
		{
			Name:     "chunkIndex",
			DataType: []string{"int"},
		},
		{
			Name:     "title",
			DataType: []string{"text"},
		},
		{
			Name:     "description",
			DataType: []string{"text"},
		},
		{
			Name:     "channelTitle",
			DataType: []string{"string"},
		},
		{
			Name:     "thumbnailUrl",
			DataType: []string{"string"},
		},
		{
			Name:     "duration",
			DataType: []string{"string"},
		},
		{
			Name:     "processedAt",
			DataType: []string{"string"},
		},
	}

	if !exists {
		class := &models.Class{
			Class:       ClassName,
			Description: "An overlapping chunk of a video transcript",
			Vectorizer:  "none",
			VectorIndexConfig: map[string]interface{}{
				"distance": "cosine",
			},
			Properties: properties,
		}
		return client.CreateClass(ctx, class)
	}

	// Class exists, check for missing properties
	class, err := client.GetClass(ctx, ClassName)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, ClassName, p); err != nil {
				return err
			}
		}
	}

	return nil
}
