package services

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"adaptive-learning-platform/models"
	"adaptive-learning-platform/utils"
)

// MongoVectorIndex persists chunks in a single collection, one document
// per chunk, upserted by (source_id, chunk_id). Similarity is computed
// in-process over the stored vectors, so the engine works against any
// MongoDB deployment, not only Atlas vector search.
type MongoVectorIndex struct {
	collection  *mongo.Collection
	compression bool
}

type chunkDoc struct {
	SourceID    string                     `bson:"source_id"`
	ChunkID     string                     `bson:"chunk_id"`
	Text        []byte                     `bson:"text"`
	Compression utils.CompressionAlgorithm `bson:"compression"`
	Vector      []float32                  `bson:"vector"`
	Metadata    models.ChunkMetadata       `bson:"metadata"`
}

func NewMongoVectorIndex(db *mongo.Database, collectionName string, compression bool) *MongoVectorIndex {
	return &MongoVectorIndex{
		collection:  db.Collection(collectionName),
		compression: compression,
	}
}

func (m *MongoVectorIndex) Upsert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := make([]mongo.WriteModel, 0, len(chunks))
	for _, ch := range chunks {
		text := []byte(ch.Text)
		algorithm := utils.CompressionNone
		if m.compression {
			compressed, algo, err := utils.CompressText(ch.Text)
			if err != nil {
				return fmt.Errorf("failed to compress chunk %s: %w", ch.ChunkID, err)
			}
			text, algorithm = compressed, algo
		}

		doc := chunkDoc{
			SourceID:    ch.SourceID,
			ChunkID:     ch.ChunkID,
			Text:        text,
			Compression: algorithm,
			Vector:      ch.Embedding,
			Metadata:    ch.Metadata,
		}
		batch = append(batch, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"source_id": ch.SourceID, "chunk_id": ch.ChunkID}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
	}

	_, err := m.collection.BulkWrite(ctx, batch, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("bulk upsert failed: %w", err)
	}
	return nil
}

func (m *MongoVectorIndex) DeleteSource(ctx context.Context, sourceID string) error {
	_, err := m.collection.DeleteMany(ctx, bson.M{"source_id": sourceID})
	if err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", sourceID, err)
	}
	return nil
}

func (m *MongoVectorIndex) Query(ctx context.Context, vector []float32, topN int) ([]Candidate, error) {
	cursor, err := m.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("chunk scan failed: %w", err)
	}
	defer cursor.Close(ctx)

	var candidates []Candidate
	for cursor.Next(ctx) {
		var doc chunkDoc
		if err := cursor.Decode(&doc); err != nil {
			continue
		}

		text, err := utils.DecompressText(doc.Text, doc.Compression)
		if err != nil {
			continue
		}

		candidates = append(candidates, Candidate{
			Chunk: models.Chunk{
				ChunkID:   doc.ChunkID,
				SourceID:  doc.SourceID,
				Text:      text,
				Embedding: doc.Vector,
				Metadata:  doc.Metadata,
			},
			Similarity: CosineSimilarity(vector, doc.Vector),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Chunk.ChunkID < candidates[j].Chunk.ChunkID
	})

	if topN > 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates, nil
}

func (m *MongoVectorIndex) SourceIDs(ctx context.Context) ([]string, error) {
	raw, err := m.collection.Distinct(ctx, "source_id", bson.M{})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MongoVectorIndex) SampleMetadata(ctx context.Context, limit int) ([]models.ChunkMetadata, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetProjection(bson.M{"metadata": 1}).
		SetSort(bson.D{{Key: "chunk_id", Value: 1}})

	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.ChunkMetadata
	for cursor.Next(ctx) {
		var doc struct {
			Metadata models.ChunkMetadata `bson:"metadata"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		out = append(out, doc.Metadata)
	}
	return out, cursor.Err()
}

func (m *MongoVectorIndex) Count(ctx context.Context) (int64, error) {
	return m.collection.CountDocuments(ctx, bson.M{})
}
