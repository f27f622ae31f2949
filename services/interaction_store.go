package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"adaptive-learning-platform/models"
)

// InteractionStore persists user turns for progress tracking and the
// admin stats endpoint.
type InteractionStore struct {
	collection *mongo.Collection
}

func NewInteractionStore(db *mongo.Database) *InteractionStore {
	return &InteractionStore{collection: db.Collection("interactions")}
}

func (s *InteractionStore) Save(ctx context.Context, interaction *models.Interaction) error {
	if interaction.Timestamp.IsZero() {
		interaction.Timestamp = time.Now()
	}
	_, err := s.collection.InsertOne(ctx, interaction)
	if err != nil {
		return fmt.Errorf("failed to save interaction: %w", err)
	}
	return nil
}

// ListByUser returns the user's most recent turns, newest first.
func (s *InteractionStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	if limit <= 0 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Interaction
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats aggregates usage over the whole store.
func (s *InteractionStore) Stats(ctx context.Context) (*models.InteractionStats, error) {
	total, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count interactions: %w", err)
	}

	userIDs, err := s.collection.Distinct(ctx, "user_id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	stats := &models.InteractionStats{
		TotalInteractions: total,
		UniqueUsers:       int64(len(userIDs)),
		MostCommonFormat:  string(models.FormatUnknown),
	}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$preferred_format", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
		{{Key: "$limit", Value: 1}},
	}
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, nil
	}
	defer cursor.Close(ctx)

	var top []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &top); err == nil && len(top) > 0 && top[0].ID != "" {
		stats.MostCommonFormat = top[0].ID
	}

	return stats, nil
}
