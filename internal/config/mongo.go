package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	if err := createIndexes(client, cfg); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, cfg *Config) error {
	db := client.Database(cfg.DBName)

	// Chunk collection: one document per indexed chunk, upserted by
	// (source_id, chunk_id) during reindex.
	chunksCollection := db.Collection(cfg.ChunksCollection)
	chunkIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "source_id", Value: 1}, {Key: "chunk_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "source_id", Value: 1}},
		},
	}
	if _, err := chunksCollection.Indexes().CreateMany(context.Background(), chunkIndexes); err != nil {
		return err
	}

	// Interactions collection indexes
	interactionsCollection := db.Collection("interactions")
	interactionIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "interaction_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
	}
	if _, err := interactionsCollection.Indexes().CreateMany(context.Background(), interactionIndexes); err != nil {
		return err
	}

	return nil
}
