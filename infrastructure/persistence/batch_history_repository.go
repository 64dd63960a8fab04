package persistence

import (
	"context"
	"fmt"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	batchCollection     = "publish_batches"
	defaultHistoryLimit = 20
)

func NewMongoDb(host, port, user, password, name string) (*mongo.Client, error) {
	if host == "" {
		return nil, fmt.Errorf("mongo host not configured")
	}
	if port == "" {
		port = "27017"
	}
	uri := fmt.Sprintf("mongodb://%s:%s", host, port)
	opts := options.Client().ApplyURI(uri)
	if user != "" {
		opts.SetAuth(options.Credential{Username: user, Password: password, AuthSource: name})
	}
	return mongo.Connect(opts)
}

// BatchHistoryRepository keeps every scheduler batch summary in MongoDB.
type BatchHistoryRepository struct {
	collection *mongo.Collection
}

func NewBatchHistoryRepository(client *mongo.Client, database string) *BatchHistoryRepository {
	if database == "" {
		database = "social_scheduler"
	}
	return &BatchHistoryRepository{collection: client.Database(database).Collection(batchCollection)}
}

func (r *BatchHistoryRepository) Record(ctx context.Context, result model.BatchResult) error {
	_, err := r.collection.InsertOne(ctx, result)
	return err
}

func (r *BatchHistoryRepository) Latest(ctx context.Context, limit int) ([]model.BatchResult, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(historyLimit(limit))
	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	return decodeBatches(ctx, cursor)
}

func historyLimit(limit int) int64 {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	return int64(limit)
}

// decodeBatches drains and closes cursor. Documents that do not decode are logged and skipped.
func decodeBatches(ctx context.Context, cursor *mongo.Cursor) ([]model.BatchResult, error) {
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}()

	results := []model.BatchResult{}
	for cursor.Next(ctx) {
		var b model.BatchResult
		if err := cursor.Decode(&b); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding batch")
			continue
		}
		results = append(results, b)
	}
	return results, cursor.Err()
}

var _ repository.IBatchHistory = (*BatchHistoryRepository)(nil)
