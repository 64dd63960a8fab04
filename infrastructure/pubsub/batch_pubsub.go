package pubsub

import (
	"context"
	"encoding/json"
	"errors"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

// NewPubSub opens a Pub/Sub client for the project; an empty project id disables the publisher.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, errors.New("pubsub project id not configured")
	}
	return pubsub.NewClient(ctx, projectID)
}

// BatchPublisher forwards every scheduler batch summary to a Pub/Sub topic.
type BatchPublisher struct {
	PubSubClient *pubsub.Client
	TopicID      string
}

func NewBatchPublisher(client *pubsub.Client, topicID string) *BatchPublisher {
	if topicID == "" {
		topicID = "scheduler-batches"
	}
	return &BatchPublisher{PubSubClient: client, TopicID: topicID}
}

func (p *BatchPublisher) PublishBatch(ctx context.Context, result model.BatchResult) error {
	if p.PubSubClient == nil {
		return errors.New("pubsub client not initialized")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}

	topic := p.PubSubClient.Topic(p.TopicID)
	defer topic.Stop()

	// Create the topic if it doesn't exist.
	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		logger.GetLogger().WithField("topic", p.TopicID).Info("Topic doesn't exist - creating it")
		if _, err := p.PubSubClient.CreateTopic(ctx, p.TopicID); err != nil {
			return err
		}
	}

	serverID, err := topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"event": "batch_processed", "batchId": result.ID},
	}).Get(ctx)
	if err != nil {
		return err
	}

	logger.GetLogger().WithField("serverId", serverID).WithField("batchId", result.ID).Debug("Batch published")
	return nil
}

var _ repository.IBatchPublisher = (*BatchPublisher)(nil)
