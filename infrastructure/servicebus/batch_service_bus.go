package servicebus

import (
	"context"
	"encoding/json"
	"errors"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// NewServiceBus connects to the namespace with the default Azure credential chain.
func NewServiceBus(ctx context.Context, namespace string) (*azservicebus.Client, error) {
	if namespace == "" {
		return nil, errors.New("service bus namespace not configured")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// BatchPublisher sends every scheduler batch summary to a Service Bus queue.
type BatchPublisher struct {
	queue     string
	newSender func(queue string) (messageSender, error)
}

func NewBatchPublisher(client *azservicebus.Client, queue string) *BatchPublisher {
	if queue == "" {
		queue = "scheduler-batches"
	}
	return &BatchPublisher{
		queue: queue,
		newSender: func(q string) (messageSender, error) {
			if client == nil {
				return nil, errors.New("service bus client not initialized")
			}
			return client.NewSender(q, nil)
		},
	}
}

func (p *BatchPublisher) PublishBatch(ctx context.Context, result model.BatchResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}

	sender, err := p.newSender(p.queue)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func() {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}()

	contentType := "application/json"
	subject := "batch_processed"
	msg := &azservicebus.Message{
		Body:        payload,
		ContentType: &contentType,
		Subject:     &subject,
	}
	if result.ID != "" {
		id := result.ID
		msg.MessageID = &id
	}
	if err := sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}

var _ repository.IBatchPublisher = (*BatchPublisher)(nil)
