package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"social-scheduler/domain/model"
	batchpubsub "social-scheduler/infrastructure/pubsub"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestBatchPublisher_PublishBatch(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer client.Close()

	publisher := batchpubsub.NewBatchPublisher(client, "batches")
	result := model.BatchResult{
		ID:             "batch-1",
		ProcessedCount: 3,
		Succeeded:      2,
		Failed:         1,
		Timestamp:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, publisher.PublishBatch(ctx, result))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "batch_processed", msgs[0].Attributes["event"])

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.EqualValues(t, 3, got["processedCount"])
	assert.EqualValues(t, 2, got["succeeded"])
	assert.EqualValues(t, 1, got["failed"])
	assert.Contains(t, got, "timestamp")
}

func TestBatchPublisher_NilClient(t *testing.T) {
	publisher := batchpubsub.NewBatchPublisher(nil, "")
	assert.Equal(t, "scheduler-batches", publisher.TopicID)
	assert.Error(t, publisher.PublishBatch(context.Background(), model.BatchResult{}))
}

func TestNewPubSub_RequiresProject(t *testing.T) {
	_, err := batchpubsub.NewPubSub(context.Background(), "")
	assert.Error(t, err)
}
