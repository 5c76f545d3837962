// Package queue provides the SQS-based messaging for the photo ingest
// pipeline: a producer announcing uploaded photos to the external resize
// worker, a consumer applying resize results, and the coordinator tying both
// to the photo store.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"snapcircle/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// UploadProducer publishes uploaded-photo messages to the durable
// photo-uploaded queue. Broker reconnects are the SDK's responsibility; the
// producer only reports failures.
type UploadProducer struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewUploadProducer creates an UploadProducer for the given queue URL.
func NewUploadProducer(client SQSSender, queueURL string, logger *slog.Logger) *UploadProducer {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadProducer{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Publish serializes the message to JSON and sends it to the photo-uploaded
// queue.
func (p *UploadProducer) Publish(ctx context.Context, msg types.UploadedPhotoMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: marshaling uploaded-photo message: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"trace_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(uuid.New().String()),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamQueue,
			fmt.Sprintf("failed to send uploaded-photo message to %s", p.queueURL), err)
	}

	p.logger.InfoContext(ctx, "uploaded-photo message sent",
		"queue_url", p.queueURL,
		"photo_id", msg.ID,
	)

	return nil
}
