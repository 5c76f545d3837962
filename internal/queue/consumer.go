package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"snapcircle/internal/types"
)

// receiveWaitSeconds enables SQS long polling.
const receiveWaitSeconds = 20

// receiveBatchSize is the maximum number of messages fetched per poll.
const receiveBatchSize = 10

// SQSReceiver abstracts the SQS receive/delete operations for testability.
type SQSReceiver interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// ResizedHandler applies one resize result. A returned error leaves the
// message on the queue for redelivery.
type ResizedHandler func(ctx context.Context, msg types.ResizedPhotoMessage) error

// ResizedConsumer long-polls the durable photo-resized queue and hands each
// message to the handler. A message is deleted (acknowledged) only after the
// handler succeeds; failures are logged and left for broker redelivery, with
// dead-lettering handled by the queue's redrive policy. Malformed payloads
// are deleted immediately since redelivery cannot fix them.
type ResizedConsumer struct {
	client   SQSReceiver
	queueURL string
	handler  ResizedHandler
	logger   *slog.Logger
}

// NewResizedConsumer creates a ResizedConsumer for the given queue URL.
func NewResizedConsumer(client SQSReceiver, queueURL string, handler ResizedHandler, logger *slog.Logger) *ResizedConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResizedConsumer{
		client:   client,
		queueURL: queueURL,
		handler:  handler,
		logger:   logger,
	}
}

// Run polls until the context is cancelled. Receive errors back off briefly
// rather than tightening into a hot loop.
func (c *ResizedConsumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: receiveBatchSize,
			WaitTimeSeconds:     receiveWaitSeconds,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.ErrorContext(ctx, "receiving resized-photo messages failed",
				"queue_url", c.queueURL,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, message := range out.Messages {
			c.process(ctx, message.Body, message.ReceiptHandle)
		}
	}
}

// process handles one raw message. Errors never propagate out of the loop.
func (c *ResizedConsumer) process(ctx context.Context, body *string, receipt *string) {
	if body == nil {
		c.delete(ctx, receipt)
		return
	}

	var msg types.ResizedPhotoMessage
	if err := json.Unmarshal([]byte(*body), &msg); err != nil {
		c.logger.ErrorContext(ctx, "discarding malformed resized-photo message",
			"error", err,
		)
		c.delete(ctx, receipt)
		return
	}

	if err := c.handler(ctx, msg); err != nil {
		// Leave the message for redelivery.
		c.logger.ErrorContext(ctx, "applying resized-photo message failed",
			"photo_id", msg.ID,
			"error", err,
		)
		return
	}

	c.logger.DebugContext(ctx, "resized-photo message applied",
		"photo_id", msg.ID,
		"thumbnail_count", len(msg.Thumbnails),
	)
	c.delete(ctx, receipt)
}

func (c *ResizedConsumer) delete(ctx context.Context, receipt *string) {
	if receipt == nil {
		return
	}
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receipt,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "deleting resized-photo message failed",
			"error", err,
		)
	}
}
