package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"snapcircle/internal/types"
)

type mockReceiver struct {
	// batches are served one per ReceiveMessage call; exhaustion cancels stop.
	batches [][]sqsTypes.Message
	stop    context.CancelFunc

	deleted []string
}

func (m *mockReceiver) ReceiveMessage(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if len(m.batches) == 0 {
		if m.stop != nil {
			m.stop()
		}
		return &sqs.ReceiveMessageOutput{}, nil
	}
	batch := m.batches[0]
	m.batches = m.batches[1:]
	return &sqs.ReceiveMessageOutput{Messages: batch}, nil
}

func (m *mockReceiver) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	m.deleted = append(m.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type handlerRecorder struct {
	messages []types.ResizedPhotoMessage
	err      error
}

func (h *handlerRecorder) handle(_ context.Context, msg types.ResizedPhotoMessage) error {
	h.messages = append(h.messages, msg)
	return h.err
}

const queueURL = "https://sqs.us-east-1.amazonaws.com/000000000000/photo-resized"

func TestProcess_DeletesAfterHandlerSuccess(t *testing.T) {
	receiver := &mockReceiver{}
	handler := &handlerRecorder{}
	c := NewResizedConsumer(receiver, queueURL, handler.handle, nil)

	body := `{"id":"photo-1","thumbnails":[{"width":200,"height":200,"url":"https://cdn/thumb.jpg"}]}`
	c.process(context.Background(), aws.String(body), aws.String("receipt-1"))

	if len(handler.messages) != 1 {
		t.Fatalf("handler called %d times, want 1", len(handler.messages))
	}
	msg := handler.messages[0]
	if msg.ID != "photo-1" || len(msg.Thumbnails) != 1 || msg.Thumbnails[0].Width != 200 {
		t.Errorf("decoded message = %+v", msg)
	}
	if len(receiver.deleted) != 1 || receiver.deleted[0] != "receipt-1" {
		t.Errorf("deleted = %v, want [receipt-1]", receiver.deleted)
	}
}

// A handler failure leaves the message on the queue: redelivery and the
// redrive policy are the retry mechanism.
func TestProcess_HandlerFailureLeavesMessage(t *testing.T) {
	receiver := &mockReceiver{}
	handler := &handlerRecorder{err: errors.New("photo not found")}
	c := NewResizedConsumer(receiver, queueURL, handler.handle, nil)

	c.process(context.Background(), aws.String(`{"id":"photo-1"}`), aws.String("receipt-1"))

	if len(receiver.deleted) != 0 {
		t.Errorf("deleted = %v, want no deletions after handler failure", receiver.deleted)
	}
}

// Malformed payloads are deleted immediately: redelivery cannot fix them.
func TestProcess_MalformedPayloadDiscarded(t *testing.T) {
	receiver := &mockReceiver{}
	handler := &handlerRecorder{}
	c := NewResizedConsumer(receiver, queueURL, handler.handle, nil)

	c.process(context.Background(), aws.String(`{not json`), aws.String("receipt-1"))

	if len(handler.messages) != 0 {
		t.Error("handler must not run on malformed payloads")
	}
	if len(receiver.deleted) != 1 {
		t.Errorf("deleted = %v, want the malformed message discarded", receiver.deleted)
	}
}

func TestProcess_NilBodyDiscarded(t *testing.T) {
	receiver := &mockReceiver{}
	handler := &handlerRecorder{}
	c := NewResizedConsumer(receiver, queueURL, handler.handle, nil)

	c.process(context.Background(), nil, aws.String("receipt-1"))

	if len(handler.messages) != 0 || len(receiver.deleted) != 1 {
		t.Errorf("handler calls = %d, deleted = %v", len(handler.messages), receiver.deleted)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	receiver := &mockReceiver{}
	c := NewResizedConsumer(receiver, queueURL, (&handlerRecorder{}).handle, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestRun_ProcessesReceivedBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	receiver := &mockReceiver{
		stop: cancel,
		batches: [][]sqsTypes.Message{{
			{Body: aws.String(`{"id":"photo-1"}`), ReceiptHandle: aws.String("receipt-1")},
			{Body: aws.String(`{"id":"photo-2"}`), ReceiptHandle: aws.String("receipt-2")},
		}},
	}
	handler := &handlerRecorder{}
	c := NewResizedConsumer(receiver, queueURL, handler.handle, nil)

	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}

	if len(handler.messages) != 2 {
		t.Fatalf("handler called %d times, want 2", len(handler.messages))
	}
	if len(receiver.deleted) != 2 {
		t.Errorf("deleted = %v, want both receipts", receiver.deleted)
	}
}
