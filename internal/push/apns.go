package push

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
	"github.com/sony/gobreaker/v2"

	"snapcircle/internal/config"
	"snapcircle/internal/types"
)

// apnsChunkSize is the number of messages sent per chunk. APNs itself is
// per-notification; chunking bounds the work lost when the breaker opens
// mid-dispatch.
const apnsChunkSize = 100

// APNs device tokens are 32 bytes, hex encoded.
var apnsTokenPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// apnsClient is the slice of *apns2.Client the provider consumes.
type apnsClient interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// APNSProvider implements Provider over the Apple Push Notification service
// using token-based (p8) authentication. All pushes go through a circuit
// breaker so a provider outage trips fast instead of stalling every chunk on
// timeouts.
type APNSProvider struct {
	client  apnsClient
	topic   string
	breaker *gobreaker.CircuitBreaker[*apns2.Response]
}

// NewAPNSProvider creates a provider from the APNs signing key configuration.
func NewAPNSProvider(cfg config.APNsConfig) (*APNSProvider, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("push: loading APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNSProvider{
		client:  client,
		topic:   cfg.Topic,
		breaker: newAPNSBreaker(),
	}, nil
}

func newAPNSBreaker() *gobreaker.CircuitBreaker[*apns2.Response] {
	return gobreaker.NewCircuitBreaker[*apns2.Response](gobreaker.Settings{
		Name:        "apns",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
}

// ValidToken reports whether the token has the shape of an APNs device token.
func (p *APNSProvider) ValidToken(deviceToken string) bool {
	return apnsTokenPattern.MatchString(deviceToken)
}

// Chunk splits messages into batches of at most apnsChunkSize.
func (p *APNSProvider) Chunk(messages []Message) [][]Message {
	var chunks [][]Message
	for len(messages) > apnsChunkSize {
		chunks = append(chunks, messages[:apnsChunkSize])
		messages = messages[apnsChunkSize:]
	}
	if len(messages) > 0 {
		chunks = append(chunks, messages)
	}
	return chunks
}

// Send pushes each message of the chunk and returns positional tickets.
// Token rejections ("Unregistered", "BadDeviceToken") are mapped to the
// distinguished device-not-registered reason; other rejections keep the raw
// APNs reason. A transport or breaker error fails the whole chunk.
func (p *APNSProvider) Send(ctx context.Context, chunk []Message) ([]Ticket, error) {
	tickets := make([]Ticket, len(chunk))

	for i, msg := range chunk {
		res, err := p.breaker.Execute(func() (*apns2.Response, error) {
			return p.client.PushWithContext(ctx, p.notification(msg))
		})
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeUpstreamPush, "failed to send to APNs", err)
		}

		if res.Sent() {
			tickets[i] = Ticket{Status: TicketOK}
			continue
		}

		reason := res.Reason
		if reason == apns2.ReasonUnregistered || reason == apns2.ReasonBadDeviceToken {
			reason = ReasonDeviceNotRegistered
		}
		tickets[i] = Ticket{Status: TicketError, Reason: reason}
	}

	return tickets, nil
}

func (p *APNSProvider) notification(msg Message) *apns2.Notification {
	pl := payload.NewPayload().
		AlertTitle(msg.Title).
		AlertBody(msg.Body).
		Sound("default")
	for key, value := range msg.Data {
		pl = pl.Custom(key, value)
	}

	return &apns2.Notification{
		DeviceToken: msg.Token,
		Topic:       p.topic,
		Payload:     pl,
	}
}
