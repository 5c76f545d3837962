package push

import (
	"context"
	"fmt"
	"log/slog"

	"snapcircle/internal/types"
)

// DeviceDirectory resolves target device sets and removes dead tokens.
// Satisfied by the db.DeviceRepository.
type DeviceDirectory interface {
	FindByGroupMembers(ctx context.Context, groupID string) ([]types.Device, error)
	FindByUser(ctx context.Context, userID string) ([]types.Device, error)
	BulkUnregister(ctx context.Context, tokens []string) error
}

// Dispatcher fans a logical notification out to every registered device of
// the target audience. Delivery is best-effort: chunks fail independently and
// nothing is retried. Tokens the provider reports as permanently invalid are
// unregistered in bulk after all chunks are processed.
type Dispatcher struct {
	devices  DeviceDirectory
	provider Provider
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(devices DeviceDirectory, provider Provider, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		devices:  devices,
		provider: provider,
		logger:   logger,
	}
}

// NotifyGroup sends the notification to all devices of all members of the
// group.
func (d *Dispatcher) NotifyGroup(ctx context.Context, groupID string, n types.PushNotification) error {
	devices, err := d.devices.FindByGroupMembers(ctx, groupID)
	if err != nil {
		return fmt.Errorf("push: resolving group devices: %w", err)
	}
	if len(devices) == 0 {
		return nil
	}

	d.logger.InfoContext(ctx, "sending push notification to group",
		"group_id", groupID,
		"device_count", len(devices),
		"title", n.Title,
	)

	return d.send(ctx, devices, n)
}

// NotifyUser sends the notification to all devices of one user.
func (d *Dispatcher) NotifyUser(ctx context.Context, userID string, n types.PushNotification) error {
	devices, err := d.devices.FindByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("push: resolving user devices: %w", err)
	}
	if len(devices) == 0 {
		return nil
	}

	return d.send(ctx, devices, n)
}

// send filters to provider-valid tokens, chunks, and ships each chunk.
// A failing chunk is logged and does not abort the remaining chunks.
func (d *Dispatcher) send(ctx context.Context, devices []types.Device, n types.PushNotification) error {
	messages := make([]Message, 0, len(devices))
	for _, device := range devices {
		if !d.provider.ValidToken(device.Token) {
			continue
		}
		messages = append(messages, Message{
			Token: device.Token,
			Title: n.Title,
			Body:  n.Message,
			Data:  n.Params,
		})
	}
	if len(messages) == 0 {
		return nil
	}

	chunks := d.provider.Chunk(messages)
	var deadTokens []string

	for chunkIdx, chunk := range chunks {
		tickets, err := d.provider.Send(ctx, chunk)
		if err != nil {
			d.logger.ErrorContext(ctx, "push chunk send failed",
				"chunk", chunkIdx,
				"chunk_size", len(chunk),
				"error", err,
			)
			continue
		}

		for ticketIdx, ticket := range tickets {
			if ticket.Status != TicketError {
				continue
			}
			if ticketIdx >= len(chunk) {
				continue
			}

			d.logger.ErrorContext(ctx, "push message rejected",
				"reason", ticket.Reason,
			)

			if ticket.DeviceNotRegistered() {
				deadTokens = append(deadTokens, chunk[ticketIdx].Token)
			}
		}
	}

	if len(deadTokens) > 0 {
		if err := d.devices.BulkUnregister(ctx, deadTokens); err != nil {
			return fmt.Errorf("push: unregistering %d dead tokens: %w", len(deadTokens), err)
		}
		d.logger.InfoContext(ctx, "unregistered dead device tokens",
			"count", len(deadTokens),
		)
	}

	return nil
}
