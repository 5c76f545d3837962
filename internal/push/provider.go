// Package push implements best-effort push notification delivery: a provider
// abstraction over the platform push service and a dispatcher that fans a
// logical notification out to every registered device of a group or user.
package push

import "context"

// TicketStatus is the per-message outcome reported by the provider.
type TicketStatus string

const (
	TicketOK    TicketStatus = "ok"
	TicketError TicketStatus = "error"
)

// ReasonDeviceNotRegistered is the distinguished ticket reason meaning the
// device token is permanently invalid and must be unregistered.
const ReasonDeviceNotRegistered = "DeviceNotRegistered"

// Message is one provider-level push message addressed to a single device
// token.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Ticket is the provider's receipt for one message of a sent chunk. Tickets
// are positionally aligned with the chunk's messages.
type Ticket struct {
	Status TicketStatus
	Reason string
}

// DeviceNotRegistered reports whether this ticket marks the target token as
// permanently invalid.
func (t Ticket) DeviceNotRegistered() bool {
	return t.Status == TicketError && t.Reason == ReasonDeviceNotRegistered
}

// Provider abstracts the push service. Implementations decide what a valid
// token looks like and how large a chunk may be.
type Provider interface {
	// ValidToken reports whether the token is recognized as a token this
	// provider can deliver to. Devices with unrecognized tokens are skipped.
	ValidToken(token string) bool

	// Chunk splits messages into provider-sized batches.
	Chunk(messages []Message) [][]Message

	// Send delivers one chunk and returns a ticket per message. A transport
	// error fails the whole chunk; per-message rejections surface as error
	// tickets.
	Send(ctx context.Context, chunk []Message) ([]Ticket, error)
}
