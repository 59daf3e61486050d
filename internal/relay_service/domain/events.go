package domain

import "time"

// Channel is the delivery channel of a dispatched message.
type Channel string

const (
	ChannelVoice Channel = "voice"
	ChannelSMS   Channel = "sms"
)

// DispatchEvent is published after every send attempt that reached the provider
// or failed on the way there. It is a notification, not a delivery receipt.
type DispatchEvent struct {
	ID            string    `json:"id"`
	Channel       Channel   `json:"channel"`
	Phone         string    `json:"phone"`
	OutgoingPhone string    `json:"outgoing_phone,omitempty"`
	RecordID      *int      `json:"record_id,omitempty"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Subject returns the NATS subject for the event, e.g. "relay.dispatch.sms".
func (e DispatchEvent) Subject() string {
	return "relay.dispatch." + string(e.Channel)
}
