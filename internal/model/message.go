// internal/model/message.go
package model

import "time"

// MessageStatus tracks one dispatch attempt. "sent" means the message was
// accepted by the transport, "delivered" that the transport confirmed
// delivery.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusFailed    MessageStatus = "failed"
)

// Channel represents valid messaging channels.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Message is the durable record of one dispatch to one customer. Rows are
// append-only; a campaign execution creates exactly one per audience
// member.
type Message struct {
	ID         int           `db:"id" json:"id"`
	CampaignID int           `db:"campaign_id" json:"campaign_id"`
	CustomerID int           `db:"customer_id" json:"customer_id"`
	Channel    Channel       `db:"channel" json:"channel"`
	Content    string        `db:"content" json:"content"`
	Status     MessageStatus `db:"status" json:"status"`
	LastError  string        `db:"last_error,omitempty" json:"last_error,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}
