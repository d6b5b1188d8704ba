package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
	ChannelOther    Channel = "other"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelWhatsApp, ChannelSMS, ChannelOther:
		return true
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryPending, DeliverySent, DeliveryFailed:
		return true
	}
	return false
}

// CommunicationLog records one outbound delivery attempt reported by a
// messaging provider.
type CommunicationLog struct {
	gorm.Model
	MessageID    uuid.UUID      `gorm:"type:varchar(36);uniqueIndex" json:"message_id"`
	EventID      uint           `gorm:"not null;index" json:"event_id"`
	Event        *Event         `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
	GuestID      *uint          `gorm:"index" json:"guest_id"`
	Guest        *Guest         `gorm:"foreignKey:GuestID;constraint:OnDelete:SET NULL" json:"-"`
	Channel      Channel        `gorm:"type:varchar(20);not null" json:"channel"`
	Recipient    string         `gorm:"not null" json:"recipient"`
	Content      string         `gorm:"type:text" json:"content"`
	Status       DeliveryStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	ErrorMessage *string        `json:"error_message"`
	SentAt       *time.Time     `json:"sent_at"`
}
