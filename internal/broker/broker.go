// Package broker publishes RSVP domain events to RabbitMQ.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "rsvp"
	ExchangeKind = "topic"
)

// Routing keys.
const (
	KeyStage1Submitted     = "rsvp.stage1.submitted"
	KeyStage2Submitted     = "rsvp.stage2.submitted"
	KeyRelationshipAdded   = "relationship.added"
	KeyRelationshipRemoved = "relationship.removed"
	KeyTokenIssued         = "guest.token_issued"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type RabbitPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitPublisher(url string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &RabbitPublisher{conn: conn, channel: ch}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		ExchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func (p *RabbitPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// Emitter publishes events after commit. Failures are logged and dropped; a
// nil Emitter or one without a publisher does nothing.
type Emitter struct {
	publisher Publisher
	logger    *logging.Logger
}

func NewEmitter(publisher Publisher, logger *logging.Logger) *Emitter {
	return &Emitter{publisher: publisher, logger: logging.OrDefault(logger)}
}

func (e *Emitter) Emit(ctx context.Context, routingKey string, payload any) {
	if e == nil || e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, routingKey, payload); err != nil {
		e.logger.WithFields(logging.Fields{
			"routing_key": routingKey,
			"error":       err.Error(),
		}).Warn("Failed to publish domain event")
		return
	}
	e.logger.WithFields(logging.Fields{"routing_key": routingKey}).Debug("Published domain event")
}

type Stage1Submitted struct {
	GuestID        uint      `json:"guest_id"`
	EventID        uint      `json:"event_id"`
	RSVPStatus     string    `json:"rsvp_status"`
	IsLocalGuest   bool      `json:"is_local_guest"`
	RequiresStage2 bool      `json:"requires_stage2"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

type Stage2Submitted struct {
	GuestID     uint      `json:"guest_id"`
	EventID     uint      `json:"event_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type RelationshipChanged struct {
	RelationshipID uint   `json:"relationship_id"`
	EventID        uint   `json:"event_id"`
	PrimaryGuestID uint   `json:"primary_guest_id"`
	RelatedGuestID uint   `json:"related_guest_id"`
	Relationship   string `json:"relationship"`
}

type TokenIssued struct {
	GuestID  uint      `json:"guest_id"`
	EventID  uint      `json:"event_id"`
	IssuedAt time.Time `json:"issued_at"`
}
