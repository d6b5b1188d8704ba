// Package messaging delivers guest-facing messages through an ordered chain
// of providers and records every attempt in the communication log.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/comms"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
)

var ErrNoProvider = errors.New("no configured provider could deliver the message")

type Message struct {
	EventID uint
	GuestID uint
	Name    string
	Phone   string
	Email   string
	Subject string
	Body    string
}

type Provider interface {
	Name() string
	Channel() models.Channel
	IsConfigured() bool
	// Recipient returns the address this provider would use, or "" if the
	// message has none for its channel.
	Recipient(msg Message) string
	Send(ctx context.Context, msg Message) error
}

type Result struct {
	Provider  string
	Channel   models.Channel
	Recipient string
}

type Dispatcher struct {
	providers []Provider
	sink      comms.Logger
	logger    *logging.Logger
	now       func() time.Time
}

// NewDispatcher tries providers in the given order. sink may be nil.
func NewDispatcher(sink comms.Logger, logger *logging.Logger, providers ...Provider) *Dispatcher {
	return &Dispatcher{
		providers: providers,
		sink:      sink,
		logger:    logging.OrDefault(logger),
		now:       time.Now,
	}
}

// Send walks the chain until one provider succeeds.
func (d *Dispatcher) Send(ctx context.Context, msg Message) (*Result, error) {
	var failures []string

	for _, p := range d.providers {
		if !p.IsConfigured() {
			d.logger.WithFields(logging.Fields{"provider": p.Name()}).Debug("Provider not configured, skipping")
			continue
		}
		recipient := p.Recipient(msg)
		if recipient == "" {
			d.logger.WithFields(logging.Fields{"provider": p.Name(), "guest_id": msg.GuestID}).Debug("No recipient for provider, skipping")
			continue
		}

		err := p.Send(ctx, msg)
		d.record(ctx, p, recipient, msg, err)
		d.logger.LogDelivery(p.Name(), msg.GuestID, err == nil, errString(err))

		if err == nil {
			return &Result{Provider: p.Name(), Channel: p.Channel(), Recipient: recipient}, nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), err))
		d.logger.WithFields(logging.Fields{"provider": p.Name(), "guest_id": msg.GuestID}).Info("Falling through to next provider")
	}

	if len(failures) > 0 {
		return nil, fmt.Errorf("%w (%s)", ErrNoProvider, strings.Join(failures, "; "))
	}
	return nil, ErrNoProvider
}

func (d *Dispatcher) record(ctx context.Context, p Provider, recipient string, msg Message, sendErr error) {
	if d.sink == nil {
		return
	}

	entry := comms.Entry{
		EventID:   msg.EventID,
		Channel:   p.Channel(),
		Recipient: recipient,
		Content:   msg.Body,
		Status:    models.DeliverySent,
	}
	if msg.GuestID != 0 {
		id := msg.GuestID
		entry.GuestID = &id
	}
	if sendErr != nil {
		text := sendErr.Error()
		entry.Status = models.DeliveryFailed
		entry.ErrorMessage = &text
	} else {
		sentAt := d.now().UTC()
		entry.SentAt = &sentAt
	}

	if _, err := d.sink.LogCommunication(ctx, entry); err != nil {
		d.logger.WithFields(logging.Fields{"provider": p.Name(), "error": err.Error()}).Warn("Failed to record communication")
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// InvitationMessage builds the message carrying a guest's RSVP link.
func InvitationMessage(guest models.Guest, event models.Event, link string) Message {
	msg := Message{
		EventID: event.ID,
		GuestID: guest.ID,
		Name:    guest.FullName(),
		Subject: fmt.Sprintf("You're invited: %s", event.Name),
	}
	if guest.Phone != nil {
		msg.Phone = *guest.Phone
	}
	if guest.Email != nil {
		msg.Email = *guest.Email
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\nYou are invited to %s", guest.FirstName, event.Name)
	if !event.Date.IsZero() {
		fmt.Fprintf(&b, " on %s", event.Date.Format("January 2, 2006"))
	}
	if event.Venue != "" {
		fmt.Fprintf(&b, " at %s", event.Venue)
	}
	b.WriteString(".\n\nPlease let us know if you can make it:\n")
	b.WriteString(link)
	if event.RSVPDeadline != nil {
		fmt.Fprintf(&b, "\n\nKindly reply by %s.", event.RSVPDeadline.Format("January 2, 2006"))
	}
	msg.Body = b.String()
	return msg
}
