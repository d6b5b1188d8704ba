// Package comms records outbound delivery attempts reported by messaging
// providers.
package comms

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/apperr"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"github.com/gdg-garage/wedding-rsvp-api/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Entry struct {
	EventID      uint
	GuestID      *uint
	Channel      models.Channel
	Recipient    string
	Content      string
	Status       models.DeliveryStatus
	ErrorMessage *string
	SentAt       *time.Time
}

// Logger is the sink providers report to.
type Logger interface {
	LogCommunication(ctx context.Context, entry Entry) (*models.CommunicationLog, error)
}

type Service struct {
	repos  *repository.Repositories
	logger *logging.Logger
}

func NewService(repos *repository.Repositories, logger *logging.Logger) *Service {
	return &Service{repos: repos, logger: logging.OrDefault(logger)}
}

func (s *Service) LogCommunication(ctx context.Context, entry Entry) (*models.CommunicationLog, error) {
	if !entry.Channel.Valid() {
		return nil, apperr.Validation("channel", "channel must be email, whatsapp, sms or other")
	}
	if !entry.Status.Valid() {
		return nil, apperr.Validation("status", "status must be pending, sent or failed")
	}
	recipient := strings.TrimSpace(entry.Recipient)
	if recipient == "" {
		return nil, apperr.Validation("recipient", "recipient is required")
	}

	record := &models.CommunicationLog{
		MessageID:    uuid.New(),
		EventID:      entry.EventID,
		GuestID:      entry.GuestID,
		Channel:      entry.Channel,
		Recipient:    recipient,
		Content:      entry.Content,
		Status:       entry.Status,
		ErrorMessage: entry.ErrorMessage,
		SentAt:       entry.SentAt,
	}

	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repos.Events.FindByID(ctx, tx, entry.EventID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrEventNotFound
			}
			return err
		}
		if entry.GuestID != nil {
			guest, err := s.repos.Guests.FindByID(ctx, tx, *entry.GuestID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.ErrGuestNotFound
				}
				return err
			}
			if guest.EventID != entry.EventID {
				return apperr.ErrGuestNotFound
			}
		}
		return s.repos.Communications.Create(ctx, tx, record)
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperr.Internal("log communication", err)
	}

	s.logger.WithFields(logging.Fields{
		"message_id": record.MessageID.String(),
		"event_id":   record.EventID,
		"channel":    string(record.Channel),
		"status":     string(record.Status),
		"type":       "communication",
	}).Info("Communication logged")
	return record, nil
}
