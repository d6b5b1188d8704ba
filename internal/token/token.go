// Package token issues and verifies the per-guest RSVP links.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/apperr"
	"github.com/gdg-garage/wedding-rsvp-api/internal/broker"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"github.com/gdg-garage/wedding-rsvp-api/internal/repository"
	"gorm.io/gorm"
)

const tokenBytes = 32

// Generate returns a random 64 character hex token.
func Generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Invitation is what a valid token resolves to.
type Invitation struct {
	Event      models.Event
	Guest      models.Guest
	Ceremonies []models.Ceremony
}

type Service struct {
	repos  *repository.Repositories
	events *broker.Emitter
	logger *logging.Logger
	now    func() time.Time
}

func NewService(repos *repository.Repositories, events *broker.Emitter, logger *logging.Logger) *Service {
	return &Service{
		repos:  repos,
		events: events,
		logger: logging.OrDefault(logger),
		now:    time.Now,
	}
}

// Issue stores a fresh token on the guest, replacing any previous one.
func (s *Service) Issue(ctx context.Context, guestID uint) (string, error) {
	token, err := Generate()
	if err != nil {
		return "", apperr.Internal("issue token", err)
	}
	issuedAt := s.now().UTC()

	var guest *models.Guest
	err = s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repos.Guests.FindByID(ctx, tx, guestID)
		if err != nil {
			return err
		}
		guest = found
		return s.repos.Guests.SetToken(ctx, tx, guestID, &token, &issuedAt)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.ErrGuestNotFound
		}
		return "", apperr.Internal("issue token", err)
	}

	s.logger.LogToken("issued", guest.ID, guest.EventID)
	s.events.Emit(ctx, broker.KeyTokenIssued, broker.TokenIssued{
		GuestID:  guest.ID,
		EventID:  guest.EventID,
		IssuedAt: issuedAt,
	})
	return token, nil
}

// Invalidate clears the guest's token so the link stops resolving.
func (s *Service) Invalidate(ctx context.Context, guestID uint) error {
	var guest *models.Guest
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repos.Guests.FindByID(ctx, tx, guestID)
		if err != nil {
			return err
		}
		guest = found
		return s.repos.Guests.SetToken(ctx, tx, guestID, nil, nil)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrGuestNotFound
		}
		return apperr.Internal("invalidate token", err)
	}

	s.logger.LogToken("invalidated", guest.ID, guest.EventID)
	return nil
}

// Resolve maps a token to its guest, enforcing the event's RSVP deadline.
func (s *Service) Resolve(ctx context.Context, token string) (*models.Guest, error) {
	guest, _, err := s.resolve(ctx, token)
	return guest, err
}

// Verify returns the read-only context for a token. It never writes.
func (s *Service) Verify(ctx context.Context, token string) (*Invitation, error) {
	guest, event, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	ceremonies, err := s.repos.Ceremonies.ListByEvent(ctx, s.repos.DB(), event.ID)
	if err != nil {
		return nil, apperr.Internal("list ceremonies", err)
	}

	return &Invitation{Event: *event, Guest: *guest, Ceremonies: ceremonies}, nil
}

func (s *Service) resolve(ctx context.Context, token string) (*models.Guest, *models.Event, error) {
	if token == "" {
		return nil, nil, apperr.ErrTokenNotFound
	}

	db := s.repos.DB()
	guest, err := s.repos.Guests.FindByToken(ctx, db, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.ErrTokenNotFound
		}
		return nil, nil, apperr.Internal("find guest by token", err)
	}

	event, err := s.repos.Events.FindByID(ctx, db, guest.EventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.ErrEventNotFound
		}
		return nil, nil, apperr.Internal("find event", err)
	}

	if event.DeadlinePassed(s.now()) {
		return nil, nil, apperr.ErrTokenExpired
	}

	return guest, event, nil
}
