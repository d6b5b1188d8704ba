// Package guests owns guest records: creation, bulk import, deletion and the
// per-ceremony attendance view.
package guests

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/apperr"
	"github.com/gdg-garage/wedding-rsvp-api/internal/broker"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"github.com/gdg-garage/wedding-rsvp-api/internal/repository"
	"github.com/gdg-garage/wedding-rsvp-api/internal/token"
	"gorm.io/gorm"
)

// Input holds the invitation attributes an organizer controls.
type Input struct {
	FirstName      string
	LastName       string
	Email          *string
	Phone          *string
	Side           models.Side
	Relationship   string
	IsFamily       bool
	IsVIP          bool
	PlusOneAllowed bool
}

// Normalize trims the input and validates it.
func (in Input) Normalize() (Input, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Relationship = strings.TrimSpace(in.Relationship)

	if in.FirstName == "" {
		return in, apperr.Validation("first_name", "first name is required")
	}
	if in.LastName == "" {
		return in, apperr.Validation("last_name", "last name is required")
	}

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			in.Email = nil
		} else {
			addr, err := mail.ParseAddress(email)
			if err != nil || addr.Address != email {
				return in, apperr.Validation("email", "email address is invalid")
			}
			in.Email = &email
		}
	}

	if in.Phone != nil {
		phone := models.NormalizePhone(*in.Phone)
		if phone == "" {
			in.Phone = nil
		} else {
			in.Phone = &phone
		}
	}

	switch in.Side {
	case "", models.SideBride, models.SideGroom, models.SideBoth:
	default:
		return in, apperr.Validation("side", "side must be bride, groom or both")
	}

	return in, nil
}

func (in Input) apply(g *models.Guest) {
	g.FirstName = in.FirstName
	g.LastName = in.LastName
	g.Email = in.Email
	g.Phone = in.Phone
	g.Side = in.Side
	g.Relationship = in.Relationship
	g.IsFamily = in.IsFamily
	g.IsVIP = in.IsVIP
	g.PlusOneAllowed = in.PlusOneAllowed
}

type AttendanceEntry struct {
	Ceremony       models.Ceremony
	Attending      bool
	MealPreference *string
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

// Create adds a guest to the event and issues their token in the same
// transaction.
func (s *Service) Create(ctx context.Context, eventID uint, in Input) (*models.Guest, error) {
	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}

	var guest *models.Guest
	err = s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repos.Events.FindByID(ctx, tx, eventID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrEventNotFound
			}
			return err
		}

		created, err := s.create(ctx, tx, eventID, in)
		if err != nil {
			return err
		}
		guest = created
		return nil
	})
	if err != nil {
		return nil, wrapStorage("create guest", err)
	}

	s.tokenIssued(ctx, guest)
	return guest, nil
}

func (s *Service) create(ctx context.Context, tx *gorm.DB, eventID uint, in Input) (*models.Guest, error) {
	tok, err := token.Generate()
	if err != nil {
		return nil, err
	}
	issuedAt := s.now().UTC()

	guest := &models.Guest{
		EventID:        eventID,
		RSVPToken:      &tok,
		TokenIssuedAt:  &issuedAt,
		Stage:          models.StageOne,
		ResponseFields: models.ResponseFields{RSVPStatus: models.RSVPPending},
	}
	in.apply(guest)

	if err := s.repos.Guests.Create(ctx, tx, guest); err != nil {
		return nil, err
	}
	return guest, nil
}

func (s *Service) tokenIssued(ctx context.Context, g *models.Guest) {
	s.logger.LogToken("issued", g.ID, g.EventID)
	s.events.Emit(ctx, broker.KeyTokenIssued, broker.TokenIssued{
		GuestID:  g.ID,
		EventID:  g.EventID,
		IssuedAt: *g.TokenIssuedAt,
	})
}

// Get returns the guest if it belongs to eventID.
func (s *Service) Get(ctx context.Context, eventID, guestID uint) (*models.Guest, error) {
	guest, err := s.repos.Guests.FindByID(ctx, s.repos.DB(), guestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrGuestNotFound
		}
		return nil, apperr.Internal("load guest", err)
	}
	if guest.EventID != eventID {
		return nil, apperr.ErrGuestNotFound
	}
	return guest, nil
}

// Delete removes the guest together with their attendance rows, history and
// relationship edges.
func (s *Service) Delete(ctx context.Context, eventID, guestID uint) error {
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guest, err := s.repos.Guests.FindByIDForUpdate(ctx, tx, guestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrGuestNotFound
			}
			return err
		}
		if guest.EventID != eventID {
			return apperr.ErrGuestNotFound
		}

		if err := s.repos.Attendance.DeleteByGuest(ctx, tx, guestID); err != nil {
			return err
		}
		if err := s.repos.Relationships.DeleteByGuest(ctx, tx, guestID); err != nil {
			return err
		}
		if err := s.repos.History.DeleteByGuest(ctx, tx, guestID); err != nil {
			return err
		}
		if err := s.repos.Communications.DetachGuest(ctx, tx, guestID); err != nil {
			return err
		}
		return s.repos.Guests.Delete(ctx, tx, guestID)
	})
	if err != nil {
		return wrapStorage("delete guest", err)
	}

	s.logger.WithFields(logging.Fields{"guest_id": guestID, "event_id": eventID}).Info("Guest deleted")
	return nil
}

// GetAttendance lists the guest's ceremony choices in ceremony order. Meal
// preferences of ceremonies the guest skips are not reported.
func (s *Service) GetAttendance(ctx context.Context, guestID uint) ([]AttendanceEntry, error) {
	rows, err := s.repos.Attendance.ListByGuest(ctx, s.repos.DB(), guestID)
	if err != nil {
		return nil, apperr.Internal("list attendance", err)
	}

	out := make([]AttendanceEntry, 0, len(rows))
	for _, row := range rows {
		if row.Ceremony == nil {
			continue
		}
		entry := AttendanceEntry{Ceremony: *row.Ceremony, Attending: row.Attending}
		if row.Attending {
			entry.MealPreference = row.MealPreference
		}
		out = append(out, entry)
	}
	return out, nil
}

func wrapStorage(op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(op, err)
}
