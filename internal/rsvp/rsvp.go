// Package rsvp drives a guest through the two RSVP stages.
package rsvp

import (
	"context"
	"errors"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/apperr"
	"github.com/gdg-garage/wedding-rsvp-api/internal/broker"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"github.com/gdg-garage/wedding-rsvp-api/internal/notifier"
	"github.com/gdg-garage/wedding-rsvp-api/internal/repository"
	"gorm.io/gorm"
)

type CeremonyChoice struct {
	CeremonyID     uint
	Attending      bool
	MealPreference *string
}

type Stage1Input struct {
	RSVPStatus          models.RSVPStatus
	IsLocalGuest        bool
	PlusOneAttending    bool
	PlusOneName         *string
	DietaryRestrictions *string
	Allergies           *string
	CeremonyAttendance  []CeremonyChoice
	Message             *string
}

type Stage1Result struct {
	Guest          models.Guest
	RequiresStage2 bool
}

// ChildInput carries a child as submitted. Age may be a number or a string.
type ChildInput struct {
	Name                string
	Age                 any
	DietaryRestrictions string
}

type Stage2Input struct {
	PlusOneEmail             *string
	PlusOnePhone             *string
	PlusOneRelationship      *string
	ChildrenDetails          []ChildInput
	NeedsAccommodation       *bool
	AccommodationPreference  *string
	NeedsFlightAssistance    *bool
	TransportationPreference *string
	ArrivalDate              *time.Time
	DepartureDate            *time.Time
	SpecialRequests          *string
	Notes                    *string
	// Draft marks an auto-save. Drafts never complete Stage 2.
	Draft bool
}

type Service struct {
	repos    *repository.Repositories
	events   *broker.Emitter
	notifier notifier.Notifier
	logger   *logging.Logger
	now      func() time.Time
}

// NewService builds the stage machine. notifier may be nil.
func NewService(repos *repository.Repositories, events *broker.Emitter, n notifier.Notifier, logger *logging.Logger) *Service {
	return &Service{
		repos:    repos,
		events:   events,
		notifier: n,
		logger:   logging.OrDefault(logger),
		now:      time.Now,
	}
}

// CurrentStage reports where the guest is in the flow.
func CurrentStage(g models.Guest) models.Stage {
	if g.Stage == "" {
		return models.StageOne
	}
	return g.Stage
}

// CanTransition reports whether Stage 1 may move the status from one value
// to another. Pending may become either answer; answers may only repeat.
func CanTransition(from, to models.RSVPStatus) bool {
	if to != models.RSVPConfirmed && to != models.RSVPDeclined {
		return false
	}
	return from == models.RSVPPending || from == "" || from == to
}

func (s *Service) SubmitStage1(ctx context.Context, guestID uint, in Stage1Input) (*Stage1Result, error) {
	if in.RSVPStatus != models.RSVPConfirmed && in.RSVPStatus != models.RSVPDeclined {
		return nil, apperr.Validation("rsvp_status", "rsvp_status must be confirmed or declined")
	}
	choices := dedupeChoices(in.CeremonyAttendance)

	var result Stage1Result
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guest, err := s.repos.Guests.FindByIDForUpdate(ctx, tx, guestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrGuestNotFound
			}
			return err
		}

		if !CanTransition(guest.RSVPStatus, in.RSVPStatus) {
			return apperr.New(apperr.CodeInvalidStageTransition, "rsvp status cannot change from "+string(guest.RSVPStatus)+" to "+string(in.RSVPStatus))
		}

		event, err := s.repos.Events.FindByID(ctx, tx, guest.EventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrEventNotFound
			}
			return err
		}

		if err := s.checkCeremonies(ctx, tx, guest.EventID, choices); err != nil {
			return err
		}

		now := s.now().UTC()
		guest.RSVPStatus = in.RSVPStatus
		guest.IsLocalGuest = in.IsLocalGuest
		guest.PlusOneConfirmed = in.PlusOneAttending && event.PlusOneAllowed && guest.PlusOneAllowed
		guest.PlusOneName = in.PlusOneName
		if !guest.PlusOneConfirmed {
			guest.PlusOneName = nil
		}
		guest.DietaryRestrictions = in.DietaryRestrictions
		guest.Allergies = in.Allergies
		guest.RSVPMessage = in.Message
		guest.Stage1SubmittedAt = &now

		requiresStage2 := guest.RequiresStage2()
		switch {
		case !requiresStage2:
			guest.Stage = models.StageComplete
		case guest.Stage2CompletedAt != nil:
			guest.Stage = models.StageComplete
		default:
			guest.Stage = models.StageTwo
		}

		if err := s.repos.Guests.Save(ctx, tx, guest); err != nil {
			return err
		}

		rows := make([]models.GuestCeremonyAttendance, 0, len(choices))
		for _, c := range choices {
			rows = append(rows, models.GuestCeremonyAttendance{
				GuestID:        guest.ID,
				CeremonyID:     c.CeremonyID,
				Attending:      c.Attending,
				MealPreference: c.MealPreference,
			})
		}
		if err := s.repos.Attendance.Upsert(ctx, tx, rows); err != nil {
			return err
		}

		if err := s.snapshot(ctx, tx, guest, models.StageOne, false); err != nil {
			return err
		}

		result = Stage1Result{Guest: *guest, RequiresStage2: requiresStage2}
		return nil
	})
	if err != nil {
		return nil, wrapStorage("submit stage 1", err)
	}

	g := result.Guest
	s.logger.LogRSVP(g.ID, g.EventID, string(models.StageOne), string(g.RSVPStatus), false)
	s.events.Emit(ctx, broker.KeyStage1Submitted, broker.Stage1Submitted{
		GuestID:        g.ID,
		EventID:        g.EventID,
		RSVPStatus:     string(g.RSVPStatus),
		IsLocalGuest:   g.IsLocalGuest,
		RequiresStage2: result.RequiresStage2,
		SubmittedAt:    *g.Stage1SubmittedAt,
	})
	s.notify(func(n notifier.Notifier) error { return n.NotifyStage1(g, result.RequiresStage2) })

	return &result, nil
}

func (s *Service) SubmitStage2(ctx context.Context, guestID uint, in Stage2Input) (*models.Guest, error) {
	var result models.Guest
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guest, err := s.repos.Guests.FindByIDForUpdate(ctx, tx, guestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrGuestNotFound
			}
			return err
		}

		// The committed Stage 1 answer decides, whatever this payload says.
		if guest.Stage1SubmittedAt == nil || !guest.RequiresStage2() {
			return apperr.New(apperr.CodeInvalidStageTransition, "stage 2 requires a confirmed, non-local stage 1")
		}

		children, err := s.normalizeChildren(guest.ID, in.ChildrenDetails)
		if err != nil {
			return err
		}
		if in.ArrivalDate != nil && in.DepartureDate != nil && in.ArrivalDate.After(*in.DepartureDate) {
			return apperr.Validation("arrival_date", "arrival date cannot be after departure date")
		}

		guest.PlusOneEmail = in.PlusOneEmail
		guest.PlusOnePhone = normalizePhonePtr(in.PlusOnePhone)
		guest.PlusOneRelationship = in.PlusOneRelationship
		guest.ChildrenDetails = children
		guest.NeedsAccommodation = in.NeedsAccommodation
		guest.AccommodationPreference = in.AccommodationPreference
		guest.NeedsFlightAssistance = in.NeedsFlightAssistance
		guest.TransportationPreference = in.TransportationPreference
		guest.ArrivalDate = in.ArrivalDate
		guest.DepartureDate = in.DepartureDate
		guest.SpecialRequests = in.SpecialRequests
		guest.Notes = in.Notes

		if !in.Draft {
			now := s.now().UTC()
			guest.Stage = models.StageComplete
			guest.Stage2CompletedAt = &now
		}

		if err := s.repos.Guests.Save(ctx, tx, guest); err != nil {
			return err
		}
		if err := s.snapshot(ctx, tx, guest, models.StageTwo, in.Draft); err != nil {
			return err
		}

		result = *guest
		return nil
	})
	if err != nil {
		return nil, wrapStorage("submit stage 2", err)
	}

	if in.Draft {
		s.logger.WithFields(logging.Fields{"guest_id": result.ID, "type": "rsvp"}).Debug("Stage 2 draft saved")
		return &result, nil
	}

	s.logger.LogRSVP(result.ID, result.EventID, string(models.StageTwo), string(result.RSVPStatus), false)
	s.events.Emit(ctx, broker.KeyStage2Submitted, broker.Stage2Submitted{
		GuestID:     result.ID,
		EventID:     result.EventID,
		SubmittedAt: *result.Stage2CompletedAt,
	})
	s.notify(func(n notifier.Notifier) error { return n.NotifyStage2(result) })

	return &result, nil
}

func (s *Service) checkCeremonies(ctx context.Context, tx *gorm.DB, eventID uint, choices []CeremonyChoice) error {
	if len(choices) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(choices))
	for _, c := range choices {
		ids = append(ids, c.CeremonyID)
	}
	count, err := s.repos.Ceremonies.CountInEvent(ctx, tx, eventID, ids)
	if err != nil {
		return err
	}
	if int(count) != len(ids) {
		return apperr.ErrInvalidCeremonyReference
	}
	return nil
}

func (s *Service) snapshot(ctx context.Context, tx *gorm.DB, guest *models.Guest, stage models.Stage, draft bool) error {
	return s.repos.History.Create(ctx, tx, &models.RSVPHistory{
		GuestID:        guest.ID,
		EventID:        guest.EventID,
		Stage:          stage,
		Draft:          draft,
		ResponseFields: guest.ResponseFields,
	})
}

func (s *Service) notify(fn func(notifier.Notifier) error) {
	if s.notifier == nil {
		return
	}
	if err := fn(s.notifier); err != nil {
		s.logger.WithFields(logging.Fields{"error": err.Error()}).Warn("Failed to notify organizers")
	}
}

// dedupeChoices keeps the last entry for each ceremony, in first-seen order.
func dedupeChoices(in []CeremonyChoice) []CeremonyChoice {
	index := make(map[uint]int, len(in))
	out := make([]CeremonyChoice, 0, len(in))
	for _, c := range in {
		if i, ok := index[c.CeremonyID]; ok {
			out[i] = c
			continue
		}
		index[c.CeremonyID] = len(out)
		out = append(out, c)
	}
	return out
}

func wrapStorage(op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(op, err)
}
