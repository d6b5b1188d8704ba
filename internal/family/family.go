// Package family maintains the undirected relationship graph between guests.
package family

import (
	"context"
	"errors"
	"strings"

	"github.com/gdg-garage/wedding-rsvp-api/internal/apperr"
	"github.com/gdg-garage/wedding-rsvp-api/internal/broker"
	"github.com/gdg-garage/wedding-rsvp-api/internal/database"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"github.com/gdg-garage/wedding-rsvp-api/internal/repository"
	"gorm.io/gorm"
)

type GuestSummary struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func summarize(g *models.Guest) GuestSummary {
	if g == nil {
		return GuestSummary{}
	}
	return GuestSummary{ID: g.ID, FirstName: g.FirstName, LastName: g.LastName}
}

type Edge struct {
	ID           uint         `json:"id"`
	EventID      uint         `json:"event_id"`
	PrimaryGuest GuestSummary `json:"primary_guest"`
	RelatedGuest GuestSummary `json:"related_guest"`
	Relationship string       `json:"relationship"`
	Description  *string      `json:"description,omitempty"`
}

// Relative is an edge seen from one guest: the other endpoint is always
// RelatedGuest.
type Relative struct {
	ID           uint         `json:"id"`
	RelatedGuest GuestSummary `json:"related_guest"`
	Relationship string       `json:"relationship"`
	Description  *string      `json:"description,omitempty"`
	IsPrimary    bool         `json:"is_primary"`
}

type Service struct {
	repos  *repository.Repositories
	events *broker.Emitter
	logger *logging.Logger
}

func NewService(repos *repository.Repositories, events *broker.Emitter, logger *logging.Logger) *Service {
	return &Service{repos: repos, events: events, logger: logging.OrDefault(logger)}
}

func (s *Service) AddRelationship(ctx context.Context, primaryID, relatedID uint, relationship string, description *string) (*Edge, error) {
	relationship = strings.TrimSpace(relationship)
	if relationship == "" {
		return nil, apperr.Validation("relationship", "relationship is required")
	}
	if primaryID == relatedID {
		return nil, apperr.Validation("related_guest_id", "a guest cannot be related to themselves")
	}

	var edge Edge
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guests, err := s.repos.Guests.FindByIDs(ctx, tx, []uint{primaryID, relatedID})
		if err != nil {
			return err
		}
		var primary, related *models.Guest
		for i := range guests {
			switch guests[i].ID {
			case primaryID:
				primary = &guests[i]
			case relatedID:
				related = &guests[i]
			}
		}
		if primary == nil || related == nil {
			return apperr.ErrGuestNotFound
		}
		if primary.EventID != related.EventID {
			return apperr.ErrCrossEventRelationship
		}

		if _, err := s.repos.Relationships.FindByPair(ctx, tx, primaryID, relatedID); err == nil {
			return apperr.ErrRelationshipExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		rel := &models.FamilyRelationship{
			EventID:        primary.EventID,
			PrimaryGuestID: primaryID,
			RelatedGuestID: relatedID,
			Relationship:   relationship,
			Description:    description,
		}
		if err := s.repos.Relationships.Create(ctx, tx, rel); err != nil {
			return err
		}

		edge = Edge{
			ID:           rel.ID,
			EventID:      rel.EventID,
			PrimaryGuest: summarize(primary),
			RelatedGuest: summarize(related),
			Relationship: rel.Relationship,
			Description:  rel.Description,
		}
		return nil
	})
	if err != nil {
		return nil, mapStorageError("add relationship", err)
	}

	s.logger.LogRelationship("added", primaryID, relatedID, edge.ID)
	s.events.Emit(ctx, broker.KeyRelationshipAdded, broker.RelationshipChanged{
		RelationshipID: edge.ID,
		EventID:        edge.EventID,
		PrimaryGuestID: primaryID,
		RelatedGuestID: relatedID,
		Relationship:   edge.Relationship,
	})
	return &edge, nil
}

func (s *Service) ListRelationships(ctx context.Context, guestID uint) ([]Relative, error) {
	rels, err := s.repos.Relationships.ListByGuest(ctx, s.repos.DB(), guestID)
	if err != nil {
		return nil, apperr.Internal("list relationships", err)
	}

	out := make([]Relative, 0, len(rels))
	for _, rel := range rels {
		isPrimary := rel.PrimaryGuestID == guestID
		other := rel.PrimaryGuest
		if isPrimary {
			other = rel.RelatedGuest
		}
		out = append(out, Relative{
			ID:           rel.ID,
			RelatedGuest: summarize(other),
			Relationship: rel.Relationship,
			Description:  rel.Description,
			IsPrimary:    isPrimary,
		})
	}
	return out, nil
}

// RemoveRelationship deletes an edge only if guestID is one of its endpoints.
func (s *Service) RemoveRelationship(ctx context.Context, guestID, relationshipID uint) error {
	var removed models.FamilyRelationship
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rel, err := s.repos.Relationships.FindByID(ctx, tx, relationshipID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrRelationshipNotFound
			}
			return err
		}
		if !rel.Touches(guestID) {
			return apperr.ErrRelationshipNotFound
		}
		removed = *rel
		return s.repos.Relationships.Delete(ctx, tx, rel.ID)
	})
	if err != nil {
		return mapStorageError("remove relationship", err)
	}

	s.logger.LogRelationship("removed", guestID, removed.Other(guestID), removed.ID)
	s.events.Emit(ctx, broker.KeyRelationshipRemoved, broker.RelationshipChanged{
		RelationshipID: removed.ID,
		EventID:        removed.EventID,
		PrimaryGuestID: removed.PrimaryGuestID,
		RelatedGuestID: removed.RelatedGuestID,
		Relationship:   removed.Relationship,
	})
	return nil
}

// mapStorageError turns constraint violations raised by a concurrent writer
// into the matching domain errors.
func mapStorageError(op string, err error) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Wrap(apperr.CodeRelationshipExists, "relationship already exists", err)
	case database.IsCrossEventViolation(err):
		return apperr.Wrap(apperr.CodeCrossEventRelationship, "guests belong to different events", err)
	default:
		return apperr.Internal(op, err)
	}
}
