package guests

import (
	"context"
	"errors"

	"github.com/gdg-garage/wedding-rsvp-api/internal/apperr"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"gorm.io/gorm"
)

// DuplicatePolicy decides what an import does with a record matching an
// existing guest by name and email.
type DuplicatePolicy string

const (
	DuplicateSkip      DuplicatePolicy = "skip"
	DuplicateOverwrite DuplicatePolicy = "overwrite"
)

func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case DuplicateSkip, DuplicateOverwrite:
		return DuplicatePolicy(s), nil
	}
	return "", apperr.Validation("duplicate_policy", "duplicate policy must be skip or overwrite")
}

type RecordError struct {
	Index   int    `json:"index"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type ImportResult struct {
	Created []uint        `json:"created"`
	Updated []uint        `json:"updated"`
	Skipped []uint        `json:"skipped"`
	Errors  []RecordError `json:"errors"`
}

// Import feeds records through the same path as Create. A bad record is
// reported and does not stop the batch. Overwrites only touch invitation
// attributes; tokens and answers are kept.
func (s *Service) Import(ctx context.Context, eventID uint, records []Input, policy DuplicatePolicy) (*ImportResult, error) {
	if _, err := ParseDuplicatePolicy(string(policy)); err != nil {
		return nil, err
	}
	if _, err := s.repos.Events.FindByID(ctx, s.repos.DB(), eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrEventNotFound
		}
		return nil, apperr.Internal("load event", err)
	}

	result := &ImportResult{
		Created: []uint{},
		Updated: []uint{},
		Skipped: []uint{},
		Errors:  []RecordError{},
	}

	for i, record := range records {
		in, err := record.Normalize()
		if err != nil {
			result.Errors = append(result.Errors, recordError(i, err))
			continue
		}

		var (
			guest   *models.Guest
			outcome string
		)
		err = s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			existing, err := s.repos.Guests.FindDuplicate(ctx, tx, eventID, in.FirstName, in.LastName, in.Email)
			switch {
			case err == nil && policy == DuplicateSkip:
				guest, outcome = existing, "skipped"
				return nil
			case err == nil:
				in.apply(existing)
				guest, outcome = existing, "updated"
				return s.repos.Guests.Save(ctx, tx, existing)
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}

			created, err := s.create(ctx, tx, eventID, in)
			if err != nil {
				return err
			}
			guest, outcome = created, "created"
			return nil
		})
		if err != nil {
			s.logger.WithFields(logging.Fields{"event_id": eventID, "index": i, "error": err.Error()}).Warn("Import record failed")
			result.Errors = append(result.Errors, recordError(i, wrapStorage("import guest", err)))
			continue
		}

		switch outcome {
		case "created":
			result.Created = append(result.Created, guest.ID)
			s.tokenIssued(ctx, guest)
		case "updated":
			result.Updated = append(result.Updated, guest.ID)
		default:
			result.Skipped = append(result.Skipped, guest.ID)
		}
	}

	s.logger.WithFields(logging.Fields{
		"event_id": eventID,
		"created":  len(result.Created),
		"updated":  len(result.Updated),
		"skipped":  len(result.Skipped),
		"errors":   len(result.Errors),
	}).Info("Guest import finished")
	return result, nil
}

func recordError(index int, err error) RecordError {
	re := RecordError{Index: index, Code: string(apperr.CodeOf(err)), Message: apperr.CodeOf(err).UserMessage()}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		re.Field = appErr.Field
		if appErr.Code == apperr.CodeValidation {
			re.Message = appErr.Message
		}
	}
	return re
}
