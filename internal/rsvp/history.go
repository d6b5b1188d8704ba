package rsvp

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/apperr"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"gorm.io/gorm"
)

type HistoryEntry struct {
	ID        uint           `json:"id"`
	Stage     models.Stage   `json:"stage"`
	Draft     bool           `json:"draft"`
	CreatedAt time.Time      `json:"created_at"`
	Fields    map[string]any `json:"fields"`
}

// History lists the guest's snapshots newest first. With diff set, each entry
// only carries the fields that changed since the snapshot before it.
func (s *Service) History(ctx context.Context, guestID uint, diff bool) ([]HistoryEntry, error) {
	db := s.repos.DB()
	if _, err := s.repos.Guests.FindByID(ctx, db, guestID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrGuestNotFound
		}
		return nil, apperr.Internal("load guest", err)
	}

	rows, err := s.repos.History.ListByGuest(ctx, db, guestID)
	if err != nil {
		return nil, apperr.Internal("list history", err)
	}

	fields := make([]map[string]any, len(rows))
	for i := range rows {
		fields[i], err = fieldMap(rows[i].ResponseFields)
		if err != nil {
			return nil, apperr.Internal("encode history", err)
		}
	}

	entries := make([]HistoryEntry, len(rows))
	for i, row := range rows {
		current := fields[i]
		if diff && i+1 < len(rows) {
			current = changedFields(fields[i+1], fields[i])
		}
		entries[i] = HistoryEntry{
			ID:        row.ID,
			Stage:     row.Stage,
			Draft:     row.Draft,
			CreatedAt: row.CreatedAt,
			Fields:    current,
		}
	}
	return entries, nil
}

func fieldMap(f models.ResponseFields) (map[string]any, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func changedFields(prev, cur map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range cur {
		if !reflect.DeepEqual(prev[k], v) {
			out[k] = v
		}
	}
	return out
}
