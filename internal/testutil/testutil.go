// Package testutil builds in-memory databases and fixtures for tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/database"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory sqlite database. The pool is pinned to a
// single connection so every query sees the same in-memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN(":memory:")), database.GormConfig(logger.Silent))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func CreateEvent(t *testing.T, db *gorm.DB, opts ...func(*models.Event)) *models.Event {
	t.Helper()

	event := &models.Event{
		Name:           "Anna & Tomas",
		Date:           time.Date(2027, 6, 12, 0, 0, 0, 0, time.UTC),
		Venue:          "Villa Lanna",
		PlusOneAllowed: true,
	}
	for _, opt := range opts {
		opt(event)
	}
	require.NoError(t, db.Create(event).Error)
	return event
}

func CreateCeremony(t *testing.T, db *gorm.DB, eventID uint, name string, date time.Time) *models.Ceremony {
	t.Helper()

	ceremony := &models.Ceremony{
		EventID:   eventID,
		Name:      name,
		Date:      date,
		StartTime: "15:00",
		EndTime:   "17:00",
		Location:  "Garden",
	}
	require.NoError(t, db.Create(ceremony).Error)
	return ceremony
}

// CreateGuest inserts a pending guest. The token defaults to a value derived
// from the guest name.
func CreateGuest(t *testing.T, db *gorm.DB, eventID uint, firstName string, opts ...func(*models.Guest)) *models.Guest {
	t.Helper()

	token := "token-" + firstName
	guest := &models.Guest{
		EventID:        eventID,
		FirstName:      firstName,
		LastName:       "Novak",
		Side:           models.SideBride,
		PlusOneAllowed: true,
		RSVPToken:      &token,
		Stage:          models.StageOne,
		ResponseFields: models.ResponseFields{RSVPStatus: models.RSVPPending},
	}
	for _, opt := range opts {
		opt(guest)
	}
	require.NoError(t, db.Create(guest).Error)
	return guest
}

func Ptr[T any](v T) *T {
	return &v
}

// RecordingPublisher captures published routing keys.
type RecordingPublisher struct {
	mu   sync.Mutex
	Keys []string
}

func (p *RecordingPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Keys = append(p.Keys, routingKey)
	return nil
}

func (p *RecordingPublisher) Published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Keys...)
}
