package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repositories bundles the per-table repositories around one connection.
// Every method takes the *gorm.DB to run on so callers can pass a transaction.
type Repositories struct {
	db *gorm.DB

	Events         EventRepository
	Ceremonies     CeremonyRepository
	Guests         GuestRepository
	Attendance     AttendanceRepository
	Relationships  RelationshipRepository
	History        HistoryRepository
	Communications CommunicationRepository
}

func New(db *gorm.DB) *Repositories {
	return &Repositories{
		db:             db,
		Events:         &eventRepository{},
		Ceremonies:     &ceremonyRepository{},
		Guests:         &guestRepository{},
		Attendance:     &attendanceRepository{},
		Relationships:  &relationshipRepository{},
		History:        &historyRepository{},
		Communications: &communicationRepository{},
	}
}

func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// forUpdate adds a row lock on dialects that support it. SQLite serializes
// writers at the database level instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
