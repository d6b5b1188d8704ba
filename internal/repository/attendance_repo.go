package repository

import (
	"context"
	"sort"

	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttendanceRepository interface {
	Upsert(ctx context.Context, tx *gorm.DB, rows []models.GuestCeremonyAttendance) error
	ListByGuest(ctx context.Context, tx *gorm.DB, guestID uint) ([]models.GuestCeremonyAttendance, error)
	DeleteByGuest(ctx context.Context, tx *gorm.DB, guestID uint) error
}

type attendanceRepository struct{}

// Upsert inserts rows, replacing attendance and meal choice of any existing
// (guest, ceremony) row. rows must not repeat a pair.
func (r *attendanceRepository) Upsert(ctx context.Context, tx *gorm.DB, rows []models.GuestCeremonyAttendance) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guest_id"}, {Name: "ceremony_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"attending", "meal_preference", "updated_at"}),
		}).
		Create(&rows).Error
}

// ListByGuest returns the guest's rows with their ceremony, in ceremony order.
func (r *attendanceRepository) ListByGuest(ctx context.Context, tx *gorm.DB, guestID uint) ([]models.GuestCeremonyAttendance, error) {
	var rows []models.GuestCeremonyAttendance
	err := tx.WithContext(ctx).
		Preload("Ceremony").
		Where("guest_id = ?", guestID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Ceremony, rows[j].Ceremony
		if a == nil || b == nil {
			return a != nil
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
	return rows, nil
}

func (r *attendanceRepository) DeleteByGuest(ctx context.Context, tx *gorm.DB, guestID uint) error {
	return tx.WithContext(ctx).Where("guest_id = ?", guestID).Delete(&models.GuestCeremonyAttendance{}).Error
}
