package repository

import (
	"context"

	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HistoryRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entry *models.RSVPHistory) error
	ListByGuest(ctx context.Context, tx *gorm.DB, guestID uint) ([]models.RSVPHistory, error)
	DeleteByGuest(ctx context.Context, tx *gorm.DB, guestID uint) error
}

type historyRepository struct{}

func (r *historyRepository) Create(ctx context.Context, tx *gorm.DB, entry *models.RSVPHistory) error {
	return tx.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
}

// ListByGuest returns snapshots newest first.
func (r *historyRepository) ListByGuest(ctx context.Context, tx *gorm.DB, guestID uint) ([]models.RSVPHistory, error) {
	var entries []models.RSVPHistory
	err := tx.WithContext(ctx).
		Where("guest_id = ?", guestID).
		Order("created_at DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *historyRepository) DeleteByGuest(ctx context.Context, tx *gorm.DB, guestID uint) error {
	return tx.WithContext(ctx).Unscoped().Where("guest_id = ?", guestID).Delete(&models.RSVPHistory{}).Error
}
