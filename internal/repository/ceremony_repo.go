package repository

import (
	"context"

	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"gorm.io/gorm"
)

type CeremonyRepository interface {
	ListByEvent(ctx context.Context, tx *gorm.DB, eventID uint) ([]models.Ceremony, error)
	CountInEvent(ctx context.Context, tx *gorm.DB, eventID uint, ids []uint) (int64, error)
}

type ceremonyRepository struct{}

func (r *ceremonyRepository) ListByEvent(ctx context.Context, tx *gorm.DB, eventID uint) ([]models.Ceremony, error) {
	var ceremonies []models.Ceremony
	err := tx.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("date ASC, start_time ASC, id ASC").
		Find(&ceremonies).Error
	if err != nil {
		return nil, err
	}
	return ceremonies, nil
}

// CountInEvent counts how many of ids are ceremonies of eventID.
func (r *ceremonyRepository) CountInEvent(ctx context.Context, tx *gorm.DB, eventID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.Ceremony{}).
		Where("event_id = ? AND id IN ?", eventID, ids).
		Count(&count).Error
	return count, err
}
