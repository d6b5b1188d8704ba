package repository

import (
	"context"

	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommunicationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entry *models.CommunicationLog) error
	ListByGuest(ctx context.Context, tx *gorm.DB, guestID uint) ([]models.CommunicationLog, error)
	DetachGuest(ctx context.Context, tx *gorm.DB, guestID uint) error
}

type communicationRepository struct{}

func (r *communicationRepository) Create(ctx context.Context, tx *gorm.DB, entry *models.CommunicationLog) error {
	return tx.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
}

func (r *communicationRepository) ListByGuest(ctx context.Context, tx *gorm.DB, guestID uint) ([]models.CommunicationLog, error) {
	var entries []models.CommunicationLog
	err := tx.WithContext(ctx).
		Where("guest_id = ?", guestID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DetachGuest keeps the guest's delivery records but drops the link to them.
func (r *communicationRepository) DetachGuest(ctx context.Context, tx *gorm.DB, guestID uint) error {
	return tx.WithContext(ctx).
		Model(&models.CommunicationLog{}).
		Where("guest_id = ?", guestID).
		Update("guest_id", nil).Error
}
