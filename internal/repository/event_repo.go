package repository

import (
	"context"

	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"gorm.io/gorm"
)

type EventRepository interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Event, error)
}

type eventRepository struct{}

func (r *eventRepository) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Event, error) {
	var event models.Event
	if err := tx.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
