package repository

import (
	"context"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GuestRepository interface {
	Create(ctx context.Context, tx *gorm.DB, guest *models.Guest) error
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Guest, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Guest, error)
	FindByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Guest, error)
	FindByToken(ctx context.Context, tx *gorm.DB, token string) (*models.Guest, error)
	FindDuplicate(ctx context.Context, tx *gorm.DB, eventID uint, firstName, lastName string, email *string) (*models.Guest, error)
	Save(ctx context.Context, tx *gorm.DB, guest *models.Guest) error
	SetToken(ctx context.Context, tx *gorm.DB, guestID uint, token *string, issuedAt *time.Time) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
}

type guestRepository struct{}

func (r *guestRepository) Create(ctx context.Context, tx *gorm.DB, guest *models.Guest) error {
	return tx.WithContext(ctx).Omit(clause.Associations).Create(guest).Error
}

func (r *guestRepository) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Guest, error) {
	var guest models.Guest
	if err := tx.WithContext(ctx).First(&guest, id).Error; err != nil {
		return nil, err
	}
	return &guest, nil
}

// FindByIDForUpdate locks the guest row for the rest of the transaction.
func (r *guestRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Guest, error) {
	var guest models.Guest
	if err := forUpdate(tx.WithContext(ctx)).First(&guest, id).Error; err != nil {
		return nil, err
	}
	return &guest, nil
}

func (r *guestRepository) FindByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Guest, error) {
	var guests []models.Guest
	if len(ids) == 0 {
		return guests, nil
	}
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&guests).Error; err != nil {
		return nil, err
	}
	return guests, nil
}

func (r *guestRepository) FindByToken(ctx context.Context, tx *gorm.DB, token string) (*models.Guest, error) {
	var guest models.Guest
	if err := tx.WithContext(ctx).Where("rsvp_token = ?", token).First(&guest).Error; err != nil {
		return nil, err
	}
	return &guest, nil
}

// FindDuplicate matches on name and email, ignoring case. A missing email
// only matches guests without one.
func (r *guestRepository) FindDuplicate(ctx context.Context, tx *gorm.DB, eventID uint, firstName, lastName string, email *string) (*models.Guest, error) {
	q := tx.WithContext(ctx).
		Where("event_id = ?", eventID).
		Where("LOWER(first_name) = LOWER(?) AND LOWER(last_name) = LOWER(?)", firstName, lastName)
	if email != nil && *email != "" {
		q = q.Where("LOWER(email) = LOWER(?)", *email)
	} else {
		q = q.Where("(email IS NULL OR email = '')")
	}

	var guest models.Guest
	if err := q.Order("id ASC").First(&guest).Error; err != nil {
		return nil, err
	}
	return &guest, nil
}

// Save writes every column of the guest, zero values included.
func (r *guestRepository) Save(ctx context.Context, tx *gorm.DB, guest *models.Guest) error {
	return tx.WithContext(ctx).Omit(clause.Associations).Save(guest).Error
}

func (r *guestRepository) SetToken(ctx context.Context, tx *gorm.DB, guestID uint, token *string, issuedAt *time.Time) error {
	res := tx.WithContext(ctx).
		Model(&models.Guest{}).
		Where("id = ?", guestID).
		Updates(map[string]interface{}{
			"rsvp_token":      token,
			"token_issued_at": issuedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the guest row for good. Callers clear dependent rows first.
func (r *guestRepository) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	res := tx.WithContext(ctx).Unscoped().Delete(&models.Guest{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
