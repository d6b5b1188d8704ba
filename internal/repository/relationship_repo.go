package repository

import (
	"context"

	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RelationshipRepository interface {
	Create(ctx context.Context, tx *gorm.DB, rel *models.FamilyRelationship) error
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.FamilyRelationship, error)
	FindByPair(ctx context.Context, tx *gorm.DB, a, b uint) (*models.FamilyRelationship, error)
	ListByGuest(ctx context.Context, tx *gorm.DB, guestID uint) ([]models.FamilyRelationship, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	DeleteByGuest(ctx context.Context, tx *gorm.DB, guestID uint) error
}

type relationshipRepository struct{}

func (r *relationshipRepository) Create(ctx context.Context, tx *gorm.DB, rel *models.FamilyRelationship) error {
	rel.PairLow, rel.PairHigh = models.OrderedPair(rel.PrimaryGuestID, rel.RelatedGuestID)
	return tx.WithContext(ctx).Omit(clause.Associations).Create(rel).Error
}

func (r *relationshipRepository) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.FamilyRelationship, error) {
	var rel models.FamilyRelationship
	if err := tx.WithContext(ctx).First(&rel, id).Error; err != nil {
		return nil, err
	}
	return &rel, nil
}

// FindByPair finds the edge between a and b in either direction.
func (r *relationshipRepository) FindByPair(ctx context.Context, tx *gorm.DB, a, b uint) (*models.FamilyRelationship, error) {
	low, high := models.OrderedPair(a, b)
	var rel models.FamilyRelationship
	err := tx.WithContext(ctx).
		Where("pair_low = ? AND pair_high = ?", low, high).
		First(&rel).Error
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (r *relationshipRepository) ListByGuest(ctx context.Context, tx *gorm.DB, guestID uint) ([]models.FamilyRelationship, error) {
	var rels []models.FamilyRelationship
	err := tx.WithContext(ctx).
		Preload("PrimaryGuest").
		Preload("RelatedGuest").
		Where("primary_guest_id = ? OR related_guest_id = ?", guestID, guestID).
		Order("id ASC").
		Find(&rels).Error
	if err != nil {
		return nil, err
	}
	return rels, nil
}

func (r *relationshipRepository) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	return tx.WithContext(ctx).Delete(&models.FamilyRelationship{}, id).Error
}

func (r *relationshipRepository) DeleteByGuest(ctx context.Context, tx *gorm.DB, guestID uint) error {
	return tx.WithContext(ctx).
		Where("primary_guest_id = ? OR related_guest_id = ?", guestID, guestID).
		Delete(&models.FamilyRelationship{}).Error
}
