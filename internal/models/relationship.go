package models

import "time"

// FamilyRelationship is an undirected edge between two guests of one event.
// PairLow/PairHigh hold the ordered endpoints so the unique index covers both
// directions.
type FamilyRelationship struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	EventID        uint      `gorm:"not null;index" json:"event_id"`
	PrimaryGuestID uint      `gorm:"not null;index" json:"primary_guest_id"`
	PrimaryGuest   *Guest    `gorm:"foreignKey:PrimaryGuestID;constraint:OnDelete:CASCADE" json:"-"`
	RelatedGuestID uint      `gorm:"not null;index" json:"related_guest_id"`
	RelatedGuest   *Guest    `gorm:"foreignKey:RelatedGuestID;constraint:OnDelete:CASCADE" json:"-"`
	Relationship   string    `gorm:"not null" json:"relationship"`
	Description    *string   `json:"description"`
	PairLow        uint      `gorm:"not null;uniqueIndex:idx_relationship_pair;check:chk_relationship_pair,pair_low < pair_high" json:"-"`
	PairHigh       uint      `gorm:"not null;uniqueIndex:idx_relationship_pair" json:"-"`
}

// OrderedPair returns a and b as (low, high).
func OrderedPair(a, b uint) (uint, uint) {
	if a < b {
		return a, b
	}
	return b, a
}

// Touches reports whether guestID is one of the edge's endpoints.
func (r FamilyRelationship) Touches(guestID uint) bool {
	return r.PrimaryGuestID == guestID || r.RelatedGuestID == guestID
}

// Other returns the endpoint that is not guestID.
func (r FamilyRelationship) Other(guestID uint) uint {
	if r.PrimaryGuestID == guestID {
		return r.RelatedGuestID
	}
	return r.PrimaryGuestID
}
