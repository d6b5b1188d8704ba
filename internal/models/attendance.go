package models

import "time"

// GuestCeremonyAttendance is one cell of the guest x ceremony matrix.
type GuestCeremonyAttendance struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	GuestID        uint      `gorm:"not null;uniqueIndex:idx_attendance_guest_ceremony" json:"guest_id"`
	Guest          *Guest    `gorm:"foreignKey:GuestID;constraint:OnDelete:CASCADE" json:"-"`
	CeremonyID     uint      `gorm:"not null;uniqueIndex:idx_attendance_guest_ceremony;index" json:"ceremony_id"`
	Ceremony       *Ceremony `gorm:"foreignKey:CeremonyID;constraint:OnDelete:CASCADE" json:"ceremony,omitempty"`
	Attending      bool      `json:"attending"`
	MealPreference *string   `json:"meal_preference"`
}
