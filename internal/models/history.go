package models

import (
	"gorm.io/gorm"
)

// RSVPHistory is a snapshot of a guest's answers taken at every stage write.
type RSVPHistory struct {
	gorm.Model
	GuestID        uint   `gorm:"not null;index" json:"guest_id"`
	Guest          *Guest `gorm:"foreignKey:GuestID;constraint:OnDelete:CASCADE" json:"-"`
	EventID        uint   `gorm:"not null;index" json:"event_id"`
	Stage          Stage  `gorm:"type:varchar(20)" json:"stage"`
	Draft          bool   `json:"draft"`
	ResponseFields `gorm:"embedded"`
}
