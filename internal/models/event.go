package models

import (
	"time"

	"gorm.io/gorm"
)

type Event struct {
	gorm.Model
	Name           string     `gorm:"not null" json:"name"`
	Date           time.Time  `json:"date"`
	Venue          string     `json:"venue"`
	RSVPDeadline   *time.Time `json:"rsvp_deadline"`
	PlusOneAllowed bool       `json:"plus_one_allowed"`
}

// DeadlinePassed reports whether RSVPs are closed at now. Events without a
// deadline never close.
func (e Event) DeadlinePassed(now time.Time) bool {
	return e.RSVPDeadline != nil && now.After(*e.RSVPDeadline)
}

type Ceremony struct {
	gorm.Model
	EventID   uint      `gorm:"not null;index" json:"event_id"`
	Event     *Event    `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
	Name      string    `gorm:"not null" json:"name"`
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"` // HH:MM, local to the venue
	EndTime   string    `json:"end_time"`
	Location  string    `json:"location"`
}
