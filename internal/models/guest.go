package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RSVPStatus string

const (
	RSVPPending   RSVPStatus = "pending"
	RSVPConfirmed RSVPStatus = "confirmed"
	RSVPDeclined  RSVPStatus = "declined"
)

// Stage is the persisted position of a guest in the RSVP flow.
type Stage string

const (
	StageOne      Stage = "stage1"
	StageTwo      Stage = "stage2"
	StageComplete Stage = "complete"
)

type Side string

const (
	SideBride Side = "bride"
	SideGroom Side = "groom"
	SideBoth  Side = "both"
)

type ChildDetail struct {
	Name                string `json:"name"`
	Age                 int    `json:"age"`
	DietaryRestrictions string `json:"dietary_restrictions,omitempty"`
}

// ResponseFields holds everything a guest answers through the RSVP flow.
type ResponseFields struct {
	RSVPStatus               RSVPStatus                      `gorm:"type:varchar(20);not null;index" json:"rsvp_status"`
	IsLocalGuest             bool                            `json:"is_local_guest"`
	PlusOneConfirmed         bool                            `json:"plus_one_confirmed"`
	PlusOneName              *string                         `json:"plus_one_name"`
	PlusOneEmail             *string                         `json:"plus_one_email"`
	PlusOnePhone             *string                         `json:"plus_one_phone"`
	PlusOneRelationship      *string                         `json:"plus_one_relationship"`
	ChildrenDetails          datatypes.JSONSlice[ChildDetail] `json:"children_details"`
	DietaryRestrictions      *string                         `json:"dietary_restrictions"`
	Allergies                *string                         `json:"allergies"`
	NeedsAccommodation       *bool                           `json:"needs_accommodation"`
	AccommodationPreference  *string                         `json:"accommodation_preference"`
	NeedsFlightAssistance    *bool                           `json:"needs_flight_assistance"`
	TransportationPreference *string                         `json:"transportation_preference"`
	ArrivalDate              *time.Time                      `json:"arrival_date"`
	DepartureDate            *time.Time                      `json:"departure_date"`
	SpecialRequests          *string                         `json:"special_requests"`
	RSVPMessage              *string                         `json:"rsvp_message"`
	Notes                    *string                         `json:"notes"`
}

type Guest struct {
	gorm.Model
	EventID        uint    `gorm:"not null;index" json:"event_id"`
	Event          *Event  `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
	FirstName      string  `gorm:"not null" json:"first_name"`
	LastName       string  `gorm:"not null" json:"last_name"`
	Email          *string `gorm:"index" json:"email"`
	Phone          *string `json:"phone"`
	Side           Side    `gorm:"type:varchar(10)" json:"side"`
	Relationship   string  `json:"relationship"`
	IsFamily       bool    `json:"is_family"`
	IsVIP          bool    `json:"is_vip"`
	PlusOneAllowed bool    `json:"plus_one_allowed"`

	RSVPToken     *string    `gorm:"uniqueIndex;size:64" json:"-"`
	TokenIssuedAt *time.Time `json:"token_issued_at"`

	Stage             Stage      `gorm:"type:varchar(20);not null" json:"stage"`
	Stage1SubmittedAt *time.Time `json:"stage1_submitted_at"`
	Stage2CompletedAt *time.Time `json:"stage2_completed_at"`

	ResponseFields `gorm:"embedded"`
}

func (g Guest) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

// RequiresStage2 reports whether the current answers call for travel and
// accommodation details.
func (g Guest) RequiresStage2() bool {
	return g.RSVPStatus == RSVPConfirmed && !g.IsLocalGuest
}

// NormalizePhone keeps digits and a leading plus sign.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
