package handlers

import (
	"strings"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/apperr"
	"github.com/gdg-garage/wedding-rsvp-api/internal/guests"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"github.com/gdg-garage/wedding-rsvp-api/internal/rsvp"
)

type EventView struct {
	ID             uint       `json:"id"`
	Name           string     `json:"name"`
	Date           time.Time  `json:"date"`
	Venue          string     `json:"venue"`
	RSVPDeadline   *time.Time `json:"rsvp_deadline,omitempty"`
	PlusOneAllowed bool       `json:"plus_one_allowed"`
}

func eventView(e models.Event) EventView {
	return EventView{
		ID:             e.ID,
		Name:           e.Name,
		Date:           e.Date,
		Venue:          e.Venue,
		RSVPDeadline:   e.RSVPDeadline,
		PlusOneAllowed: e.PlusOneAllowed,
	}
}

type CeremonyView struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time,omitempty"`
	EndTime   string    `json:"end_time,omitempty"`
	Location  string    `json:"location,omitempty"`
}

func ceremonyView(c models.Ceremony) CeremonyView {
	return CeremonyView{
		ID:        c.ID,
		Name:      c.Name,
		Date:      c.Date,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
		Location:  c.Location,
	}
}

// GuestView is a guest as returned by the API. The token is never included.
type GuestView struct {
	ID                uint         `json:"id"`
	EventID           uint         `json:"event_id"`
	FirstName         string       `json:"first_name"`
	LastName          string       `json:"last_name"`
	Email             *string      `json:"email,omitempty"`
	Phone             *string      `json:"phone,omitempty"`
	Side              models.Side  `json:"side,omitempty"`
	Relationship      string       `json:"relationship,omitempty"`
	IsFamily          bool         `json:"is_family"`
	IsVIP             bool         `json:"is_vip"`
	PlusOneAllowed    bool         `json:"plus_one_allowed"`
	Stage             models.Stage `json:"stage"`
	RequiresStage2    bool         `json:"requires_stage2"`
	Stage1SubmittedAt *time.Time   `json:"stage1_submitted_at,omitempty"`
	Stage2CompletedAt *time.Time   `json:"stage2_completed_at,omitempty"`
	models.ResponseFields
}

func guestView(g models.Guest) GuestView {
	return GuestView{
		ID:                g.ID,
		EventID:           g.EventID,
		FirstName:         g.FirstName,
		LastName:          g.LastName,
		Email:             g.Email,
		Phone:             g.Phone,
		Side:              g.Side,
		Relationship:      g.Relationship,
		IsFamily:          g.IsFamily,
		IsVIP:             g.IsVIP,
		PlusOneAllowed:    g.PlusOneAllowed,
		Stage:             rsvp.CurrentStage(g),
		RequiresStage2:    g.RequiresStage2(),
		Stage1SubmittedAt: g.Stage1SubmittedAt,
		Stage2CompletedAt: g.Stage2CompletedAt,
		ResponseFields:    g.ResponseFields,
	}
}

type GuestInput struct {
	FirstName      string  `json:"first_name" doc:"Guest first name"`
	LastName       string  `json:"last_name" doc:"Guest last name"`
	Email          *string `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty" doc:"Phone number, normalized to digits with an optional leading +"`
	Side           string  `json:"side,omitempty" doc:"bride, groom or both"`
	Relationship   string  `json:"relationship,omitempty" doc:"Relationship to the couple"`
	IsFamily       bool    `json:"is_family,omitempty"`
	IsVIP          bool    `json:"is_vip,omitempty"`
	PlusOneAllowed bool    `json:"plus_one_allowed,omitempty"`
}

func (in GuestInput) toService() guests.Input {
	return guests.Input{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          in.Phone,
		Side:           models.Side(strings.ToLower(strings.TrimSpace(in.Side))),
		Relationship:   in.Relationship,
		IsFamily:       in.IsFamily,
		IsVIP:          in.IsVIP,
		PlusOneAllowed: in.PlusOneAllowed,
	}
}

type CommunicationView struct {
	ID           uint                  `json:"id"`
	MessageID    string                `json:"message_id"`
	EventID      uint                  `json:"event_id"`
	GuestID      *uint                 `json:"guest_id,omitempty"`
	Channel      models.Channel        `json:"channel"`
	Recipient    string                `json:"recipient"`
	Content      string                `json:"content"`
	Status       models.DeliveryStatus `json:"status"`
	ErrorMessage *string               `json:"error_message,omitempty"`
	SentAt       *time.Time            `json:"sent_at,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

func communicationView(c models.CommunicationLog) CommunicationView {
	return CommunicationView{
		ID:           c.ID,
		MessageID:    c.MessageID.String(),
		EventID:      c.EventID,
		GuestID:      c.GuestID,
		Channel:      c.Channel,
		Recipient:    c.Recipient,
		Content:      c.Content,
		Status:       c.Status,
		ErrorMessage: c.ErrorMessage,
		SentAt:       c.SentAt,
		CreatedAt:    c.CreatedAt,
	}
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Empty input
// clears the value.
func parseDate(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	value := strings.TrimSpace(*s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.Validation(field, field+" must be a date (YYYY-MM-DD)")
}
