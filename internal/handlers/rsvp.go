package handlers

import (
	"context"

	"github.com/gdg-garage/wedding-rsvp-api/internal/family"
	"github.com/gdg-garage/wedding-rsvp-api/internal/guests"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"github.com/gdg-garage/wedding-rsvp-api/internal/progress"
	"github.com/gdg-garage/wedding-rsvp-api/internal/rsvp"
	"github.com/gdg-garage/wedding-rsvp-api/internal/token"
)

// RSVPHandler serves the token-scoped guest operations.
type RSVPHandler struct {
	tokens *token.Service
	rsvp   *rsvp.Service
	family *family.Service
	guests *guests.Service
	logger *logging.Logger
}

func NewRSVPHandler(tokens *token.Service, rsvpService *rsvp.Service, familyService *family.Service, guestService *guests.Service, logger *logging.Logger) *RSVPHandler {
	return &RSVPHandler{
		tokens: tokens,
		rsvp:   rsvpService,
		family: familyService,
		guests: guestService,
		logger: logging.OrDefault(logger),
	}
}

type TokenInput struct {
	Token string `path:"token" maxLength:"128" doc:"RSVP token from the invitation link"`
}

func (h *RSVPHandler) resolve(ctx context.Context, tok string) (*models.Guest, error) {
	guest, err := h.tokens.Resolve(ctx, tok)
	if err != nil {
		return nil, problem(h.logger, "resolve token", err)
	}
	return guest, nil
}

type InvitationOutput struct {
	Body struct {
		Event      EventView        `json:"event"`
		Guest      GuestView        `json:"guest"`
		Ceremonies []CeremonyView   `json:"ceremonies"`
		Progress   progress.Summary `json:"progress"`
	}
}

func (h *RSVPHandler) HandleVerify(ctx context.Context, input *TokenInput) (*InvitationOutput, error) {
	inv, err := h.tokens.Verify(ctx, input.Token)
	if err != nil {
		return nil, problem(h.logger, "verify token", err)
	}

	out := &InvitationOutput{}
	out.Body.Event = eventView(inv.Event)
	out.Body.Guest = guestView(inv.Guest)
	out.Body.Ceremonies = make([]CeremonyView, 0, len(inv.Ceremonies))
	for _, c := range inv.Ceremonies {
		out.Body.Ceremonies = append(out.Body.Ceremonies, ceremonyView(c))
	}
	out.Body.Progress = progress.Of(inv.Guest)
	return out, nil
}

type CeremonyChoiceInput struct {
	CeremonyID     uint    `json:"ceremony_id"`
	Attending      bool    `json:"attending"`
	MealPreference *string `json:"meal_preference,omitempty"`
}

type Stage1Request struct {
	TokenInput
	Body struct {
		RSVPStatus          string                `json:"rsvp_status" doc:"confirmed or declined"`
		IsLocalGuest        bool                  `json:"is_local_guest,omitempty"`
		PlusOneAttending    bool                  `json:"plus_one_attending,omitempty"`
		PlusOneName         *string               `json:"plus_one_name,omitempty"`
		DietaryRestrictions *string               `json:"dietary_restrictions,omitempty"`
		Allergies           *string               `json:"allergies,omitempty"`
		CeremonyAttendance  []CeremonyChoiceInput `json:"ceremony_attendance,omitempty"`
		Message             *string               `json:"message,omitempty"`
	}
}

type Stage1Output struct {
	Body struct {
		Guest          GuestView        `json:"guest"`
		RequiresStage2 bool             `json:"requires_stage2"`
		Progress       progress.Summary `json:"progress"`
	}
}

func (h *RSVPHandler) HandleStage1(ctx context.Context, input *Stage1Request) (*Stage1Output, error) {
	guest, err := h.resolve(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	body := input.Body
	in := rsvp.Stage1Input{
		RSVPStatus:          models.RSVPStatus(body.RSVPStatus),
		IsLocalGuest:        body.IsLocalGuest,
		PlusOneAttending:    body.PlusOneAttending,
		PlusOneName:         body.PlusOneName,
		DietaryRestrictions: body.DietaryRestrictions,
		Allergies:           body.Allergies,
		Message:             body.Message,
	}
	for _, c := range body.CeremonyAttendance {
		in.CeremonyAttendance = append(in.CeremonyAttendance, rsvp.CeremonyChoice{
			CeremonyID:     c.CeremonyID,
			Attending:      c.Attending,
			MealPreference: c.MealPreference,
		})
	}

	result, err := h.rsvp.SubmitStage1(ctx, guest.ID, in)
	if err != nil {
		return nil, problem(h.logger, "submit stage 1", err)
	}

	out := &Stage1Output{}
	out.Body.Guest = guestView(result.Guest)
	out.Body.RequiresStage2 = result.RequiresStage2
	out.Body.Progress = progress.Of(result.Guest)
	return out, nil
}

type ChildInput struct {
	Name                string `json:"name"`
	Age                 any    `json:"age,omitempty" doc:"Age in years, number or numeric string"`
	DietaryRestrictions string `json:"dietary_restrictions,omitempty"`
}

type Stage2Request struct {
	TokenInput
	Body struct {
		PlusOneEmail             *string      `json:"plus_one_email,omitempty"`
		PlusOnePhone             *string      `json:"plus_one_phone,omitempty"`
		PlusOneRelationship      *string      `json:"plus_one_relationship,omitempty"`
		ChildrenDetails          []ChildInput `json:"children_details,omitempty"`
		NeedsAccommodation       *bool        `json:"needs_accommodation,omitempty"`
		AccommodationPreference  *string      `json:"accommodation_preference,omitempty"`
		NeedsFlightAssistance    *bool        `json:"needs_flight_assistance,omitempty"`
		TransportationPreference *string      `json:"transportation_preference,omitempty"`
		ArrivalDate              *string      `json:"arrival_date,omitempty" doc:"YYYY-MM-DD"`
		DepartureDate            *string      `json:"departure_date,omitempty" doc:"YYYY-MM-DD"`
		SpecialRequests          *string      `json:"special_requests,omitempty"`
		Notes                    *string      `json:"notes,omitempty"`
		Draft                    bool         `json:"draft,omitempty" doc:"Auto-save without completing stage 2"`
	}
}

type GuestOutput struct {
	Body struct {
		Guest    GuestView        `json:"guest"`
		Progress progress.Summary `json:"progress"`
	}
}

func (h *RSVPHandler) HandleStage2(ctx context.Context, input *Stage2Request) (*GuestOutput, error) {
	guest, err := h.resolve(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	body := input.Body
	arrival, err := parseDate("arrival_date", body.ArrivalDate)
	if err != nil {
		return nil, problem(h.logger, "submit stage 2", err)
	}
	departure, err := parseDate("departure_date", body.DepartureDate)
	if err != nil {
		return nil, problem(h.logger, "submit stage 2", err)
	}

	in := rsvp.Stage2Input{
		PlusOneEmail:             body.PlusOneEmail,
		PlusOnePhone:             body.PlusOnePhone,
		PlusOneRelationship:      body.PlusOneRelationship,
		NeedsAccommodation:       body.NeedsAccommodation,
		AccommodationPreference:  body.AccommodationPreference,
		NeedsFlightAssistance:    body.NeedsFlightAssistance,
		TransportationPreference: body.TransportationPreference,
		ArrivalDate:              arrival,
		DepartureDate:            departure,
		SpecialRequests:          body.SpecialRequests,
		Notes:                    body.Notes,
		Draft:                    body.Draft,
	}
	for _, c := range body.ChildrenDetails {
		in.ChildrenDetails = append(in.ChildrenDetails, rsvp.ChildInput{
			Name:                c.Name,
			Age:                 c.Age,
			DietaryRestrictions: c.DietaryRestrictions,
		})
	}

	updated, err := h.rsvp.SubmitStage2(ctx, guest.ID, in)
	if err != nil {
		return nil, problem(h.logger, "submit stage 2", err)
	}

	out := &GuestOutput{}
	out.Body.Guest = guestView(*updated)
	out.Body.Progress = progress.Of(*updated)
	return out, nil
}

type AttendanceView struct {
	Ceremony       CeremonyView `json:"ceremony"`
	Attending      bool         `json:"attending"`
	MealPreference *string      `json:"meal_preference,omitempty"`
}

type AttendanceOutput struct {
	Body struct {
		Attendance []AttendanceView `json:"attendance"`
	}
}

func (h *RSVPHandler) HandleAttendance(ctx context.Context, input *TokenInput) (*AttendanceOutput, error) {
	guest, err := h.resolve(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	entries, err := h.guests.GetAttendance(ctx, guest.ID)
	if err != nil {
		return nil, problem(h.logger, "get attendance", err)
	}

	out := &AttendanceOutput{}
	out.Body.Attendance = make([]AttendanceView, 0, len(entries))
	for _, e := range entries {
		out.Body.Attendance = append(out.Body.Attendance, AttendanceView{
			Ceremony:       ceremonyView(e.Ceremony),
			Attending:      e.Attending,
			MealPreference: e.MealPreference,
		})
	}
	return out, nil
}

type ProgressOutput struct {
	Body progress.Summary
}

func (h *RSVPHandler) HandleProgress(ctx context.Context, input *TokenInput) (*ProgressOutput, error) {
	guest, err := h.resolve(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	return &ProgressOutput{Body: progress.Of(*guest)}, nil
}

type RelationshipsOutput struct {
	Body struct {
		Relationships []family.Relative `json:"relationships"`
	}
}

func (h *RSVPHandler) HandleListRelationships(ctx context.Context, input *TokenInput) (*RelationshipsOutput, error) {
	guest, err := h.resolve(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	relatives, err := h.family.ListRelationships(ctx, guest.ID)
	if err != nil {
		return nil, problem(h.logger, "list relationships", err)
	}

	out := &RelationshipsOutput{}
	out.Body.Relationships = relatives
	if out.Body.Relationships == nil {
		out.Body.Relationships = []family.Relative{}
	}
	return out, nil
}

type AddRelationshipRequest struct {
	TokenInput
	Body struct {
		RelatedGuestID uint    `json:"related_guest_id"`
		Relationship   string  `json:"relationship" doc:"For example sibling, parent, spouse"`
		Description    *string `json:"description,omitempty"`
	}
}

type RelationshipOutput struct {
	Body family.Edge
}

func (h *RSVPHandler) HandleAddRelationship(ctx context.Context, input *AddRelationshipRequest) (*RelationshipOutput, error) {
	guest, err := h.resolve(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	edge, err := h.family.AddRelationship(ctx, guest.ID, input.Body.RelatedGuestID, input.Body.Relationship, input.Body.Description)
	if err != nil {
		return nil, problem(h.logger, "add relationship", err)
	}
	return &RelationshipOutput{Body: *edge}, nil
}

type RemoveRelationshipRequest struct {
	TokenInput
	RelationshipID uint `path:"relationshipId"`
}

func (h *RSVPHandler) HandleRemoveRelationship(ctx context.Context, input *RemoveRelationshipRequest) (*struct{}, error) {
	guest, err := h.resolve(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	if err := h.family.RemoveRelationship(ctx, guest.ID, input.RelationshipID); err != nil {
		return nil, problem(h.logger, "remove relationship", err)
	}
	return nil, nil
}
