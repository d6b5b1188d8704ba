package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/comms"
	"github.com/gdg-garage/wedding-rsvp-api/internal/guests"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/gdg-garage/wedding-rsvp-api/internal/messaging"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"github.com/gdg-garage/wedding-rsvp-api/internal/progress"
	"github.com/gdg-garage/wedding-rsvp-api/internal/rsvp"
	"github.com/gdg-garage/wedding-rsvp-api/internal/token"
)

// InvitationSender delivers an RSVP link to a guest.
type InvitationSender interface {
	Send(ctx context.Context, msg messaging.Message) (*messaging.Result, error)
}

// OrganizerHandler serves the operations behind organizer authentication.
type OrganizerHandler struct {
	guests        *guests.Service
	tokens        *token.Service
	rsvp          *rsvp.Service
	comms         *comms.Service
	sender        InvitationSender
	publicURL     string
	defaultPolicy guests.DuplicatePolicy
	logger        *logging.Logger
}

func NewOrganizerHandler(guestService *guests.Service, tokens *token.Service, rsvpService *rsvp.Service, commsService *comms.Service, sender InvitationSender, publicURL string, defaultPolicy guests.DuplicatePolicy, logger *logging.Logger) *OrganizerHandler {
	if defaultPolicy == "" {
		defaultPolicy = guests.DuplicateSkip
	}
	return &OrganizerHandler{
		guests:        guestService,
		tokens:        tokens,
		rsvp:          rsvpService,
		comms:         commsService,
		sender:        sender,
		publicURL:     strings.TrimRight(publicURL, "/"),
		defaultPolicy: defaultPolicy,
		logger:        logging.OrDefault(logger),
	}
}

func (h *OrganizerHandler) rsvpLink(tok string) string {
	return h.publicURL + "/" + tok
}

type EventPathInput struct {
	EventID uint `path:"eventId"`
}

type GuestPathInput struct {
	EventID uint `path:"eventId"`
	GuestID uint `path:"guestId"`
}

type CreateGuestRequest struct {
	EventPathInput
	Body GuestInput
}

type IssuedGuestOutput struct {
	Body struct {
		Guest   GuestView `json:"guest"`
		Token   string    `json:"token"`
		RSVPURL string    `json:"rsvp_url"`
	}
}

func (h *OrganizerHandler) HandleCreateGuest(ctx context.Context, input *CreateGuestRequest) (*IssuedGuestOutput, error) {
	guest, err := h.guests.Create(ctx, input.EventID, input.Body.toService())
	if err != nil {
		return nil, problem(h.logger, "create guest", err)
	}

	out := &IssuedGuestOutput{}
	out.Body.Guest = guestView(*guest)
	if guest.RSVPToken != nil {
		out.Body.Token = *guest.RSVPToken
		out.Body.RSVPURL = h.rsvpLink(*guest.RSVPToken)
	}
	return out, nil
}

type ImportRequest struct {
	EventPathInput
	Body struct {
		DuplicatePolicy string       `json:"duplicate_policy,omitempty" doc:"skip or overwrite; defaults to the server setting"`
		Guests          []GuestInput `json:"guests"`
	}
}

type ImportOutput struct {
	Body guests.ImportResult
}

func (h *OrganizerHandler) HandleImport(ctx context.Context, input *ImportRequest) (*ImportOutput, error) {
	policy := h.defaultPolicy
	if input.Body.DuplicatePolicy != "" {
		parsed, err := guests.ParseDuplicatePolicy(input.Body.DuplicatePolicy)
		if err != nil {
			return nil, problem(h.logger, "import guests", err)
		}
		policy = parsed
	}

	records := make([]guests.Input, 0, len(input.Body.Guests))
	for _, g := range input.Body.Guests {
		records = append(records, g.toService())
	}

	result, err := h.guests.Import(ctx, input.EventID, records, policy)
	if err != nil {
		return nil, problem(h.logger, "import guests", err)
	}

	return &ImportOutput{Body: *result}, nil
}

type GuestProgressOutput struct {
	Body struct {
		GuestID uint   `json:"guest_id"`
		Stage   string `json:"stage"`
		progress.Summary
	}
}

func (h *OrganizerHandler) HandleGuestProgress(ctx context.Context, input *GuestPathInput) (*GuestProgressOutput, error) {
	guest, err := h.guests.Get(ctx, input.EventID, input.GuestID)
	if err != nil {
		return nil, problem(h.logger, "guest progress", err)
	}

	out := &GuestProgressOutput{}
	out.Body.GuestID = guest.ID
	out.Body.Stage = string(rsvp.CurrentStage(*guest))
	out.Body.Summary = progress.Of(*guest)
	return out, nil
}

type HistoryRequest struct {
	GuestPathInput
	Diff bool `query:"diff" doc:"Only report fields changed since the previous snapshot"`
}

type HistoryOutput struct {
	Body struct {
		Entries []rsvp.HistoryEntry `json:"entries"`
	}
}

func (h *OrganizerHandler) HandleHistory(ctx context.Context, input *HistoryRequest) (*HistoryOutput, error) {
	if _, err := h.guests.Get(ctx, input.EventID, input.GuestID); err != nil {
		return nil, problem(h.logger, "guest history", err)
	}

	entries, err := h.rsvp.History(ctx, input.GuestID, input.Diff)
	if err != nil {
		return nil, problem(h.logger, "guest history", err)
	}

	out := &HistoryOutput{}
	out.Body.Entries = entries
	return out, nil
}

type IssueTokenRequest struct {
	GuestPathInput
	Body *struct {
		Send bool `json:"send,omitempty" doc:"Deliver the new RSVP link to the guest"`
	} `required:"false"`
}

type DeliveryView struct {
	Provider  string         `json:"provider"`
	Channel   models.Channel `json:"channel"`
	Recipient string         `json:"recipient"`
}

type IssueTokenOutput struct {
	Body struct {
		Token         string        `json:"token"`
		RSVPURL       string        `json:"rsvp_url"`
		Delivery      *DeliveryView `json:"delivery,omitempty"`
		DeliveryError string        `json:"delivery_error,omitempty"`
	}
}

// HandleIssueToken re-issues the guest's token. The previous link stops
// working immediately.
func (h *OrganizerHandler) HandleIssueToken(ctx context.Context, input *IssueTokenRequest) (*IssueTokenOutput, error) {
	if _, err := h.guests.Get(ctx, input.EventID, input.GuestID); err != nil {
		return nil, problem(h.logger, "issue token", err)
	}

	tok, err := h.tokens.Issue(ctx, input.GuestID)
	if err != nil {
		return nil, problem(h.logger, "issue token", err)
	}

	out := &IssueTokenOutput{}
	out.Body.Token = tok
	out.Body.RSVPURL = h.rsvpLink(tok)

	if input.Body != nil && input.Body.Send {
		delivery, err := h.sendInvitation(ctx, tok, out.Body.RSVPURL)
		if err != nil {
			h.logger.WithFields(logging.Fields{
				"guest_id": input.GuestID,
				"error":    err.Error(),
			}).Warn("Invitation not delivered")
			out.Body.DeliveryError = deliveryErrorMessage(err)
		} else {
			out.Body.Delivery = delivery
		}
	}
	return out, nil
}

func (h *OrganizerHandler) sendInvitation(ctx context.Context, tok, link string) (*DeliveryView, error) {
	if h.sender == nil {
		return nil, messaging.ErrNoProvider
	}

	inv, err := h.tokens.Verify(ctx, tok)
	if err != nil {
		return nil, err
	}

	result, err := h.sender.Send(ctx, messaging.InvitationMessage(inv.Guest, inv.Event, link))
	if err != nil {
		return nil, err
	}
	return &DeliveryView{Provider: result.Provider, Channel: result.Channel, Recipient: result.Recipient}, nil
}

func (h *OrganizerHandler) HandleInvalidateToken(ctx context.Context, input *GuestPathInput) (*struct{}, error) {
	if _, err := h.guests.Get(ctx, input.EventID, input.GuestID); err != nil {
		return nil, problem(h.logger, "invalidate token", err)
	}
	if err := h.tokens.Invalidate(ctx, input.GuestID); err != nil {
		return nil, problem(h.logger, "invalidate token", err)
	}
	return nil, nil
}

func (h *OrganizerHandler) HandleDeleteGuest(ctx context.Context, input *GuestPathInput) (*struct{}, error) {
	if err := h.guests.Delete(ctx, input.EventID, input.GuestID); err != nil {
		return nil, problem(h.logger, "delete guest", err)
	}
	return nil, nil
}

type LogCommunicationRequest struct {
	Body struct {
		EventID      uint       `json:"event_id"`
		GuestID      *uint      `json:"guest_id,omitempty"`
		Channel      string     `json:"channel" doc:"email, whatsapp, sms or other"`
		Recipient    string     `json:"recipient"`
		Content      string     `json:"content,omitempty"`
		Status       string     `json:"status" doc:"pending, sent or failed"`
		ErrorMessage *string    `json:"error_message,omitempty"`
		SentAt       *time.Time `json:"sent_at,omitempty"`
	}
}

type CommunicationOutput struct {
	Body CommunicationView
}

func (h *OrganizerHandler) HandleLogCommunication(ctx context.Context, input *LogCommunicationRequest) (*CommunicationOutput, error) {
	body := input.Body
	entry, err := h.comms.LogCommunication(ctx, comms.Entry{
		EventID:      body.EventID,
		GuestID:      body.GuestID,
		Channel:      models.Channel(body.Channel),
		Recipient:    body.Recipient,
		Content:      body.Content,
		Status:       models.DeliveryStatus(body.Status),
		ErrorMessage: body.ErrorMessage,
		SentAt:       body.SentAt,
	})
	if err != nil {
		return nil, problem(h.logger, "log communication", err)
	}
	return &CommunicationOutput{Body: communicationView(*entry)}, nil
}
