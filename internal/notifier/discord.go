package notifier

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
)

// Notifier tells the organizers about submitted RSVPs.
type Notifier interface {
	NotifyStage1(guest models.Guest, requiresStage2 bool) error
	NotifyStage2(guest models.Guest) error
}

type channelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type DiscordNotifier struct {
	session   channelSender
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

// NewDiscordNotifierFromToken opens a bot session. An empty token or channel
// returns an error so the caller can run without notifications.
func NewDiscordNotifierFromToken(botToken, channelID string) (*DiscordNotifier, error) {
	if botToken == "" || channelID == "" {
		return nil, fmt.Errorf("discord bot token or channel ID not configured")
	}
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return NewDiscordNotifier(session, channelID), nil
}

func (n *DiscordNotifier) NotifyStage1(guest models.Guest, requiresStage2 bool) error {
	return n.send(Stage1Message(guest, requiresStage2))
}

func (n *DiscordNotifier) NotifyStage2(guest models.Guest) error {
	return n.send(Stage2Message(guest))
}

func (n *DiscordNotifier) send(message string) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.session.ChannelMessageSend(n.channelID, message)
	return err
}

func Stage1Message(guest models.Guest, requiresStage2 bool) string {
	status := "confirmed 🎉"
	if guest.RSVPStatus == models.RSVPDeclined {
		status = "declined 😢"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💌 **RSVP**\n**Guest:** %s\n**Status:** %s", guest.FullName(), status)
	if guest.PlusOneConfirmed {
		name := "unnamed"
		if guest.PlusOneName != nil && *guest.PlusOneName != "" {
			name = *guest.PlusOneName
		}
		fmt.Fprintf(&b, "\n**Plus-one:** %s", name)
	}
	if guest.DietaryRestrictions != nil && *guest.DietaryRestrictions != "" {
		fmt.Fprintf(&b, "\n**Diet:** %s", *guest.DietaryRestrictions)
	}
	if guest.RSVPMessage != nil && *guest.RSVPMessage != "" {
		fmt.Fprintf(&b, "\n**Message:** %s", *guest.RSVPMessage)
	}
	if requiresStage2 {
		b.WriteString("\n_Travel details pending._")
	}
	return b.String()
}

func Stage2Message(guest models.Guest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧳 **Travel details**\n**Guest:** %s", guest.FullName())
	if guest.ArrivalDate != nil && guest.DepartureDate != nil {
		fmt.Fprintf(&b, "\n**Dates:** %s - %s", guest.ArrivalDate.Format("2006-01-02"), guest.DepartureDate.Format("2006-01-02"))
	}
	if guest.NeedsAccommodation != nil && *guest.NeedsAccommodation {
		pref := "no preference"
		if guest.AccommodationPreference != nil && *guest.AccommodationPreference != "" {
			pref = *guest.AccommodationPreference
		}
		fmt.Fprintf(&b, "\n**Accommodation:** %s", pref)
	}
	if guest.NeedsFlightAssistance != nil && *guest.NeedsFlightAssistance {
		b.WriteString("\n**Needs flight assistance**")
	}
	if n := len(guest.ChildrenDetails); n > 0 {
		fmt.Fprintf(&b, "\n**Children:** %d", n)
	}
	return b.String()
}
