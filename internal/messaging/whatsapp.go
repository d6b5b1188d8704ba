package messaging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
)

type whatsAppClient interface {
	IsOnWhatsApp(ctx context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error)
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
}

// WhatsAppProvider sends through an already paired whatsmeow device. Pairing
// happens out of band; an unpaired store leaves the provider unconfigured.
type WhatsAppProvider struct {
	client     whatsAppClient
	disconnect func()
	configured bool
	log        zerolog.Logger
}

func NewWhatsAppProvider(ctx context.Context, dataDir string) (*WhatsAppProvider, error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "WhatsApp").Logger()

	if dataDir == "" {
		return &WhatsAppProvider{log: logger}, nil
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("whatsapp data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(dataDir, "whatsmeow.db"))
	container, err := sqlstore.New(ctx, "sqlite3", dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, nil)
	p := &WhatsAppProvider{
		client:     client,
		disconnect: client.Disconnect,
		log:        logger,
	}

	if client.Store.ID == nil {
		logger.Warn().Msg("No paired WhatsApp device, provider disabled")
		return p, nil
	}
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	p.configured = true
	return p, nil
}

func (p *WhatsAppProvider) Name() string            { return "whatsapp" }
func (p *WhatsAppProvider) Channel() models.Channel { return models.ChannelWhatsApp }
func (p *WhatsAppProvider) IsConfigured() bool      { return p.configured && p.client != nil }

func (p *WhatsAppProvider) Recipient(msg Message) string {
	return strings.TrimPrefix(models.NormalizePhone(msg.Phone), "+")
}

func (p *WhatsAppProvider) Send(ctx context.Context, msg Message) error {
	phone := p.Recipient(msg)
	if phone == "" {
		return fmt.Errorf("guest has no phone number")
	}

	// The JID returned by the lookup is the one WhatsApp routes on.
	resp, err := p.client.IsOnWhatsApp(ctx, []string{"+" + phone})
	if err != nil {
		return fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("number %s is not registered on WhatsApp", phone)
	}
	jid := resp[0].JID

	text := msg.Body
	p.log.Debug().Str("jid", jid.String()).Uint("guest_id", msg.GuestID).Msg("Sending message")

	sent, err := p.client.SendMessage(ctx, jid, &waE2E.Message{Conversation: &text})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.log.Info().Str("message_id", string(sent.ID)).Uint("guest_id", msg.GuestID).Msg("Message sent")
	return nil
}

func (p *WhatsAppProvider) Close() {
	if p.disconnect != nil {
		p.disconnect()
	}
}
