// Copyright 2024-2026 Aiku AI

// Package telegram binds the relay engine to the Telegram Bot API: it turns
// long-poll updates into relay events, implements the outbound send
// capability, and hosts the small command surface (/start, /id, /stats).
// Everything here is transport glue; routing logic lives in pkg/relay.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/muhammadtakdir/tg-anonimous-bot/pkg/relay"
)

// Notices sent back to users and operators.
const (
	noticeForwarded     = "📬 Your message has been forwarded to the operators."
	noticeNoOperator    = "⚠️ No operator is available right now. Please try again later."
	noticeUnsupported   = "❌ Unsupported message type. Please send text, a photo, or a document."
	noticeGenericFail   = "⚠️ Something went wrong while processing your message."
	noticeReplySent     = "✅ Reply delivered to the user."
	noticeReplyNotFound = "❌ Original message not found. It may have expired or the service restarted."
	noticeReplyFail     = "⚠️ Failed to deliver the reply."
	greetingOperator    = "You are an operator on this relay. Reply to a forwarded message to answer the user."
	greetingUser        = "👋 Hi! Send your message here and it will be forwarded to the operators."
)

// Client is a long-polling Telegram Bot API client. It implements
// relay.Transport for outbound sends and feeds inbound updates to the
// attached relay engine.
type Client struct {
	api   *tgbotapi.BotAPI
	cfg   *relay.Config
	relay *relay.Relay

	stopOnce sync.Once
	stopChan chan struct{}
	log      zerolog.Logger
}

var _ relay.Transport = (*Client)(nil)

// NewClient authenticates against the Bot API. The relay engine is attached
// separately because the engine itself needs the client as its transport.
func NewClient(cfg *relay.Config, log zerolog.Logger) (*Client, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate bot: %w", err)
	}

	c := &Client{
		api:      api,
		cfg:      cfg,
		stopChan: make(chan struct{}),
		log:      log.With().Str("component", "telegram").Logger(),
	}
	c.log.Info().Str("username", api.Self.UserName).Msg("Authenticated with Telegram")
	return c, nil
}

// AttachRelay wires the relay engine that inbound updates are fed to.
func (c *Client) AttachRelay(r *relay.Relay) {
	c.relay = r
}

// Send implements relay.Transport. A non-zero replyTo tags the send as a
// reply; allow_sending_without_reply makes Telegram fall back to a plain
// send when the replied-to message no longer exists.
func (c *Client) Send(_ context.Context, destination int64, p relay.Payload, replyTo int) (int, error) {
	var chattable tgbotapi.Chattable

	switch p.Kind {
	case relay.KindText:
		msg := tgbotapi.NewMessage(destination, p.Text)
		msg.ReplyToMessageID = replyTo
		msg.AllowSendingWithoutReply = true
		chattable = msg
	case relay.KindPhoto:
		msg := tgbotapi.NewPhoto(destination, tgbotapi.FileID(p.AttachmentRef))
		msg.Caption = p.Text
		msg.ReplyToMessageID = replyTo
		msg.AllowSendingWithoutReply = true
		chattable = msg
	case relay.KindDocument:
		msg := tgbotapi.NewDocument(destination, tgbotapi.FileID(p.AttachmentRef))
		msg.Caption = p.Text
		msg.ReplyToMessageID = replyTo
		msg.AllowSendingWithoutReply = true
		chattable = msg
	default:
		return 0, fmt.Errorf("cannot send payload kind %q", p.Kind)
	}

	sent, err := c.api.Send(chattable)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// Run polls for updates until the context is cancelled. Each update is
// relayed on its own goroutine; ordering across updates is not needed
// because all routing state lives in the store.
func (c *Client) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.cfg.PollTimeout
	updates := c.api.GetUpdatesChan(u)

	c.log.Info().Int("poll_timeout", c.cfg.PollTimeout).Msg("Polling for updates")

	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return ctx.Err()
		case <-c.stopChan:
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			go c.handleUpdate(ctx, upd)
		}
	}
}

// Stop halts update polling. Safe to call more than once.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		c.api.StopReceivingUpdates()
		close(c.stopChan)
	})
}

// handleUpdate processes one update: commands first, then reply routing for
// operators, fan-out for everyone else. All failures are converted into a
// notice for the sender; nothing here is allowed to take the process down.
func (c *Client) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	// Echo prevention: never relay messages from bots, including our own.
	if msg.From != nil && msg.From.IsBot {
		return
	}

	chatID := msg.Chat.ID
	log := c.log.With().
		Int64("chat_id", chatID).
		Int("message_id", msg.MessageID).
		Logger()

	if msg.IsCommand() {
		c.handleCommand(ctx, msg)
		return
	}

	if c.cfg.IsOperator(chatID) {
		c.handleOperatorMessage(ctx, msg, log)
		return
	}
	c.handleUserMessage(ctx, msg, log)
}

func (c *Client) handleOperatorMessage(ctx context.Context, msg *tgbotapi.Message, log zerolog.Logger) {
	inbound := c.parseMessage(msg)
	if inbound.ReplyTo == 0 {
		// Not a reply to a forwarded copy; outside the relay's scope.
		log.Debug().Msg("Ignoring operator message without reply")
		return
	}

	_, err := c.relay.RelayReply(ctx, msg.Chat.ID, inbound)
	switch {
	case err == nil:
		c.sendNotice(msg.Chat.ID, noticeReplySent)
	case isNotFound(err):
		c.sendNotice(msg.Chat.ID, noticeReplyNotFound)
	case isUnsupported(err):
		c.sendNotice(msg.Chat.ID, noticeUnsupported)
	default:
		log.Error().Err(err).Msg("Failed to relay reply")
		c.sendNotice(msg.Chat.ID, noticeReplyFail)
	}
}

func (c *Client) handleUserMessage(ctx context.Context, msg *tgbotapi.Message, log zerolog.Logger) {
	inbound := c.parseMessage(msg)

	_, err := c.relay.RelayInbound(ctx, inbound)
	switch {
	case err == nil:
		c.sendNotice(msg.Chat.ID, noticeForwarded)
	case isUnsupported(err):
		c.sendNotice(msg.Chat.ID, noticeUnsupported)
	case isNoOperator(err):
		c.sendNotice(msg.Chat.ID, noticeNoOperator)
	default:
		log.Error().Err(err).Msg("Failed to relay inbound message")
		c.sendNotice(msg.Chat.ID, noticeGenericFail)
	}
}

func (c *Client) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		if c.cfg.IsOperator(chatID) {
			c.sendNotice(chatID, greetingOperator)
		} else {
			c.sendNotice(chatID, greetingUser)
		}
	case "id":
		c.sendNotice(chatID, "Your chat ID: "+relay.FormatChatID(chatID))
	case "stats":
		// Introspection is operator-only; anyone else gets silence.
		if !c.cfg.IsOperator(chatID) {
			c.log.Debug().Int64("chat_id", chatID).Msg("Ignoring stats command from non-operator")
			return
		}
		sum, err := c.relay.Summary(ctx)
		if err != nil {
			c.log.Error().Err(err).Msg("Failed to build summary")
			c.sendNotice(chatID, noticeGenericFail)
			return
		}
		c.sendNotice(chatID, relay.FormatSummary(sum))
	default:
		c.log.Debug().Str("command", msg.Command()).Msg("Unknown command")
	}
}

// parseMessage converts a Telegram message into a transport-neutral inbound
// event. Unrecognized payloads keep an empty kind, which the relay rejects
// as unsupported content.
func (c *Client) parseMessage(msg *tgbotapi.Message) *relay.InboundMessage {
	inbound := &relay.InboundMessage{
		SenderID:   msg.Chat.ID,
		SenderName: displayName(msg.From),
		MessageID:  msg.MessageID,
	}
	if msg.ReplyToMessage != nil {
		inbound.ReplyTo = msg.ReplyToMessage.MessageID
	}

	switch {
	case msg.Text != "":
		inbound.Payload = relay.Payload{Kind: relay.KindText, Text: msg.Text}
	case len(msg.Photo) > 0:
		// Telegram sends every resolution; the last entry is the largest.
		inbound.Payload = relay.Payload{
			Kind:          relay.KindPhoto,
			Text:          msg.Caption,
			AttachmentRef: msg.Photo[len(msg.Photo)-1].FileID,
		}
	case msg.Document != nil:
		inbound.Payload = relay.Payload{
			Kind:          relay.KindDocument,
			Text:          msg.Caption,
			AttachmentRef: msg.Document.FileID,
		}
	}
	return inbound
}

func (c *Client) sendNotice(chatID int64, text string) {
	if _, err := c.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		c.log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send notice")
	}
}

// displayName builds a human-readable sender name for the forwarded header.
func displayName(user *tgbotapi.User) string {
	if user == nil {
		return "unknown"
	}
	name := strings.TrimSpace(strings.TrimSpace(user.FirstName) + " " + strings.TrimSpace(user.LastName))
	if name == "" {
		name = user.UserName
	}
	if name == "" {
		name = relay.FormatChatID(user.ID)
	}
	return name
}

func isNotFound(err error) bool {
	return errors.Is(err, relay.ErrNotFound)
}

func isUnsupported(err error) bool {
	return errors.Is(err, relay.ErrUnsupportedContent)
}

func isNoOperator(err error) bool {
	return errors.Is(err, relay.ErrNoOperatorAvailable)
}
