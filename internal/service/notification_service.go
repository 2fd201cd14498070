package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-relay/internal/config"
	"github.com/spec-kit/ticket-relay/internal/events"
)

// TelegramSender is the part of the Telegram bot API used for notices.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NotificationService delivers ticket events to the log, an optional
// outbound webhook and an optional Telegram chat.
type NotificationService struct {
	logger   *zap.Logger
	cfg      config.NotificationConfig
	telegram TelegramSender
	timeout  time.Duration
}

// NewNotificationService creates the service. telegram may be nil.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig, telegram TelegramSender) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		logger:   logger,
		cfg:      cfg,
		telegram: telegram,
		timeout:  10 * time.Second,
	}
}

// Deliver sends event to every configured channel. Channel failures are
// joined; one failing channel does not stop the others.
func (n *NotificationService) Deliver(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("ticket", event.TicketID),
		zap.String("actor", event.Actor),
		zap.Any("payload", event.Payload))

	var errs []error
	if err := n.sendWebhook(ctx, event); err != nil {
		errs = append(errs, err)
	}
	if err := n.sendTelegram(event); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) error {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return nil
	}
	timeout := n.timeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return fmt.Errorf("notification webhook: %w", context.DeadlineExceeded)
	}
	agent := fiber.Post(url).JSON(event).Timeout(timeout)
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("notification webhook: %w", errs[0])
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("notification webhook: status %d: %.200s", status, body)
	}
	n.logger.Debug("notification webhook delivered", zap.String("event_id", event.ID), zap.Int("status", status))
	return nil
}

func (n *NotificationService) sendTelegram(event events.Event) error {
	if n.telegram == nil || n.cfg.TelegramChatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(n.cfg.TelegramChatID, Describe(event))
	msg.DisableWebPagePreview = true
	if _, err := n.telegram.Send(msg); err != nil {
		return fmt.Errorf("telegram notification: %w", err)
	}
	return nil
}

// Describe renders a one-line human summary of event.
func Describe(event events.Event) string {
	switch payload := event.Payload.(type) {
	case events.TicketCreatedPayload:
		text := fmt.Sprintf("New ticket %s from %s: %s", orUnknown(event.TicketID), event.Actor, payload.Issue)
		if payload.AssignedTo != "" {
			text += " (assigned to " + payload.AssignedTo + ")"
		}
		return text
	case events.TicketUpdatedPayload:
		if payload.Status != "" {
			return fmt.Sprintf("Ticket %s moved to %s", event.TicketID, payload.Status)
		}
		return fmt.Sprintf("Ticket %s updated: %s", event.TicketID, strings.Join(payload.Fields, ", "))
	case events.TicketAcceptedPayload:
		return fmt.Sprintf("Ticket %s accepted by %s at level %s", event.TicketID, event.Actor, payload.Level)
	}
	switch event.Type {
	case events.EventSessionOpened:
		return fmt.Sprintf("%s signed in", event.Actor)
	case events.EventSessionClosed:
		return "A session was closed"
	}
	return string(event.Type)
}

func orUnknown(value string) string {
	if value == "" {
		return "(unnamed)"
	}
	return value
}
