package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrWebhookNotConfigured is returned when a webhook URL is empty.
var ErrWebhookNotConfigured = errors.New("webhook url not configured")

// WebhookClient calls the automation endpoints that sit beside the backend.
type WebhookClient struct {
	ticketCreateURL string
	reporteeURL     string
	timeout         time.Duration
	logger          *zap.Logger
}

// NewWebhookClient constructs a webhook client.
func NewWebhookClient(ticketCreateURL, reporteeURL string, timeout time.Duration, logger *zap.Logger) *WebhookClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookClient{
		ticketCreateURL: ticketCreateURL,
		reporteeURL:     reporteeURL,
		timeout:         timeout,
		logger:          logger,
	}
}

// CreateTicket posts the normalised ticket to the creation webhook and
// returns its raw answer.
func (w *WebhookClient) CreateTicket(ctx context.Context, payload CreateTicketPayload) (json.RawMessage, error) {
	return w.post(ctx, request{
		op:     "webhook_create_ticket",
		method: fiber.MethodPost,
		url:    w.ticketCreateURL,
		json:   payload,
	})
}

// Reportee asks the reportee webhook for tickets of email's subordinates.
func (w *WebhookClient) Reportee(ctx context.Context, email string) (json.RawMessage, error) {
	return w.post(ctx, request{
		op:        "webhook_reportee",
		method:    fiber.MethodPost,
		url:       w.reporteeURL,
		multipart: map[string]string{"email": email},
	})
}

func (w *WebhookClient) post(ctx context.Context, req request) (json.RawMessage, error) {
	if req.url == "" {
		return nil, &TransportError{Op: req.op, Err: ErrWebhookNotConfigured}
	}
	res, err := send(ctx, w.timeout, req)
	if err != nil {
		w.logger.Warn("webhook call failed", zap.String("op", req.op), zap.Error(err))
		return nil, err
	}
	if !res.ok() {
		return nil, res.fetchError(req.op)
	}
	if !json.Valid(res.body) {
		return nil, &DecodeError{Op: req.op, Err: fmt.Errorf("non-JSON body")}
	}
	return json.RawMessage(res.body), nil
}
