package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/spec-kit/ticket-relay/internal/config"
	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/events"
)

type recordingTelegram struct {
	texts []string
}

func (r *recordingTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		r.texts = append(r.texts, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

func TestDeliverToWebhookAndTelegram(t *testing.T) {
	var received events.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	telegram := &recordingTelegram{}
	svc := NewNotificationService(nil, config.NotificationConfig{WebhookURL: srv.URL, TelegramChatID: 42}, telegram)

	event := events.New(events.EventTicketCreated, "REQ-1", "alice", events.TicketCreatedPayload{Issue: "VPN drops", AssignedTo: "bob"})
	if err := svc.Deliver(context.Background(), event); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if received.ID != event.ID || received.Type != events.EventTicketCreated {
		t.Fatalf("webhook received %+v", received)
	}
	if len(telegram.texts) != 1 || telegram.texts[0] != "New ticket REQ-1 from alice: VPN drops (assigned to bob)" {
		t.Fatalf("telegram texts = %v", telegram.texts)
	}
}

func TestDeliverReportsWebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewNotificationService(nil, config.NotificationConfig{WebhookURL: srv.URL}, nil)
	err := svc.Deliver(context.Background(), events.New(events.EventSessionClosed, "", "", nil))
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("err = %v, want status 500", err)
	}
}

func TestDescribe(t *testing.T) {
	cases := map[string]events.Event{
		"Ticket REQ-2 moved to Completed": events.New(events.EventTicketUpdated, "REQ-2", "bob",
			events.TicketUpdatedPayload{Fields: []string{"status"}, Status: domain.TicketStatusCompleted}),
		"Ticket REQ-2 updated: notes": events.New(events.EventTicketUpdated, "REQ-2", "bob", events.TicketUpdatedPayload{Fields: []string{"notes"}}),
		"alice signed in":             events.New(events.EventSessionOpened, "", "alice", events.SessionPayload{}),
	}
	for want, event := range cases {
		if got := Describe(event); got != want {
			t.Errorf("Describe = %q, want %q", got, want)
		}
	}
}
