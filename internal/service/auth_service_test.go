package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/spec-kit/ticket-relay/internal/backend"
	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/events"
	apperrors "github.com/spec-kit/ticket-relay/pkg/util/errorutil"
)

func TestClassifyLogin(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        string
		code        string
	}{
		{"html page", "text/html; charset=utf-8", `<html></html>`, ""},
		{"logged in", "application/json", `{"message":"Logged In"}`, ""},
		{"sid", "application/json", `{"message":"whatever","sid":"abc"}`, ""},
		{"full name", "application/json", `{"message":"No App","full_name":"Alice"}`, ""},
		{"no message", "application/json", `{"home_page":"/app"}`, ""},
		{"empty body", "application/json", ``, ""},
		{"otp", "application/json", `{"message":"Enter the OTP sent to you"}`, "TWO_FACTOR_REQUIRED"},
		{"other message", "application/json", `{"message":"Invalid login credentials"}`, "LOGIN_FAILED"},
		{"server messages", "application/json", `{"_server_messages":"[\"{\\\"message\\\": \\\"Account locked\\\"}\"]"}`, "LOGIN_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body json.RawMessage
			if tc.body != "" {
				body = json.RawMessage(tc.body)
			}
			err := classifyLogin(&backend.LoginResult{Status: 200, ContentType: tc.contentType, Body: body})
			if tc.code == "" {
				if err != nil {
					t.Fatalf("classifyLogin = %v, want success", err)
				}
				return
			}
			var de *apperrors.DomainError
			if !errors.As(err, &de) || de.Code != tc.code || de.HTTPStatus != http.StatusUnauthorized {
				t.Fatalf("classifyLogin = %v, want %s", err, tc.code)
			}
		})
	}
}

func TestServerMessageDecoding(t *testing.T) {
	if got := serverMessage(`["{\"message\": \"Account locked\"}"]`); got != "Account locked" {
		t.Fatalf("serverMessage = %q", got)
	}
	if got := serverMessage(`["plain text"]`); got != "plain text" {
		t.Fatalf("serverMessage = %q", got)
	}
	if got := serverMessage(42.0); got != "" {
		t.Fatalf("serverMessage = %q", got)
	}
}

func TestLoginOutcomes(t *testing.T) {
	ctx := context.Background()

	fake := &fakeBackend{loginResult: &backend.LoginResult{
		Status: 200, ContentType: "application/json",
		Body: json.RawMessage(`{"message":"Logged In"}`), SID: "abc",
	}}
	dispatcher := events.NewInMemoryDispatcher()
	var opened []events.Event
	dispatcher.Subscribe(events.EventSessionOpened, func(_ context.Context, e events.Event) error {
		opened = append(opened, e)
		return nil
	})
	svc := NewAuthService(AuthDependencies{API: fake, Dispatcher: dispatcher})

	outcome, err := svc.Login(ctx, LoginInput{User: " alice ", Password: "pw", Remember: true})
	if err != nil || !outcome.Succeeded() || outcome.Status != 200 {
		t.Fatalf("Login = %+v, %v", outcome, err)
	}
	if len(opened) != 1 || opened[0].Actor != "alice" {
		t.Fatalf("session_opened events = %+v", opened)
	}

	fake.loginResult = &backend.LoginResult{Status: 401, Body: json.RawMessage(`{"message":"Invalid login credentials"}`)}
	outcome, err = svc.Login(ctx, LoginInput{User: "alice", Password: "bad"})
	if err != nil || outcome.Succeeded() || outcome.Status != 401 || string(outcome.Body) != `{"message":"Invalid login credentials"}` {
		t.Fatalf("forwarded failure = %+v, %v", outcome, err)
	}

	fake.loginResult = &backend.LoginResult{Status: 500, Body: json.RawMessage(`"oops"`)}
	outcome, err = svc.Login(ctx, LoginInput{User: "alice", Password: "bad"})
	if err != nil || outcome.Status != 500 || string(outcome.Body) != `{"error":"Login failed"}` {
		t.Fatalf("opaque failure = %+v, %v", outcome, err)
	}

	_, err = svc.Login(ctx, LoginInput{User: "alice"})
	var de *apperrors.DomainError
	if !errors.As(err, &de) || de.Code != "VALIDATION_FAILED" {
		t.Fatalf("missing password err = %v", err)
	}
}

func TestCheckAndIdentity(t *testing.T) {
	ctx := context.Background()
	fake := &fakeBackend{loggedErr: &backend.FetchError{Op: "get_logged_user", Status: 403}}
	svc := NewAuthService(AuthDependencies{API: fake})

	if got := svc.Check(ctx, "sid=abc"); got != domain.GuestUser {
		t.Fatalf("Check on failure = %q, want Guest", got)
	}
	if _, err := svc.Identity(ctx, ""); err == nil {
		t.Fatalf("Identity without credential should fail")
	}

	fake.loggedErr = nil
	fake.loggedUser = domain.GuestUser
	if _, err := svc.Identity(ctx, "sid=abc"); err == nil {
		t.Fatalf("Identity for Guest should fail")
	}

	fake.loggedUser = "alice"
	if got := svc.Check(ctx, "sid=abc"); got != "alice" {
		t.Fatalf("Check = %q", got)
	}
	if user, err := svc.Identity(ctx, "sid=abc"); err != nil || user != "alice" {
		t.Fatalf("Identity = %q, %v", user, err)
	}
}

func TestLogout(t *testing.T) {
	fake := &fakeBackend{}
	svc := NewAuthService(AuthDependencies{API: fake})

	body, err := svc.Logout(context.Background(), "sid=abc")
	if err != nil || string(body) != `{}` {
		t.Fatalf("Logout = %s, %v", body, err)
	}

	fake.logoutErr = &backend.TransportError{Op: "logout", Err: errors.New("refused")}
	_, err = svc.Logout(context.Background(), "sid=abc")
	var de *apperrors.DomainError
	if !errors.As(err, &de) || de.Code != "LOGOUT_FAILED" || de.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("Logout transport failure = %v", err)
	}
}

func TestReporteeTickets(t *testing.T) {
	fake := &fakeBackend{
		loggedUser:   "carol",
		reporteeResp: json.RawMessage(`{"data":[{"name":"t1"},{"name":"t2"}]}`),
	}
	svc := NewAuthService(AuthDependencies{API: fake, Webhooks: fake})

	tickets, err := svc.ReporteeTickets(context.Background(), "sid=abc", "")
	if err != nil || len(tickets) != 2 {
		t.Fatalf("ReporteeTickets = %+v, %v", tickets, err)
	}
	if fake.reporteeFor != "carol" {
		t.Fatalf("reportee lookup for %q, want carol", fake.reporteeFor)
	}

	if _, err := svc.ReporteeTickets(context.Background(), "sid=abc", "dave"); err != nil {
		t.Fatalf("ReporteeTickets with body email: %v", err)
	}
	if fake.reporteeFor != "carol" {
		t.Fatalf("body email overrode the session user: lookup for %q", fake.reporteeFor)
	}

	fake.loggedErr = &backend.FetchError{Op: "get_logged_user", Status: 500}
	_, err = svc.ReporteeTickets(context.Background(), "sid=abc", "")
	var de *apperrors.DomainError
	if !errors.As(err, &de) || de.Code != "UNAUTHORIZED" {
		t.Fatalf("identity failure err = %v", err)
	}
}
