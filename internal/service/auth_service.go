package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-relay/internal/backend"
	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/events"
	"github.com/spec-kit/ticket-relay/internal/session"
	apperrors "github.com/spec-kit/ticket-relay/pkg/util/errorutil"
)

// AuthService coordinates identity checks, login and logout against the
// ticketing backend.
type AuthService struct {
	api        backend.API
	webhooks   backend.Webhooks
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	API        backend.API
	Webhooks   backend.Webhooks
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		api:        deps.API,
		webhooks:   deps.Webhooks,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Check returns the logged-in identity, or Guest. It never fails: Guest is
// the anonymous identity, not an error.
func (s *AuthService) Check(ctx context.Context, cred session.Credential) string {
	user, err := s.api.LoggedUser(ctx, cred)
	if err != nil {
		s.logger.Debug("identity check degraded to guest", zap.Error(err))
		return domain.GuestUser
	}
	if strings.TrimSpace(user) == "" {
		return domain.GuestUser
	}
	return user
}

// Identity resolves the logged-in user for operations that need one.
// Guest and upstream failures are reported as errors.
func (s *AuthService) Identity(ctx context.Context, cred session.Credential) (string, error) {
	if cred.Empty() {
		return "", apperrors.NewUnauthorized("login required")
	}
	user, err := s.api.LoggedUser(ctx, cred)
	if err != nil {
		return "", err
	}
	if user == "" || user == domain.GuestUser {
		return "", apperrors.NewUnauthorized("login required")
	}
	return user, nil
}

// LoginInput is the form submitted by the browser.
type LoginInput struct {
	User     string
	Password string
	Remember bool
}

// LoginOutcome is what the browser receives. SID is set only on success.
type LoginOutcome struct {
	Status int
	Body   json.RawMessage
	SID    string
}

// Succeeded reports whether a session was established.
func (o *LoginOutcome) Succeeded() bool {
	return o != nil && o.SID != ""
}

var loginFailedBody = json.RawMessage(`{"error":"Login failed"}`)

// Login posts the credentials upstream and classifies the answer.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginOutcome, error) {
	in.User = strings.TrimSpace(in.User)
	if in.User == "" || in.Password == "" {
		return nil, apperrors.NewValidationError("usr and pwd are required", nil)
	}

	res, err := s.api.Login(ctx, backend.LoginForm{User: in.User, Password: in.Password})
	if err != nil {
		return nil, err
	}

	if res.Status < 200 || res.Status >= 300 {
		if !usablePayload(res.Body) {
			status := res.Status
			if status == 0 {
				status = http.StatusUnauthorized
			}
			return &LoginOutcome{Status: status, Body: loginFailedBody}, nil
		}
		return &LoginOutcome{Status: res.Status, Body: res.Body}, nil
	}

	if err := classifyLogin(res); err != nil {
		s.logger.Info("login rejected", zap.String("user", in.User), zap.Error(err))
		return nil, err
	}

	body := res.Body
	if body == nil {
		body = json.RawMessage(`{"message":"Logged In"}`)
	}
	outcome := &LoginOutcome{Status: res.Status, Body: body, SID: res.SID}
	if outcome.SID == "" {
		s.logger.Warn("login succeeded without a session identifier", zap.String("user", in.User))
	}
	s.publish(ctx, events.New(events.EventSessionOpened, "", in.User, events.SessionPayload{Remember: in.Remember}))
	return outcome, nil
}

// classifyLogin walks the success ladder for an OK login answer.
func classifyLogin(res *backend.LoginResult) error {
	if strings.Contains(strings.ToLower(res.ContentType), "text/html") {
		return nil
	}
	var payload map[string]any
	if len(res.Body) == 0 || json.Unmarshal(res.Body, &payload) != nil {
		return nil
	}
	message, hasMessage := payload["message"]
	if text, ok := message.(string); ok && text == "Logged In" {
		return nil
	}
	if sid, ok := payload["sid"].(string); ok && sid != "" {
		return nil
	}
	if name, ok := payload["full_name"].(string); ok && name != "" {
		return nil
	}
	if !hasMessage || message == nil {
		if text := serverMessage(payload["_server_messages"]); text != "" {
			return loginFailed(text)
		}
		return nil
	}
	text, ok := message.(string)
	if !ok {
		raw, _ := json.Marshal(message)
		text = string(raw)
	}
	if strings.Contains(strings.ToLower(text), "otp") {
		return apperrors.NewDomainError("TWO_FACTOR_REQUIRED", text, http.StatusUnauthorized, nil)
	}
	return loginFailed(text)
}

func loginFailed(message string) error {
	return apperrors.NewDomainError("LOGIN_FAILED", message, http.StatusUnauthorized, nil)
}

// serverMessage decodes the backend's doubly encoded _server_messages
// field and returns the first message text.
func serverMessage(raw any) string {
	encoded, ok := raw.(string)
	if !ok || encoded == "" {
		return ""
	}
	var messages []string
	if err := json.Unmarshal([]byte(encoded), &messages); err != nil || len(messages) == 0 {
		return ""
	}
	first := messages[0]
	var inner struct {
		Message string `json:"message"`
	}
	if json.Unmarshal([]byte(first), &inner) == nil && inner.Message != "" {
		return inner.Message
	}
	return first
}

func usablePayload(body json.RawMessage) bool {
	if len(body) == 0 {
		return false
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return false
	}
	_, isObject := doc.(map[string]any)
	return isObject
}

// Logout ends the backend session. Non-OK answers are still reported as a
// successful logout; a transport failure is returned to the caller.
func (s *AuthService) Logout(ctx context.Context, cred session.Credential) (json.RawMessage, error) {
	res, err := s.api.Logout(ctx, cred)
	if err != nil {
		return nil, apperrors.NewDomainError("LOGOUT_FAILED", "logout failed", http.StatusInternalServerError, nil)
	}
	if res.Status < 200 || res.Status >= 300 {
		s.logger.Info("backend logout answered non-OK", zap.Int("status", res.Status))
	}
	body := res.Body
	if body == nil {
		body = json.RawMessage(`{}`)
	}
	s.publish(ctx, events.New(events.EventSessionClosed, "", "", nil))
	return body, nil
}

// ReporteeTickets asks the automation webhook for the tickets of everyone
// reporting to the logged-in user. email is only used when the backend
// reports no identity for the session.
func (s *AuthService) ReporteeTickets(ctx context.Context, cred session.Credential, email string) ([]domain.Ticket, error) {
	user, err := s.Identity(ctx, cred)
	if err != nil {
		var fetchErr *backend.FetchError
		if errors.As(err, &fetchErr) {
			return nil, apperrors.NewUnauthorized("login required")
		}
		return nil, err
	}
	if user != "" {
		email = user
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.NewUnauthorized("login required")
	}
	raw, err := s.webhooks.Reportee(ctx, email)
	if err != nil {
		return nil, err
	}
	tickets, err := backend.LegacyTicketList(raw)
	if err != nil {
		return nil, apperrors.NewUpstreamError("reportee webhook returned an unexpected payload", err)
	}
	return tickets, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event subscriber failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
