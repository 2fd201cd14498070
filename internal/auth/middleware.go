package auth

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-relay/internal/session"
	apperrors "github.com/spec-kit/ticket-relay/pkg/util/errorutil"
)

const (
	credentialKey     = "auth_credential"
	sessionHandledKey = "auth_session_handled"
)

// AuthMiddleware resolves the backend credential for each request and
// persists session identifiers the backend rotates while serving it.
type AuthMiddleware struct {
	relay  *session.Relay
	logger *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(relay *session.Relay, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{relay: relay, logger: logger}
}

// Handle attaches the credential and a session sink to the request.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	c.Locals(credentialKey, m.relay.FromRequest(c))

	sink := &session.Sink{}
	c.SetUserContext(session.WithSink(c.UserContext(), sink))

	err := c.Next()

	if handled, _ := c.Locals(sessionHandledKey).(bool); handled {
		return err
	}
	if sid := sink.SID(); sid != "" && sid != m.relay.PersistedSID(c) {
		if perr := m.relay.Persist(c, sid, false); perr != nil {
			m.logger.Warn("persist rotated session", zap.Error(perr))
		}
	}
	return err
}

// CredentialFromContext retrieves the credential resolved by Handle.
func CredentialFromContext(c *fiber.Ctx) session.Credential {
	cred, _ := c.Locals(credentialKey).(session.Credential)
	return cred
}

// MarkSessionHandled tells Handle that the route managed the session cookie
// itself (login, logout) and rotated identifiers must not be persisted.
func MarkSessionHandled(c *fiber.Ctx) {
	c.Locals(sessionHandledKey, true)
}

// RequireCredential rejects requests that carry no credential at all.
func RequireCredential() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CredentialFromContext(c).Empty() {
			return apperrors.NewUnauthorized("login required")
		}
		return c.Next()
	}
}
