package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-relay/internal/api/dto"
	"github.com/spec-kit/ticket-relay/internal/auth"
	"github.com/spec-kit/ticket-relay/internal/service"
	"github.com/spec-kit/ticket-relay/internal/session"
	apperrors "github.com/spec-kit/ticket-relay/pkg/util/errorutil"
)

// AuthHandler serves identity check, login, logout and the reportee
// lookup.
type AuthHandler struct {
	service *service.AuthService
	relay   *session.Relay
	logger  *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, relay *session.Relay, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: authService, relay: relay, logger: logger}
}

// Check GET /api/auth/check.
func (h *AuthHandler) Check(c *fiber.Ctx) error {
	noStore(c)
	user := h.service.Check(c.UserContext(), credential(c))
	return c.JSON(dto.CheckResponse{Message: user})
}

// Login POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	auth.MarkSessionHandled(c)

	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid login form", nil)
	}
	outcome, err := h.service.Login(c.UserContext(), service.LoginInput{
		User:     req.User,
		Password: req.Password,
		Remember: req.RememberMe(),
	})
	if err != nil {
		return err
	}
	if outcome.Succeeded() {
		if err := h.relay.Persist(c, outcome.SID, req.RememberMe()); err != nil {
			return apperrors.NewInternalError(err)
		}
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(outcome.Status).Send(outcome.Body)
}

// Logout POST /api/auth/logout. Cookies are expired whatever the backend
// answers.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	auth.MarkSessionHandled(c)

	body, err := h.service.Logout(c.UserContext(), credential(c))
	expired := h.relay.ExpireAll(c)
	h.logger.Debug("session cookies expired", zap.Strings("cookies", expired))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(body)
}

// Reportee POST /api/reportee.
func (h *AuthHandler) Reportee(c *fiber.Ctx) error {
	var req dto.ReporteeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	tickets, err := h.service.ReporteeTickets(c.UserContext(), credential(c), req.Email)
	if err != nil {
		return err
	}
	noStore(c)
	return c.JSON(dto.TicketListResponse{Tickets: tickets})
}
