package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-relay/internal/api/dto"
	"github.com/spec-kit/ticket-relay/internal/service"
)

// DirectoryHandler serves the team directory, ratings and the dashboard.
type DirectoryHandler struct {
	queries   *service.TicketQueryService
	dashboard *service.DashboardService
	identity  service.IdentityResolver
}

// NewDirectoryHandler constructs handler.
func NewDirectoryHandler(queries *service.TicketQueryService, dashboard *service.DashboardService, identity service.IdentityResolver) *DirectoryHandler {
	return &DirectoryHandler{queries: queries, dashboard: dashboard, identity: identity}
}

// Teams GET /api/teams.
func (h *DirectoryHandler) Teams(c *fiber.Ctx) error {
	members, err := h.queries.Teams(c.UserContext(), credential(c))
	if err != nil {
		return err
	}
	noStore(c)
	return c.JSON(dto.TeamsResponse{Members: members})
}

// Rating GET /api/rating?user=.
func (h *DirectoryHandler) Rating(c *fiber.Ctx) error {
	cred := credential(c)
	user, err := resolveUser(c, h.identity, cred)
	if err != nil {
		return err
	}
	summary, err := h.queries.AverageRating(c.UserContext(), cred, user)
	if err != nil {
		return err
	}
	noStore(c)
	return c.JSON(summary)
}

// Dashboard GET /api/dashboard?user=.
func (h *DirectoryHandler) Dashboard(c *fiber.Ctx) error {
	cred := credential(c)
	user, err := resolveUser(c, h.identity, cred)
	if err != nil {
		return err
	}
	result, err := h.dashboard.Build(c.UserContext(), cred, user)
	if err != nil {
		return err
	}
	noStore(c)
	return c.JSON(result)
}
