package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-relay/internal/api/dto"
	"github.com/spec-kit/ticket-relay/internal/auth"
	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/service"
	"github.com/spec-kit/ticket-relay/internal/session"
	apperrors "github.com/spec-kit/ticket-relay/pkg/util/errorutil"
)

func noStore(c *fiber.Ctx) {
	c.Set(fiber.HeaderCacheControl, "no-store")
}

// listFailure answers a failed list read with an explicit empty result.
// Client errors other than 401 are left to the error middleware.
func listFailure(c *fiber.Ctx, err error) error {
	de := apperrors.ToDomainError(err)
	status := http.StatusBadGateway
	switch {
	case de.Code == "UNAUTHORIZED":
		status = http.StatusUnauthorized
	case de.HTTPStatus < http.StatusInternalServerError:
		return err
	}
	noStore(c)
	return c.Status(status).JSON(dto.TicketListResponse{
		Tickets: []domain.Ticket{},
		Error:   &dto.ErrorBody{Code: de.Code, Message: de.Message, Details: de.Details},
	})
}

// resolveUser returns the user query parameter, or the logged-in identity
// when it is absent.
func resolveUser(c *fiber.Ctx, identity service.IdentityResolver, cred session.Credential) (string, error) {
	if user := strings.TrimSpace(c.Query("user")); user != "" {
		return user, nil
	}
	if identity == nil {
		return "", apperrors.NewValidationError("user is required", nil)
	}
	return identity.Identity(c.UserContext(), cred)
}

func ticketID(c *fiber.Ctx) (string, error) {
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil || strings.TrimSpace(id) == "" {
		return "", apperrors.NewValidationError("ticket id is required", nil)
	}
	return id, nil
}

func credential(c *fiber.Ctx) session.Credential {
	return auth.CredentialFromContext(c)
}
