package handlers

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-relay/internal/api/dto"
	"github.com/spec-kit/ticket-relay/internal/backend"
	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/repository"
	"github.com/spec-kit/ticket-relay/internal/service"
	apperrors "github.com/spec-kit/ticket-relay/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	queries   *service.TicketQueryService
	mutations *service.TicketMutationService
	identity  service.IdentityResolver
	audit     repository.AuditRepository
}

// NewTicketsHandler constructs handler. audit may be nil.
func NewTicketsHandler(queries *service.TicketQueryService, mutations *service.TicketMutationService, identity service.IdentityResolver, audit repository.AuditRepository) *TicketsHandler {
	return &TicketsHandler{queries: queries, mutations: mutations, identity: identity, audit: audit}
}

// ListTickets GET /api/tickets?type=&user=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	view, err := domain.ParseTicketView(c.Query("type", string(domain.ViewRaised)))
	if err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	cred := credential(c)
	user, err := resolveUser(c, h.identity, cred)
	if err != nil {
		return listFailure(c, err)
	}
	list, err := h.queries.List(c.UserContext(), cred, view, user)
	if err != nil {
		return listFailure(c, err)
	}
	noStore(c)
	return c.JSON(dto.TicketListResponse{
		Tickets:  list.Tickets,
		Partial:  list.Partial,
		Failures: list.Failures,
	})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.queries.Get(c.UserContext(), credential(c), id)
	if err != nil {
		return err
	}
	noStore(c)
	return c.JSON(dto.TicketResponse{Ticket: ticket})
}

// CreateTicket POST /api/tickets, JSON or multipart.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.CreateTicketInput{
		Issue:          req.Issue,
		WhoCanSolve:    req.WhoCanSolve,
		NeededBy:       req.NeededBy,
		BusinessImpact: req.BusinessImpact,
		Severity:       req.Severity,
		RaisedBy:       req.RaisedBy,
		AssignedTo:     req.AssignedTo,
		Link:           req.Link,
		Attachment:     req.Attachment,
	}
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		input.Attachment = ""
		file, err := attachmentFromForm(c)
		if err != nil {
			return err
		}
		input.File = file
	}

	data, err := h.mutations.Create(c.UserContext(), credential(c), input)
	if err != nil {
		return err
	}
	return c.JSON(dto.MutationResponse{Success: true, Data: data})
}

func attachmentFromForm(c *fiber.Ctx) (*backend.FileUpload, error) {
	header, err := c.FormFile("attachment")
	if err != nil {
		// no file part
		return nil, nil
	}
	f, err := header.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable attachment", nil)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable attachment", nil)
	}
	return &backend.FileUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, nil
}

// UpdateTicket PUT /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var patch map[string]any
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	data, err := h.mutations.Update(c.UserContext(), credential(c), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(dto.MutationResponse{Success: true, Data: data})
}

// AcceptTicket POST /api/tickets/:id/accept.
func (h *TicketsHandler) AcceptTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.AcceptTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	data, err := h.mutations.Accept(c.UserContext(), credential(c), id, service.AcceptInput{
		Level: req.Level,
		Notes: req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.MutationResponse{Success: true, Data: data})
}

// ListAttachments GET /api/tickets/:id/attachments.
func (h *TicketsHandler) ListAttachments(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	attachments, err := h.queries.Attachments(c.UserContext(), credential(c), id)
	if err != nil {
		return err
	}
	noStore(c)
	return c.JSON(dto.AttachmentsResponse{Attachments: attachments})
}

// ListAudit GET /api/tickets/:id/audit. The ticket is read first so only
// callers the backend lets see it get its relay history.
func (h *TicketsHandler) ListAudit(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	if _, err := h.queries.Get(c.UserContext(), credential(c), id); err != nil {
		return err
	}
	noStore(c)
	if h.audit == nil {
		return c.JSON(dto.AuditResponse{Entries: []domain.AuditEntry{}})
	}
	entries, err := h.audit.ListByTicket(c.UserContext(), id, c.QueryInt("limit", 50))
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(dto.AuditResponse{Entries: entries})
}
