package dto

import (
	"github.com/spec-kit/ticket-relay/internal/domain"
)

// CreateTicketRequest is the JSON or multipart ticket submission.
type CreateTicketRequest struct {
	Issue          string `json:"what_is_issueidea" form:"what_is_issueidea"`
	WhoCanSolve    string `json:"who_can_solve_this" form:"who_can_solve_this"`
	NeededBy       string `json:"when_do_i_need_this_by" form:"when_do_i_need_this_by"`
	BusinessImpact string `json:"business_impact" form:"business_impact"`
	Severity       string `json:"severity_business_impact" form:"severity_business_impact"`
	RaisedBy       string `json:"raised_by" form:"raised_by"`
	AssignedTo     string `json:"assigned_to_user" form:"assigned_to_user"`
	Link           string `json:"link" form:"link"`
	Attachment     string `json:"attachment" form:"attachment"`
}

// AcceptTicketRequest payload.
type AcceptTicketRequest struct {
	Level string `json:"level"`
	Notes string `json:"notes"`
}

// TicketListResponse is returned by the list endpoint. Error is set when
// the list could not be fetched; Partial when only some sub-queries
// succeeded.
type TicketListResponse struct {
	Tickets  []domain.Ticket `json:"tickets"`
	Partial  bool            `json:"partial,omitempty"`
	Failures []string        `json:"failures,omitempty"`
	Error    *ErrorBody      `json:"error,omitempty"`
}

// TicketResponse wraps one ticket.
type TicketResponse struct {
	Ticket *domain.Ticket `json:"ticket"`
}

// MutationResponse is returned by create, update and accept.
type MutationResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// AttachmentsResponse wraps a ticket's files.
type AttachmentsResponse struct {
	Attachments []domain.Attachment `json:"attachments"`
}

// AuditResponse wraps relay audit entries.
type AuditResponse struct {
	Entries []domain.AuditEntry `json:"entries"`
}

// ErrorBody mirrors the error envelope rendered by the error middleware.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
