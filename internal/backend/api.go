package backend

import (
	"context"
	"encoding/json"

	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/session"
)

// API is the subset of the ticketing backend the relay talks to. Every call
// takes the caller's credential explicitly.
type API interface {
	LoggedUser(ctx context.Context, cred session.Credential) (string, error)
	Login(ctx context.Context, form LoginForm) (*LoginResult, error)
	Logout(ctx context.Context, cred session.Credential) (*RawResult, error)

	ListTickets(ctx context.Context, cred session.Credential, filters []Filter, fields []string) ([]domain.Ticket, error)
	GetTicket(ctx context.Context, cred session.Credential, name string) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, cred session.Credential, name string, patch map[string]any) (json.RawMessage, error)
	ListAttachments(ctx context.Context, cred session.Credential, ticketName string) ([]domain.Attachment, error)
	UploadFile(ctx context.Context, cred session.Credential, file FileUpload) (*UploadedFile, error)

	ListUsers(ctx context.Context, cred session.Credential, filters []Filter) ([]domain.TeamMember, error)
}

// Webhooks are the automation endpoints used outside the backend API.
type Webhooks interface {
	CreateTicket(ctx context.Context, payload CreateTicketPayload) (json.RawMessage, error)
	Reportee(ctx context.Context, email string) (json.RawMessage, error)
}

// LoginForm carries the form-encoded login credentials.
type LoginForm struct {
	User     string
	Password string
}

// LoginResult is the raw upstream login answer; the auth service decides
// whether it represents success.
type LoginResult struct {
	Status      int
	ContentType string
	Body        json.RawMessage
	SID         string
}

// RawResult is an upstream answer passed through to the browser.
type RawResult struct {
	Status int
	Body   json.RawMessage
}

// FileUpload is a file forwarded to the backend's file storage.
type FileUpload struct {
	FileName    string
	ContentType string
	Content     []byte
	Folder      string
	Private     bool
}

// UploadedFile is the backend's record of a stored file.
type UploadedFile struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
}

// Reference returns the value stored on a ticket for this file.
func (f *UploadedFile) Reference() string {
	if f == nil {
		return ""
	}
	if f.FileURL != "" {
		return f.FileURL
	}
	return f.FileName
}

// CreateTicketPayload is the normalised body sent to the creation webhook.
// Empty link and attachment are sent as null.
type CreateTicketPayload struct {
	Issue          string              `json:"what_is_issueidea"`
	WhoCanSolve    string              `json:"who_can_solve_this"`
	NeededBy       string              `json:"when_do_i_need_this_by"`
	BusinessImpact string              `json:"business_impact"`
	Severity       string              `json:"severity_business_impact"`
	Status         domain.TicketStatus `json:"status"`
	RaisedBy       string              `json:"raised_by"`
	AssignedTo     string              `json:"assigned_to_user"`
	BackendUser    string              `json:"frappe_user"`
	Link           *string             `json:"link"`
	Attachment     *string             `json:"attachment"`
}

var (
	_ API      = (*Client)(nil)
	_ Webhooks = (*WebhookClient)(nil)
)
