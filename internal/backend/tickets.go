package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/session"
)

// ListTickets queries the ticket doctype with filters and a field projection.
func (c *Client) ListTickets(ctx context.Context, cred session.Credential, filters []Filter, fields []string) ([]domain.Ticket, error) {
	const op = "list_tickets"
	query, err := listQuery(fields, filters)
	if err != nil {
		return nil, err
	}
	res, err := c.do(ctx, request{
		op:         op,
		method:     fiber.MethodGet,
		url:        c.resourceURL(c.doctype, "") + "?" + query,
		credential: cred,
	})
	if err != nil {
		return nil, err
	}
	if !res.ok() {
		return nil, res.fetchError(op)
	}
	tickets := []domain.Ticket{}
	if err := decodeData(op, res.body, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetTicket loads one ticket with its full status history.
func (c *Client) GetTicket(ctx context.Context, cred session.Credential, name string) (*domain.Ticket, error) {
	const op = "get_ticket"
	res, err := c.do(ctx, request{
		op:         op,
		method:     fiber.MethodGet,
		url:        c.resourceURL(c.doctype, name),
		credential: cred,
	})
	if err != nil {
		return nil, err
	}
	if !res.ok() {
		return nil, res.fetchError(op)
	}
	var ticket domain.Ticket
	if err := decodeData(op, res.body, &ticket); err != nil {
		return nil, err
	}
	if ticket.Name == "" {
		return nil, &DecodeError{Op: op, Err: fmt.Errorf("ticket %q missing from payload", name)}
	}
	return &ticket, nil
}

// UpdateTicket writes a partial document and returns the backend's copy.
func (c *Client) UpdateTicket(ctx context.Context, cred session.Credential, name string, patch map[string]any) (json.RawMessage, error) {
	const op = "update_ticket"
	res, err := c.do(ctx, request{
		op:         op,
		method:     fiber.MethodPut,
		url:        c.resourceURL(c.doctype, name),
		credential: cred,
		json:       patch,
	})
	if err != nil {
		return nil, err
	}
	if !res.ok() {
		return nil, res.fetchError(op)
	}
	if !json.Valid(res.body) {
		return nil, &DecodeError{Op: op, Err: fmt.Errorf("non-JSON body")}
	}
	return json.RawMessage(res.body), nil
}

// ListAttachments lists File records attached to a ticket.
func (c *Client) ListAttachments(ctx context.Context, cred session.Credential, ticketName string) ([]domain.Attachment, error) {
	const op = "list_attachments"
	query, err := listQuery([]string{"file_url", "file_name"}, []Filter{
		Eq("attached_to_doctype", c.doctype),
		Eq("attached_to_name", ticketName),
	})
	if err != nil {
		return nil, err
	}
	res, err := c.do(ctx, request{
		op:         op,
		method:     fiber.MethodGet,
		url:        c.resourceURL("File", "") + "?" + query,
		credential: cred,
	})
	if err != nil {
		return nil, err
	}
	if !res.ok() {
		return nil, res.fetchError(op)
	}
	var files []UploadedFile
	if err := decodeData(op, res.body, &files); err != nil {
		return nil, err
	}
	attachments := make([]domain.Attachment, 0, len(files))
	for _, f := range files {
		attachments = append(attachments, domain.Attachment{URL: f.FileURL, Name: f.FileName})
	}
	return attachments, nil
}

// UploadFile stores a file with the backend's upload method.
func (c *Client) UploadFile(ctx context.Context, cred session.Credential, file FileUpload) (*UploadedFile, error) {
	const op = "upload_file"
	private := "0"
	if file.Private {
		private = "1"
	}
	fields := map[string]string{"is_private": private}
	if file.Folder != "" {
		fields["folder"] = file.Folder
	}
	res, err := c.do(ctx, request{
		op:         op,
		method:     fiber.MethodPost,
		url:        c.methodURL("upload_file"),
		credential: cred,
		multipart:  fields,
		file:       &file,
	})
	if err != nil {
		return nil, err
	}
	if !res.ok() {
		return nil, res.fetchError(op)
	}
	var payload struct {
		Message UploadedFile `json:"message"`
	}
	if err := json.Unmarshal(res.body, &payload); err != nil {
		return nil, &DecodeError{Op: op, Err: err}
	}
	if payload.Message.Reference() == "" {
		return nil, &DecodeError{Op: op, Err: fmt.Errorf("no file reference in response")}
	}
	return &payload.Message, nil
}
