package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/spec-kit/ticket-relay/internal/backend"
	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/session"
)

// fakeBackend implements backend.API and backend.Webhooks with canned
// answers keyed by filter signature and records the order of calls.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	lists    map[string][]domain.Ticket
	listErrs map[string]error

	users    []domain.TeamMember
	usersErr error

	loggedUser  string
	loggedErr   error
	loginResult *backend.LoginResult
	logoutErr   error

	ticket    *domain.Ticket
	updates   []map[string]any
	uploadErr error

	createPayload backend.CreateTicketPayload
	createResp    json.RawMessage
	createErr     error
	reporteeResp  json.RawMessage
	reporteeFor   string
}

var (
	_ backend.API      = (*fakeBackend)(nil)
	_ backend.Webhooks = (*fakeBackend)(nil)
)

func filterKey(filters []backend.Filter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		parts = append(parts, f.Field+f.Op+f.Value)
	}
	return strings.Join(parts, "&")
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) LoggedUser(context.Context, session.Credential) (string, error) {
	f.record("logged_user")
	return f.loggedUser, f.loggedErr
}

func (f *fakeBackend) Login(context.Context, backend.LoginForm) (*backend.LoginResult, error) {
	f.record("login")
	return f.loginResult, nil
}

func (f *fakeBackend) Logout(context.Context, session.Credential) (*backend.RawResult, error) {
	f.record("logout")
	if f.logoutErr != nil {
		return nil, f.logoutErr
	}
	return &backend.RawResult{Status: 200}, nil
}

func (f *fakeBackend) ListTickets(_ context.Context, _ session.Credential, filters []backend.Filter, _ []string) ([]domain.Ticket, error) {
	key := filterKey(filters)
	f.record("list " + key)
	if err := f.listErrs[key]; err != nil {
		return nil, err
	}
	return append([]domain.Ticket{}, f.lists[key]...), nil
}

func (f *fakeBackend) GetTicket(_ context.Context, _ session.Credential, name string) (*domain.Ticket, error) {
	f.record("get " + name)
	if f.ticket == nil {
		return nil, &backend.FetchError{Op: "get_ticket", Status: 404}
	}
	clone := *f.ticket
	return &clone, nil
}

func (f *fakeBackend) UpdateTicket(_ context.Context, _ session.Credential, name string, patch map[string]any) (json.RawMessage, error) {
	f.record("update " + name)
	f.mu.Lock()
	f.updates = append(f.updates, patch)
	f.mu.Unlock()
	return json.RawMessage(`{"data":{"name":"` + name + `"}}`), nil
}

func (f *fakeBackend) ListAttachments(context.Context, session.Credential, string) ([]domain.Attachment, error) {
	f.record("attachments")
	return []domain.Attachment{}, nil
}

func (f *fakeBackend) UploadFile(_ context.Context, _ session.Credential, file backend.FileUpload) (*backend.UploadedFile, error) {
	f.record("upload " + file.Folder)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &backend.UploadedFile{FileURL: "/files/" + file.FileName, FileName: file.FileName}, nil
}

func (f *fakeBackend) ListUsers(_ context.Context, _ session.Credential, filters []backend.Filter) ([]domain.TeamMember, error) {
	f.record("users " + filterKey(filters))
	return f.users, f.usersErr
}

func (f *fakeBackend) CreateTicket(_ context.Context, payload backend.CreateTicketPayload) (json.RawMessage, error) {
	f.record("webhook_create")
	f.mu.Lock()
	f.createPayload = payload
	f.mu.Unlock()
	return f.createResp, f.createErr
}

func (f *fakeBackend) Reportee(_ context.Context, email string) (json.RawMessage, error) {
	f.record("webhook_reportee")
	f.reporteeFor = email
	return f.reporteeResp, nil
}

type staticIdentity string

func (s staticIdentity) Identity(context.Context, session.Credential) (string, error) {
	return string(s), nil
}

func ratingPtr(v float64) *float64 { return &v }
