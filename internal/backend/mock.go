package backend

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/session"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the YAML document seeding the mock backend.
type Fixtures struct {
	Password string          `yaml:"password"`
	Users    []FixtureUser   `yaml:"users"`
	Tickets  []FixtureTicket `yaml:"tickets"`
}

// FixtureUser is a directory entry.
type FixtureUser struct {
	Name             string `yaml:"name"`
	FullName         string `yaml:"full_name"`
	ReportingManager string `yaml:"reporting_manager"`
}

// FixtureTicket is a seeded ticket.
type FixtureTicket struct {
	Name             string         `yaml:"name"`
	RaisedBy         string         `yaml:"raised_by"`
	AssignedTo       string         `yaml:"assigned_to_user"`
	WhoCanSolve      string         `yaml:"who_can_solve_this"`
	Issue            string         `yaml:"what_is_issueidea"`
	NeededBy         string         `yaml:"when_do_i_need_this_by"`
	Severity         string         `yaml:"severity_business_impact"`
	BusinessImpact   string         `yaml:"business_impact"`
	Creation         string         `yaml:"creation"`
	Status           string         `yaml:"status"`
	Notes            string         `yaml:"notes"`
	StatusUpdatedAt  string         `yaml:"status_update_latest_time"`
	ReportingManager string         `yaml:"reporting_manager_user"`
	Link             string         `yaml:"link"`
	Attachment       string         `yaml:"attachment"`
	History          []FixtureEntry `yaml:"action_status"`
}

// FixtureEntry is a seeded status history row.
type FixtureEntry struct {
	Status    string   `yaml:"status"`
	Rating    *float64 `yaml:"rating"`
	UpdatedAt string   `yaml:"status_update_latest_time"`
	UpdatedBy string   `yaml:"updated_by"`
	Notes     string   `yaml:"notes"`
}

// LoadFixtures reads fixtures from path, or the embedded defaults when
// path is empty.
func LoadFixtures(path string) (*Fixtures, error) {
	data := defaultFixtures
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixtures: %w", err)
		}
		data = raw
	}
	var fixtures Fixtures
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &fixtures, nil
}

// Mock is an in-memory backend and webhook pair for development.
type Mock struct {
	mu       sync.Mutex
	password string
	users    []FixtureUser
	tickets  []domain.Ticket
	sessions map[string]string
	seq      int
}

// NewMock seeds a mock backend from fixtures.
func NewMock(fixtures *Fixtures) *Mock {
	m := &Mock{
		password: fixtures.Password,
		users:    append([]FixtureUser(nil), fixtures.Users...),
		sessions: make(map[string]string),
	}
	for _, ft := range fixtures.Tickets {
		m.tickets = append(m.tickets, ft.toDomain())
	}
	m.seq = len(m.tickets)
	return m
}

var (
	_ API      = (*Mock)(nil)
	_ Webhooks = (*Mock)(nil)
)

func (ft FixtureTicket) toDomain() domain.Ticket {
	t := domain.Ticket{
		Name:             ft.Name,
		RaisedBy:         ft.RaisedBy,
		AssignedTo:       ft.AssignedTo,
		WhoCanSolve:      ft.WhoCanSolve,
		Issue:            ft.Issue,
		NeededBy:         ft.NeededBy,
		Severity:         ft.Severity,
		BusinessImpact:   ft.BusinessImpact,
		Creation:         ft.Creation,
		Status:           domain.TicketStatus(ft.Status),
		Notes:            ft.Notes,
		StatusUpdatedAt:  ft.StatusUpdatedAt,
		ReportingManager: ft.ReportingManager,
		Link:             ft.Link,
		Attachment:       ft.Attachment,
		History:          []domain.StatusEntry{},
	}
	for _, fe := range ft.History {
		t.History = append(t.History, domain.StatusEntry{
			Status:    domain.TicketStatus(fe.Status),
			Rating:    fe.Rating,
			UpdatedAt: fe.UpdatedAt,
			UpdatedBy: fe.UpdatedBy,
			Notes:     fe.Notes,
		})
	}
	return t
}

func (m *Mock) userFor(cred session.Credential) string {
	sid := session.ExtractSID([]string{cred.String()})
	return m.sessions[sid]
}

// LoggedUser implements API.
func (m *Mock) LoggedUser(_ context.Context, cred session.Credential) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user := m.userFor(cred); user != "" {
		return user, nil
	}
	return domain.GuestUser, nil
}

// Login implements API. Any directory user may log in with the fixture
// password.
func (m *Mock) Login(_ context.Context, form LoginForm) (*LoginResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Name, form.User) && form.Password == m.password {
			sid := "mock-" + uuid.NewString()
			m.sessions[sid] = u.Name
			body, _ := json.Marshal(map[string]string{"message": "Logged In", "full_name": u.FullName})
			return &LoginResult{Status: 200, ContentType: "application/json", Body: body, SID: sid}, nil
		}
	}
	body, _ := json.Marshal(map[string]string{"message": "Invalid login credentials"})
	return &LoginResult{Status: 401, ContentType: "application/json", Body: body}, nil
}

// Logout implements API.
func (m *Mock) Logout(_ context.Context, cred session.Credential) (*RawResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, session.ExtractSID([]string{cred.String()}))
	return &RawResult{Status: 200, Body: json.RawMessage(`{}`)}, nil
}

// ListTickets implements API.
func (m *Mock) ListTickets(_ context.Context, _ session.Credential, filters []Filter, _ []string) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Ticket{}
	for _, t := range m.tickets {
		if matchTicket(t, filters) {
			out = append(out, cloneTicket(t))
		}
	}
	return out, nil
}

// GetTicket implements API.
func (m *Mock) GetTicket(_ context.Context, _ session.Credential, name string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.Name == name {
			clone := cloneTicket(t)
			return &clone, nil
		}
	}
	return nil, &FetchError{Op: "get_ticket", Status: 404}
}

// UpdateTicket implements API by merging patch into the stored document.
func (m *Mock) UpdateTicket(_ context.Context, _ session.Credential, name string, patch map[string]any) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tickets {
		if t.Name != name {
			continue
		}
		doc := map[string]any{}
		raw, _ := json.Marshal(t)
		_ = json.Unmarshal(raw, &doc)
		for k, v := range patch {
			doc[k] = v
		}
		merged, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		var updated domain.Ticket
		if err := json.Unmarshal(merged, &updated); err != nil {
			return nil, &FetchError{Op: "update_ticket", Status: 417, Body: err.Error()}
		}
		updated.Name = name
		m.tickets[i] = updated
		return json.Marshal(map[string]any{"data": updated})
	}
	return nil, &FetchError{Op: "update_ticket", Status: 404}
}

// ListAttachments implements API.
func (m *Mock) ListAttachments(_ context.Context, _ session.Credential, ticketName string) ([]domain.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.Name == ticketName && t.Attachment != "" {
			return []domain.Attachment{{URL: t.Attachment, Name: baseName(t.Attachment)}}, nil
		}
	}
	return []domain.Attachment{}, nil
}

// UploadFile implements API.
func (m *Mock) UploadFile(_ context.Context, _ session.Credential, file FileUpload) (*UploadedFile, error) {
	return &UploadedFile{FileURL: "/files/" + file.FileName, FileName: file.FileName}, nil
}

// ListUsers implements API.
func (m *Mock) ListUsers(_ context.Context, _ session.Credential, filters []Filter) ([]domain.TeamMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	members := []domain.TeamMember{}
	for _, u := range m.users {
		if !matchUser(u, filters) {
			continue
		}
		name := u.FullName
		if name == "" {
			name = u.Name
		}
		members = append(members, domain.TeamMember{ID: u.Name, Name: name})
	}
	return members, nil
}

// CreateTicket implements Webhooks.
func (m *Mock) CreateTicket(_ context.Context, payload CreateTicketPayload) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := domain.Ticket{
		Name:           fmt.Sprintf("REQ-%04d", m.seq),
		RaisedBy:       payload.RaisedBy,
		AssignedTo:     payload.AssignedTo,
		WhoCanSolve:    payload.WhoCanSolve,
		Issue:          payload.Issue,
		NeededBy:       payload.NeededBy,
		Severity:       payload.Severity,
		BusinessImpact: payload.BusinessImpact,
		Status:         payload.Status,
		History:        []domain.StatusEntry{},
	}
	for _, u := range m.users {
		if u.Name == payload.RaisedBy {
			t.ReportingManager = u.ReportingManager
		}
	}
	m.tickets = append(m.tickets, t)
	return json.Marshal(map[string]any{"message": map[string]string{"name": t.Name}})
}

// Reportee implements Webhooks.
func (m *Mock) Reportee(_ context.Context, email string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subordinates := map[string]bool{}
	for _, u := range m.users {
		if u.ReportingManager == email {
			subordinates[u.Name] = true
		}
	}
	out := []domain.Ticket{}
	for _, t := range m.tickets {
		if subordinates[t.RaisedBy] {
			out = append(out, cloneTicket(t))
		}
	}
	return json.Marshal(map[string]any{"data": out})
}

func matchTicket(t domain.Ticket, filters []Filter) bool {
	for _, f := range filters {
		var value string
		switch f.Field {
		case "raised_by":
			value = t.RaisedBy
		case "assigned_to_user":
			value = t.AssignedTo
		case "status":
			value = string(t.Status)
		case ReportingManagerField:
			value = t.ReportingManager
		case "name":
			value = t.Name
		default:
			return false
		}
		if !compare(value, f) {
			return false
		}
	}
	return true
}

func matchUser(u FixtureUser, filters []Filter) bool {
	for _, f := range filters {
		var value string
		switch f.Field {
		case "name":
			value = u.Name
		case ReportingManagerField:
			value = u.ReportingManager
		default:
			return false
		}
		if !compare(value, f) {
			return false
		}
	}
	return true
}

func compare(value string, f Filter) bool {
	switch f.Op {
	case "=":
		return value == f.Value
	case "!=":
		return value != f.Value
	}
	return false
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.History = append([]domain.StatusEntry{}, t.History...)
	return t
}

func baseName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
