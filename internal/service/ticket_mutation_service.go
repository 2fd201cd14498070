package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-relay/internal/backend"
	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/events"
	"github.com/spec-kit/ticket-relay/internal/session"
	apperrors "github.com/spec-kit/ticket-relay/pkg/util/errorutil"
)

// AttachmentFolder is where uploaded ticket attachments are filed.
const AttachmentFolder = "Home/Attachments"

// IdentityResolver resolves the logged-in user behind a credential.
type IdentityResolver interface {
	Identity(ctx context.Context, cred session.Credential) (string, error)
}

// TicketMutationService relays ticket writes to the backend and webhooks.
type TicketMutationService struct {
	api        backend.API
	webhooks   backend.Webhooks
	identity   IdentityResolver
	dispatcher events.Dispatcher
	fixupDelay time.Duration
	now        func() time.Time
	locks      *ticketLocks
	logger     *zap.Logger
}

// TicketMutationDependencies bundles collaborators for the mutation service.
type TicketMutationDependencies struct {
	API            backend.API
	Webhooks       backend.Webhooks
	Identity       IdentityResolver
	Dispatcher     events.Dispatcher
	LinkFixupDelay time.Duration
	Now            func() time.Time
	Logger         *zap.Logger
}

// NewTicketMutationService constructs the service.
func NewTicketMutationService(deps TicketMutationDependencies) *TicketMutationService {
	s := &TicketMutationService{
		api:        deps.API,
		webhooks:   deps.Webhooks,
		identity:   deps.Identity,
		dispatcher: deps.Dispatcher,
		fixupDelay: deps.LinkFixupDelay,
		now:        deps.Now,
		locks:      newTicketLocks(),
		logger:     deps.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// CreateTicketInput is a ticket submitted from the browser. File is set
// when the submission carried an attachment.
type CreateTicketInput struct {
	Issue          string
	WhoCanSolve    string
	NeededBy       string
	BusinessImpact string
	Severity       string
	RaisedBy       string
	AssignedTo     string
	Link           string
	Attachment     string
	File           *backend.FileUpload
}

// Create uploads the attachment, creates the ticket through the automation
// webhook, then writes link and attachment directly to the backend because
// the webhook does not reliably persist them.
func (s *TicketMutationService) Create(ctx context.Context, cred session.Credential, in CreateTicketInput) (json.RawMessage, error) {
	in.Issue = strings.TrimSpace(in.Issue)
	in.RaisedBy = strings.TrimSpace(in.RaisedBy)
	if in.Issue == "" || in.RaisedBy == "" {
		return nil, apperrors.NewValidationError("what_is_issueidea and raised_by are required", nil)
	}

	link := strings.TrimSpace(in.Link)
	attachment := strings.TrimSpace(in.Attachment)
	if in.File != nil {
		attachment = s.upload(ctx, cred, *in.File)
	}

	payload := backend.CreateTicketPayload{
		Issue:          in.Issue,
		WhoCanSolve:    in.WhoCanSolve,
		NeededBy:       in.NeededBy,
		BusinessImpact: in.BusinessImpact,
		Severity:       in.Severity,
		Status:         domain.TicketStatusCreated,
		RaisedBy:       in.RaisedBy,
		AssignedTo:     in.AssignedTo,
		BackendUser:    in.RaisedBy,
		Link:           optional(link),
		Attachment:     optional(attachment),
	}
	data, err := s.webhooks.CreateTicket(ctx, payload)
	if err != nil {
		s.logger.Error("ticket creation webhook failed", zap.String("raised_by", in.RaisedBy), zap.Error(err))
		return nil, apperrors.NewUpstreamError("ticket creation failed", err)
	}

	name := backend.LegacyTicketName(data)
	if name == "" {
		s.logger.Warn("ticket name missing from webhook answer; link and attachment not re-applied")
	} else {
		s.fixup(ctx, cred, name, link, attachment)
	}

	s.publish(ctx, events.New(events.EventTicketCreated, name, in.RaisedBy, events.TicketCreatedPayload{
		Issue:      in.Issue,
		AssignedTo: in.AssignedTo,
		Severity:   in.Severity,
		Attachment: attachment,
	}))
	return data, nil
}

// upload stores file and returns the reference to save on the ticket. Any
// failure falls back to the local file name.
func (s *TicketMutationService) upload(ctx context.Context, cred session.Credential, file backend.FileUpload) string {
	file.Folder = AttachmentFolder
	file.Private = false
	uploaded, err := s.api.UploadFile(ctx, cred, file)
	if err != nil || uploaded.Reference() == "" {
		s.logger.Warn("attachment upload failed; keeping file name",
			zap.String("file", file.FileName),
			zap.String("size", humanize.Bytes(uint64(len(file.Content)))),
			zap.Error(err))
		return file.FileName
	}
	s.logger.Info("attachment uploaded",
		zap.String("file", file.FileName),
		zap.String("size", humanize.Bytes(uint64(len(file.Content)))),
		zap.String("reference", uploaded.Reference()))
	return uploaded.Reference()
}

func (s *TicketMutationService) fixup(ctx context.Context, cred session.Credential, name, link, attachment string) {
	if s.fixupDelay > 0 {
		timer := time.NewTimer(s.fixupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Warn("link fix-up abandoned", zap.String("ticket", name), zap.Error(ctx.Err()))
			return
		case <-timer.C:
		}
	}
	patch := map[string]any{"link": link, "attachment": attachment}
	if _, err := s.api.UpdateTicket(ctx, cred, name, patch); err != nil {
		s.logger.Error("link fix-up failed", zap.String("ticket", name), zap.Error(err))
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// Update relays a partial update. Accepting a ticket is reserved for Accept
// so that every accepted ticket carries a rated history entry.
func (s *TicketMutationService) Update(ctx context.Context, cred session.Credential, name string, patch map[string]any) (json.RawMessage, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("ticket id is required", nil)
	}
	delete(patch, "name")
	if len(patch) == 0 {
		return nil, apperrors.NewValidationError("no fields to update", nil)
	}

	var status domain.TicketStatus
	if raw, ok := patch["status"]; ok {
		text, isString := raw.(string)
		status = domain.TicketStatus(text)
		if !isString || !status.Valid() {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": raw})
		}
		if status == domain.TicketStatusAccepted {
			return nil, apperrors.NewValidationError("use the accept operation to accept a ticket", nil)
		}
	}
	if _, ok := patch["action_status"]; ok {
		return nil, apperrors.NewValidationError("status history is append-only", nil)
	}

	data, err := s.api.UpdateTicket(ctx, cred, name, patch)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(patch))
	for field := range patch {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	s.publish(ctx, events.New(events.EventTicketUpdated, name, s.actor(ctx, cred, ""),
		events.TicketUpdatedPayload{Fields: fields, Status: status}))
	return data, nil
}

// AcceptInput carries the acceptance level and notes.
type AcceptInput struct {
	Level string
	Notes string
}

// Accept appends a rated Accepted entry to the ticket's history and writes
// the ticket back. Concurrent accepts of one ticket are serialised within
// this process only; two relay instances can still lose an update.
func (s *TicketMutationService) Accept(ctx context.Context, cred session.Credential, name string, in AcceptInput) (json.RawMessage, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("ticket id is required", nil)
	}
	if strings.TrimSpace(in.Level) == "" {
		return nil, apperrors.NewValidationError("level is required", nil)
	}
	level := domain.Level(strings.ToUpper(strings.TrimSpace(in.Level)))
	rating := level.Rating()

	unlock := s.locks.Lock(name)
	defer unlock()

	ticket, err := s.api.GetTicket(ctx, cred, name)
	if err != nil {
		return nil, err
	}

	timestamp := domain.FormatTimestamp(s.now())
	history := make([]domain.StatusEntry, 0, len(ticket.History)+1)
	history = append(history, ticket.History...)
	history = append(history, domain.StatusEntry{
		Status:    domain.TicketStatusAccepted,
		Rating:    &rating,
		UpdatedAt: timestamp,
		UpdatedBy: s.actor(ctx, cred, ticket.RaisedBy),
		Notes:     in.Notes,
	})

	data, err := s.api.UpdateTicket(ctx, cred, name, map[string]any{
		"status":                    domain.TicketStatusAccepted,
		"status_update_latest_time": timestamp,
		"action_status":             history,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.EventTicketAccepted, name, history[len(history)-1].UpdatedBy,
		events.TicketAcceptedPayload{Level: level, Rating: rating, Notes: in.Notes}))
	return data, nil
}

// actor resolves the logged-in user, falling back to fallback.
func (s *TicketMutationService) actor(ctx context.Context, cred session.Credential, fallback string) string {
	if s.identity == nil {
		return fallback
	}
	user, err := s.identity.Identity(ctx, cred)
	if err != nil || user == "" {
		return fallback
	}
	return user
}

func (s *TicketMutationService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event subscriber failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
