package backend

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/session"
)

// ReportingManagerField links users and tickets to a supervisor.
const ReportingManagerField = "reporting_manager_user"

// ListUsers queries the user directory. Entries without an id are dropped
// and the display name falls back to the id.
func (c *Client) ListUsers(ctx context.Context, cred session.Credential, filters []Filter) ([]domain.TeamMember, error) {
	const op = "list_users"
	query, err := listQuery([]string{"name", "full_name"}, filters)
	if err != nil {
		return nil, err
	}
	res, err := c.do(ctx, request{
		op:         op,
		method:     fiber.MethodGet,
		url:        c.resourceURL("User", "") + "?" + query,
		credential: cred,
	})
	if err != nil {
		return nil, err
	}
	if !res.ok() {
		return nil, res.fetchError(op)
	}
	var rows []struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
	}
	if err := decodeData(op, res.body, &rows); err != nil {
		return nil, err
	}
	members := make([]domain.TeamMember, 0, len(rows))
	for _, row := range rows {
		if row.Name == "" {
			continue
		}
		name := row.FullName
		if name == "" {
			name = row.Name
		}
		members = append(members, domain.TeamMember{ID: row.Name, Name: name})
	}
	return members, nil
}
