package dto

import "github.com/spec-kit/ticket-relay/internal/domain"

// TeamsResponse lists the user directory.
type TeamsResponse struct {
	Members []domain.TeamMember `json:"members"`
}
