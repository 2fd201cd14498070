package domain

// TeamMember is a user directory entry.
type TeamMember struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Attachment is a file stored by the backend against a ticket.
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// GuestUser is the identity reported when nobody is logged in.
const GuestUser = "Guest"
