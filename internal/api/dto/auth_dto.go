package dto

import "strings"

// LoginRequest carries the login form.
type LoginRequest struct {
	User     string `json:"usr" form:"usr"`
	Password string `json:"pwd" form:"pwd"`
	Remember string `json:"remember" form:"remember"`
}

// RememberMe reports whether the browser asked for a persistent session.
func (r LoginRequest) RememberMe() bool {
	switch strings.ToLower(strings.TrimSpace(r.Remember)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// CheckResponse reports the current identity.
type CheckResponse struct {
	Message string `json:"message"`
}

// ReporteeRequest optionally names the manager whose reportees to list.
type ReporteeRequest struct {
	Email string `json:"email" form:"email"`
}
