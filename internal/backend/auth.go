package backend

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-relay/internal/session"
)

// LoggedUser asks the backend who owns cred. A non-string or empty message
// yields "" without error; non-OK answers are FetchErrors.
func (c *Client) LoggedUser(ctx context.Context, cred session.Credential) (string, error) {
	const op = "get_logged_user"
	res, err := c.do(ctx, request{
		op:         op,
		method:     fiber.MethodGet,
		url:        c.methodURL("frappe.auth.get_logged_user"),
		credential: cred,
	})
	if err != nil {
		return "", err
	}
	if !res.ok() {
		return "", res.fetchError(op)
	}
	var payload struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(res.body, &payload); err != nil {
		return "", &DecodeError{Op: op, Err: err}
	}
	user, _ := payload.Message.(string)
	return user, nil
}

// Login posts form-encoded credentials. Non-OK answers are returned as
// results, not errors, so the caller can forward them.
func (c *Client) Login(ctx context.Context, form LoginForm) (*LoginResult, error) {
	res, err := c.do(ctx, request{
		op:     "login",
		method: fiber.MethodPost,
		url:    c.methodURL("login"),
		form:   map[string]string{"usr": form.User, "pwd": form.Password},
	})
	if err != nil {
		return nil, err
	}
	result := &LoginResult{
		Status:      res.status,
		ContentType: res.contentType,
		SID:         session.ExtractSID(res.setCookies),
	}
	if json.Valid(res.body) {
		result.Body = json.RawMessage(res.body)
	}
	if result.SID == "" && result.Body != nil {
		var body struct {
			SID string `json:"sid"`
		}
		if json.Unmarshal(result.Body, &body) == nil && body.SID != "" && body.SID != "Guest" {
			result.SID = body.SID
		}
	}
	return result, nil
}

// Logout ends the backend session.
func (c *Client) Logout(ctx context.Context, cred session.Credential) (*RawResult, error) {
	res, err := c.do(ctx, request{
		op:         "logout",
		method:     fiber.MethodPost,
		url:        c.methodURL("logout"),
		credential: cred,
	})
	if err != nil {
		return nil, err
	}
	result := &RawResult{Status: res.status}
	if json.Valid(res.body) {
		result.Body = json.RawMessage(res.body)
	}
	if result.Status == 0 {
		result.Status = http.StatusOK
	}
	return result, nil
}
