package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-relay/internal/session"
	apperrors "github.com/spec-kit/ticket-relay/pkg/util/errorutil"
)

func middlewareApp(t *testing.T) (*fiber.App, *TokenManager) {
	t.Helper()
	tm := NewTokenManager("secret", "relay")
	relay := session.NewRelay(tm, session.Options{CookieName: "relay_sid", MaxAge: time.Hour})
	mw := NewAuthMiddleware(relay, zap.NewNop())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code})
		},
	})
	app.Use(mw.Handle)
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(CredentialFromContext(c).String())
	})
	app.Get("/rotate", func(c *fiber.Ctx) error {
		session.Notify(c.UserContext(), []string{"sid=rotated; Path=/"})
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/login", func(c *fiber.Ctx) error {
		MarkSessionHandled(c)
		session.Notify(c.UserContext(), []string{"sid=rotated; Path=/"})
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/private", RequireCredential(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app, tm
}

func TestMiddlewarePersistsRotatedSession(t *testing.T) {
	app, tm := middlewareApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/rotate", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	cookie := resp.Header.Get("Set-Cookie")
	value, ok := strings.CutPrefix(cookie, "relay_sid=")
	if !ok {
		t.Fatalf("rotated session not persisted: %q", cookie)
	}
	value, _, _ = strings.Cut(value, ";")
	sid, err := tm.Unseal(value)
	if err != nil || sid != "rotated" {
		t.Fatalf("persisted cookie unseals to %q, %v", sid, err)
	}
}

func TestMiddlewareSkipsHandledRoutes(t *testing.T) {
	app, _ := middlewareApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if cookie := resp.Header.Get("Set-Cookie"); cookie != "" {
		t.Fatalf("handled route got a cookie from the middleware: %q", cookie)
	}
}

func TestMiddlewareResolvesCredential(t *testing.T) {
	app, tm := middlewareApp(t)
	sealed, err := tm.Seal("persisted", time.Hour)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Cookie", "relay_sid="+sealed)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	if got := string(buf[:n]); got != "sid=persisted" {
		t.Fatalf("credential = %q, want sid=persisted", got)
	}
}

func TestRequireCredential(t *testing.T) {
	app, _ := middlewareApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/private", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Cookie", "sid=raw")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
