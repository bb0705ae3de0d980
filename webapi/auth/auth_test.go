package auth_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abensaid/lendify/internal/fixtures"
	"github.com/abensaid/lendify/pkg/config"
	"github.com/abensaid/lendify/pkg/domain/user"
	authsvc "github.com/abensaid/lendify/pkg/service/auth"
	authweb "github.com/abensaid/lendify/webapi/auth"
)

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	uow := fixtures.NewUoW()
	u, err := user.New("aisha", "aisha@example.com", "s3cret-pass")
	require.NoError(t, err)
	uow.SeedUser(u)

	svc := authsvc.New(uow, &config.Jwt{Secret: "test-secret", Expiry: time.Hour}, slog.New(slog.DiscardHandler))
	app := fiber.New()
	authweb.Routes(app, svc)
	return app
}

func login(t *testing.T, app *fiber.App, identity, password string) *http.Response {
	t.Helper()
	raw, err := json.Marshal(fiber.Map{"identity": identity, "password": password})
	require.NoError(t, err)
	req := httptest.NewRequest(fiber.MethodPost, "/auth/login", bytes.NewReader(raw))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestLogin_ReturnsToken(t *testing.T) {
	app := newApp(t)
	resp := login(t, app, "aisha@example.com", "s3cret-pass")
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	token, _ := envelope.Data["token"].(string)
	assert.NotEmpty(t, token)
}

func TestLogin_WrongPassword(t *testing.T) {
	app := newApp(t)
	resp := login(t, app, "aisha", "wrong-password")
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_ValidationFailure(t *testing.T) {
	app := newApp(t)
	resp := login(t, app, "a", "")
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
