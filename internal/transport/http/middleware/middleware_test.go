package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/easywinget/backend/internal/config"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Get("/admin", AdminAuth(cfg), func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/backend", BackendAuth(cfg), func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func statusOf(t *testing.T, app *fiber.App, path string, headers map[string]string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAdminAuth(t *testing.T) {
	app := authApp(&config.Config{Auth: config.AuthConfig{AdminAPIKey: "k1"}})

	tests := []struct {
		name    string
		path    string
		headers map[string]string
		want    int
	}{
		{"missing", "/admin", nil, fiber.StatusUnauthorized},
		{"wrong header", "/admin", map[string]string{AdminTokenHeader: "nope"}, fiber.StatusUnauthorized},
		{"header", "/admin", map[string]string{AdminTokenHeader: "k1"}, fiber.StatusOK},
		{"bearer", "/admin", map[string]string{"Authorization": "Bearer k1"}, fiber.StatusOK},
		{"basic is not bearer", "/admin", map[string]string{"Authorization": "Basic k1"}, fiber.StatusUnauthorized},
		{"query", "/admin?token=k1", nil, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(t, app, tt.path, tt.headers))
		})
	}
}

func TestBackendAuth(t *testing.T) {
	app := authApp(&config.Config{Auth: config.AuthConfig{BackendToken: "b1"}})

	assert.Equal(t, fiber.StatusOK, statusOf(t, app, "/backend", map[string]string{BackendTokenHeader: "b1"}))
	assert.Equal(t, fiber.StatusUnauthorized, statusOf(t, app, "/backend?token=b1", nil), "no query tokens on the backend API")
	assert.Equal(t, fiber.StatusOK, statusOf(t, app, "/admin", nil), "admin API is open without a key")
}

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID("X-Request-ID"))
	app.Get("/", func(c *fiber.Ctx) error {
		fromCtx, _ := c.UserContext().Value(RequestIDKey).(string)
		assert.Equal(t, c.Locals(string(RequestIDKey)), fromCtx)
		return c.SendString(fromCtx)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	generated := resp.Header.Get("X-Request-ID")
	assert.Len(t, generated, 36)

	req = httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func TestAccessLogAndMetricsPassThrough(t *testing.T) {
	app := fiber.New()
	app.Use(AccessLog(logger.NewNop()), Metrics())
	app.Get("/tasks/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusTeapot) })

	assert.Equal(t, fiber.StatusTeapot, statusOf(t, app, "/tasks/42", nil))
	assert.Equal(t, fiber.StatusNotFound, statusOf(t, app, "/nowhere", nil))
}
