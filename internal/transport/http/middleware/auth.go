package middleware

import (
	"crypto/subtle"

	"github.com/easywinget/backend/internal/config"
	"github.com/gofiber/fiber/v2"
)

const (
	AdminTokenHeader   = "X-Admin-Token"
	BackendTokenHeader = "X-Backend-Token"
)

func bearer(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

func tokenAuth(expected func() string, header string, allowQuery bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		want := expected()
		if want == "" {
			return c.Next()
		}

		got := c.Get(header)
		if got == "" {
			got = bearer(c)
		}
		// browsers cannot set headers on a websocket upgrade
		if got == "" && allowQuery {
			got = c.Query("token")
		}

		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		return c.Next()
	}
}

// AdminAuth guards the panel API. It is open when no admin key is set.
func AdminAuth(cfg *config.Config) fiber.Handler {
	return tokenAuth(func() string { return cfg.Auth.AdminAPIKey }, AdminTokenHeader, true)
}

// BackendAuth guards the backend API that other panels call.
func BackendAuth(cfg *config.Config) fiber.Handler {
	return tokenAuth(func() string { return cfg.Auth.BackendToken }, BackendTokenHeader, false)
}
