package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/easywinget/backend/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ctxKey string

const RequestIDKey ctxKey = "request_id"

// RequestID reuses the id in header when present and stores it in the user
// context and locals.
func RequestID(header string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqID string
		if header != "" {
			reqID = c.Get(header)
		}
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals(string(RequestIDKey), reqID)
		c.SetUserContext(context.WithValue(c.UserContext(), RequestIDKey, reqID))
		if header != "" {
			c.Set(header, reqID)
		}
		return c.Next()
	}
}

func AccessLog(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Infow("http_access",
			"method", c.Method(),
			"path", c.Path(),
			"route", routePath(c),
			"status", c.Response().StatusCode(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.IP(),
			"request_id", c.Locals(string(RequestIDKey)),
		)
		return err
	}
}

// Metrics records request counts and latency by route pattern, so ids in
// paths do not explode label cardinality.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}
		metrics.RecordHTTPRequest(c.Method(), routePath(c), strconv.Itoa(status), time.Since(start))
		return err
	}
}

func routePath(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return "unmatched"
}
