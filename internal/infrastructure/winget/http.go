package winget

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/easywinget/backend/internal/domain"
	"github.com/gofiber/fiber/v2"
)

const BackendTokenHeader = "X-Backend-Token"

type HTTPBackendConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// HTTPBackend forwards actions to another panel's backend API.
type HTTPBackend struct {
	baseURL string
	token   string
	timeout time.Duration
}

func NewHTTPBackend(cfg HTTPBackendConfig) *HTTPBackend {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Minute
	}
	return &HTTPBackend{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: cfg.Timeout,
	}
}

type response struct {
	code int
	body []byte
	err  error
}

// get issues the request on a fiber Agent. The agent has no context support,
// so cancellation abandons the in-flight request.
func (b *HTTPBackend) get(ctx context.Context, endpoint string) ([]byte, error) {
	done := make(chan response, 1)
	go func() {
		a := fiber.Get(b.baseURL + endpoint)
		a.Timeout(b.timeout)
		if b.token != "" {
			a.Set(BackendTokenHeader, b.token)
		}
		code, body, errs := a.Bytes()
		var err error
		if len(errs) > 0 {
			err = errs[0]
		}
		done <- response{code: code, body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, r.err)
		}
		if r.code < 200 || r.code > 299 {
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, r.code)
		}
		return r.body, nil
	}
}

func (b *HTTPBackend) Do(ctx context.Context, action domain.Action, packageID string) (*domain.ActionResult, error) {
	body, err := b.get(ctx, "/api/"+string(action)+"?id="+url.QueryEscape(packageID))
	if err != nil {
		return nil, err
	}

	var raw struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.Success == nil {
		return nil, fmt.Errorf("%w: %s", ErrBadResponse, truncate(body))
	}
	return &domain.ActionResult{Success: *raw.Success, Message: raw.Message}, nil
}

func (b *HTTPBackend) List(ctx context.Context, view domain.View) ([]string, error) {
	body, err := b.get(ctx, "/api/views/"+string(view))
	if err != nil {
		return nil, err
	}
	var raw struct {
		Lines []string `json:"lines"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadResponse, truncate(body))
	}
	return raw.Lines, nil
}

func truncate(b []byte) string {
	if len(b) > 120 {
		return string(b[:120]) + "..."
	}
	return string(b)
}
