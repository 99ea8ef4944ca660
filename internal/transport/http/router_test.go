package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/easywinget/backend/internal/config"
	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/cache"
	"github.com/easywinget/backend/internal/infrastructure/db"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/easywinget/backend/internal/infrastructure/winget"
	"github.com/easywinget/backend/internal/transport/http/dto"
	"github.com/easywinget/backend/internal/transport/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminKey     = "admin-secret"
	backendToken = "backend-secret"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]string
}

func (b *fakeBackend) Do(ctx context.Context, action domain.Action, id string) (*domain.ActionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, string(action)+":"+id)
	if id == "Bad!" {
		return nil, winget.ErrInvalidPackageID
	}
	if msg, ok := b.fail[id]; ok {
		return &domain.ActionResult{Success: false, Message: msg}, nil
	}
	return &domain.ActionResult{Success: true}, nil
}

func (b *fakeBackend) List(ctx context.Context, view domain.View) ([]string, error) {
	return []string{"Name  Id  Version", "Foo  App.Foo  1.0"}, nil
}

func newTestApp(t *testing.T, autoConfirm bool) (*fiber.App, *Runtime, *fakeBackend) {
	t.Helper()
	cfg := &config.Config{
		Backend: config.BackendConfig{Mode: "local", DownloadsLabel: "Downloads"},
		Session: config.SessionConfig{
			MaxMinimized:   20,
			ToastTTL:       time.Minute,
			AutoConfirm:    autoConfirm,
			ConfirmTimeout: time.Minute,
		},
		Auth: config.AuthConfig{AdminAPIKey: adminKey, BackendToken: backendToken},
	}
	log := logger.NewNop()
	backend := &fakeBackend{fail: map[string]string{}}

	app := fiber.New()
	rt := SetupRoutes(app, RouterConfig{
		Config:  cfg,
		Logger:  log,
		Backend: backend,
		Cache:   cache.NewNoopViewCache(),
		History: db.NewTaskHistoryRepoStub(log),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = rt.Launcher.Shutdown(ctx)
		rt.Toasts.Stop()
	})
	return app, rt, backend
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

var admin = map[string]string{"X-Admin-Token": adminKey}

func session(t *testing.T, app *fiber.App) dto.SessionResponse {
	t.Helper()
	status, body := do(t, app, fiber.MethodGet, "/api/v1/session", "", admin)
	require.Equal(t, fiber.StatusOK, status)
	var s dto.SessionResponse
	require.NoError(t, json.Unmarshal(body, &s))
	return s
}

func TestRoutes_RequireAdminToken(t *testing.T) {
	app, _, _ := newTestApp(t, true)

	status, _ := do(t, app, fiber.MethodGet, "/api/v1/session", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = do(t, app, fiber.MethodGet, "/api/v1/session", "", map[string]string{"Authorization": "Bearer " + adminKey})
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, fiber.MethodGet, "/api/v1/session?token="+adminKey, "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	// the backend token does not open the panel API
	status, _ = do(t, app, fiber.MethodGet, "/api/v1/session", "", map[string]string{"X-Backend-Token": backendToken})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestRoutes_LaunchRunsTaskToCompletion(t *testing.T) {
	app, _, backend := newTestApp(t, true)

	status, body := do(t, app, fiber.MethodPost, "/api/v1/tasks/install", `{"id":"App.Foo","name":"Foo"}`, admin)
	require.Equal(t, fiber.StatusAccepted, status)
	var accepted dto.LaunchTaskResponse
	require.NoError(t, json.Unmarshal(body, &accepted))
	assert.Equal(t, "pending_confirmation", accepted.Status)
	assert.Equal(t, domain.ActionInstall, accepted.Action)

	require.Eventually(t, func() bool {
		s := session(t, app)
		return s.Visible != nil && s.Visible.Stage == domain.StageComplete
	}, 2*time.Second, 10*time.Millisecond)

	s := session(t, app)
	assert.Equal(t, "Installing Foo", s.Visible.Title)
	assert.Equal(t, 100, s.Visible.Progress)
	assert.Equal(t, "✓ Installation completed successfully!", s.Visible.Transcript[len(s.Visible.Transcript)-1].Text)
	backend.mu.Lock()
	assert.Equal(t, []string{"install:App.Foo"}, backend.calls)
	backend.mu.Unlock()

	status, body = do(t, app, fiber.MethodGet, "/api/v1/tasks/"+s.Visible.ID, "", admin)
	require.Equal(t, fiber.StatusOK, status)
	var task dto.TaskResponse
	require.NoError(t, json.Unmarshal(body, &task))
	assert.Equal(t, "App.Foo", task.PackageID)
	assert.Equal(t, "Completed!", task.Label)

	require.Eventually(t, func() bool {
		_, body := do(t, app, fiber.MethodGet, "/api/v1/history", "", admin)
		var entries []domain.TaskHistory
		_ = json.Unmarshal(body, &entries)
		return len(entries) == 1 && entries[0].Outcome == domain.OutcomeCompleted
	}, 2*time.Second, 10*time.Millisecond)

	status, body = do(t, app, fiber.MethodGet, "/api/v1/toasts", "", admin)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), "Foo installed successfully!")
}

func TestRoutes_LaunchValidation(t *testing.T) {
	app, _, _ := newTestApp(t, true)

	status, _ := do(t, app, fiber.MethodPost, "/api/v1/tasks/reboot", `{"id":"App.Foo"}`, admin)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body := do(t, app, fiber.MethodPost, "/api/v1/tasks/install", `{"name":"Foo"}`, admin)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, string(body), "id is required")

	status, _ = do(t, app, fiber.MethodPost, "/api/v1/tasks/install", `{`, admin)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestRoutes_SessionOperations(t *testing.T) {
	app, _, _ := newTestApp(t, true)

	status, _ := do(t, app, fiber.MethodPost, "/api/v1/session/minimize", "", admin)
	assert.Equal(t, fiber.StatusOK, status, "minimize with nothing visible is a no-op")

	status, _ = do(t, app, fiber.MethodPost, "/api/v1/session/close", "", admin)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = do(t, app, fiber.MethodPost, "/api/v1/tasks/update", `{"id":"App.Foo"}`, admin)
	require.Equal(t, fiber.StatusAccepted, status)
	require.Eventually(t, func() bool {
		s := session(t, app)
		return s.Visible != nil && s.Visible.Stage.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)
	id := session(t, app).Visible.ID

	status, body := do(t, app, fiber.MethodPost, "/api/v1/session/minimize", "", admin)
	require.Equal(t, fiber.StatusOK, status)
	var s dto.SessionResponse
	require.NoError(t, json.Unmarshal(body, &s))
	assert.Nil(t, s.Visible)
	require.Len(t, s.Tray, 1)
	assert.Equal(t, id, s.Tray[0].TaskID)

	status, _ = do(t, app, fiber.MethodPost, "/api/v1/session/restore-index/5", "", admin)
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = do(t, app, fiber.MethodPost, "/api/v1/session/restore-index/x", "", admin)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = do(t, app, fiber.MethodPost, "/api/v1/session/restore/missing", "", admin)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = do(t, app, fiber.MethodPost, "/api/v1/session/restore/"+id, "", admin)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &s))
	require.NotNil(t, s.Visible)
	assert.Equal(t, id, s.Visible.ID)
	assert.Empty(t, s.Tray)

	status, _ = do(t, app, fiber.MethodPost, "/api/v1/session/close", "", admin)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = do(t, app, fiber.MethodGet, "/api/v1/tasks/"+id, "", admin)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRoutes_Confirmation(t *testing.T) {
	app, rt, backend := newTestApp(t, false)

	status, _ := do(t, app, fiber.MethodGet, "/api/v1/confirmations", "", admin)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = do(t, app, fiber.MethodPost, "/api/v1/tasks/uninstall", `{"id":"App.Foo","name":"Foo"}`, admin)
	require.Equal(t, fiber.StatusAccepted, status)

	var pendingID string
	require.Eventually(t, func() bool {
		p, ok := rt.Confirm.Pending()
		pendingID = p.ID
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	status, body := do(t, app, fiber.MethodGet, "/api/v1/confirmations", "", admin)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), "Uninstall Application")

	status, _ = do(t, app, fiber.MethodPost, "/api/v1/confirmations/nope", `{"ok":true}`, admin)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = do(t, app, fiber.MethodPost, "/api/v1/confirmations/"+pendingID, `{"ok":false}`, admin)
	assert.Equal(t, fiber.StatusNoContent, status)

	// declined: nothing runs
	time.Sleep(50 * time.Millisecond)
	assert.Nil(t, session(t, app).Visible)
	backend.mu.Lock()
	assert.Empty(t, backend.calls)
	backend.mu.Unlock()
}

func TestRoutes_CancelUnknownTask(t *testing.T) {
	app, _, _ := newTestApp(t, true)
	status, _ := do(t, app, fiber.MethodPost, "/api/v1/tasks/missing/cancel", "", admin)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRoutes_Views(t *testing.T) {
	app, _, _ := newTestApp(t, true)

	status, body := do(t, app, fiber.MethodGet, "/api/v1/views/installed?refresh=true", "", admin)
	require.Equal(t, fiber.StatusOK, status)
	var view dto.ViewResponse
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, domain.ViewInstalled, view.View)
	assert.Len(t, view.Lines, 2)

	status, _ = do(t, app, fiber.MethodGet, "/api/v1/views/everything", "", admin)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRoutes_HistoryLimit(t *testing.T) {
	app, _, _ := newTestApp(t, true)
	status, _ := do(t, app, fiber.MethodGet, "/api/v1/history?limit=1000", "", admin)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = do(t, app, fiber.MethodGet, "/api/v1/history?package_id=App.Foo", "", admin)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestRoutes_BackendAPI(t *testing.T) {
	app, _, backend := newTestApp(t, true)
	token := map[string]string{"X-Backend-Token": backendToken}

	status, _ := do(t, app, fiber.MethodGet, "/api/install?id=App.Foo", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := do(t, app, fiber.MethodGet, "/api/install?id=App.Foo", "", token)
	require.Equal(t, fiber.StatusOK, status)
	var res domain.ActionResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.Success)

	backend.fail["App.Bad"] = "disk full"
	status, body = do(t, app, fiber.MethodGet, "/api/update?id=App.Bad", "", token)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &res))
	assert.False(t, res.Success)
	assert.Equal(t, "disk full", res.Message)

	status, _ = do(t, app, fiber.MethodGet, "/api/install?id=Bad!", "", token)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, fiber.MethodGet, "/api/install", "", token)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, fiber.MethodGet, "/api/views/updates", "", token)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestRoutes_WebSocketRequiresUpgrade(t *testing.T) {
	app, _, _ := newTestApp(t, true)
	status, _ := do(t, app, fiber.MethodGet, "/ws/session", "", admin)
	assert.Equal(t, fiber.StatusUpgradeRequired, status)
}

func TestRoutes_LaunchFailureIsToasted(t *testing.T) {
	app, rt, backend := newTestApp(t, false)
	sub := rt.Hub.Subscribe()
	defer rt.Hub.Unsubscribe(sub)

	status, _ := do(t, app, fiber.MethodPost, "/api/v1/tasks/install", `{"id":"App.Foo","name":"Foo"}`, admin)
	require.Equal(t, fiber.StatusAccepted, status)
	require.Eventually(t, func() bool {
		_, ok := rt.Confirm.Pending()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	// a second launch while the first prompt is unanswered
	status, _ = do(t, app, fiber.MethodPost, "/api/v1/tasks/install", `{"id":"App.Bar","name":"Bar"}`, admin)
	require.Equal(t, fiber.StatusAccepted, status)

	const want = "Could not install Bar: another confirmation is still open"
	deadline := time.After(2 * time.Second)
	for found := false; !found; {
		select {
		case ev := <-sub.C:
			if ev.Type == ws.EventToast && ev.Toast != nil && ev.Toast.Message == want {
				assert.Equal(t, domain.SeverityError, ev.Toast.Kind)
				found = true
			}
		case <-deadline:
			t.Fatal("no toast for the refused launch")
		}
	}

	_, body := do(t, app, fiber.MethodGet, "/api/v1/toasts", "", admin)
	assert.Contains(t, string(body), want)

	backend.mu.Lock()
	assert.Empty(t, backend.calls)
	backend.mu.Unlock()
}

func TestRoutes_LaunchRejectsMalformedPackageID(t *testing.T) {
	app, rt, _ := newTestApp(t, false)

	status, body := do(t, app, fiber.MethodPost, "/api/v1/tasks/install", `{"id":"App.Foo & del *"}`, admin)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, string(body), "invalid package id")

	time.Sleep(20 * time.Millisecond)
	_, pending := rt.Confirm.Pending()
	assert.False(t, pending, "no prompt for a rejected id")
}
