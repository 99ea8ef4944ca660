package services

import (
	"context"
	"sync"
	"time"

	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/logger"
)

type surfaceCall struct {
	op       string
	taskID   string
	entry    domain.LogEntry
	progress int
	label    string
	view     domain.TaskView
	tray     []domain.TrayEntry
}

type recordingSurface struct {
	mu    sync.Mutex
	calls []surfaceCall
}

func (s *recordingSurface) add(c surfaceCall) {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
}

func (s *recordingSurface) Show(view domain.TaskView) {
	s.add(surfaceCall{op: "show", taskID: view.TaskID, view: view})
}

func (s *recordingSurface) AppendLine(taskID string, entry domain.LogEntry) {
	s.add(surfaceCall{op: "line", taskID: taskID, entry: entry})
}

func (s *recordingSurface) SetProgress(taskID string, progress int, label string) {
	s.add(surfaceCall{op: "progress", taskID: taskID, progress: progress, label: label})
}

func (s *recordingSurface) Hide() {
	s.add(surfaceCall{op: "hide"})
}

func (s *recordingSurface) RenderTray(entries []domain.TrayEntry) {
	s.add(surfaceCall{op: "tray", tray: entries})
}

func (s *recordingSurface) ViewInvalidated(view domain.View) {
	s.add(surfaceCall{op: "invalidated", label: string(view)})
}

func (s *recordingSurface) ops(op string) []surfaceCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []surfaceCall
	for _, c := range s.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (s *recordingSurface) linesFor(taskID string) []string {
	var out []string
	for _, c := range s.ops("line") {
		if c.taskID == taskID {
			out = append(out, c.entry.Text)
		}
	}
	return out
}

func (s *recordingSurface) reset() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

type toastRecord struct {
	kind    domain.Severity
	message string
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []toastRecord
}

func (n *recordingNotifier) Toast(kind domain.Severity, message string) {
	n.mu.Lock()
	n.toasts = append(n.toasts, toastRecord{kind, message})
	n.mu.Unlock()
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.toasts))
	for i, t := range n.toasts {
		out[i] = t.message
	}
	return out
}

type fixedConfirmer struct {
	ok      bool
	err     error
	prompts []ports.Prompt
	mu      sync.Mutex
}

func (c *fixedConfirmer) Confirm(ctx context.Context, prompt ports.Prompt) (bool, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	return c.ok, c.err
}

type backendReply struct {
	result *domain.ActionResult
	err    error
	panic  bool
}

// scriptedBackend answers each package id from replies. Ids listed in gates
// block until their channel is closed or ctx ends.
type scriptedBackend struct {
	mu      sync.Mutex
	replies map[string]backendReply
	gates   map[string]chan struct{}
	calls   []string
	lists   map[domain.View][]string
	listN   int
}

func newScriptedBackend() *scriptedBackend {
	return &scriptedBackend{
		replies: make(map[string]backendReply),
		gates:   make(map[string]chan struct{}),
		lists:   make(map[domain.View][]string),
	}
}

func (b *scriptedBackend) reply(id string, r backendReply) {
	b.mu.Lock()
	b.replies[id] = r
	b.mu.Unlock()
}

func (b *scriptedBackend) gate(id string) chan struct{} {
	ch := make(chan struct{})
	b.mu.Lock()
	b.gates[id] = ch
	b.mu.Unlock()
	return ch
}

func (b *scriptedBackend) Do(ctx context.Context, action domain.Action, id string) (*domain.ActionResult, error) {
	b.mu.Lock()
	b.calls = append(b.calls, string(action)+":"+id)
	gate := b.gates[id]
	r, ok := b.replies[id]
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.panic {
		panic("backend exploded")
	}
	if !ok {
		return &domain.ActionResult{Success: true}, nil
	}
	return r.result, r.err
}

func (b *scriptedBackend) List(ctx context.Context, view domain.View) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listN++
	return b.lists[view], nil
}

type recordingRefresher struct {
	mu    sync.Mutex
	views []domain.View
}

func (r *recordingRefresher) Refresh(ctx context.Context, view domain.View) {
	r.mu.Lock()
	r.views = append(r.views, view)
	r.mu.Unlock()
}

type memoryHistory struct {
	mu      sync.Mutex
	entries []domain.TaskHistory
}

func (h *memoryHistory) Create(ctx context.Context, entry *domain.TaskHistory) error {
	h.mu.Lock()
	h.entries = append(h.entries, *entry)
	h.mu.Unlock()
	return nil
}

func (h *memoryHistory) GetAll(ctx context.Context, limit int) ([]domain.TaskHistory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.TaskHistory(nil), h.entries...), nil
}

func (h *memoryHistory) GetByPackage(ctx context.Context, packageID string) ([]domain.TaskHistory, error) {
	return nil, nil
}

func (h *memoryHistory) CleanupOld(ctx context.Context, olderThan time.Duration) error {
	return nil
}

func (h *memoryHistory) outcomes() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]string)
	for _, e := range h.entries {
		out[e.PackageID] = e.Outcome
	}
	return out
}

type harness struct {
	store      *TaskSessionStore
	surface    *recordingSurface
	tasks      *TaskService
	visibility *VisibilityController
	backend    *scriptedBackend
	confirmer  *fixedConfirmer
	notifier   *recordingNotifier
	refresher  *recordingRefresher
	history    *memoryHistory
	launcher   *Launcher
}

func newHarness(maxMinimized int) *harness {
	log := logger.NewNop()
	h := &harness{
		store:     NewTaskSessionStore(maxMinimized),
		surface:   &recordingSurface{},
		backend:   newScriptedBackend(),
		confirmer: &fixedConfirmer{ok: true},
		notifier:  &recordingNotifier{},
		refresher: &recordingRefresher{},
		history:   &memoryHistory{},
	}
	h.tasks = NewTaskService(h.store, h.surface, log)
	h.visibility = NewVisibilityController(h.store, h.surface, log)
	h.launcher = NewLauncher(LauncherConfig{
		Tasks:      h.tasks,
		Store:      h.store,
		Visibility: h.visibility,
		Backend:    h.backend,
		Confirmer:  h.confirmer,
		Notifier:   h.notifier,
		Refresher:  h.refresher,
		History:    h.history,
		Logger:     log,
	})
	return h
}

func texts(t *domain.TaskRecord) []string {
	out := make([]string, len(t.Transcript))
	for i, e := range t.Transcript {
		out[i] = e.Text
	}
	return out
}
