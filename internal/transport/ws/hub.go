package ws

import (
	"sync"

	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/logger"
)

const (
	EventTaskShown       = "task_shown"
	EventTaskLine        = "task_line"
	EventTaskProgress    = "task_progress"
	EventTaskHidden      = "task_hidden"
	EventTray            = "tray"
	EventViewInvalidated = "view_invalidated"
	EventToast           = "toast"
	EventToastDismissed  = "toast_dismissed"
	EventConfirmRequest  = "confirm_request"
	EventConfirmResolved = "confirm_resolved"
	EventSnapshot        = "snapshot"
	EventError           = "error"
)

// Event is one message pushed to browsers.
type Event struct {
	Type         string             `json:"type"`
	TaskID       string             `json:"task_id,omitempty"`
	Task         *domain.TaskView   `json:"task,omitempty"`
	Entry        *domain.LogEntry   `json:"entry,omitempty"`
	Progress     *int               `json:"progress,omitempty"`
	Label        string             `json:"label,omitempty"`
	Tray         []domain.TrayEntry `json:"tray,omitempty"`
	View         domain.View        `json:"view,omitempty"`
	Toast        *domain.Toast      `json:"toast,omitempty"`
	ToastID      string             `json:"toast_id,omitempty"`
	Prompt       *ports.Prompt      `json:"prompt,omitempty"`
	PromptID     string             `json:"prompt_id,omitempty"`
	OK           *bool              `json:"ok,omitempty"`
	ScrollLocked *bool              `json:"scroll_locked,omitempty"`
	Error        string             `json:"error,omitempty"`
}

const subscriberBuffer = 256

// Subscriber receives hub events on C until it is unsubscribed or falls too
// far behind.
type Subscriber struct {
	C <-chan Event

	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// Send delivers ev to this subscriber only. It reports false if the buffer
// is full or the subscriber is gone.
func (s *Subscriber) Send(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Hub fans surface, toast and prompt events out to every connected browser.
// Broadcasts never block: a subscriber whose buffer is full is dropped.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	logger *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		subs:   make(map[*Subscriber]struct{}),
		logger: log,
	}
}

func (h *Hub) Subscribe() *Subscriber {
	ch := make(chan Event, subscriberBuffer)
	s := &Subscriber{C: ch, ch: ch}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	h.logger.Debugw("ws_subscribed", "subscribers", n)
	return s
}

func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	s.close()
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if !s.Send(ev) {
			delete(h.subs, s)
			s.close()
			h.logger.Warnw("ws_subscriber_dropped", "event", ev.Type)
		}
	}
}

func boolPtr(b bool) *bool { return &b }

func (h *Hub) Show(view domain.TaskView) {
	h.broadcast(Event{Type: EventTaskShown, TaskID: view.TaskID, Task: &view, ScrollLocked: boolPtr(true)})
}

func (h *Hub) AppendLine(taskID string, entry domain.LogEntry) {
	h.broadcast(Event{Type: EventTaskLine, TaskID: taskID, Entry: &entry})
}

func (h *Hub) SetProgress(taskID string, progress int, label string) {
	h.broadcast(Event{Type: EventTaskProgress, TaskID: taskID, Progress: &progress, Label: label})
}

func (h *Hub) Hide() {
	h.broadcast(Event{Type: EventTaskHidden, ScrollLocked: boolPtr(false)})
}

func (h *Hub) RenderTray(entries []domain.TrayEntry) {
	h.broadcast(Event{Type: EventTray, Tray: entries})
}

func (h *Hub) ViewInvalidated(view domain.View) {
	h.broadcast(Event{Type: EventViewInvalidated, View: view})
}

func (h *Hub) PublishToast(toast domain.Toast) {
	h.broadcast(Event{Type: EventToast, Toast: &toast})
}

func (h *Hub) PublishToastDismissed(id string) {
	h.broadcast(Event{Type: EventToastDismissed, ToastID: id})
}

func (h *Hub) PublishPrompt(prompt ports.Prompt) {
	h.broadcast(Event{Type: EventConfirmRequest, Prompt: &prompt})
}

func (h *Hub) PublishPromptResolved(id string, ok bool) {
	h.broadcast(Event{Type: EventConfirmResolved, PromptID: id, OK: boolPtr(ok)})
}

var (
	_ ports.TaskSurface     = (*Hub)(nil)
	_ ports.ToastPublisher  = (*Hub)(nil)
	_ ports.PromptPublisher = (*Hub)(nil)
)
