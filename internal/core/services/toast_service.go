package services

import (
	"sort"
	"sync"
	"time"

	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
)

const DefaultToastTTL = 3 * time.Second

// ToastService publishes toasts and dismisses each one after a fixed TTL.
type ToastService struct {
	publisher ports.ToastPublisher
	logger    *logger.Logger
	ttl       time.Duration

	mu     sync.Mutex
	active map[string]domain.Toast
	timers map[string]*time.Timer
}

func NewToastService(publisher ports.ToastPublisher, log *logger.Logger, ttl time.Duration) *ToastService {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	return &ToastService{
		publisher: publisher,
		logger:    log,
		ttl:       ttl,
		active:    make(map[string]domain.Toast),
		timers:    make(map[string]*time.Timer),
	}
}

func (s *ToastService) Toast(kind domain.Severity, message string) {
	now := time.Now()
	toast := domain.Toast{
		ID:        uuid.New().String(),
		Kind:      kind,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.active[toast.ID] = toast
	s.timers[toast.ID] = time.AfterFunc(s.ttl, func() { s.dismiss(toast.ID) })
	s.mu.Unlock()

	s.publisher.PublishToast(toast)
	s.logger.Debugw("toast_shown", "id", toast.ID, "kind", kind, "message", message)
}

func (s *ToastService) dismiss(id string) {
	s.mu.Lock()
	_, ok := s.active[id]
	delete(s.active, id)
	delete(s.timers, id)
	s.mu.Unlock()

	if ok {
		s.publisher.PublishToastDismissed(id)
	}
}

// Active lists toasts that have not been dismissed yet, oldest first.
func (s *ToastService) Active() []domain.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Toast, 0, len(s.active))
	for _, t := range s.active {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Stop cancels pending dismissals.
func (s *ToastService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
