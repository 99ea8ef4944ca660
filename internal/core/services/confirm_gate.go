package services

import (
	"context"
	"sync"
	"time"

	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
)

type pendingPrompt struct {
	prompt ports.Prompt
	answer chan bool
}

// ConfirmGate is a yes/no gate that holds at most one pending prompt.
type ConfirmGate struct {
	publisher   ports.PromptPublisher
	logger      *logger.Logger
	autoConfirm bool
	timeout     time.Duration

	mu      sync.Mutex
	pending *pendingPrompt
}

type ConfirmGateConfig struct {
	Publisher   ports.PromptPublisher
	Logger      *logger.Logger
	AutoConfirm bool
	Timeout     time.Duration
}

func NewConfirmGate(cfg ConfirmGateConfig) *ConfirmGate {
	return &ConfirmGate{
		publisher:   cfg.Publisher,
		logger:      cfg.Logger,
		autoConfirm: cfg.AutoConfirm,
		timeout:     cfg.Timeout,
	}
}

// Confirm publishes prompt and blocks until it is answered. A timeout counts
// as a refusal.
func (g *ConfirmGate) Confirm(ctx context.Context, prompt ports.Prompt) (bool, error) {
	if g.autoConfirm {
		return true, nil
	}

	g.mu.Lock()
	if g.pending != nil {
		g.mu.Unlock()
		return false, ErrConfirmationPending
	}
	prompt.ID = uuid.New().String()
	p := &pendingPrompt{prompt: prompt, answer: make(chan bool, 1)}
	g.pending = p
	g.mu.Unlock()

	g.logger.Infow("confirm_requested", "id", prompt.ID, "title", prompt.Title)
	g.publisher.PublishPrompt(prompt)

	var expired <-chan time.Time
	if g.timeout > 0 {
		timer := time.NewTimer(g.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case ok := <-p.answer:
		return ok, nil
	case <-ctx.Done():
		g.abandon(p)
		return false, ctx.Err()
	case <-expired:
		g.logger.Infow("confirm_timed_out", "id", prompt.ID)
		g.abandon(p)
		return false, nil
	}
}

func (g *ConfirmGate) abandon(p *pendingPrompt) {
	g.mu.Lock()
	owned := g.pending == p
	if owned {
		g.pending = nil
	}
	g.mu.Unlock()
	if owned {
		g.publisher.PublishPromptResolved(p.prompt.ID, false)
	}
}

// Answer resolves the pending prompt with the given id.
func (g *ConfirmGate) Answer(id string, ok bool) error {
	g.mu.Lock()
	p := g.pending
	if p == nil || p.prompt.ID != id {
		g.mu.Unlock()
		return ErrConfirmationNotFound
	}
	g.pending = nil
	g.mu.Unlock()

	p.answer <- ok
	g.publisher.PublishPromptResolved(id, ok)
	g.logger.Infow("confirm_answered", "id", id, "ok", ok)
	return nil
}

// Pending returns the prompt awaiting an answer, if any.
func (g *ConfirmGate) Pending() (ports.Prompt, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return ports.Prompt{}, false
	}
	return g.pending.prompt, true
}
