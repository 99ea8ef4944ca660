package ws

import (
	"errors"
	"fmt"

	"github.com/easywinget/backend/internal/core/services"
	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/gofiber/contrib/websocket"
)

// ClientMessage is a control request sent by the browser.
type ClientMessage struct {
	Op       string `json:"op"`
	TaskID   string `json:"task_id,omitempty"`
	Index    *int   `json:"index,omitempty"`
	PromptID string `json:"prompt_id,omitempty"`
	OK       bool   `json:"ok,omitempty"`
}

type SessionHandler struct {
	hub        *Hub
	store      *services.TaskSessionStore
	visibility *services.VisibilityController
	confirm    *services.ConfirmGate
	logger     *logger.Logger
}

func NewSessionHandler(hub *Hub, store *services.TaskSessionStore, visibility *services.VisibilityController, confirm *services.ConfirmGate, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		hub:        hub,
		store:      store,
		visibility: visibility,
		confirm:    confirm,
		logger:     log,
	}
}

// subscribe registers a subscriber and queues the current session state as
// its first event. Both happen under the session lock so no surface event
// can slip in between.
func (h *SessionHandler) subscribe() *Subscriber {
	var sub *Subscriber
	_ = h.store.Update(func(st *services.SessionState) error {
		sub = h.hub.Subscribe()
		snap := Event{Type: EventSnapshot, Tray: st.Tray(), ScrollLocked: boolPtr(false)}
		if v := st.Visible(); v != nil {
			view := domain.ViewOf(v)
			snap.Task = &view
			snap.TaskID = v.ID
			snap.ScrollLocked = boolPtr(true)
		}
		sub.Send(snap)
		return nil
	})
	if p, ok := h.confirm.Pending(); ok {
		sub.Send(Event{Type: EventConfirmRequest, Prompt: &p})
	}
	return sub
}

func (h *SessionHandler) Handle(c *websocket.Conn) {
	sub := h.subscribe()
	h.logger.Infow("ws_session_open", "remote", c.RemoteAddr().String())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sub.C {
			if err := c.WriteJSON(ev); err != nil {
				h.logger.Debugw("ws_write_failed", "error", err)
				break
			}
		}
		// dropped or closed: unblock the reader
		_ = c.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.ReadJSON(&msg); err != nil {
			break
		}
		if err := h.Apply(msg); err != nil {
			h.logger.Warnw("ws_op_failed", "op", msg.Op, "task_id", msg.TaskID, "error", err)
			sub.Send(Event{Type: EventError, TaskID: msg.TaskID, Error: err.Error()})
		}
	}

	h.hub.Unsubscribe(sub)
	<-done
	h.logger.Infow("ws_session_closed")
}

var errUnknownOp = errors.New("unknown op")

// Apply runs one browser control request against the session.
func (h *SessionHandler) Apply(msg ClientMessage) error {
	switch msg.Op {
	case "minimize":
		return h.visibility.Minimize()
	case "close":
		return h.visibility.Close()
	case "restore":
		var err error
		if msg.TaskID != "" {
			_, err = h.visibility.RestoreByID(msg.TaskID)
		} else if msg.Index != nil {
			_, err = h.visibility.Restore(*msg.Index)
		} else {
			err = services.ErrTaskInvalidInput
		}
		return err
	case "confirm":
		return h.confirm.Answer(msg.PromptID, msg.OK)
	default:
		return fmt.Errorf("%w: %q", errUnknownOp, msg.Op)
	}
}
