package services

import (
	"sync"
	"time"

	"github.com/easywinget/backend/internal/domain"
	"github.com/google/uuid"
)

// SessionState is the mutable state of one interactive session. It is only
// reachable through TaskSessionStore.Update, which holds the session lock.
type SessionState struct {
	tasks        map[string]*domain.TaskRecord
	visible      *domain.TaskRecord
	minimized    []*domain.TaskRecord
	maxMinimized int
}

// Visible returns the task currently shown in full detail, or nil.
func (s *SessionState) Visible() *domain.TaskRecord {
	return s.visible
}

// IsVisible reports whether task occupies the visible slot.
func (s *SessionState) IsVisible(task *domain.TaskRecord) bool {
	return task != nil && s.visible == task
}

// Lookup finds a live task by identity.
func (s *SessionState) Lookup(id string) (*domain.TaskRecord, bool) {
	t, ok := s.tasks[id]
	return t, ok
}

// Tray renders the minimized collection in order.
func (s *SessionState) Tray() []domain.TrayEntry {
	entries := make([]domain.TrayEntry, 0, len(s.minimized))
	for i, t := range s.minimized {
		entries = append(entries, domain.TrayEntry{
			Index:    i,
			TaskID:   t.ID,
			Title:    t.Title,
			Icon:     "📋",
			Stage:    t.Stage,
			Progress: t.Progress,
		})
	}
	return entries
}

func (s *SessionState) indexOf(id string) int {
	for i, t := range s.minimized {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// pushMinimized appends task to the tray, evicting the oldest terminal task
// when the tray is at its bound.
func (s *SessionState) pushMinimized(task *domain.TaskRecord) (evicted *domain.TaskRecord, err error) {
	if s.maxMinimized > 0 && len(s.minimized) >= s.maxMinimized {
		victim := -1
		for i, t := range s.minimized {
			if t.Stage.IsTerminal() {
				victim = i
				break
			}
		}
		if victim < 0 {
			return nil, ErrTrayFull
		}
		evicted = s.minimized[victim]
		s.minimized = append(s.minimized[:victim], s.minimized[victim+1:]...)
		delete(s.tasks, evicted.ID)
	}
	s.minimized = append(s.minimized, task)
	return evicted, nil
}

func (s *SessionState) removeMinimized(i int) *domain.TaskRecord {
	t := s.minimized[i]
	s.minimized = append(s.minimized[:i], s.minimized[i+1:]...)
	return t
}

// TaskSessionStore owns every task record and the visibility state of one
// session. Components receive it through their constructors.
type TaskSessionStore struct {
	mu    sync.Mutex
	state SessionState
}

func NewTaskSessionStore(maxMinimized int) *TaskSessionStore {
	if maxMinimized < 0 {
		maxMinimized = 0
	}
	return &TaskSessionStore{
		state: SessionState{
			tasks:        make(map[string]*domain.TaskRecord),
			maxMinimized: maxMinimized,
		},
	}
}

// Create registers a fresh record. It is neither visible nor minimized yet.
func (s *TaskSessionStore) Create(action domain.Action, title, subjectID string) *domain.TaskRecord {
	now := time.Now()
	task := &domain.TaskRecord{
		ID:         uuid.New().String(),
		Action:     action,
		Title:      title,
		SubjectID:  subjectID,
		Transcript: make([]domain.LogEntry, 0, 8),
		Stage:      domain.StageInit,
		Progress:   0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	s.state.tasks[task.ID] = task
	s.mu.Unlock()
	return task
}

// Update runs fn with exclusive access to the session state.
func (s *TaskSessionStore) Update(fn func(st *SessionState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.state)
}

// Get returns a copy of a live task.
func (s *TaskSessionStore) Get(id string) (*domain.TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.state.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return t.Clone(), nil
}

// SessionSnapshot is a consistent copy of the visibility state.
type SessionSnapshot struct {
	Visible *domain.TaskRecord `json:"visible"`
	Tray    []domain.TrayEntry `json:"tray"`
}

func (s *TaskSessionStore) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		Visible: s.state.visible.Clone(),
		Tray:    s.state.Tray(),
	}
}

// MinimizedCount is the current tray size.
func (s *TaskSessionStore) MinimizedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.minimized)
}

// Discard forgets a task that never became visible.
func (s *TaskSessionStore) Discard(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.visible != nil && s.state.visible.ID == id {
		return
	}
	if s.state.indexOf(id) >= 0 {
		return
	}
	delete(s.state.tasks, id)
}
