package domain

import "time"

// Severity classifies a transcript entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Stage is the named phase of a task.
type Stage string

const (
	StageInit      Stage = "init"
	StageSearch    Stage = "search"
	StageDownload  Stage = "download"
	StageInstall   Stage = "install"
	StageUpdate    Stage = "update"
	StageUninstall Stage = "uninstall"
	StageVerify    Stage = "verify"
	StageComplete  Stage = "complete"
	StageError     Stage = "error"
)

var stageLabels = map[Stage]string{
	StageInit:      "Preparing...",
	StageSearch:    "Searching packages...",
	StageDownload:  "Downloading...",
	StageInstall:   "Installing...",
	StageUpdate:    "Updating...",
	StageUninstall: "Uninstalling...",
	StageVerify:    "Finalizing...",
	StageComplete:  "Completed!",
	StageError:     "Failed",
}

// Label returns the status text shown next to the progress bar.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return "Initializing..."
}

// IsTerminal reports whether no further stage changes may occur.
func (s Stage) IsTerminal() bool {
	return s == StageComplete || s == StageError
}

// LogEntry is one transcript line.
type LogEntry struct {
	Text     string    `json:"text"`
	Severity Severity  `json:"severity"`
	At       time.Time `json:"at"`
}

// TaskRecord is one in-flight or finished package operation.
// Records are mutated only while the owning session lock is held.
type TaskRecord struct {
	ID         string     `json:"id"`
	Action     Action     `json:"action"`
	Title      string     `json:"title"`
	SubjectID  string     `json:"subject_id"`
	Transcript []LogEntry `json:"transcript"`
	Stage      Stage      `json:"stage"`
	Progress   int        `json:"progress"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Clone returns a deep copy safe to hand out of the session lock.
func (t *TaskRecord) Clone() *TaskRecord {
	if t == nil {
		return nil
	}
	c := *t
	c.Transcript = make([]LogEntry, len(t.Transcript))
	copy(c.Transcript, t.Transcript)
	return &c
}

// TrayEntry is the compact representation of a minimized task.
type TrayEntry struct {
	Index    int    `json:"index"`
	TaskID   string `json:"task_id"`
	Title    string `json:"title"`
	Icon     string `json:"icon"`
	Stage    Stage  `json:"stage"`
	Progress int    `json:"progress"`
}

// TaskView is everything needed to fully redraw the visible surface.
type TaskView struct {
	TaskID     string     `json:"task_id"`
	Title      string     `json:"title"`
	Transcript []LogEntry `json:"transcript"`
	Stage      Stage      `json:"stage"`
	Progress   int        `json:"progress"`
	Label      string     `json:"label"`
}

// ViewOf builds the surface view of a record.
func ViewOf(t *TaskRecord) TaskView {
	transcript := make([]LogEntry, len(t.Transcript))
	copy(transcript, t.Transcript)
	return TaskView{
		TaskID:     t.ID,
		Title:      t.Title,
		Transcript: transcript,
		Stage:      t.Stage,
		Progress:   t.Progress,
		Label:      t.Stage.Label(),
	}
}
