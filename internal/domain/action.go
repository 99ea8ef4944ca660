package domain

import "fmt"

// Action is a package operation the panel can launch.
type Action string

const (
	ActionInstall   Action = "install"
	ActionDownload  Action = "download"
	ActionUninstall Action = "uninstall"
	ActionUpdate    Action = "update"
)

// ParseAction validates a raw action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionInstall, ActionDownload, ActionUninstall, ActionUpdate:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Verb is the winget sub-command for the action.
func (a Action) Verb() string {
	if a == ActionUpdate {
		return "upgrade"
	}
	return string(a)
}

// ActionResult is the backend reply for one action.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// View names a listing that task outcomes can invalidate.
type View string

const (
	ViewInstalled View = "installed"
	ViewUpdates   View = "updates"
)

// ParseView validates a raw view name.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewInstalled, ViewUpdates:
		return v, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}
