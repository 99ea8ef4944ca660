package services

import "errors"

// Task errors
var (
	ErrTaskNotFound     = errors.New("task: not found")
	ErrTaskInvalidInput = errors.New("task: invalid input")
)

// Session errors
var (
	ErrNoVisibleTask       = errors.New("session: no visible task")
	ErrVisibleSlotOccupied = errors.New("session: visible slot occupied")
	ErrTrayIndexOutOfRange = errors.New("session: tray index out of range")
	ErrTrayFull            = errors.New("session: minimized tray full")
)

// Launcher errors
var (
	ErrLaunchDeclined = errors.New("launcher: declined by user")
	ErrLaunchStopped  = errors.New("launcher: shutting down")
)

// Confirmation errors
var (
	ErrConfirmationPending  = errors.New("confirm: another confirmation is pending")
	ErrConfirmationNotFound = errors.New("confirm: no such pending confirmation")
)
