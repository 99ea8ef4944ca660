package domain

// Task history outcomes
const (
	OutcomeCompleted = "COMPLETED"
	OutcomeFailed    = "FAILED"
	OutcomeCancelled = "CANCELLED"
)
