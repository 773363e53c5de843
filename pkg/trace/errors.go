package trace

import "errors"

var (
	// ErrOrchestrationExists is returned by Start when the id is already in use.
	ErrOrchestrationExists = errors.New("orchestration already exists")
	// ErrOrchestrationNotFound is returned when no trace carries the given id.
	ErrOrchestrationNotFound = errors.New("orchestration not found")
	// ErrOrchestrationCompleted is returned when mutating a completed trace.
	ErrOrchestrationCompleted = errors.New("orchestration already completed")
)
