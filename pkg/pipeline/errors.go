package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means no patient population could be loaded. The
	// pipeline cannot produce anything useful without one.
	ErrDataUnavailable = errors.New("patient data unavailable")

	// ErrNoPatterns means no discovery run has completed yet.
	ErrNoPatterns = errors.New("no discovered patterns available")

	// ErrStageTimeout marks a stage that exceeded its time budget.
	ErrStageTimeout = errors.New("stage timed out")
)

// StageError wraps a failure with the pipeline stage it occurred in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
