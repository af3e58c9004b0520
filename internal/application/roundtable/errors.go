package roundtable

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPanel is returned when a panel operation needs a persisted panel.
	ErrNoPanel = errors.New("no expert panel for this session")
	// ErrAnalysisFailed marks failures of the tabular pipeline.
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrTurnSuperseded is returned to a turn abandoned for a newer question.
	ErrTurnSuperseded = errors.New("turn superseded by a newer question")
)

// ValidationError is a rejected input; the HTTP layer maps it to 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// AnalysisError is the single user-visible failure of the tabular pipeline.
type AnalysisError struct {
	Code string
	Err  error
}

func (e *AnalysisError) Error() string {
	return "Sorry, there was an error analyzing the data: " + e.Err.Error()
}

func (e *AnalysisError) Unwrap() error { return e.Err }

func (e *AnalysisError) Is(target error) bool { return target == ErrAnalysisFailed }
