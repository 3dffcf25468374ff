package pipeline

import (
	"errors"
	"fmt"

	"grantreview/internal/review"
)

// ExtractionError means no text could be obtained. It aborts the run.
type ExtractionError struct {
	Reference string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Reference, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// CompletionError is a completion-service failure (quota, network, timeout).
type CompletionError struct {
	Stage review.Stage
	Err   error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s completion: %v", e.Stage, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// SearchError is a knowledge-base search failure.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("knowledge base search: %v", e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// MalformedOutputError means a completion came back without the expected structure.
type MalformedOutputError struct {
	Stage  review.Stage
	Reason string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("%s: malformed completion output: %s", e.Stage, e.Reason)
}

// DeliveryError is an email hand-off failure.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsExtractionError reports whether err is or wraps an *ExtractionError.
func IsExtractionError(err error) bool {
	var e *ExtractionError
	return errors.As(err, &e)
}

// IsCompletionError reports whether err is or wraps a *CompletionError.
func IsCompletionError(err error) bool {
	var e *CompletionError
	return errors.As(err, &e)
}

// IsSearchError reports whether err is or wraps a *SearchError.
func IsSearchError(err error) bool {
	var e *SearchError
	return errors.As(err, &e)
}

// ErrAborted is returned with a partial report when the run's context ends
// between stages.
var ErrAborted = errors.New("pipeline aborted")
