package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMissingToken    = errors.New("canvas API token is not configured")
	ErrNoCourses       = errors.New("course list is empty")
	ErrArtifactMissing = errors.New("required artifact file not found")
	ErrArtifactEmpty   = errors.New("artifact file is empty")
	ErrRosterSchema    = errors.New("roster schema validation failed")
	ErrUnexpectedShape = errors.New("unexpected API payload shape")
	ErrNoRosterFiles   = errors.New("no roster extract files found")
)

// RetryableError marks a failure the fetcher may retry (timeouts,
// connection errors, HTTP 429).
type RetryableError struct {
	Err     error
	Message string
}

func (e RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %s - %s", e.Message, e.Err.Error())
}

func (e RetryableError) Unwrap() error {
	return e.Err
}

func NewRetryableError(err error, message string) error {
	return RetryableError{
		Err:     err,
		Message: message,
	}
}

func IsRetryable(err error) bool {
	var re RetryableError
	return errors.As(err, &re)
}
