package errs

import (
	"errors"
	"fmt"
)

// ProviderError is an upstream speech/translation/LLM failure. StatusCode is 0
// when the request never produced an HTTP response.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s provider error", e.Provider)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status=%d", e.StatusCode)
	}
	if e.Body != "" {
		msg += fmt.Sprintf(" body=%s", e.Body)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

type PersistenceError struct {
	Table string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("insert into %s: %v", e.Table, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Kind tells the transport how to present a failed run.
type Kind int

const (
	KindInternal Kind = iota
	KindUnprocessable
)

func (k Kind) String() string {
	if k == KindUnprocessable {
		return "unprocessable"
	}
	return "internal"
}

// PipelineError terminates a report run. Message is safe to show to the user.
type PipelineError struct {
	Stage   string
	Kind    Kind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// IsUnprocessable reports whether err means the submitted input could not be processed.
func IsUnprocessable(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Kind == KindUnprocessable
}

// UserMessage returns the client-facing message of a pipeline failure.
func UserMessage(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return "internal error"
}
