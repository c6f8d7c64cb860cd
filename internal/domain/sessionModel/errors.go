package sessionModel

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput blocks an action silently; it never becomes visible state.
	ErrMissingInput     = errors.New("missing input")
	ErrUploadInProgress = errors.New("upload already in progress")
	ErrRequestPending   = errors.New("chat request already pending")
	ErrInvalidFileType  = errors.New("file is not a pdf")
)

// ServiceError is a transport failure: the request never completed or the
// service answered with a non-2xx status. Message is the service supplied
// message field, if it sent one.
type ServiceError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Operation, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: status %d", e.Operation, e.StatusCode)
	}
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
