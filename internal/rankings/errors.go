package rankings

import (
	"errors"
	"strings"
)

var (
	ErrNotFound               = errors.New("ranking not found")
	ErrAlreadyTerminal        = errors.New("ranking already finished")
	ErrStillProcessing        = errors.New("ranking is still processing")
	ErrJobDescriptionNotFound = errors.New("job description not found")
	ErrNoResumesFound         = errors.New("no valid resumes found")
)

// InvalidRequestError rejects a request before any side effect.
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string { return e.Message }

func invalid(msg string) error { return &InvalidRequestError{Message: msg} }

// ExtractionError reports an unreadable job description. The reservation has been released.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	msg := "Failed to extract text from job description"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PersistenceError is a fatal failure after validation. RecordID is set once
// the ranking record exists and can be polled.
type PersistenceError struct {
	RecordID string
	Err      error
}

func (e *PersistenceError) Error() string {
	var b strings.Builder
	b.WriteString("ranking failed")
	if e.RecordID != "" {
		b.WriteString(" (record ")
		b.WriteString(e.RecordID)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *PersistenceError) Unwrap() error { return e.Err }
