package core

import (
	"strings"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// MessageCarrier is implemented by errors that hold a message meant for the end user,
// such as the message field of a backend error envelope.
type MessageCarrier interface {
	UserMessage() string
}

// UserMessage returns the user facing message carried by err (or any error it wraps),
// falling back to `fallback` when there is none.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var mc MessageCarrier
	if errors.As(err, &mc) {
		if msg := strings.TrimSpace(mc.UserMessage()); msg != "" {
			return msg
		}
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		if msg := strings.TrimSpace(verr.Error()); msg != "" {
			return msg
		}
	}
	return fallback
}
