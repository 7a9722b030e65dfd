package core

import "github.com/pkg/errors"

// Kind classifies domain failures. The HTTP layer maps each kind to a status code.
type Kind string

const (
	KindInternal          Kind = "internal"
	KindUnauthenticated   Kind = "unauthenticated"
	KindInvalidToken      Kind = "invalid_token"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindInvalidArgument   Kind = "invalid_argument"
	KindAlreadyExists     Kind = "already_exists"
	KindDuplicateReview   Kind = "duplicate_review"
	KindDuplicateIdentity Kind = "duplicate_identity"
	KindInvalidCredential Kind = "invalid_credential"
	KindInvalidRole       Kind = "invalid_role"
	KindInvalidTeacher    Kind = "invalid_teacher"
	KindInvalidTransition Kind = "invalid_transition"
	KindDeadlinePassed    Kind = "deadline_passed"
)

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Message string
}

func NewError(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func (e *Error) Error() string {
	return e.Message
}

// ErrorKind returns the Kind of err, looking through wrapped errors.
// Unclassified errors are KindInternal.
func ErrorKind(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := errors.Cause(err).(*Error); ok {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && ErrorKind(err) == kind
}

// Storage level errors, returned by every repository implementation.
var (
	ErrNotFound      = NewError(KindNotFound, "not found")
	ErrAlreadyExists = NewError(KindAlreadyExists, "already exists")
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
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
