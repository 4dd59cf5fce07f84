// Package errs defines the error kinds shared by every domain package.
// Domain packages declare coded sentinels of one of these kinds and the
// HTTP layer maps kinds to status codes.
package errs

import (
	"errors"
	"strings"
)

var (
	ErrValidation        = errors.New("validation_error")
	ErrNotFound          = errors.New("not_found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

// Coded is a domain sentinel belonging to one of the kinds above.
type Coded struct {
	kind error
	code string
}

func New(kind error, code string) *Coded {
	return &Coded{kind: kind, code: code}
}

func (e *Coded) Error() string { return e.code }

func (e *Coded) Code() string { return e.code }

func (e *Coded) Kind() error { return e.kind }

func (e *Coded) Is(target error) bool {
	return target == e.kind
}

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError carries field-level detail for malformed input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	codes := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		codes = append(codes, f.Code)
	}
	return ErrValidation.Error() + ": " + strings.Join(codes, ",")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a single-field validation error.
func Invalid(field, code, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Code: code, Message: message}}}
}

// Merge folds several validation errors into one. Nil entries are skipped.
func Merge(list ...*ValidationError) error {
	var fields []FieldError
	for _, item := range list {
		if item == nil {
			continue
		}
		fields = append(fields, item.Fields...)
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func AsValidation(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) && vErr != nil {
		return vErr, true
	}
	return nil, false
}

// CodeOf returns the most specific code carried by err.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var coded *Coded
	if errors.As(err, &coded) {
		return coded.code
	}
	if vErr, ok := AsValidation(err); ok && len(vErr.Fields) == 1 {
		return vErr.Fields[0].Code
	}
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrInvalidTransition, ErrForbidden, ErrUnauthenticated} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "internal_error"
}
