package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeInputNotFound   ErrorType = "INPUT_NOT_FOUND"
	ErrorTypeParse           ErrorType = "PARSE"
	ErrorTypeApplyConflict   ErrorType = "APPLY_CONFLICT"
	ErrorTypeBinaryPatchSkip ErrorType = "BINARY_PATCH_SKIP"
	ErrorTypeMirrorFailure   ErrorType = "MIRROR_FAILURE"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeValidation      ErrorType = "VALIDATION"
	ErrorTypeInternal        ErrorType = "INTERNAL"
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Conflict locates one hunk that did not match its target
type Conflict struct {
	Path   string `json:"path"`
	Hunk   int    `json:"hunk"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s: hunk %d at line %d: %s", c.Path, c.Hunk, c.Line, c.Reason)
}

func InputNotFound(path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeInputNotFound,
		Message: fmt.Sprintf("input not found: %s", path),
		Code:    http.StatusNotFound,
		Details: map[string]string{"path": path},
		Err:     err,
	}
}

func ParseError(message string, line int) *Error {
	e := &Error{
		Type:    ErrorTypeParse,
		Message: message,
		Code:    http.StatusUnprocessableEntity,
	}
	if line > 0 {
		e.Message = fmt.Sprintf("line %d: %s", line, message)
		e.Details = map[string]int{"line": line}
	}
	return e
}

func ApplyConflict(conflicts []Conflict) *Error {
	return &Error{
		Type:    ErrorTypeApplyConflict,
		Message: fmt.Sprintf("patch does not apply: %d conflicting hunk(s)", len(conflicts)),
		Code:    http.StatusConflict,
		Details: conflicts,
	}
}

func BinaryPatchSkip(path string) *Error {
	return &Error{
		Type:    ErrorTypeBinaryPatchSkip,
		Message: fmt.Sprintf("binary entry cannot be patched: %s", path),
		Code:    http.StatusOK,
		Details: map[string]string{"path": path},
	}
}

func MirrorFailure(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeMirrorFailure,
		Message: message,
		Code:    http.StatusInternalServerError,
		Err:     err,
	}
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

func Internal(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
		Err:     err,
	}
}

// As returns the first *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err's chain holds an *Error of the given type
func Is(err error, t ErrorType) bool {
	e, ok := As(err)
	return ok && e.Type == t
}

// Conflicts extracts the conflict list of an ApplyConflict error
func Conflicts(err error) []Conflict {
	e, ok := As(err)
	if !ok || e.Type != ErrorTypeApplyConflict {
		return nil
	}
	conflicts, _ := e.Details.([]Conflict)
	return conflicts
}
