package errcodes

import (
	"fmt"
	"net/http"
	"strings"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
	// Paths lists the files an error refers to, when there are any.
	Paths []string
	// Data is sent next to the error, for the part of a request that succeeded.
	Data interface{}
}

// WithData returns a copy of err that carries data. Errors that are not an *Error are
// returned as is.
func WithData(err error, data interface{}) error {
	e, ok := err.(*Error)
	if !ok {
		return err
	}
	out := *e
	out.Data = data
	return &out
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	te.Paths = err.Paths
	te.Data = err.Data
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		HTTPCode: http.StatusNotFound,
		Message:  resource + " not found.",
		Code:     "not_found",
	}
}

func UnsupportedMediaType() error {
	return &Error{
		HTTPCode: http.StatusUnsupportedMediaType,
		Message:  "Unsupported Media Type",
		Code:     "unsupported_media_type",
	}
}

func UnknownParameter(param string) error {
	return &Error{
		HTTPCode: http.StatusUnprocessableEntity,
		Message:  fmt.Sprintf("Unknown Parameter %q", param),
		Code:     "unknown_parameter",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		HTTPCode: http.StatusUnprocessableEntity,
		Message:  msg,
		Code:     "validation_type_error",
	}
}

func ValidationError(msg string) error {
	return &Error{
		HTTPCode: http.StatusUnprocessableEntity,
		Message:  msg,
		Code:     "validation_error",
	}
}

func MalformedPayload() error {
	return &Error{
		HTTPCode: http.StatusBadRequest,
		Message:  "Malformed Payload",
		Code:     "malformed_payload",
	}
}

func EmptyRequestBody() error {
	return &Error{
		HTTPCode: http.StatusBadRequest,
		Message:  "Request body can't be empty.",
		Code:     "empty_request_body",
	}
}

// Conflict returns a 409 error with the given message.
func Conflict(msg string) error {
	return &Error{
		HTTPCode: http.StatusConflict,
		Message:  msg,
		Code:     "conflict",
	}
}

// ConflictingRendering is returned when a video claims the rendering, part and
// version of another video stored under a different path.
func ConflictingRendering(paths ...string) error {
	return &Error{
		HTTPCode: http.StatusConflict,
		Message:  "Video conflicts with an existing rendering: " + strings.Join(paths, ", "),
		Code:     "conflicting_rendering",
		Paths:    paths,
	}
}

// DuplicateSlug is returned when an explicitly supplied slug is already taken.
// Derived slugs are disambiguated instead and never produce this error.
func DuplicateSlug(resource, slug string) error {
	return &Error{
		HTTPCode: http.StatusUnprocessableEntity,
		Message:  fmt.Sprintf("%s slug %q is already in use.", resource, slug),
		Code:     "duplicate_slug",
	}
}

// UnidentifiableMedia is returned when no identifier pattern matches a path.
func UnidentifiableMedia(path string) error {
	return &Error{
		HTTPCode: http.StatusUnprocessableEntity,
		Message:  fmt.Sprintf("Could not identify %q.", path),
		Code:     "unidentifiable_media",
		Paths:    []string{path},
	}
}
