// Package apierr carries the operational error taxonomy shared by the CRUD
// engine, the upload pipeline and the HTTP layer. Every error here maps to a
// {status, message} payload; anything else renders as a generic 500.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindUnsupportedFileType
	KindFileTooLarge
	KindStorage
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, apierr.NotFound()) style matching on kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func UnsupportedFileType(name string) *Error {
	return &Error{Kind: KindUnsupportedFileType, Message: fmt.Sprintf("نوع الملف غير مدعوم: %s", name)}
}

func FileTooLarge(name string) *Error {
	return &Error{Kind: KindFileTooLarge, Message: fmt.Sprintf("حجم الملف كبير جدًا: %s", name)}
}

func Storage(err error) *Error {
	return &Error{Kind: KindStorage, Message: "فشل في عملية التخزين", Err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// HTTPStatus maps an error to the status code the response envelope uses.
func HTTPStatus(err error) int {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch apiErr.Kind {
	case KindValidation, KindUnsupportedFileType, KindFileTooLarge:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the message safe to show callers. Internal causes stay
// behind the development-mode switch in the handler layer.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "حدث خطأ داخلي"
}
