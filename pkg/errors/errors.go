// Package errors defines the structured error type every OrthoAtlas layer
// shares.  An AppError pairs a stable machine-readable code with the human
// text, so the HTTP layer, the logger, and the metrics pipeline all classify
// a failure the same way without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// AppError carries a typed code, a caller-facing message, and an optional
// detail and cause through every layer.  It supports errors.Is, errors.As,
// and Unwrap, so call sites never need to know which layer produced it.
type AppError struct {
	Code    ErrorCode // failure category, stable across releases
	Message string    // primary human-readable description
	Detail  string    // supplementary operator context, may be empty
	Cause   error     // underlying error, reachable via Unwrap
	Stack   string    // call stack captured at construction, kept out of Error()
}

// Error renders "[CODE] message", with ": detail" appended when present.
// The stack is deliberately excluded; the logging middleware reads it from
// the field instead.
func (e *AppError) Error() string {
	s := "[" + string(e.Code) + "] " + e.Message
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

// Unwrap exposes the cause to the standard errors helpers.
func (e *AppError) Unwrap() error { return e.Cause }

// WithDetail returns a copy carrying detail.  The receiver is left untouched,
// so predeclared sentinel-style errors can be annotated per call.  Nil-safe.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	c := *e
	c.Detail = detail
	return &c
}

// WithCause returns a copy carrying err as the cause.  Nil-safe.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	c := *e
	c.Cause = err
	return &c
}

// New builds an AppError classified by code.  The stack snapshot is taken at
// the caller, so helpers that construct errors on another function's behalf
// should use classified instead.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Stack: callers(1)}
}

// Newf is New with the message built by fmt.Sprintf.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Stack: callers(1)}
}

// Wrap attaches a code and message to err while keeping err reachable for
// errors.Is and errors.As.  A nil err yields nil, so fallible calls can be
// wrapped unconditionally.  Wrapping with ErrCodeUnknown adopts the code of
// the nearest AppError in the chain, which lets intermediate layers add
// context without discarding the original classification.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == ErrCodeUnknown {
		var ae *AppError
		if stderrors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{Code: code, Message: message, Cause: err, Stack: callers(1)}
}

// IsCode reports whether any AppError in err's chain carries code.
func IsCode(err error, code ErrorCode) bool { return hasCode(err, code) }

// IsNotFound reports whether err's chain carries a not-found classification,
// generic or domain-specific.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound, ErrCodeOrthogroupNotFound, ErrCodeGeneNotFound, ErrCodeArtifactNotFound)
}

// hasCode scans every AppError in the chain, hopping over non-AppError links
// such as fmt.Errorf("%w") wrappers.
func hasCode(err error, codes ...ErrorCode) bool {
	for err != nil {
		var ae *AppError
		if !stderrors.As(err, &ae) {
			return false
		}
		for _, code := range codes {
			if ae.Code == code {
				return true
			}
		}
		err = ae.Cause
	}
	return false
}

// GetCode classifies err for metric labels and log fields: ErrCodeOK for nil,
// the first AppError code in the chain, or ErrCodeUnknown when none exists.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return ErrCodeUnknown
}

// Shorthand constructors for the common classifications follow.  Each captures
// the stack at its own caller, exactly as New does.

// NotFound builds a generic ErrCodeNotFound error; prefer the domain codes
// ErrCodeOrthogroupNotFound and ErrCodeGeneNotFound where they apply.
func NotFound(message string) *AppError { return classified(ErrCodeNotFound, message) }

// InvalidParam builds an ErrCodeBadRequest error.
func InvalidParam(message string) *AppError { return classified(ErrCodeBadRequest, message) }

// Validation builds an ErrCodeValidation error.
func Validation(message string) *AppError { return classified(ErrCodeValidation, message) }

// Unauthorized builds an ErrCodeUnauthorized error.
func Unauthorized(message string) *AppError { return classified(ErrCodeUnauthorized, message) }

// Forbidden builds an ErrCodeForbidden error.
func Forbidden(message string) *AppError { return classified(ErrCodeForbidden, message) }

// Internal builds an ErrCodeInternal error for failures with no sharper code.
func Internal(message string) *AppError { return classified(ErrCodeInternal, message) }

// Conflict builds an ErrCodeConflict error.
func Conflict(message string) *AppError { return classified(ErrCodeConflict, message) }

// RateLimit builds an ErrCodeTooManyRequests error.
func RateLimit(message string) *AppError { return classified(ErrCodeTooManyRequests, message) }

// ServiceUnavailable builds an ErrCodeServiceUnavailable error, the canonical
// classification for a dataset that could not be loaded.
func ServiceUnavailable(message string) *AppError { return classified(ErrCodeServiceUnavailable, message) }

// classified backs the shorthand constructors, skipping their frame so the
// recorded stack starts at the real call site.
func classified(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Stack: callers(2)}
}

// maxFrames caps the stack snapshot per error.
const maxFrames = 32

// callers formats the stack starting skip frames above the caller, dropping
// runtime internals to keep traces short.
func callers(skip int) string {
	pc := make([]uintptr, maxFrames)
	n := runtime.Callers(skip+2, pc)
	if n == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(pc[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString("\n\t")
			b.WriteString(frame.File)
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(frame.Line))
			b.WriteByte(' ')
			b.WriteString(frame.Function)
		}
		if !more {
			return b.String()
		}
	}
}
