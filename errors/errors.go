package errors

import (
	stderrors "errors"
	"fmt"
)

// PlatformError extends error with a code, a retry classification and
// attached context. It is compatible with errors.Is, errors.As and
// errors.Unwrap.
type PlatformError interface {
	error

	// Code returns the error code identifying the type of error.
	Code() ErrorCode

	// Classification returns whether the error is retryable or permanent.
	Classification() ErrorClassification

	// Message returns the human-readable error message.
	Message() string

	// Context returns a copy of the attached metadata, or nil.
	Context() map[string]interface{}

	// Unwrap returns the wrapped error, or nil.
	Unwrap() error
}

// platformError is private to enforce construction through package functions.
type platformError struct {
	code           ErrorCode
	classification ErrorClassification
	message        string
	context        map[string]interface{}
	cause          error
}

// Error returns "[CODE] message" or "[CODE] message: cause".
func (e *platformError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *platformError) Code() ErrorCode { return e.code }

func (e *platformError) Classification() ErrorClassification { return e.classification }

func (e *platformError) Message() string { return e.message }

func (e *platformError) Context() map[string]interface{} {
	return copyContext(e.context)
}

func (e *platformError) Unwrap() error { return e.cause }

// New creates a PlatformError classified by the default mapping for code.
//
// Example:
//
//	err := errors.New(errors.CodeSecurity, "archive member escapes target directory")
func New(code ErrorCode, message string) PlatformError {
	return &platformError{
		code:           code,
		classification: getDefaultClassification(code),
		message:        message,
	}
}

// Newf creates a PlatformError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) PlatformError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps err with a code and message. A wrapped PlatformError keeps
// its classification so a retryable cause stays retryable.
// Returns nil if err is nil.
//
// Example:
//
//	if err := os.Rename(tmp, target); err != nil {
//	    return errors.Wrap(err, errors.CodePermission, "failed to publish extracted tree")
//	}
func Wrap(err error, code ErrorCode, message string) PlatformError {
	if err == nil {
		return nil
	}

	classification := getDefaultClassification(code)
	var platformErr PlatformError
	if stderrors.As(err, &platformErr) {
		classification = platformErr.Classification()
	}

	return &platformError{
		code:           code,
		classification: classification,
		message:        message,
		cause:          err,
	}
}

// Wrapf wraps err with a formatted message.
// Returns nil if err is nil.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) PlatformError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WithContext returns a copy of err with key set to value in its context.
// Plain errors are converted with CodeUnknown. Returns nil if err is nil.
//
// Example:
//
//	err = errors.WithContext(err, "url", redactedURL)
func WithContext(err error, key string, value interface{}) PlatformError {
	if err == nil {
		return nil
	}
	pe := toPlatform(err)
	ctx := copyContext(pe.Context())
	if ctx == nil {
		ctx = make(map[string]interface{}, 1)
	}
	ctx[key] = value

	return &platformError{
		code:           pe.Code(),
		classification: pe.Classification(),
		message:        pe.Message(),
		context:        ctx,
		cause:          pe.Unwrap(),
	}
}

// WithClassification overrides the classification of err. Transports use
// it to mark network failures permanent when the remote answer is final.
// Returns nil if err is nil.
func WithClassification(err error, classification ErrorClassification) PlatformError {
	if err == nil {
		return nil
	}
	pe := toPlatform(err)
	return &platformError{
		code:           pe.Code(),
		classification: classification,
		message:        pe.Message(),
		context:        copyContext(pe.Context()),
		cause:          pe.Unwrap(),
	}
}

func toPlatform(err error) PlatformError {
	var pe PlatformError
	if stderrors.As(err, &pe) {
		return pe
	}
	return &platformError{
		code:           CodeUnknown,
		classification: ClassificationPermanent,
		message:        err.Error(),
		cause:          err,
	}
}

func copyContext(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
