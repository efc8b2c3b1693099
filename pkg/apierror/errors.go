// Package apierror classifies fetch failures into the small set of
// categories list screens care about: business failures reported by the
// server, transport failures, unexpected failures, and session invalidation.
package apierror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
)

// Category is the classification of a fetch failure.
type Category string

const (
	// CategoryBusiness is a structured failure code/message returned by the server.
	CategoryBusiness Category = "business"

	// CategoryTransport is a connectivity or IO failure.
	CategoryTransport Category = "transport"

	// CategoryUnexpected is anything else, including a successful-looking
	// response that is missing required data.
	CategoryUnexpected Category = "unexpected"

	// CategorySessionInvalidated means the credential was invalidated, e.g. by
	// a login elsewhere. It is never shown as a normal error.
	CategorySessionInvalidated Category = "session_invalidated"
)

// User-facing messages used when a failure carries no message of its own.
const (
	MessageTransport  = "Network unavailable, please check your connection"
	MessageUnexpected = "Something went wrong, please try again"
	MessageSession    = "Your session has expired, please sign in again"
)

// ErrSessionInvalidated matches every session invalidation via errors.Is.
var ErrSessionInvalidated = errors.New("session invalidated")

// BusinessError is a failure the server reported through its response envelope.
type BusinessError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *BusinessError) Error() string {
	return fmt.Sprintf("business error (code %d): %s", e.Code, e.Message)
}

// TransportError wraps a connectivity failure.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnexpectedError is a failure that fits no other category.
type UnexpectedError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *UnexpectedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("unexpected error: %s", e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UnexpectedError) Unwrap() error {
	return e.Err
}

// SessionError reports that the server invalidated the caller's credential.
type SessionError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	return fmt.Sprintf("session invalidated (code %d): %s", e.Code, e.Message)
}

// Is reports SessionError as ErrSessionInvalidated.
func (e *SessionError) Is(target error) bool {
	return target == ErrSessionInvalidated
}

// Classification is the result of classifying a failure.
type Classification struct {
	Category Category
	Message  string
	Code     int
}

// Classify maps an arbitrary failure to a category and user-facing message.
// A nil error classifies as unexpected.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Category: CategoryUnexpected, Message: MessageUnexpected}
	}

	var sessErr *SessionError
	if errors.As(err, &sessErr) {
		return Classification{
			Category: CategorySessionInvalidated,
			Message:  messageOr(sessErr.Message, MessageSession),
			Code:     sessErr.Code,
		}
	}
	if errors.Is(err, ErrSessionInvalidated) {
		return Classification{Category: CategorySessionInvalidated, Message: MessageSession}
	}

	var bizErr *BusinessError
	if errors.As(err, &bizErr) {
		return Classification{
			Category: CategoryBusiness,
			Message:  messageOr(bizErr.Message, MessageUnexpected),
			Code:     bizErr.Code,
		}
	}

	if IsTransport(err) {
		return Classification{Category: CategoryTransport, Message: MessageTransport}
	}

	var unexpected *UnexpectedError
	if errors.As(err, &unexpected) {
		return Classification{
			Category: CategoryUnexpected,
			Message:  messageOr(unexpected.Message, MessageUnexpected),
		}
	}

	return Classification{Category: CategoryUnexpected, Message: MessageUnexpected}
}

// IsTransport reports whether err is a connectivity or IO failure.
// Context cancellation is not a transport failure.
func IsTransport(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
