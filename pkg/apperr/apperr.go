// Package apperr defines the error kinds that services return to the HTTP
// layer. Each kind maps to one status code; callers match on kind with
// errors.As or the Is* helpers, never on message text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindNotFound          Kind = "not_found"
	KindInsufficientStock Kind = "insufficient_stock"
	KindInvalidTransition Kind = "invalid_transition"
	KindForbidden         Kind = "forbidden"
	KindUnauthorized      Kind = "unauthorized"
	KindPlanFull          Kind = "plan_full"
	KindConflict          Kind = "conflict"
	KindStoreFailure      Kind = "store_failure"
)

// Error is a classified application error. Details carries machine-readable
// context such as a stock shortfall or the allowed transitions.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match when target is an *Error of the same kind (and code, if
// target sets one).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// HTTPStatus returns the response status for the error's kind.
func (e *Error) HTTPStatus() int { return StatusOf(e.Kind) }

func StatusOf(k Kind) int {
	switch k {
	case KindValidation, KindInsufficientStock, KindInvalidTransition, KindPlanFull:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// With returns a copy of e with key=value added to its details.
func (e *Error) With(key string, value any) *Error {
	clone := *e
	clone.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return &clone
}

// ── Constructors ─────────────────────────────────────────────────────────────

func Validation(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Fields builds a validation error from a field → message map.
func Fields(errs map[string]string) *Error {
	details := make(map[string]any, len(errs))
	for k, v := range errs {
		details[k] = v
	}
	return &Error{Kind: KindValidation, Code: "invalid_fields", Message: "Validation failed", Details: details}
}

func NotFound(code, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func Conflict(code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock reports how far short the store fell of a request.
func InsufficientStock(productID uint, name string, available, requested int) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for %q: %d available, %d requested", name, available, requested),
		Details: map[string]any{
			"productId": productID,
			"available": available,
			"requested": requested,
			"shortfall": requested - available,
		},
	}
}

// InvalidTransition lists the statuses the order may move to instead.
func InvalidTransition(from, to string, allowed []string) *Error {
	if allowed == nil {
		allowed = []string{}
	}
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("cannot change status from %s to %s", from, to),
		Details: map[string]any{"from": from, "to": to, "allowed": allowed},
	}
}

func PlanFull(planID uint, maxMembers, activeMembers int) *Error {
	return &Error{
		Kind:    KindPlanFull,
		Message: "workout plan is full",
		Details: map[string]any{
			"planId":        planID,
			"maxMembers":    maxMembers,
			"activeMembers": activeMembers,
		},
	}
}

// Store wraps an unexpected persistence failure. The message shown to the
// client is generic; err is kept for logs.
func Store(op string, err error) *Error {
	return &Error{Kind: KindStoreFailure, Message: "internal store failure", Code: op, Err: err}
}

// ── Inspection ───────────────────────────────────────────────────────────────

// From extracts an *Error from err's chain. Unclassified errors become
// store failures so they never leak internals to clients.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Store("unclassified", err)
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return From(err).Kind
}

func IsKind(err error, k Kind) bool { return KindOf(err) == k }
