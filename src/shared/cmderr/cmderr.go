// Package cmderr carries user-facing command failures as tagged values
// instead of bare errors, so handlers can map them to Discord replies.
package cmderr

import "fmt"

// Kind classifies a command failure.
type Kind int

const (
	Validation Kind = iota
	NotFound
	Permission
	RemoteUnavailable
	Conflict
	DataInconsistency
	Internal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not found"
	case Permission:
		return "permission"
	case RemoteUnavailable:
		return "remote unavailable"
	case Conflict:
		return "conflict"
	case DataInconsistency:
		return "data inconsistency"
	default:
		return "internal"
	}
}

// Error is a command failure with an HTTP-like status code and a message
// suitable for showing to the invoking user verbatim.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Status returns the HTTP-like status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case NotFound:
		return 404
	case Permission:
		return 403
	case Internal, DataInconsistency:
		return 500
	default:
		return 400
	}
}

// New builds a tagged command error.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
