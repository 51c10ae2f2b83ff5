package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Compare with errors.Is.
var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidState       = errors.New("invalid state transition")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicate          = errors.New("already exists")
	ErrDuplicateRequest   = errors.New("duplicate request")

	// ErrConflict is returned by stores when a compare-and-set write loses
	// against a concurrent update.
	ErrConflict = errors.New("concurrent update conflict")
)

// Error carries the failing operation and the entity involved alongside
// one of the kinds above.
type Error struct {
	Op      string // e.g. "order.Create"
	Kind    error  // one of the Err* kinds
	Subject string // entity id or name, optional
	Message string // client-facing message, optional
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Subject != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Op, e.Subject, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NewError builds an *Error. Message may be empty.
func NewError(op string, kind error, subject, message string) *Error {
	return &Error{Op: op, Kind: kind, Subject: subject, Message: message}
}

// Invalid is shorthand for an ErrInvalidInput with a message.
func Invalid(op, message string) *Error {
	return &Error{Op: op, Kind: ErrInvalidInput, Message: message}
}

// NotFound is shorthand for a missing entity.
func NotFound(op, entity, id string) *Error {
	return &Error{Op: op, Kind: ErrNotFound, Subject: id, Message: entity + " not found"}
}

// PublicMessage returns the text safe to show a client: the Message of the
// outermost *Error, or the kind text.
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		if de.Message != "" {
			return de.Message
		}
		return de.Kind.Error()
	}
	return err.Error()
}

// IsValidation reports whether err is a client mistake rather than an
// infrastructure failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrProductUnavailable) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidInput)
}
