package pushover

import (
	"errors"
	"fmt"
	"strings"
)

// Failure kinds. Every error returned by Client wraps exactly one of these.
var (
	ErrUnreachable       = errors.New("could not reach service")
	ErrRejected          = errors.New("rejected by service")
	ErrMessageRequired   = errors.New("message is required")
	ErrAppTokenRequired  = errors.New("application token required")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrUnexpectedStatus  = errors.New("unexpected http status")
	ErrMalformedResponse = errors.New("malformed response")
	ErrNotImplemented    = errors.New("not implemented")
)

const (
	opValidate  = "validate"
	opSend      = "send"
	opSounds    = "sounds"
	opEmergency = "emergency"
)

// Error describes a failed operation. Diagnostics holds the messages the
// service attached to its answer, if any.
type Error struct {
	Op          string
	Kind        error
	Message     string
	StatusCode  int
	Diagnostics []string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Kind != nil:
		b.WriteString(e.Kind.Error())
	default:
		b.WriteString("failed")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if len(e.Diagnostics) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Diagnostics, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the failure kind and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Diagnostics returns the service-provided messages carried by err.
func Diagnostics(err error) []string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Diagnostics
	}
	return nil
}
