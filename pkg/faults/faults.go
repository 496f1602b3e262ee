// Package faults defines the classified failure types for credential acquisition.
package faults

import (
	"errors"
	"fmt"
)

// Sentinel errors for credential store lookups.
var (
	// ErrMaterialNotFound indicates the store has no signing material for a tenant.
	ErrMaterialNotFound = errors.New("signing material not found")
	// ErrTicketAbsent indicates the store has no cached ticket for a (tenant, environment) key.
	ErrTicketAbsent = errors.New("no cached ticket")
)

// Kind classifies an acquisition failure. Every failure returned by the
// acquisition service carries exactly one kind, so callers can decide
// distinct handling per kind instead of pattern-matching on message text.
type Kind string

const (
	// KindPrecondition indicates missing or incomplete signing material.
	KindPrecondition Kind = "precondition_failure"
	// KindSigning indicates the signing oracle was unavailable, exited
	// abnormally, or produced empty output.
	KindSigning Kind = "signing_failure"
	// KindTransport indicates a network error, timeout, or a response body
	// that carries no usable protocol content.
	KindTransport Kind = "transport_failure"
	// KindMalformedResponse indicates a response that matched neither the
	// fault shape nor the ticket-return shape, or that was missing required
	// ticket fields.
	KindMalformedResponse Kind = "malformed_response"
	// KindRemoteFault indicates a well-formed WSAA fault other than
	// alreadyAuthenticated.
	KindRemoteFault Kind = "remote_fault"
)

// Fault is a classified acquisition failure. Detail carries the raw fault
// text or diagnostic message; it must never contain signing material bytes.
type Fault struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (f *Fault) Error() string {
	if f.Detail == "" {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

func (f *Fault) Unwrap() error {
	return f.Cause
}

// New creates a fault of the given kind.
func New(kind Kind, detail string) *Fault {
	return &Fault{Kind: kind, Detail: detail}
}

// Wrap creates a fault of the given kind with an underlying cause.
func Wrap(kind Kind, detail string, cause error) *Fault {
	return &Fault{Kind: kind, Detail: detail, Cause: cause}
}

// KindOf returns the classification of err, or an empty kind when err is not
// a *Fault.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// Is reports whether err is a *Fault of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
