// Package models defines the core domain types for the ARCA access service.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Environment selects which of the two fixed WSAA endpoints is used.
// It changes the transport endpoint only, never the protocol logic.
type Environment string

const (
	EnvironmentHomologation Environment = "homologation"
	EnvironmentProduction   Environment = "production"
)

// ParseEnvironment parses an environment name. It accepts the short forms
// used by the HTTP layer ("homo"/"prod") as well as the full names.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "homologation", "homo", "testing":
		return EnvironmentHomologation, nil
	case "production", "prod":
		return EnvironmentProduction, nil
	default:
		return "", fmt.Errorf("unknown environment %q", s)
	}
}

// TicketRequest is the unsigned loginTicketRequest document submitted for
// signing. It is created fresh for every acquisition attempt, never persisted,
// and immutable once built.
type TicketRequest struct {
	ServiceID      string    `json:"service_id"`
	UniqueID       int64     `json:"unique_id"`
	GenerationTime time.Time `json:"generation_time"`
	ExpirationTime time.Time `json:"expiration_time"`
}

// SigningMaterial is a tenant's certificate and private key in PEM form. The
// credential store owns it; the core receives a read-only copy for the
// duration of one signing call and must not retain it afterwards.
type SigningMaterial struct {
	Certificate []byte `json:"-"`
	PrivateKey  []byte `json:"-"`
}

// Complete reports whether both the certificate and the key are present.
func (m *SigningMaterial) Complete() bool {
	return m != nil && len(m.Certificate) > 0 && len(m.PrivateKey) > 0
}

// Ticket is an access credential issued by the WSAA. The timestamps are the
// ones echoed by the remote authority, which are authoritative over the
// locally generated request values.
type Ticket struct {
	Token          string    `json:"token"`
	Sign           string    `json:"sign"`
	Source         string    `json:"source"`
	Destination    string    `json:"destination"`
	UniqueID       string    `json:"unique_id"`
	GenerationTime string    `json:"generation_time"`
	ExpirationTime string    `json:"expiration_time"`
	ObtainedAt     time.Time `json:"obtained_at"`
}

// Expired reports whether the ticket's expiration time has passed according
// to the local clock. Cached-ticket reuse is gated by the store's own
// freshness flag, not by this check; it exists for callers that want a local
// defense-in-depth comparison.
func (t *Ticket) Expired(now time.Time) bool {
	exp, err := time.Parse(time.RFC3339, t.ExpirationTime)
	if err != nil {
		return true
	}
	return !now.Before(exp)
}

// CachedTicket is a previously issued ticket as reported by the credential
// store, together with the store's own freshness judgment. The Valid flag is
// the trust boundary: the remote authority (via the store) is the source of
// truth for session state, so reuse is decided by Valid, not by a local
// clock comparison.
type CachedTicket struct {
	Ticket Ticket `json:"ticket"`
	Status string `json:"status"`
	Valid  bool   `json:"valid"`
}
