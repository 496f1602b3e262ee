package wsaa

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lauto554/arca-soap/pkg/faults"
	"github.com/lauto554/arca-soap/pkg/metrics"
	"github.com/lauto554/arca-soap/pkg/models"
)

// AcquisitionResult is the outcome of a successful Acquire call. Exactly one
// of three shapes applies: a fresh ticket, a reused cached ticket, or an
// already-authenticated notice from the WSAA carrying no new ticket.
type AcquisitionResult struct {
	Ticket               *models.Ticket `json:"ticket,omitempty"`
	Reused               bool           `json:"reused"`
	AlreadyAuthenticated bool           `json:"already_authenticated"`
	Message              string         `json:"message,omitempty"`
}

// attemptTimeout bounds one shared acquisition attempt once it has been
// detached from the initiating caller's context.
const attemptTimeout = 60 * time.Second

// Service orchestrates credential acquisition: consult the cache, decide
// reuse versus reacquire, then build, sign, submit, interpret and persist.
type Service struct {
	store     CredentialStore
	signer    Signer
	transport Transport
	logger    *slog.Logger
	metrics   *metrics.AcquisitionMetrics
	group     singleflight.Group
	now       func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithMetrics attaches acquisition metrics.
func WithMetrics(m *metrics.AcquisitionMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces the clock. Used by tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates the acquisition service.
func NewService(store CredentialStore, signer Signer, transport Transport, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:     store,
		signer:    signer,
		transport: transport,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire returns a valid (token, sign, expiration) triple for the tenant
// and target service, reusing a still-valid cached ticket when the store
// reports one, and otherwise running the full acquisition protocol.
//
// At most one acquisition attempt is in flight per (tenant, environment)
// key: concurrent callers for the same key join the in-flight attempt
// instead of issuing a second sign+submit sequence, since the WSAA treats a
// second concurrent login as alreadyAuthenticated or invalidates the first
// session non-deterministically.
func (s *Service) Acquire(ctx context.Context, serviceID, tenantID string, env models.Environment) (*AcquisitionResult, error) {
	key := tenantID + "|" + string(env)
	v, err, shared := s.group.Do(key, func() (any, error) {
		// The attempt may be shared with later callers, so it must not end
		// with the cancellation of whichever caller happened to start it.
		// attemptTimeout bounds it instead.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), attemptTimeout)
		defer cancel()
		return s.acquire(ctx, serviceID, tenantID, env)
	})
	if err != nil {
		return nil, err
	}
	result := v.(*AcquisitionResult)
	if shared {
		s.logger.Debug("joined in-flight acquisition", "tenant", metrics.HashID(tenantID), "environment", env)
	}
	return result, nil
}

func (s *Service) acquire(ctx context.Context, serviceID, tenantID string, env models.Environment) (*AcquisitionResult, error) {
	start := s.now()
	log := s.logger.With("tenant", metrics.HashID(tenantID), "environment", env, "service", serviceID)

	cached, err := s.store.CachedTicket(ctx, tenantID, env)
	switch {
	case err == nil && cached.Valid:
		log.Info("reusing cached ticket", "status", cached.Status)
		s.count(env, "reused")
		ticket := cached.Ticket
		return &AcquisitionResult{Ticket: &ticket, Reused: true}, nil
	case err != nil && !errors.Is(err, faults.ErrTicketAbsent):
		// A cache read failure must not block acquisition; the store stays
		// the source of truth and gets refreshed on success.
		log.Warn("cached ticket lookup failed, acquiring fresh", "error", err)
	}

	material, err := s.store.SigningMaterial(ctx, tenantID)
	if err != nil {
		s.count(env, string(faults.KindPrecondition))
		if errors.Is(err, faults.ErrMaterialNotFound) {
			return nil, faults.Wrap(faults.KindPrecondition, "no signing material for tenant", err)
		}
		return nil, faults.Wrap(faults.KindPrecondition, "load signing material", err)
	}
	if !material.Complete() {
		s.count(env, string(faults.KindPrecondition))
		return nil, faults.New(faults.KindPrecondition, "incomplete signing material")
	}

	request := BuildRequest(serviceID, s.now())
	document := MarshalRequest(request)
	log.Debug("built login ticket request", "unique_id", request.UniqueID)

	envelope, err := s.signer.Sign(ctx, document, material)
	if err != nil {
		s.countFault(env, err)
		log.Error("signing failed", "error", err)
		return nil, err
	}

	raw, err := s.transport.Submit(ctx, envelope, env)
	if err != nil {
		s.countFault(env, err)
		log.Error("login submission failed", "error", err)
		return nil, err
	}

	result, err := Interpret(raw)
	if err != nil {
		s.countFault(env, err)
		log.Error("login response rejected", "error", err)
		return nil, err
	}

	if result.AlreadyAuthenticated {
		log.Info("tenant already authenticated", "message", result.Message)
		s.count(env, "already_authenticated")
		return &AcquisitionResult{AlreadyAuthenticated: true, Message: result.Message}, nil
	}

	ticket := result.Ticket
	ticket.ObtainedAt = s.now()
	if err := s.store.PutTicket(ctx, tenantID, env, ticket); err != nil {
		// The ticket is valid even when the cache write fails; the next
		// acquisition reacquires instead of reusing.
		log.Error("failed to persist ticket", "error", err)
	} else {
		log.Info("ticket acquired and persisted",
			"expiration", ticket.ExpirationTime,
			"duration", s.now().Sub(start).String(),
		)
	}
	s.count(env, "acquired")
	s.observe(env, s.now().Sub(start))

	return &AcquisitionResult{Ticket: ticket}, nil
}

func (s *Service) count(env models.Environment, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.AcquisitionsTotal.WithLabelValues(string(env), outcome).Inc()
	if outcome == "reused" {
		s.metrics.CacheHits.WithLabelValues(string(env)).Inc()
	}
}

func (s *Service) countFault(env models.Environment, err error) {
	kind := faults.KindOf(err)
	if kind == "" {
		kind = "unclassified"
	}
	s.count(env, string(kind))
}

func (s *Service) observe(env models.Environment, d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.AcquisitionDuration.WithLabelValues(string(env)).Observe(d.Seconds())
}
