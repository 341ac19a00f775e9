// Package core implements the communityconnect entity store service: every
// user, organization and event mutation runs here as one transaction against
// a domain.PersistentStore.
package core

import (
	"communityconnect/internal/blob"
	"communityconnect/internal/geocode"
	"communityconnect/internal/infra/persistence/memory"
	"communityconnect/pkg/domain"
	"context"
	"errors"
	"time"
)

// DefaultGeocodeTimeout bounds a single geocoding lookup during CreateEvent.
const DefaultGeocodeTimeout = 5 * time.Second

// DefaultMediaBaseURL prefixes blob keys when media URLs are written to records.
const DefaultMediaBaseURL = "/media/"

// errNoChange aborts a transaction whose target is already in the requested
// state. It never escapes the service.
var errNoChange = errors.New("no change")

// Service exposes the entity store operations over a persistent store.
type Service struct {
	store          domain.PersistentStore
	engine         *domain.RulesEngine
	now            func() time.Time
	logger         Logger
	audit          AuditRecorder
	metrics        MetricsRecorder
	tracer         Tracer
	geocoder       geocode.Geocoder
	geocodeTimeout time.Duration
	media          blob.Store
	mediaBaseURL   string
	credentials    CredentialVerifier
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for audit timestamps, activity items and
// date-relative queries. Stores exposing SetNowFunc are switched to it too.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock == nil {
			return
		}
		s.now = clock.Now
		if setter, ok := s.store.(interface{ SetNowFunc(func() time.Time) }); ok {
			setter.SetNowFunc(clock.Now)
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(rec AuditRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.audit = rec
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithGeocoder enables coordinate lookup for events created without them.
// A non-positive timeout selects DefaultGeocodeTimeout.
func WithGeocoder(g geocode.Geocoder, timeout time.Duration) Option {
	return func(s *Service) {
		s.geocoder = g
		if timeout > 0 {
			s.geocodeTimeout = timeout
		}
	}
}

// WithMediaStore enables image uploads. Record URLs are baseURL + blob key;
// an empty baseURL selects DefaultMediaBaseURL.
func WithMediaStore(store blob.Store, baseURL string) Option {
	return func(s *Service) {
		s.media = store
		if baseURL != "" {
			s.mediaBaseURL = baseURL
		}
	}
}

// WithCredentials replaces the password verifier.
func WithCredentials(v CredentialVerifier) Option {
	return func(s *Service) {
		if v != nil {
			s.credentials = v
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:          store,
		engine:         extractRulesEngine(store),
		logger:         noopLogger{},
		audit:          noopAuditRecorder{},
		metrics:        noopMetricsRecorder{},
		tracer:         noopTracer{},
		geocodeTimeout: DefaultGeocodeTimeout,
		mediaBaseURL:   DefaultMediaBaseURL,
		credentials:    PlaintextCredentials{},
	}
	s.now = selectNowFunc(store, nil)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// RulesEngine returns the engine of the underlying store, if it exposes one.
func (s *Service) RulesEngine() *domain.RulesEngine {
	return s.engine
}

func extractRulesEngine(store domain.PersistentStore) *domain.RulesEngine {
	if provider, ok := store.(interface{ RulesEngine() *domain.RulesEngine }); ok {
		return provider.RulesEngine()
	}
	return nil
}

// selectNowFunc prefers the store clock so record timestamps and audit
// timestamps agree, then the supplied clock, then wall time.
func selectNowFunc(store domain.PersistentStore, clock Clock) func() time.Time {
	if provider, ok := store.(interface{ NowFunc() func() time.Time }); ok {
		if fn := provider.NowFunc(); fn != nil {
			return func() time.Time { return fn().UTC() }
		}
	}
	if clock != nil {
		return clock.Now
	}
	return ClockFunc(nil).Now
}

type operationMetadata struct {
	entity domain.EntityType
	action domain.Action
}

var operationTable = map[string]operationMetadata{
	"login":                   {domain.EntitySession, domain.ActionUpdate},
	"logout":                  {domain.EntitySession, domain.ActionUpdate},
	"authenticate":            {domain.EntitySession, domain.ActionUpdate},
	"set_theme_mode":          {domain.EntitySession, domain.ActionUpdate},
	"add_user":                {domain.EntityUser, domain.ActionCreate},
	"register":                {domain.EntityUser, domain.ActionCreate},
	"update_user":             {domain.EntityUser, domain.ActionUpdate},
	"block_user":              {domain.EntityUser, domain.ActionUpdate},
	"follow_user":             {domain.EntityUser, domain.ActionUpdate},
	"unfollow_user":           {domain.EntityUser, domain.ActionUpdate},
	"mark_not_interested":     {domain.EntityUser, domain.ActionUpdate},
	"add_activity":            {domain.EntityUser, domain.ActionUpdate},
	"upload_avatar":           {domain.EntityUser, domain.ActionUpdate},
	"join_organization":       {domain.EntityOrganization, domain.ActionUpdate},
	"leave_organization":      {domain.EntityOrganization, domain.ActionUpdate},
	"follow_organization":     {domain.EntityOrganization, domain.ActionUpdate},
	"unfollow_organization":   {domain.EntityOrganization, domain.ActionUpdate},
	"remove_member":           {domain.EntityOrganization, domain.ActionUpdate},
	"invite_member":           {domain.EntityOrganization, domain.ActionUpdate},
	"update_organization":     {domain.EntityOrganization, domain.ActionUpdate},
	"upload_organization_img": {domain.EntityOrganization, domain.ActionUpdate},
	"create_event":            {domain.EntityEvent, domain.ActionCreate},
	"attend_event":            {domain.EntityEvent, domain.ActionUpdate},
	"unattend_event":          {domain.EntityEvent, domain.ActionUpdate},
}

// opResult is what an observed operation reports back for logging and audit.
type opResult struct {
	entityID string
	outcome  domain.Outcome
	result   domain.Result
}

// observe wraps fn with tracing, metrics, audit and logging.
func (s *Service) observe(ctx context.Context, op string, fn func(context.Context) (opResult, error)) (opResult, error) {
	ctx, span := s.tracer.Start(ctx, op)
	started := time.Now()
	out, err := fn(ctx)
	duration := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	if err != nil {
		s.recordAuditError(ctx, op, out.entityID, duration, err)
		s.logger.Warn("operation failed", "operation", op, "entity_id", out.entityID, "error", err.Error())
		return out, err
	}
	s.recordAudit(ctx, op, out.entityID, out.outcome, duration)
	s.logger.Debug("operation completed", "operation", op, "entity_id", out.entityID, "outcome", string(out.outcome), "duration", duration)
	for _, v := range out.result.Warnings() {
		s.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "entity_id", v.EntityID, "message", v.Message)
	}
	return out, nil
}

// mutate runs fn as one transaction under op. fn returning errNoChange
// aborts the transaction and reports OutcomeUnchanged.
func (s *Service) mutate(ctx context.Context, op, entityID string, fn func(domain.Transaction) error) (domain.Outcome, domain.Result, error) {
	out, err := s.observe(ctx, op, func(ctx context.Context) (opResult, error) {
		res, err := s.store.RunInTransaction(ctx, fn)
		switch {
		case errors.Is(err, errNoChange):
			return opResult{entityID: entityID, outcome: domain.OutcomeUnchanged}, nil
		case err != nil:
			return opResult{entityID: entityID, result: res}, err
		}
		return opResult{entityID: entityID, outcome: domain.OutcomeApplied, result: res}, nil
	})
	return out.outcome, out.result, err
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, outcome domain.Outcome, duration time.Duration) {
	meta, ok := operationTable[op]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Outcome:   outcome,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.now(),
	})
}

func (s *Service) recordAuditError(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	meta, ok := operationTable[op]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusError,
		Duration:  duration,
		Timestamp: s.now(),
		Error:     err.Error(),
	})
}

// sessionUser resolves the session user inside tx.
func sessionUser(tx domain.Transaction) (domain.User, error) {
	id, ok := tx.SessionUserID()
	if !ok {
		return domain.User{}, domain.ErrNoSession
	}
	u, ok := tx.FindUser(id)
	if !ok {
		return domain.User{}, domain.ErrNoSession
	}
	return u, nil
}
