package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/paraiso-astral/gate-service/internal/config"
	"github.com/paraiso-astral/gate-service/internal/domain"
	"github.com/paraiso-astral/gate-service/internal/events"
	"github.com/paraiso-astral/gate-service/internal/observability"
	"github.com/paraiso-astral/gate-service/internal/payload"
	"github.com/paraiso-astral/gate-service/internal/security"
	"github.com/paraiso-astral/gate-service/internal/validation"
)

const tracerName = "github.com/paraiso-astral/gate-service/internal/service"

// AuthoritativeStore is the system of record for ticket usage. MarkUsed is
// idempotent and returns domain.ErrTicketUsed when the ticket was already used.
type AuthoritativeStore interface {
	GetStatus(ctx context.Context, ticketID string) (*domain.TicketStatusRecord, error)
	MarkUsed(ctx context.Context, ticketID string) (*domain.TicketStatusRecord, error)
}

// ValidateOptions selects the optional pipeline stages.
type ValidateOptions struct {
	// ForceOnline bypasses the cache and requires the authoritative store.
	ForceOnline bool
	// AllowOffline accepts an offline verdict. When false the store is required.
	AllowOffline    bool
	CheckBlacklist  bool
	CheckDuplicates bool
	// SkipOnline suppresses the opportunistic store lookup.
	SkipOnline bool
}

// DefaultValidateOptions enables every check and allows offline verdicts.
func DefaultValidateOptions() ValidateOptions {
	return ValidateOptions{AllowOffline: true, CheckBlacklist: true, CheckDuplicates: true}
}

func (o ValidateOptions) onlineMandatory() bool {
	return o.ForceOnline || !o.AllowOffline
}

// PipelineDependencies bundles collaborators for the validation pipeline.
// Nil cache, history and blacklist are built from configuration.
type PipelineDependencies struct {
	Codec      *payload.Codec
	Engine     *security.Engine
	Cache      *validation.Cache
	History    *validation.History
	Blacklist  *validation.Blacklist
	Store      AuthoritativeStore
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Tracer     trace.Tracer
	Clock      func() time.Time
}

// ValidationPipeline runs the ordered fail-fast gate checks. It owns its
// cache, history and blacklist so independent instances share no state.
type ValidationPipeline struct {
	codec      *payload.Codec
	engine     *security.Engine
	cache      *validation.Cache
	history    *validation.History
	blacklist  *validation.Blacklist
	store      AuthoritativeStore
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time

	maxAge        time.Duration
	replayWindow  time.Duration
	onlineTimeout time.Duration
	opportunistic bool

	lookups singleflight.Group

	total      atomic.Int64
	successful atomic.Int64
	online     atomic.Int64
	offline    atomic.Int64
}

// NewValidationPipeline builds the pipeline.
func NewValidationPipeline(cfg config.Config, deps PipelineDependencies) *ValidationPipeline {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	p := &ValidationPipeline{
		codec:         deps.Codec,
		engine:        deps.Engine,
		cache:         deps.Cache,
		history:       deps.History,
		blacklist:     deps.Blacklist,
		store:         deps.Store,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		tracer:        deps.Tracer,
		now:           clock,
		maxAge:        cfg.Ticket.MaxAge,
		replayWindow:  cfg.Validation.ReplayWindow,
		onlineTimeout: cfg.Validation.OnlineTimeout,
		opportunistic: cfg.Validation.OnlineOpportunistic,
	}
	if p.codec == nil {
		p.codec = payload.New(cfg.Ticket.Issuer, cfg.Ticket.Versions...)
	}
	if p.cache == nil {
		p.cache = validation.NewCache(cfg.Validation.CacheSize, cfg.Validation.CacheTTL, validation.WithCacheClock(clock))
	}
	if p.history == nil {
		p.history = validation.NewHistory(cfg.Validation.HistorySize)
	}
	if p.blacklist == nil {
		p.blacklist = validation.NewBlacklist(nil, validation.WithBlacklistClock(clock))
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	if p.onlineTimeout <= 0 {
		p.onlineTimeout = 3 * time.Second
	}
	return p
}

// Blacklist exposes the pipeline's revocation set.
func (p *ValidationPipeline) Blacklist() *validation.Blacklist {
	return p.blacklist
}

// HistoryLog exposes the pipeline's attempt history.
func (p *ValidationPipeline) HistoryLog() *validation.History {
	return p.history
}

// ValidateTicket checks a scanned payload. A bad ticket is never an error:
// the typed outcome is carried in the result's Reason.
func (p *ValidationPipeline) ValidateTicket(ctx context.Context, qr string, opts ValidateOptions) domain.ValidationResult {
	started := time.Now()
	ctx, span := p.tracer.Start(ctx, "ValidationPipeline.ValidateTicket")
	defer span.End()

	result := p.validate(ctx, qr, opts)

	span.SetAttributes(
		attribute.String("ticket.id", result.TicketID),
		attribute.Bool("ticket.valid", result.Valid),
		attribute.String("ticket.reason", string(result.Reason)),
		attribute.String("ticket.method", string(result.Method)),
		attribute.Bool("ticket.cached", result.Cached),
	)
	p.count(result)
	p.metrics.RecordValidation(result, time.Since(started))
	p.logger.Debug("ticket validated",
		zap.String("ticket_id", result.TicketID),
		zap.Bool("valid", result.Valid),
		zap.String("reason", string(result.Reason)),
		zap.String("method", string(result.Method)),
		zap.Bool("cached", result.Cached))
	p.publish(ctx, events.EventTicketValidated, result.TicketID, events.TicketValidatedPayload{
		Valid:  result.Valid,
		Reason: result.Reason,
		Method: result.Method,
		Cached: result.Cached,
	})
	return result
}

func (p *ValidationPipeline) validate(ctx context.Context, qr string, opts ValidateOptions) domain.ValidationResult {
	now := p.now()

	// 1. decode
	pl, err := p.codec.Parse(qr)
	if err != nil {
		return newResult(now, nil, domain.ReasonMalformedPayload, domain.MethodOffline)
	}

	// 2+3. cached or fresh offline verdict
	key := validation.Key(strings.TrimSpace(qr))
	generation := p.blacklist.Generation()
	verdict, cached := p.cachedVerdict(key, pl, now, opts)
	if !cached {
		reason := p.offlineReason(pl, now)
		verdict = newResult(now, pl, reason, domain.MethodOffline)
		if reason.Deterministic() {
			p.cache.Put(key, pl.TicketID, verdict, generation)
		}
	}
	if !verdict.Valid {
		return verdict
	}

	// 4. revocation
	if opts.CheckBlacklist && p.blacklist.Contains(pl.TicketID) {
		return p.record(now, pl, domain.ReasonRevoked, domain.MethodOffline, cached)
	}

	// 5. replay
	var claim *validation.Claim
	if opts.CheckDuplicates {
		var ok bool
		claim, ok = p.history.Claim(pl.TicketID, now, p.replayWindow)
		if !ok {
			return p.record(now, pl, domain.ReasonDuplicate, domain.MethodOffline, cached)
		}
		defer claim.Release()
	}

	// 6. online reconciliation
	reason, method := p.reconcile(ctx, pl.TicketID, opts)

	// 7. record
	result := newResult(now, pl, reason, method)
	result.Cached = cached
	entry := historyEntry(result)
	if claim != nil {
		claim.Commit(entry)
	} else {
		p.history.Append(pl.TicketID, entry)
	}
	return result
}

// cachedVerdict returns a memoized offline verdict for key. A valid verdict
// is re-checked for age, and one written before the latest revocation is
// discarded.
func (p *ValidationPipeline) cachedVerdict(key string, pl *payload.Payload, now time.Time, opts ValidateOptions) (domain.ValidationResult, bool) {
	if opts.ForceOnline {
		return domain.ValidationResult{}, false
	}
	entry, ok := p.cache.Get(key)
	p.metrics.RecordCacheLookup(ok)
	if !ok {
		return domain.ValidationResult{}, false
	}
	result := entry.Result
	result.Timestamp = now
	result.Cached = true
	if !result.Valid {
		return result, true
	}
	if entry.Generation != p.blacklist.Generation() {
		p.cache.Invalidate(key)
		return domain.ValidationResult{}, false
	}
	if p.expired(pl.IssuedAt, now) {
		p.cache.Invalidate(key)
		return domain.ValidationResult{}, false
	}
	return result, true
}

// offlineReason runs the ordered offline checks.
func (p *ValidationPipeline) offlineReason(pl *payload.Payload, now time.Time) domain.Reason {
	if err := p.codec.Check(pl); err != nil {
		return payload.ReasonOf(err)
	}
	if !pl.Type.Valid() {
		return domain.ReasonInvalidType
	}
	if p.expired(pl.IssuedAt, now) {
		return domain.ReasonExpired
	}
	if !p.engine.Verify(payload.Canonical(pl.Claims), pl.Signature) {
		return domain.ReasonSignatureInvalid
	}
	return domain.ReasonNone
}

// expired reports whether issuedAt is strictly more than maxAge before now.
func (p *ValidationPipeline) expired(issuedAt, now time.Time) bool {
	return p.maxAge > 0 && now.Sub(issuedAt) > p.maxAge
}

// reconcile consults the authoritative store when requested or available.
func (p *ValidationPipeline) reconcile(ctx context.Context, ticketID string, opts ValidateOptions) (domain.Reason, domain.ValidationMethod) {
	mandatory := opts.onlineMandatory()
	if !mandatory && (opts.SkipOnline || !p.opportunistic) {
		return domain.ReasonNone, domain.MethodOffline
	}
	if p.store == nil {
		if mandatory {
			return domain.ReasonValidationUnavailable, domain.MethodOnline
		}
		return domain.ReasonNone, domain.MethodOffline
	}

	status, err := p.lookupStatus(ctx, ticketID)
	if err != nil {
		if errors.Is(err, domain.ErrTicketNotFound) {
			return domain.ReasonUnknownTicket, domain.MethodOnline
		}
		mode := "opportunistic"
		if mandatory {
			mode = "mandatory"
		}
		p.metrics.RecordOnlineFailure(mode)
		p.logger.Warn("online reconciliation failed",
			zap.String("ticket_id", ticketID),
			zap.String("mode", mode),
			zap.Error(err))
		if mandatory {
			return domain.ReasonValidationUnavailable, domain.MethodOnline
		}
		return domain.ReasonNone, domain.MethodOffline
	}

	switch status.Status {
	case domain.TicketStatusUsed:
		return domain.ReasonAlreadyUsed, domain.MethodOnline
	case domain.TicketStatusCancelled:
		return domain.ReasonCancelled, domain.MethodOnline
	case domain.TicketStatusExpired:
		return domain.ReasonExpired, domain.MethodOnline
	}
	return domain.ReasonNone, domain.MethodOnline
}

// lookupStatus collapses concurrent lookups of one ticket into a single store
// call. The caller stops waiting after the online timeout; the shared call is
// bounded by the same timeout but is not cancelled by any single caller.
func (p *ValidationPipeline) lookupStatus(ctx context.Context, ticketID string) (*domain.TicketStatusRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, p.onlineTimeout)
	defer cancel()

	ch := p.lookups.DoChan(ticketID, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.onlineTimeout)
		defer cancel()
		return p.store.GetStatus(lookupCtx, ticketID)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("status lookup abandoned: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		status, _ := res.Val.(*domain.TicketStatusRecord)
		if status == nil {
			return nil, domain.ErrTicketNotFound
		}
		return status, nil
	}
}

func (p *ValidationPipeline) record(now time.Time, pl *payload.Payload, reason domain.Reason, method domain.ValidationMethod, cached bool) domain.ValidationResult {
	result := newResult(now, pl, reason, method)
	result.Cached = cached
	p.history.Append(pl.TicketID, historyEntry(result))
	return result
}

func (p *ValidationPipeline) count(result domain.ValidationResult) {
	p.total.Add(1)
	if result.Valid {
		p.successful.Add(1)
	}
	if result.Method == domain.MethodOnline {
		p.online.Add(1)
	} else {
		p.offline.Add(1)
	}
}

func (p *ValidationPipeline) publish(ctx context.Context, t events.EventType, ticketID string, body interface{}) {
	if p.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      t,
		TicketID:  ticketID,
		Actor:     events.ActorFromContext(ctx),
		Timestamp: p.now().UTC(),
		Payload:   body,
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("event publish failed", zap.String("event_type", string(t)), zap.Error(err))
	}
}

// History returns the recorded attempts for ticketID, oldest first.
func (p *ValidationPipeline) History(ticketID string) []domain.HistoryEntry {
	return p.history.Entries(ticketID)
}

// Stats summarizes every validation this pipeline has run.
func (p *ValidationPipeline) Stats() domain.ValidationStats {
	total := p.total.Load()
	successful := p.successful.Load()
	rate := 0.0
	if total > 0 {
		rate = float64(successful) / float64(total) * 100
	}
	return domain.ValidationStats{
		Total:       int(total),
		Successful:  int(successful),
		SuccessRate: fmt.Sprintf("%.2f%%", rate),
		Online:      int(p.online.Load()),
		Offline:     int(p.offline.Load()),
		CacheSize:   p.cache.Len(),
	}
}

// ClearCache drops every memoized verdict.
func (p *ValidationPipeline) ClearCache() {
	p.cache.Clear()
}

// Revoke blacklists ticketID. The revocation applies to this instance even
// when persisting it fails; the persistence error is returned.
func (p *ValidationPipeline) Revoke(ctx context.Context, ticketID, reason string) error {
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return domain.ErrTicketNotFound
	}
	err := p.blacklist.Add(ctx, ticketID, reason)
	dropped := p.cache.InvalidateTicket(ticketID)
	p.logger.Info("ticket revoked",
		zap.String("ticket_id", ticketID),
		zap.String("reason", reason),
		zap.Int("cache_dropped", dropped),
		zap.Bool("persisted", err == nil))
	p.publish(ctx, events.EventTicketRevoked, ticketID, events.TicketRevokedPayload{Reason: reason, Persisted: err == nil})
	return err
}

// ConfirmAdmission asks the authoritative store to mark ticketID used. It is
// the single-use transition; the replay window is only a heuristic.
func (p *ValidationPipeline) ConfirmAdmission(ctx context.Context, ticketID string) (*domain.TicketStatusRecord, error) {
	if p.store == nil {
		return nil, domain.ErrStoreUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, p.onlineTimeout)
	defer cancel()
	record, err := p.store.MarkUsed(ctx, ticketID)
	if err != nil {
		return record, err
	}
	usedAt := p.now().UTC()
	if record != nil && record.UsedAt != nil {
		usedAt = *record.UsedAt
	}
	p.publish(ctx, events.EventTicketAdmitted, ticketID, events.TicketAdmittedPayload{UsedAt: usedAt})
	return record, nil
}

func newResult(now time.Time, pl *payload.Payload, reason domain.Reason, method domain.ValidationMethod) domain.ValidationResult {
	result := domain.ValidationResult{
		Valid:     reason == domain.ReasonNone,
		Reason:    reason,
		Message:   reason.Message(),
		Timestamp: now,
		Method:    method,
	}
	if pl != nil {
		result.TicketID = pl.TicketID
		result.EventID = pl.EventID
		result.Type = pl.Type
	}
	return result
}

func historyEntry(r domain.ValidationResult) domain.HistoryEntry {
	return domain.HistoryEntry{Timestamp: r.Timestamp, Valid: r.Valid, Method: r.Method, Reason: r.Reason}
}
