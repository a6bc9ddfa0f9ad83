// Package orchestrator runs one screening across every selected source:
// selection, concurrent cache-first lookups, scoring and the merge into a
// ranked candidate list.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"screener/internal/screening/cache"
	"screener/internal/screening/connectors"
	"screener/internal/screening/metrics"
	"screener/internal/screening/models"
	"screener/pkg/platform/circuit"
	"screener/pkg/platform/ratelimit"
	"screener/pkg/requestcontext"
)

// ErrNoSources is returned when no selected source could be consulted.
var ErrNoSources = errors.New("no screening source could be queried")

const (
	defaultTopN           = 10
	defaultTimeout        = 5 * time.Second
	defaultMaxConcurrency = 8
)

// Outcome is the merged result of the query phase.
type Outcome struct {
	State           models.ScreeningState
	Matches         []models.MatchCandidate
	ScreenedSources []models.ScreenedSource
}

// Orchestrator fans a request out to the connectors the registry selects.
// The cache is the only state shared between lookups.
type Orchestrator struct {
	registry       *connectors.Registry
	cache          cache.Store
	ttl            cache.TTLPolicy
	topN           int
	timeout        time.Duration
	maxConcurrency int
	breakerOpts    []circuit.Option
	limiter        *ratelimit.Limiter

	mu       sync.Mutex
	breakers map[string]*circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithTTLPolicy(p cache.TTLPolicy) Option {
	return func(o *Orchestrator) {
		o.ttl = p
	}
}

// WithTopN caps the merged list. Values <= 0 are ignored.
func WithTopN(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.topN = n
		}
	}
}

// WithTimeout sets the per-connector call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithMaxConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxConcurrency = n
		}
	}
}

// WithBreakerOptions configures the per-connector circuit breakers.
func WithBreakerOptions(opts ...circuit.Option) Option {
	return func(o *Orchestrator) {
		o.breakerOpts = append(o.breakerOpts, opts...)
	}
}

// WithRateLimiter caps live calls per source. Cache hits do not count.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(o *Orchestrator) {
		o.limiter = l
	}
}

// New builds an orchestrator over registry. Each connector gets its own
// breaker on first use.
func New(registry *connectors.Registry, store cache.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:       registry,
		cache:          store,
		ttl:            cache.DefaultTTLPolicy(),
		topN:           defaultTopN,
		timeout:        defaultTimeout,
		maxConcurrency: defaultMaxConcurrency,
		logger:         slog.Default(),
		tracer:         otel.Tracer("screener/orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.breakers = make(map[string]*circuit.Breaker)
	return o
}

// Run executes the query phase for req. The returned Outcome is always
// non-nil; on ErrNoSources its State is StateFailed and ScreenedSources
// still lists every attempted source.
func (o *Orchestrator) Run(ctx context.Context, req models.ScreeningRequest) (*Outcome, error) {
	ctx, span := o.tracer.Start(ctx, "screening.run", trace.WithAttributes(
		attribute.String("entity_kind", string(req.EntityKind)),
		attribute.StringSlice("jurisdictions", req.JurisdictionLabels()),
	))
	defer span.End()

	out := &Outcome{State: models.StatePending}

	selected := o.selectSources(req)
	if len(selected) == 0 {
		o.fail(ctx, span, out, "no source serves the request")
		return out, ErrNoSources
	}
	if err := out.advance(models.StateSourcesSelected); err != nil {
		return out, err
	}

	results := make([]sourceResult, len(selected))
	g := new(errgroup.Group)
	g.SetLimit(o.maxConcurrency)
	for i, c := range selected {
		g.Go(func() error {
			results[i] = o.query(ctx, c, req)
			return nil
		})
	}
	_ = g.Wait()

	var candidates []models.MatchCandidate
	consulted := 0
	for _, r := range results {
		out.ScreenedSources = append(out.ScreenedSources, r.source)
		if r.consulted {
			consulted++
		}
		candidates = append(candidates, r.candidates...)
	}
	if consulted == 0 {
		o.fail(ctx, span, out, "every selected source was unavailable")
		return out, ErrNoSources
	}
	if err := out.advance(models.StateSourcesQueried); err != nil {
		return out, err
	}

	out.Matches = models.RankCandidates(candidates, o.topN)
	if err := out.advance(models.StateMerged); err != nil {
		return out, err
	}

	span.SetAttributes(
		attribute.Int("sources", len(out.ScreenedSources)),
		attribute.Int("matches", len(out.Matches)),
	)
	return out, nil
}

func (out *Outcome) advance(next models.ScreeningState) error {
	state, err := out.State.Transition(next)
	if err != nil {
		return err
	}
	out.State = state
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, span trace.Span, out *Outcome, reason string) {
	out.State, _ = out.State.Transition(models.StateFailed)
	span.SetStatus(codes.Error, reason)
	o.logger.WarnContext(ctx, "screening failed",
		"request_id", requestcontext.RequestID(ctx),
		"reason", reason,
		"sources", len(out.ScreenedSources),
	)
}

// selectSources resolves the jurisdiction table and drops connectors that
// have nothing to offer this request.
func (o *Orchestrator) selectSources(req models.ScreeningRequest) []connectors.Connector {
	var out []connectors.Connector
	for _, c := range o.registry.Select(req.Jurisdictions, req.EntityKind) {
		_, canSearch := c.(connectors.NameSearch)
		_, canLookup := c.(connectors.IdentifierLookup)
		if canSearch || (canLookup && req.Identifier() != "") {
			out = append(out, c)
		}
	}
	return out
}

// Breaker returns the breaker guarding sourceID.
func (o *Orchestrator) Breaker(sourceID string) *circuit.Breaker {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.breakers[sourceID]
	if !ok {
		b = circuit.New(sourceID, o.breakerOpts...)
		o.breakers[sourceID] = b
	}
	return b
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
