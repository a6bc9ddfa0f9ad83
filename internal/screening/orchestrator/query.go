package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"screener/internal/screening/connectors"
	"screener/internal/screening/models"
	"screener/internal/screening/similarity"
	"screener/pkg/platform/sentinel"
	"screener/pkg/requestcontext"
)

type sourceResult struct {
	source     models.ScreenedSource
	candidates []models.MatchCandidate
	// consulted is set when at least one part got an answer, even if
	// another part was unavailable.
	consulted bool
}

// lookupPart is one call against a source; a source gets at most an
// identifier lookup and a name search.
type lookupPart struct {
	result connectors.Result
	exact  bool
}

// cachedResult is the cache payload. Only consulted outcomes are stored.
type cachedResult struct {
	Outcome models.LookupOutcome   `json:"outcome"`
	Records []connectors.RawRecord `json:"records,omitempty"`
}

// errCallDeadline is the cause attached to the per-call timeout, telling it
// apart from a cancelled or expired caller context.
var errCallDeadline = errors.New("source call deadline exceeded")

// outcomeRank orders combined outcomes: the most informative part wins.
var outcomeRank = map[models.LookupOutcome]int{
	models.OutcomeOK:                0,
	models.OutcomeNotFound:          1,
	models.OutcomeInvalidIdentifier: 2,
	models.OutcomeUnavailable:       3,
}

// query consults one connector. It never fails: every problem ends up as
// the source's outcome and annotation.
func (o *Orchestrator) query(ctx context.Context, c connectors.Connector, req models.ScreeningRequest) sourceResult {
	desc := c.Descriptor()
	ctx, span := o.tracer.Start(ctx, "screening.source", trace.WithAttributes(
		attribute.String("source", c.ID()),
	))
	defer span.End()

	var parts []lookupPart
	identifier := req.Identifier()
	if lookup, ok := c.(connectors.IdentifierLookup); ok && identifier != "" {
		parts = append(parts, lookupPart{result: o.lookupIdentifier(ctx, lookup, identifier), exact: true})
	}
	// Name search runs when there is no identifier answer to rely on.
	if search, ok := c.(connectors.NameSearch); ok && (len(parts) == 0 || desc.AlwaysSearchByName ||
		parts[0].result.Outcome != models.OutcomeOK) {
		parts = append(parts, lookupPart{result: o.searchName(ctx, search, req)})
	}

	out := sourceResult{source: models.ScreenedSource{
		SourceID:     c.ID(),
		Name:         desc.Name,
		Issuer:       desc.Issuer,
		Jurisdiction: strings.Join(desc.Jurisdictions, ","),
		Type:         desc.Type,
		URL:          desc.URL,
		Outcome:      models.OutcomeUnavailable,
	}}

	var annotations []string
	degraded := false
	for _, p := range parts {
		if outcomeRank[p.result.Outcome] < outcomeRank[out.source.Outcome] {
			out.source.Outcome = p.result.Outcome
		}
		if p.result.Outcome.Consulted() {
			out.consulted = true
		} else {
			degraded = true
		}
		if note := connectors.Annotation(p.result.Err); note != "" && !slices.Contains(annotations, note) {
			annotations = append(annotations, note)
		}
		out.candidates = append(out.candidates, o.score(c, desc, req, p)...)
	}
	// Any unanswered part leaves the source incomplete; its hits are kept.
	if degraded {
		out.source.Outcome = models.OutcomeUnavailable
	}
	out.candidates = dedupeWithinSource(out.candidates)
	out.source.MatchesFound = len(out.candidates)
	out.source.Annotation = strings.Join(annotations, "; ")

	span.SetAttributes(
		attribute.String("outcome", string(out.source.Outcome)),
		attribute.Int("candidates", len(out.candidates)),
	)
	if out.source.Outcome == models.OutcomeUnavailable {
		span.SetStatus(codes.Error, out.source.Annotation)
	}
	return out
}

func (o *Orchestrator) lookupIdentifier(ctx context.Context, lookup connectors.IdentifierLookup, raw string) connectors.Result {
	canonical := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if v, ok := lookup.(connectors.IdentifierValidator); ok {
		normalized, err := v.ValidateIdentifier(raw)
		if err != nil {
			return connectors.InvalidIdentifier(connectors.NewSourceError(
				connectors.ErrorInvalidIdentifier, lookup.ID(), "identifier rejected", err))
		}
		canonical = normalized
	}
	key := lookup.ID() + ":id:" + canonical
	return o.cachedCall(ctx, lookup, key, func(ctx context.Context) connectors.Result {
		return lookup.LookupByIdentifier(ctx, canonical)
	})
}

func (o *Orchestrator) searchName(ctx context.Context, search connectors.NameSearch, req models.ScreeningRequest) connectors.Result {
	filters := connectors.SearchFilters{
		EntityKind:  req.EntityKind,
		Country:     req.Country,
		DateOfBirth: req.DateOfBirth,
	}
	key := search.ID() + ":name:" + strings.Join([]string{
		normalizeKey(req.DisplayName), string(filters.EntityKind), filters.Country, filters.DateOfBirth,
	}, "|")
	return o.cachedCall(ctx, search, key, func(ctx context.Context) connectors.Result {
		return search.SearchByName(ctx, req.DisplayName, filters)
	})
}

// cachedCall serves key from the cache, or through the connector's breaker
// with the per-call timeout, writing consulted results back.
func (o *Orchestrator) cachedCall(ctx context.Context, c connectors.Connector, key string, call func(context.Context) connectors.Result) connectors.Result {
	desc := c.Descriptor()
	family := string(desc.Family)
	start := time.Now()

	if res, ok := o.fromCache(ctx, c, key); ok {
		o.metrics.ObserveLookup(c.ID(), string(res.Outcome), time.Since(start))
		return res
	}

	breaker := o.Breaker(c.ID())
	if !breaker.Allow() {
		res := connectors.Unavailable(connectors.NewSourceError(
			connectors.ErrorCircuitOpen, c.ID(), "circuit open", nil))
		o.metrics.ObserveLookup(c.ID(), string(res.Outcome), time.Since(start))
		return res
	}
	if err := ctx.Err(); err != nil {
		return cancelled(c.ID(), err)
	}
	if o.limiter != nil {
		if budget := o.limiter.Allow(c.ID()); !budget.Allowed {
			res := connectors.Unavailable(connectors.NewSourceError(
				connectors.ErrorRateLimited, c.ID(), "rate budget exhausted", nil))
			o.metrics.ObserveLookup(c.ID(), string(res.Outcome), time.Since(start))
			o.logger.WarnContext(ctx, "source rate budget exhausted",
				"request_id", requestcontext.RequestID(ctx),
				"source", c.ID(),
				"reset_at", budget.ResetAt,
			)
			return res
		}
	}

	timeout := o.timeout
	if desc.Timeout > 0 {
		timeout = desc.Timeout
	}
	callCtx, cancel := context.WithTimeoutCause(ctx, timeout, errCallDeadline)
	res := call(callCtx)
	// A caller that went away says nothing about the source's health.
	callerGone := ctx.Err() != nil && !errors.Is(context.Cause(callCtx), errCallDeadline)
	cancel()
	if callerGone && res.Outcome == models.OutcomeUnavailable {
		o.logger.DebugContext(ctx, "source call abandoned",
			"request_id", requestcontext.RequestID(ctx),
			"source", c.ID(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return cancelled(c.ID(), ctx.Err())
	}
	o.metrics.ObserveLookup(c.ID(), string(res.Outcome), time.Since(start))

	if res.Outcome == models.OutcomeUnavailable {
		_, change := breaker.RecordFailure()
		if change.Opened {
			o.metrics.IncrementCircuitTransition(c.ID(), "open")
			o.logger.WarnContext(ctx, "source circuit opened", "source", c.ID())
		}
		o.logger.WarnContext(ctx, "source unavailable",
			"request_id", requestcontext.RequestID(ctx),
			"source", c.ID(),
			"category", string(connectors.GetCategory(res.Err)),
			"error", res.Err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return res
	}
	if _, change := breaker.RecordSuccess(); change.Closed {
		o.metrics.IncrementCircuitTransition(c.ID(), "closed")
		o.logger.InfoContext(ctx, "source circuit closed", "source", c.ID())
	}

	payload, err := json.Marshal(cachedResult{Outcome: res.Outcome, Records: res.Records})
	if err != nil {
		o.logger.WarnContext(ctx, "cache encode failed", "source", c.ID(), "error", err)
		return res
	}
	ttl := o.ttl.TTL(desc.Family, res.Outcome != models.OutcomeOK)
	// The put must land even if the caller has gone away.
	if err := o.cache.Put(context.WithoutCancel(ctx), desc.Family, key, payload, ttl); err != nil {
		o.logger.WarnContext(ctx, "cache put failed", "source", c.ID(), "family", family, "error", err)
	}
	return res
}

func cancelled(sourceID string, err error) connectors.Result {
	return connectors.Unavailable(connectors.NewSourceError(
		connectors.ErrorCancelled, sourceID, "screening cancelled", err))
}

func (o *Orchestrator) fromCache(ctx context.Context, c connectors.Connector, key string) (connectors.Result, bool) {
	family := c.Descriptor().Family
	rec, err := o.cache.Get(ctx, family, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			o.metrics.IncrementCacheLookup(string(family), "miss")
		} else {
			o.metrics.IncrementCacheLookup(string(family), "error")
			o.logger.WarnContext(ctx, "cache get failed", "source", c.ID(), "error", err)
		}
		return connectors.Result{}, false
	}
	var cached cachedResult
	if err := json.Unmarshal(rec.Payload, &cached); err != nil || !cached.Outcome.Consulted() {
		o.metrics.IncrementCacheLookup(string(family), "error")
		return connectors.Result{}, false
	}
	o.metrics.IncrementCacheLookup(string(family), "hit")
	return connectors.Result{Outcome: cached.Outcome, Records: cached.Records}, true
}

// score turns raw records into candidates. Identifier hits are exact;
// search hits are scored against every request name, keeping the best.
func (o *Orchestrator) score(c connectors.Connector, desc connectors.Descriptor, req models.ScreeningRequest, p lookupPart) []models.MatchCandidate {
	if p.result.Outcome != models.OutcomeOK {
		return nil
	}
	names := req.SearchNames()
	var out []models.MatchCandidate
	for _, rec := range p.result.Records {
		rate := 100
		if !p.exact {
			rate = similarity.Best(names, rec.Names())
		}
		if rate < req.Threshold || !req.WantsTag(rec.Tag) {
			continue
		}
		jurisdiction := rec.Jurisdiction
		if jurisdiction == "" && len(desc.Jurisdictions) > 0 {
			jurisdiction = desc.Jurisdictions[0]
		}
		kind := rec.EntityKind
		if kind == "" {
			kind = req.EntityKind
		}
		out = append(out, models.MatchCandidate{
			RecordID:     rec.ID,
			Name:         rec.Name,
			Aliases:      rec.Aliases,
			MatchRate:    rate,
			EntityKind:   kind,
			Tag:          rec.Tag,
			Jurisdiction: jurisdiction,
			Identifiers:  rec.Identifiers,
			Remark:       rec.Remark,
			Associates:   rec.Associates,
			Provenance: models.Provenance{
				SourceID:     c.ID(),
				SourceName:   desc.Name,
				Issuer:       desc.Issuer,
				SourceURL:    desc.URL,
				Jurisdiction: strings.Join(desc.Jurisdictions, ","),
				Authority:    desc.Authority,
			},
		})
	}
	return out
}

func dedupeWithinSource(in []models.MatchCandidate) []models.MatchCandidate {
	if len(in) < 2 {
		return in
	}
	return models.RankCandidates(in, 0)
}
