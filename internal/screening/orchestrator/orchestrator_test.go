package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"screener/internal/screening/cache"
	"screener/internal/screening/connectors"
	"screener/internal/screening/models"
	"screener/pkg/platform/circuit"
	"screener/pkg/platform/ratelimit"
)

type OrchestratorSuite struct {
	suite.Suite
	cache    *cache.InMemory
	registry *connectors.Registry
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.cache = cache.NewInMemory()
	s.registry = connectors.NewRegistry()
}

func (s *OrchestratorSuite) request(in models.RequestInput) models.ScreeningRequest {
	req, err := models.NewScreeningRequest(in, 80)
	s.Require().NoError(err)
	return req
}

func (s *OrchestratorSuite) orchestrator(opts ...Option) *Orchestrator {
	return New(s.registry, s.cache, opts...)
}

// =============================================================================
// Selection
// =============================================================================

func (s *OrchestratorSuite) TestSelection() {
	s.Run("only sources declaring a requested jurisdiction are queried", func() {
		s.SetupTest()
		se := newSearch("se-list", models.AuthorityNational, returns(), "SE")
		no := newSearch("no-list", models.AuthorityNational, returns(), "NO")
		s.registry.MustRegister(se, no)

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{
			DisplayName: "Ivan Petrov", Jurisdictions: []string{"se"},
		}))
		s.Require().NoError(err)
		s.Require().Len(out.ScreenedSources, 1)
		s.Equal("se-list", out.ScreenedSources[0].SourceID)
		s.Equal(int32(0), no.calls.Load())
	})

	s.Run("identifier-only sources are skipped without an identifier", func() {
		s.SetupTest()
		ids := newLookup("se-persons", returns(), "SE")
		list := newSearch("se-list", models.AuthorityNational, returns(), "SE")
		s.registry.MustRegister(ids, list)

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{DisplayName: "Ivan Petrov"}))
		s.Require().NoError(err)
		s.Len(out.ScreenedSources, 1)
		s.Equal(int32(0), ids.calls.Load())
	})

	s.Run("no matching source fails the screening", func() {
		s.SetupTest()
		s.registry.MustRegister(newSearch("no-list", models.AuthorityNational, returns(), "NO"))

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{
			DisplayName: "Ivan Petrov", Jurisdictions: []string{"SE"},
		}))
		s.True(errors.Is(err, ErrNoSources))
		s.Equal(models.StateFailed, out.State)
		s.Empty(out.ScreenedSources)
	})
}

// =============================================================================
// Degradation
// =============================================================================

func (s *OrchestratorSuite) TestDegradation() {
	s.Run("one unavailable source still yields a merged outcome listing both", func() {
		s.SetupTest()
		s.registry.MustRegister(
			newSearch("up", models.AuthorityNational, returns(sanctioned("1", "Ivan Petrov")), "SE"),
			newSearch("down", models.AuthorityNational, outage("down"), "SE"),
		)

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{DisplayName: "Ivan Petrov"}))
		s.Require().NoError(err)
		s.Equal(models.StateMerged, out.State)
		s.Require().Len(out.ScreenedSources, 2)
		s.Equal(models.OutcomeOK, out.ScreenedSources[0].Outcome)
		s.Equal(1, out.ScreenedSources[0].MatchesFound)
		s.Equal(models.OutcomeUnavailable, out.ScreenedSources[1].Outcome)
		s.Equal(0, out.ScreenedSources[1].MatchesFound)
		s.NotEmpty(out.ScreenedSources[1].Annotation)
		s.Len(out.Matches, 1)
	})

	s.Run("every source unavailable fails but keeps the audit list", func() {
		s.SetupTest()
		s.registry.MustRegister(newSearch("down", models.AuthorityNational, outage("down"), "SE"))

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{DisplayName: "Ivan Petrov"}))
		s.True(errors.Is(err, ErrNoSources))
		s.Equal(models.StateFailed, out.State)
		s.Len(out.ScreenedSources, 1)
	})

	s.Run("slow source times out without holding up the rest", func() {
		s.SetupTest()
		s.registry.MustRegister(
			newSearch("slow", models.AuthorityNational, blocks, "SE"),
			newSearch("fast", models.AuthorityNational, returns(sanctioned("1", "Ivan Petrov")), "SE"),
		)

		start := time.Now()
		out, err := s.orchestrator(WithTimeout(50*time.Millisecond)).Run(context.Background(),
			s.request(models.RequestInput{DisplayName: "Ivan Petrov"}))
		s.Require().NoError(err)
		s.Less(time.Since(start), 2*time.Second)
		s.Equal(models.OutcomeUnavailable, out.ScreenedSources[0].Outcome)
		s.Contains(out.ScreenedSources[0].Annotation, "timed out")
		s.Len(out.Matches, 1)
	})

	s.Run("open circuit skips the live call", func() {
		s.SetupTest()
		down := newSearch("down", models.AuthorityNational, outage("down"), "SE")
		s.registry.MustRegister(down, newSearch("up", models.AuthorityNational, returns(), "SE"))
		o := s.orchestrator(WithBreakerOptions(circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour)))
		req := s.request(models.RequestInput{DisplayName: "Ivan Petrov"})

		for range 3 {
			_, err := o.Run(context.Background(), req)
			s.Require().NoError(err)
		}
		s.Equal(int32(2), down.calls.Load())
		s.True(o.Breaker("down").IsOpen())

		out, err := o.Run(context.Background(), req)
		s.Require().NoError(err)
		s.Contains(out.ScreenedSources[0].Annotation, "repeated failures")
	})

	s.Run("exhausted rate budget skips the live call but not the cache", func() {
		s.SetupTest()
		src := newSearch("limited", models.AuthorityNational, returns(), "SE")
		s.registry.MustRegister(src)
		o := s.orchestrator(WithRateLimiter(ratelimit.New(1, time.Hour)))

		_, err := o.Run(context.Background(), s.request(models.RequestInput{DisplayName: "Ivan Petrov"}))
		s.Require().NoError(err)

		out, err := o.Run(context.Background(), s.request(models.RequestInput{DisplayName: "Anna Berg"}))
		s.ErrorIs(err, ErrNoSources)
		s.Require().Len(out.ScreenedSources, 1)
		s.Equal(models.OutcomeUnavailable, out.ScreenedSources[0].Outcome)
		s.Contains(out.ScreenedSources[0].Annotation, "rate limited")

		cached, err := o.Run(context.Background(), s.request(models.RequestInput{DisplayName: "Ivan Petrov"}))
		s.Require().NoError(err)
		s.Equal(models.OutcomeNotFound, cached.ScreenedSources[0].Outcome)
		s.Equal(int32(1), src.calls.Load())
	})

	s.Run("caller cancellations leave the breaker closed", func() {
		s.SetupTest()
		var healthy atomic.Bool
		var cancelCaller context.CancelFunc
		src := newSearch("steady", models.AuthorityNational, func(ctx context.Context, name string) connectors.Result {
			if healthy.Load() {
				return connectors.OK(nil)
			}
			cancelCaller()
			return blocks(ctx, name)
		}, "SE")
		s.registry.MustRegister(src)
		o := s.orchestrator(
			WithTimeout(5*time.Second),
			WithBreakerOptions(circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour)),
		)
		req := s.request(models.RequestInput{DisplayName: "Ivan Petrov"})

		for range 3 {
			var ctx context.Context
			ctx, cancelCaller = context.WithCancel(context.Background())
			out, err := o.Run(ctx, req)
			cancelCaller()
			s.ErrorIs(err, ErrNoSources)
			s.Contains(out.ScreenedSources[0].Annotation, "cancelled")
		}
		s.Equal(int32(3), src.calls.Load())
		s.False(o.Breaker("steady").IsOpen())

		healthy.Store(true)
		out, err := o.Run(context.Background(), req)
		s.Require().NoError(err)
		s.Equal(models.OutcomeNotFound, out.ScreenedSources[0].Outcome)
		s.Equal(int32(4), src.calls.Load())
	})
}

// =============================================================================
// Cache
// =============================================================================

func (s *OrchestratorSuite) TestCache() {
	s.Run("consulted results are served from cache on the next run", func() {
		s.SetupTest()
		hit := newSearch("hit", models.AuthorityNational, returns(sanctioned("1", "Ivan Petrov")), "SE")
		miss := newSearch("miss", models.AuthorityNational, returns(), "SE")
		s.registry.MustRegister(hit, miss)
		o := s.orchestrator()
		req := s.request(models.RequestInput{DisplayName: "Ivan Petrov"})

		first, err := o.Run(context.Background(), req)
		s.Require().NoError(err)
		second, err := o.Run(context.Background(), req)
		s.Require().NoError(err)

		s.Equal(int32(1), hit.calls.Load())
		s.Equal(int32(1), miss.calls.Load(), "negative results are cached too")
		s.Equal(first.Matches, second.Matches)
		s.Equal(models.OutcomeNotFound, second.ScreenedSources[1].Outcome)
	})

	s.Run("unavailable results are not cached", func() {
		s.SetupTest()
		down := newSearch("down", models.AuthorityNational, outage("down"), "SE")
		s.registry.MustRegister(down, newSearch("up", models.AuthorityNational, returns(), "SE"))
		o := s.orchestrator()
		req := s.request(models.RequestInput{DisplayName: "Ivan Petrov"})

		_, _ = o.Run(context.Background(), req)
		_, _ = o.Run(context.Background(), req)
		s.Equal(int32(2), down.calls.Load())
	})

	s.Run("cache write completes after the caller cancels", func() {
		s.SetupTest()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		src := newSearch("cancels", models.AuthorityNational, func(context.Context, string) connectors.Result {
			cancel()
			return connectors.OK([]connectors.RawRecord{sanctioned("1", "Ivan Petrov")})
		}, "SE")
		s.registry.MustRegister(src)

		_, err := s.orchestrator().Run(ctx, s.request(models.RequestInput{DisplayName: "Ivan Petrov"}))
		s.Require().NoError(err)
		s.Equal(1, s.cache.Len())
	})
}

// =============================================================================
// Identifier lookups
// =============================================================================

func (s *OrchestratorSuite) TestIdentifierLookup() {
	person := connectors.RawRecord{ID: "8112289874", Name: "Anna Lindqvist", Tag: models.TagRegistry}

	s.Run("invalid identifier is rejected before the network call", func() {
		s.SetupTest()
		ids := newLookup("se-persons", returns(person), "SE")
		s.registry.MustRegister(ids)

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{
			DisplayName: "Anna Lindqvist", NationalID: "bad-id",
		}))
		s.Require().NoError(err)
		s.Equal(int32(0), ids.calls.Load())
		s.Equal(models.OutcomeInvalidIdentifier, out.ScreenedSources[0].Outcome)
		s.Equal(0, out.ScreenedSources[0].MatchesFound)
		s.Empty(out.Matches)
	})

	s.Run("identifier hits are exact regardless of name", func() {
		s.SetupTest()
		s.registry.MustRegister(newLookup("se-persons", returns(person), "SE"))

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{
			DisplayName: "A. Lindqvist", NationalID: "811228-9874",
		}))
		s.Require().NoError(err)
		s.Require().Len(out.Matches, 1)
		s.Equal(100, out.Matches[0].MatchRate)
		s.Equal("SE", out.Matches[0].Jurisdiction)
	})

	s.Run("identifier lookup wins over name search on the same source", func() {
		s.SetupTest()
		src := &dualSource{
			lookupSource: newLookup("se-registry", returns(person), "SE"),
			searchFn:     returns(person),
		}
		s.registry.MustRegister(src)

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{
			DisplayName: "Anna Lindqvist", NationalID: "811228-9874",
		}))
		s.Require().NoError(err)
		s.Equal(int32(1), src.calls.Load())
		s.Equal(int32(0), src.searches.Load())
		s.Len(out.Matches, 1)
	})

	s.Run("always-search sources run both and dedupe keeping the higher rate", func() {
		s.SetupTest()
		src := &dualSource{
			lookupSource: newLookup("aggregator", returns(person), "SE"),
			searchFn:     returns(person),
		}
		src.desc.AlwaysSearchByName = true
		s.registry.MustRegister(src)

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{
			DisplayName: "Anna Lindqvst", NationalID: "811228-9874", Threshold: intPtr(0),
		}))
		s.Require().NoError(err)
		s.Equal(int32(1), src.searches.Load())
		s.Require().Len(out.Matches, 1)
		s.Equal(100, out.Matches[0].MatchRate)
		s.Equal(1, out.ScreenedSources[0].MatchesFound)
	})

	s.Run("rejected identifier falls back to name search", func() {
		s.SetupTest()
		src := &dualSource{
			lookupSource: newLookup("se-registry", returns(person), "SE"),
			searchFn:     returns(person),
		}
		s.registry.MustRegister(src)

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{
			DisplayName: "Anna Lindqvist", NationalID: "bad-id",
		}))
		s.Require().NoError(err)
		s.Equal(int32(0), src.calls.Load())
		s.Equal(int32(1), src.searches.Load())
		s.Equal(models.OutcomeOK, out.ScreenedSources[0].Outcome)
		s.Require().Len(out.Matches, 1)
		s.Equal("8112289874", out.Matches[0].RecordID)
	})

	s.Run("identifier miss falls back to name search", func() {
		s.SetupTest()
		src := &dualSource{
			lookupSource: newLookup("se-registry", returns(), "SE"),
			searchFn:     returns(person),
		}
		s.registry.MustRegister(src)

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{
			DisplayName: "Anna Lindqvist", NationalID: "811228-9874",
		}))
		s.Require().NoError(err)
		s.Equal(int32(1), src.calls.Load())
		s.Equal(int32(1), src.searches.Load())
		s.Len(out.Matches, 1)
	})

	s.Run("unavailable identifier part marks the source unavailable but keeps search hits", func() {
		s.SetupTest()
		src := &dualSource{
			lookupSource: newLookup("aggregator", outage("aggregator"), "SE"),
			searchFn:     returns(person),
		}
		s.registry.MustRegister(src)

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{
			DisplayName: "Anna Lindqvist", NationalID: "811228-9874",
		}))
		s.Require().NoError(err)
		s.Equal(models.StateMerged, out.State)
		s.Equal(models.OutcomeUnavailable, out.ScreenedSources[0].Outcome)
		s.Equal(1, out.ScreenedSources[0].MatchesFound)
		s.NotEmpty(out.ScreenedSources[0].Annotation)
		s.Equal(models.ReportPartial, models.StatusFor(out.ScreenedSources))
		s.Len(out.Matches, 1)
	})
}

// =============================================================================
// Scoring and merge
// =============================================================================

func (s *OrchestratorSuite) TestMerge() {
	s.Run("candidates below the threshold are dropped", func() {
		s.SetupTest()
		s.registry.MustRegister(newSearch("list", models.AuthorityNational, returns(sanctioned("1", "Ivan Petrow")), "SE"))

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{
			DisplayName: "Ivan Petrov", Threshold: intPtr(100),
		}))
		s.Require().NoError(err)
		s.Empty(out.Matches)
		s.Equal(0, out.ScreenedSources[0].MatchesFound)
		s.Equal(models.OutcomeOK, out.ScreenedSources[0].Outcome)
	})

	s.Run("localized name scores when it matches better", func() {
		s.SetupTest()
		s.registry.MustRegister(newSearch("list", models.AuthorityNational, returns(sanctioned("1", "Иван Петров")), "SE"))

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{
			DisplayName: "Ivan Petrov", LocalizedName: "Иван Петров",
		}))
		s.Require().NoError(err)
		s.Require().Len(out.Matches, 1)
		s.Equal(100, out.Matches[0].MatchRate)
	})

	s.Run("ties are broken by authority", func() {
		s.SetupTest()
		s.registry.MustRegister(
			newSearch("intl", models.AuthorityInternational, returns(sanctioned("1", "Ivan Petrov")), "SE"),
			newSearch("national", models.AuthorityNational, returns(sanctioned("2", "Ivan Petrov")), "SE"),
		)

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{DisplayName: "Ivan Petrov"}))
		s.Require().NoError(err)
		s.Require().Len(out.Matches, 2)
		s.Equal("national", out.Matches[0].Provenance.SourceID)
		s.Equal("intl", out.Matches[1].Provenance.SourceID)
	})

	s.Run("merged list is capped at top-N", func() {
		s.SetupTest()
		var records []connectors.RawRecord
		for _, id := range []string{"a", "b", "c", "d"} {
			records = append(records, sanctioned(id, "Ivan Petrov"))
		}
		s.registry.MustRegister(newSearch("list", models.AuthorityNational, returns(records...), "SE"))

		out, err := s.orchestrator(WithTopN(2)).Run(context.Background(), s.request(models.RequestInput{DisplayName: "Ivan Petrov"}))
		s.Require().NoError(err)
		s.Len(out.Matches, 2)
		s.Equal(4, out.ScreenedSources[0].MatchesFound)
	})

	s.Run("category filter keeps registry confirmations", func() {
		s.SetupTest()
		s.registry.MustRegister(newSearch("list", models.AuthorityNational, returns(
			sanctioned("1", "Ivan Petrov"),
			connectors.RawRecord{ID: "2", Name: "Ivan Petrov", Tag: models.TagPEP},
			connectors.RawRecord{ID: "3", Name: "Ivan Petrov", Tag: models.TagRegistry},
		), "SE"))

		out, err := s.orchestrator().Run(context.Background(), s.request(models.RequestInput{
			DisplayName: "Ivan Petrov", Categories: []string{"pep"},
		}))
		s.Require().NoError(err)
		var tags []models.Tag
		for _, m := range out.Matches {
			tags = append(tags, m.Tag)
		}
		s.ElementsMatch([]models.Tag{models.TagPEP, models.TagRegistry}, tags)
	})
}

func intPtr(v int) *int { return &v }
