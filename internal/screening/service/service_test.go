package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"screener/internal/screening/models"
	"screener/internal/screening/orchestrator"
	"screener/internal/screening/report"
	"screener/internal/screening/risk"
	"screener/internal/screening/store"
	id "screener/pkg/domain"
	dErrors "screener/pkg/domain-errors"
	"screener/pkg/requestcontext"
	"screener/pkg/testutil"
)

type stubOrchestrator struct {
	out *orchestrator.Outcome
	err error
	got models.ScreeningRequest
}

func (o *stubOrchestrator) Run(_ context.Context, req models.ScreeningRequest) (*orchestrator.Outcome, error) {
	o.got = req
	if o.err != nil {
		return &orchestrator.Outcome{State: models.StateFailed}, o.err
	}
	return o.out, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	reports []*models.ScreeningReport
	err     error
}

func (p *recordingPublisher) PublishReportCreated(_ context.Context, r *models.ScreeningReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, r)
	return p.err
}

// failingRepo accepts everything but the screened lists.
type failingRepo struct {
	*store.InMemory
}

func (failingRepo) AppendScreenedLists(context.Context, id.ReportID, []models.ScreenedSource) error {
	return errors.New("connection reset")
}

// =============================================================================
// Screening Service Test Suite
// =============================================================================

type ServiceSuite struct {
	suite.Suite
	orch      *stubOrchestrator
	repo      *store.InMemory
	publisher *recordingPublisher
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.orch = &stubOrchestrator{out: merged(
		[]models.MatchCandidate{candidate("1", 96, models.TagSanctioned)},
		[]models.ScreenedSource{
			{SourceID: "se-sanctions", MatchesFound: 1, Outcome: models.OutcomeOK},
			{SourceID: "aggregator", Outcome: models.OutcomeUnavailable, Annotation: "source timed out; no result obtained"},
		},
	)}
	s.repo = store.NewInMemory()
	s.publisher = &recordingPublisher{}
	s.service = s.newService(s.repo)
}

func (s *ServiceSuite) newService(repo report.Repository) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assembler, err := report.New(repo, report.WithLogger(logger))
	s.Require().NoError(err)
	svc, err := New(s.orch, assembler, WithLogger(logger), WithPublisher(s.publisher))
	s.Require().NoError(err)
	return svc
}

func merged(matches []models.MatchCandidate, sources []models.ScreenedSource) *orchestrator.Outcome {
	return &orchestrator.Outcome{State: models.StateMerged, Matches: matches, ScreenedSources: sources}
}

func candidate(recordID string, rate int, tag models.Tag) models.MatchCandidate {
	return models.MatchCandidate{
		RecordID:   recordID,
		Name:       "Ivan Petrov",
		MatchRate:  rate,
		Tag:        tag,
		Provenance: models.Provenance{SourceID: "se-sanctions", Authority: models.AuthorityNational},
	}
}

func ctx() context.Context {
	return requestcontext.WithClientMetadata(testutil.Context(), "10.0.0.1", "curl/8.5")
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *ServiceSuite) TestNew() {
	assembler, err := report.New(s.repo)
	s.Require().NoError(err)

	s.Run("nil orchestrator returns error", func() {
		_, err := New(nil, assembler)
		s.ErrorContains(err, "orchestrator is required")
	})

	s.Run("unordered risk policy returns error", func() {
		_, err := New(s.orch, assembler, WithRiskPolicy(risk.Policy{Critical: 80, High: 90, Medium: 95}))
		s.Error(err)
	})
}

// =============================================================================
// Screen Tests
// =============================================================================

func (s *ServiceSuite) TestScreen() {
	s.Run("invalid request is rejected before any work", func() {
		s.SetupTest()
		_, err := s.service.Screen(ctx(), models.RequestInput{DisplayName: "  "})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Empty(s.repo.Tokens())
		s.Empty(s.orch.got.DisplayName, "orchestrator not called")
	})

	s.Run("partial screening persists with both sources listed", func() {
		s.SetupTest()
		r, err := s.service.Screen(ctx(), models.RequestInput{DisplayName: "Ivan Petrov"})
		s.Require().NoError(err)
		s.Equal(models.ReportPartial, r.Status)
		s.Equal(models.RiskCritical, r.RiskLevel)
		s.Len(r.ScreenedSources, 2)
		s.Equal("10.0.0.1", r.Metadata.ClientIP)
		s.Equal("test-request", r.Metadata.RequestID)

		stored, err := s.repo.GetReportByToken(context.Background(), r.Token)
		s.Require().NoError(err)
		s.Len(stored.ScreenedSources, 2)
		s.Equal(0, stored.ScreenedSources[1].MatchesFound)
		s.Require().Len(stored.History, 1)
		s.Equal(models.ActionCreated, stored.History[0].Action)
	})

	s.Run("default threshold is applied", func() {
		s.SetupTest()
		_, err := s.service.Screen(ctx(), models.RequestInput{DisplayName: "Ivan Petrov"})
		s.Require().NoError(err)
		s.Equal(80, s.orch.got.Threshold)
	})

	s.Run("risk follows the configured policy", func() {
		cases := []struct {
			rate int
			want models.RiskLevel
		}{
			{96, models.RiskCritical},
			{91, models.RiskHigh},
			{82, models.RiskMedium},
			{79, models.RiskLow},
		}
		for _, tc := range cases {
			s.SetupTest()
			s.orch.out = merged([]models.MatchCandidate{candidate("1", tc.rate, models.TagSanctioned)}, nil)
			r, err := s.service.Screen(ctx(), models.RequestInput{DisplayName: "Ivan Petrov"})
			s.Require().NoError(err)
			s.Equal(tc.want, r.RiskLevel, "rate %d", tc.rate)
		}
	})

	s.Run("registry-only matches stay low", func() {
		s.SetupTest()
		s.orch.out = merged([]models.MatchCandidate{candidate("1", 100, models.TagRegistry)},
			[]models.ScreenedSource{{SourceID: "se-companies", MatchesFound: 1, Outcome: models.OutcomeOK}})
		r, err := s.service.Screen(ctx(), models.RequestInput{DisplayName: "Acme AB", EntityKind: "organization"})
		s.Require().NoError(err)
		s.Equal(models.RiskLow, r.RiskLevel)
		s.Equal(models.ReportCompleted, r.Status)
	})

	s.Run("no queryable source is unavailable", func() {
		s.SetupTest()
		s.orch.err = orchestrator.ErrNoSources
		_, err := s.service.Screen(ctx(), models.RequestInput{DisplayName: "Ivan Petrov"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Empty(s.repo.Tokens())
	})

	s.Run("persistence failure exposes no report", func() {
		s.SetupTest()
		svc := s.newService(failingRepo{s.repo})
		r, err := svc.Screen(ctx(), models.RequestInput{DisplayName: "Ivan Petrov"})
		s.Nil(r)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.Empty(s.repo.Tokens())
		s.Empty(s.publisher.reports)
	})

	s.Run("publish failure does not fail the screening", func() {
		s.SetupTest()
		s.publisher.err = errors.New("broker down")
		r, err := s.service.Screen(ctx(), models.RequestInput{DisplayName: "Ivan Petrov"})
		s.Require().NoError(err)
		s.NotEmpty(r.Token)
		s.Len(s.publisher.reports, 1)
	})

	s.Run("every report gets its own token", func() {
		s.SetupTest()
		a, err := s.service.Screen(ctx(), models.RequestInput{DisplayName: "Ivan Petrov"})
		s.Require().NoError(err)
		b, err := s.service.Screen(ctx(), models.RequestInput{DisplayName: "Ivan Petrov"})
		s.Require().NoError(err)
		s.NotEqual(a.Token, b.Token)
		s.NotEqual(a.ID, b.ID)
	})
}

// =============================================================================
// Retrieval Tests
// =============================================================================

func (s *ServiceSuite) TestRetrieval() {
	s.Run("unknown token is not found", func() {
		s.SetupTest()
		_, err := s.service.GetReport(ctx(), "nope")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("blank token is a bad request", func() {
		s.SetupTest()
		_, err := s.service.ExportReport(ctx(), " ")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("view and export append history", func() {
		s.SetupTest()
		created, err := s.service.Screen(ctx(), models.RequestInput{DisplayName: "Ivan Petrov"})
		s.Require().NoError(err)

		_, err = s.service.GetReport(ctx(), created.Token)
		s.Require().NoError(err)
		exported, err := s.service.ExportReport(ctx(), created.Token)
		s.Require().NoError(err)

		var actions []models.HistoryAction
		for _, e := range exported.History {
			actions = append(actions, e.Action)
		}
		s.Equal([]models.HistoryAction{models.ActionCreated, models.ActionViewed, models.ActionExported}, actions)
		s.Equal(created.Matches, exported.Matches)
	})
}
