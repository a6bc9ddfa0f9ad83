package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"screener/internal/screening/metrics"
	"screener/internal/screening/models"
	"screener/internal/screening/orchestrator"
	"screener/internal/screening/report"
	"screener/internal/screening/risk"
	dErrors "screener/pkg/domain-errors"
	"screener/pkg/platform/sentinel"
	"screener/pkg/requestcontext"
)

const publishTimeout = 5 * time.Second

type Orchestrator interface {
	Run(ctx context.Context, req models.ScreeningRequest) (*orchestrator.Outcome, error)
}

type Assembler interface {
	Assemble(ctx context.Context, d report.Draft) (*models.ScreeningReport, error)
	Retrieve(ctx context.Context, token string, action models.HistoryAction, meta models.RequestMetadata) (*models.ScreeningReport, error)
}

type EventPublisher interface {
	PublishReportCreated(ctx context.Context, r *models.ScreeningReport) error
}

// Service runs screenings end to end: validation, the query phase, risk
// classification, persistence and the best-effort created event.
type Service struct {
	orchestrator     Orchestrator
	assembler        Assembler
	policy           risk.Policy
	defaultThreshold int
	publisher        EventPublisher
	logger           *slog.Logger
	metrics          *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithRiskPolicy(p risk.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithDefaultThreshold sets the match-rate threshold for requests that do
// not carry one.
func WithDefaultThreshold(threshold int) Option {
	return func(s *Service) {
		s.defaultThreshold = threshold
	}
}

func New(orch Orchestrator, assembler Assembler, opts ...Option) (*Service, error) {
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}
	if assembler == nil {
		return nil, errors.New("report assembler is required")
	}
	s := &Service{
		orchestrator:     orch,
		assembler:        assembler,
		policy:           risk.DefaultPolicy(),
		defaultThreshold: 80,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.policy.Validate(); err != nil {
		return nil, err
	}
	if s.defaultThreshold < 0 || s.defaultThreshold > 100 {
		return nil, errors.New("default threshold must be between 0 and 100")
	}
	return s, nil
}

// Screen validates in, screens it and returns the persisted report.
func (s *Service) Screen(ctx context.Context, in models.RequestInput) (*models.ScreeningReport, error) {
	start := time.Now()
	req, err := models.NewScreeningRequest(in, s.defaultThreshold)
	if err != nil {
		return nil, err
	}

	out, err := s.orchestrator.Run(ctx, req)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoSources) {
			s.metrics.IncrementScreening("none", string(models.StateFailed))
			return nil, dErrors.New(dErrors.CodeUnavailable, "no screening source could be queried")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "screening failed")
	}

	level := s.policy.Classify(out.Matches)
	state, err := out.State.Transition(models.StateClassified)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "screening failed")
	}

	r, err := s.assembler.Assemble(ctx, report.Draft{
		Request:         req,
		Matches:         out.Matches,
		ScreenedSources: out.ScreenedSources,
		RiskLevel:       level,
		Metadata:        metadataFrom(ctx),
	})
	if err != nil {
		state, _ = state.Transition(models.StateFailed)
		s.metrics.IncrementScreening(string(level), string(state))
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist screening report")
	}
	state, _ = state.Transition(models.StatePersisted)

	s.metrics.IncrementScreening(string(r.RiskLevel), string(r.Status))
	s.metrics.ObserveScreenLatency(time.Since(start))
	s.logger.InfoContext(ctx, "screening completed",
		"request_id", requestcontext.RequestID(ctx),
		"report_id", r.ID.String(),
		"state", string(state),
		"risk_level", string(r.RiskLevel),
		"status", string(r.Status),
		"matches", len(r.Matches),
		"sources", len(r.ScreenedSources),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	s.publishCreated(ctx, r)
	return r, nil
}

func (s *Service) publishCreated(ctx context.Context, r *models.ScreeningReport) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishReportCreated(ctx, r); err != nil {
		s.logger.WarnContext(ctx, "report event not published",
			"report_id", r.ID.String(),
			"error", err,
		)
	}
}

// GetReport returns the report behind token and records a view.
func (s *Service) GetReport(ctx context.Context, token string) (*models.ScreeningReport, error) {
	return s.retrieve(ctx, token, models.ActionViewed)
}

// ExportReport returns the report behind token and records an export.
func (s *Service) ExportReport(ctx context.Context, token string) (*models.ScreeningReport, error) {
	return s.retrieve(ctx, token, models.ActionExported)
}

func (s *Service) retrieve(ctx context.Context, token string, action models.HistoryAction) (*models.ScreeningReport, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "token is required")
	}
	r, err := s.assembler.Retrieve(ctx, token, action, metadataFrom(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report")
	}
	s.logger.InfoContext(ctx, "report accessed",
		"request_id", requestcontext.RequestID(ctx),
		"report_id", r.ID.String(),
		"action", string(action),
	)
	return r, nil
}

func metadataFrom(ctx context.Context) models.RequestMetadata {
	return models.RequestMetadata{
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		Device:    requestcontext.ClientDevice(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx),
	}
}
