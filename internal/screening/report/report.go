// Package report assembles and persists screening reports. A report and
// everything attached to it is written in one unit of work; afterwards
// only history entries are added.
package report

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"screener/internal/screening/models"
	id "screener/pkg/domain"
	"screener/pkg/requestcontext"
)

//go:generate mockgen -source=report.go -destination=mocks/mocks.go -package=mocks Repository

// Repository is the persistence port. Append operations are insert-only.
// RunInTx makes every call made with the context it passes to fn part of
// one all-or-nothing write.
type Repository interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateReport(ctx context.Context, report *models.ScreeningReport) error
	AppendMatches(ctx context.Context, reportID id.ReportID, matches []models.MatchCandidate) error
	AppendScreenedLists(ctx context.Context, reportID id.ReportID, sources []models.ScreenedSource) error
	AppendHistory(ctx context.Context, entry models.HistoryEntry) error
	GetReportByToken(ctx context.Context, token string) (*models.ScreeningReport, error)
}

const tokenBytes = 32

// Draft is a classified screening waiting to be persisted.
type Draft struct {
	Request         models.ScreeningRequest
	Matches         []models.MatchCandidate
	ScreenedSources []models.ScreenedSource
	RiskLevel       models.RiskLevel
	Metadata        models.RequestMetadata
}

// Assembler turns drafts into persisted reports.
type Assembler struct {
	repo     Repository
	newToken func() (string, error)
	logger   *slog.Logger
}

type Option func(*Assembler)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// WithTokenGenerator replaces the random token source.
func WithTokenGenerator(gen func() (string, error)) Option {
	return func(a *Assembler) {
		if gen != nil {
			a.newToken = gen
		}
	}
}

func New(repo Repository, opts ...Option) (*Assembler, error) {
	if repo == nil {
		return nil, errors.New("report repository is required")
	}
	a := &Assembler{
		repo:     repo,
		newToken: NewToken,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// NewToken returns an unguessable URL-safe retrieval token.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Assemble persists d with its created history entry. On error nothing is
// visible and no token is returned.
func (a *Assembler) Assemble(ctx context.Context, d Draft) (*models.ScreeningReport, error) {
	token, err := a.newToken()
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	if token == "" {
		return nil, errors.New("issue token: empty token")
	}

	now := requestcontext.Now(ctx)
	report := &models.ScreeningReport{
		ID:              id.NewReportID(),
		Token:           token,
		Request:         d.Request,
		Matches:         d.Matches,
		ScreenedSources: d.ScreenedSources,
		RiskLevel:       d.RiskLevel,
		Status:          models.StatusFor(d.ScreenedSources),
		Metadata:        d.Metadata,
		CreatedAt:       now,
	}
	if report.Matches == nil {
		report.Matches = []models.MatchCandidate{}
	}
	created := models.NewHistoryEntry(report.ID, models.ActionCreated, d.Metadata, now)

	err = a.repo.RunInTx(ctx, func(ctx context.Context) error {
		if err := a.repo.CreateReport(ctx, report); err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		if err := a.repo.AppendMatches(ctx, report.ID, report.Matches); err != nil {
			return fmt.Errorf("append matches: %w", err)
		}
		if err := a.repo.AppendScreenedLists(ctx, report.ID, report.ScreenedSources); err != nil {
			return fmt.Errorf("append screened lists: %w", err)
		}
		if err := a.repo.AppendHistory(ctx, created); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return nil
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "report persistence failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, err
	}
	report.History = []models.HistoryEntry{created}
	return report, nil
}

// Retrieve loads the report behind token and records action against it.
// Lookup errors, including sentinel.ErrNotFound, are returned unchanged.
func (a *Assembler) Retrieve(ctx context.Context, token string, action models.HistoryAction, meta models.RequestMetadata) (*models.ScreeningReport, error) {
	report, err := a.repo.GetReportByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	entry := models.NewHistoryEntry(report.ID, action, meta, requestcontext.Now(ctx))
	if err := a.repo.AppendHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	report.History = append(report.History, entry)
	return report, nil
}
