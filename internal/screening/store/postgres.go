package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"screener/internal/screening/models"
	id "screener/pkg/domain"
	"screener/pkg/platform/sentinel"
	txcontext "screener/pkg/platform/tx"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint.
const uniqueViolation = "23505"

// Postgres is the report repository on database/sql. Calls join the
// transaction RunInTx put in the context.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, fn)
}

func (s *Postgres) CreateReport(ctx context.Context, r *models.ScreeningReport) error {
	query := `
		INSERT INTO screening_reports (
			id, token, display_name, localized_name, national_id, date_of_birth,
			country, gender, organization_name, registration_number, categories,
			jurisdictions, threshold, entity_kind, risk_level, status, client_ip,
			user_agent, device, request_id, requested_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`
	req := r.Request
	categories := make([]string, len(req.Categories))
	for i, c := range req.Categories {
		categories[i] = string(c)
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(r.ID), r.Token, req.DisplayName, req.LocalizedName, req.NationalID, req.DateOfBirth,
		req.Country, req.Gender, req.OrganizationName, req.RegistrationNumber, pq.Array(categories),
		pq.Array(nonNil(req.Jurisdictions)), req.Threshold, string(req.EntityKind), string(r.RiskLevel), string(r.Status),
		r.Metadata.ClientIP, r.Metadata.UserAgent, r.Metadata.Device, r.Metadata.RequestID,
		r.Metadata.Timestamp, r.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *Postgres) AppendMatches(ctx context.Context, reportID id.ReportID, matches []models.MatchCandidate) error {
	query := `
		INSERT INTO screening_matches (
			report_id, position, record_id, name, aliases, match_rate, entity_kind, tag,
			jurisdiction, identifiers, remark, associates, source_id, source_name, issuer,
			source_url, source_jurisdiction, authority
		)
		VALUES ($1, (SELECT COALESCE(MAX(position), -1) + 1 FROM screening_matches WHERE report_id = $1),
			$2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	for _, m := range matches {
		_, err := s.execer(ctx).ExecContext(ctx, query,
			uuid.UUID(reportID), m.RecordID, m.Name, pq.Array(nonNil(m.Aliases)), m.MatchRate,
			string(m.EntityKind), string(m.Tag), m.Jurisdiction, pq.Array(nonNil(m.Identifiers)),
			m.Remark, pq.Array(nonNil(m.Associates)), m.Provenance.SourceID, m.Provenance.SourceName,
			m.Provenance.Issuer, m.Provenance.SourceURL, m.Provenance.Jurisdiction, int(m.Provenance.Authority),
		)
		if err != nil {
			return fmt.Errorf("insert match: %w", mapForeignKey(err))
		}
	}
	return nil
}

func (s *Postgres) AppendScreenedLists(ctx context.Context, reportID id.ReportID, sources []models.ScreenedSource) error {
	query := `
		INSERT INTO screened_lists (
			report_id, position, source_id, name, issuer, jurisdiction, type, url,
			matches_found, outcome, annotation
		)
		VALUES ($1, (SELECT COALESCE(MAX(position), -1) + 1 FROM screened_lists WHERE report_id = $1),
			$2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, src := range sources {
		_, err := s.execer(ctx).ExecContext(ctx, query,
			uuid.UUID(reportID), src.SourceID, src.Name, src.Issuer, src.Jurisdiction, src.Type, src.URL,
			src.MatchesFound, string(src.Outcome), src.Annotation,
		)
		if err != nil {
			return fmt.Errorf("insert screened list: %w", mapForeignKey(err))
		}
	}
	return nil
}

func (s *Postgres) AppendHistory(ctx context.Context, e models.HistoryEntry) error {
	query := `
		INSERT INTO report_history (id, report_id, action, client_ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.ID), uuid.UUID(e.ReportID), string(e.Action), e.ClientIP, e.UserAgent, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert history: %w", mapForeignKey(err))
	}
	return nil
}

func (s *Postgres) GetReportByToken(ctx context.Context, token string) (*models.ScreeningReport, error) {
	query := `
		SELECT id, token, display_name, localized_name, national_id, date_of_birth,
			country, gender, organization_name, registration_number, categories,
			jurisdictions, threshold, entity_kind, risk_level, status, client_ip,
			user_agent, device, request_id, requested_at, created_at
		FROM screening_reports
		WHERE token = $1
	`
	var (
		r             models.ScreeningReport
		reportID      uuid.UUID
		categories    []string
		jurisdictions []string
		entityKind    string
		riskLevel     string
		status        string
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, token).Scan(
		&reportID, &r.Token, &r.Request.DisplayName, &r.Request.LocalizedName, &r.Request.NationalID,
		&r.Request.DateOfBirth, &r.Request.Country, &r.Request.Gender, &r.Request.OrganizationName,
		&r.Request.RegistrationNumber, pq.Array(&categories), pq.Array(&jurisdictions), &r.Request.Threshold,
		&entityKind, &riskLevel, &status, &r.Metadata.ClientIP, &r.Metadata.UserAgent, &r.Metadata.Device,
		&r.Metadata.RequestID, &r.Metadata.Timestamp, &r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select report: %w", err)
	}
	r.ID = id.ReportID(reportID)
	r.Request.EntityKind = models.EntityKind(entityKind)
	r.RiskLevel = models.RiskLevel(riskLevel)
	r.Status = models.ReportStatus(status)
	for _, c := range categories {
		r.Request.Categories = append(r.Request.Categories, models.Category(c))
	}
	if len(jurisdictions) > 0 {
		r.Request.Jurisdictions = jurisdictions
	}

	if r.Matches, err = s.loadMatches(ctx, r.ID); err != nil {
		return nil, err
	}
	if r.ScreenedSources, err = s.loadScreenedLists(ctx, r.ID); err != nil {
		return nil, err
	}
	if r.History, err = s.loadHistory(ctx, r.ID); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Postgres) loadMatches(ctx context.Context, reportID id.ReportID) ([]models.MatchCandidate, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT record_id, name, aliases, match_rate, entity_kind, tag, jurisdiction, identifiers,
			remark, associates, source_id, source_name, issuer, source_url, source_jurisdiction, authority
		FROM screening_matches
		WHERE report_id = $1
		ORDER BY position
	`, uuid.UUID(reportID))
	if err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}
	defer rows.Close()

	out := []models.MatchCandidate{}
	for rows.Next() {
		var (
			m          models.MatchCandidate
			entityKind string
			tag        string
			authority  int
		)
		if err := rows.Scan(&m.RecordID, &m.Name, pq.Array(&m.Aliases), &m.MatchRate, &entityKind, &tag,
			&m.Jurisdiction, pq.Array(&m.Identifiers), &m.Remark, pq.Array(&m.Associates),
			&m.Provenance.SourceID, &m.Provenance.SourceName, &m.Provenance.Issuer,
			&m.Provenance.SourceURL, &m.Provenance.Jurisdiction, &authority); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.EntityKind = models.EntityKind(entityKind)
		m.Tag = models.Tag(tag)
		m.Provenance.Authority = models.Authority(authority)
		m.Aliases = nilIfEmpty(m.Aliases)
		m.Identifiers = nilIfEmpty(m.Identifiers)
		m.Associates = nilIfEmpty(m.Associates)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Postgres) loadScreenedLists(ctx context.Context, reportID id.ReportID) ([]models.ScreenedSource, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT source_id, name, issuer, jurisdiction, type, url, matches_found, outcome, annotation
		FROM screened_lists
		WHERE report_id = $1
		ORDER BY position
	`, uuid.UUID(reportID))
	if err != nil {
		return nil, fmt.Errorf("select screened lists: %w", err)
	}
	defer rows.Close()

	var out []models.ScreenedSource
	for rows.Next() {
		var (
			src     models.ScreenedSource
			outcome string
		)
		if err := rows.Scan(&src.SourceID, &src.Name, &src.Issuer, &src.Jurisdiction, &src.Type,
			&src.URL, &src.MatchesFound, &outcome, &src.Annotation); err != nil {
			return nil, fmt.Errorf("scan screened list: %w", err)
		}
		src.Outcome = models.LookupOutcome(outcome)
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *Postgres) loadHistory(ctx context.Context, reportID id.ReportID) ([]models.HistoryEntry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, action, client_ip, user_agent, created_at
		FROM report_history
		WHERE report_id = $1
		ORDER BY created_at, (action <> 'created')
	`, uuid.UUID(reportID))
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryEntry
	for rows.Next() {
		var (
			e       models.HistoryEntry
			entryID uuid.UUID
			action  string
		)
		if err := rows.Scan(&entryID, &action, &e.ClientIP, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.ID = id.HistoryEntryID(entryID)
		e.ReportID = reportID
		e.Action = models.HistoryAction(action)
		out = append(out, e)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	var sqlState interface{ SQLState() string }
	if errors.As(err, &sqlState) {
		return sqlState.SQLState() == uniqueViolation
	}
	return false
}

// mapForeignKey turns a missing parent report into sentinel.ErrNotFound.
func mapForeignKey(err error) error {
	var sqlState interface{ SQLState() string }
	if errors.As(err, &sqlState) && sqlState.SQLState() == "23503" {
		return sentinel.ErrNotFound
	}
	return err
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nilIfEmpty(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	return values
}
