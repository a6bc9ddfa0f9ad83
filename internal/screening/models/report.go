package models

import (
	"time"

	id "screener/pkg/domain"
)

// ScreenedSource is the audit line for one attempted source, written even
// when the source produced nothing.
type ScreenedSource struct {
	SourceID     string        `json:"source_id"`
	Name         string        `json:"name"`
	Issuer       string        `json:"issuer"`
	Jurisdiction string        `json:"jurisdiction"`
	Type         string        `json:"type"`
	URL          string        `json:"url"`
	MatchesFound int           `json:"matches_found"`
	Outcome      LookupOutcome `json:"outcome"`
	Annotation   string        `json:"annotation,omitempty"`
}

// RequestMetadata records who asked for the screening.
type RequestMetadata struct {
	ClientIP  string    `json:"client_ip"`
	UserAgent string    `json:"user_agent"`
	Device    string    `json:"device,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry is an insert-only lifecycle event for a report.
type HistoryEntry struct {
	ID        id.HistoryEntryID `json:"id"`
	ReportID  id.ReportID       `json:"report_id"`
	Action    HistoryAction     `json:"action"`
	ClientIP  string            `json:"client_ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewHistoryEntry stamps a new event for reportID.
func NewHistoryEntry(reportID id.ReportID, action HistoryAction, meta RequestMetadata, now time.Time) HistoryEntry {
	return HistoryEntry{
		ID:        id.NewHistoryEntryID(),
		ReportID:  reportID,
		Action:    action,
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
	}
}

// ScreeningReport is the persisted outcome of one screening.
//
// Invariants:
//   - Matches are ranked by CompareCandidates and capped at the configured top-N
//   - RiskLevel is derived from Matches by the risk classifier, never set directly
//   - Token is random, non-empty and distinct from ID
//   - History holds exactly one created entry, first
//   - Nothing but History changes after persistence
type ScreeningReport struct {
	ID              id.ReportID      `json:"id"`
	Token           string           `json:"-"`
	Request         ScreeningRequest `json:"request"`
	Matches         []MatchCandidate `json:"matches"`
	ScreenedSources []ScreenedSource `json:"screened_lists"`
	RiskLevel       RiskLevel        `json:"risk_level"`
	Status          ReportStatus     `json:"status"`
	Metadata        RequestMetadata  `json:"metadata"`
	CreatedAt       time.Time        `json:"created_at"`
	History         []HistoryEntry   `json:"history,omitempty"`
}

// Summary is the headline block returned with every screening.
type Summary struct {
	SubjectName     string    `json:"subject_name"`
	TotalMatches    int       `json:"total_matches"`
	ScreenedSources int       `json:"screened_sources"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Threshold       int       `json:"threshold"`
	Jurisdictions   []string  `json:"jurisdictions"`
}

// Summary derives the headline block from the report.
func (r *ScreeningReport) Summary() Summary {
	return Summary{
		SubjectName:     r.Request.DisplayName,
		TotalMatches:    len(r.Matches),
		ScreenedSources: len(r.ScreenedSources),
		RiskLevel:       r.RiskLevel,
		Threshold:       r.Request.Threshold,
		Jurisdictions:   r.Request.JurisdictionLabels(),
	}
}

// StatusFor returns partial when any screened source was unavailable.
func StatusFor(sources []ScreenedSource) ReportStatus {
	for _, s := range sources {
		if !s.Outcome.Consulted() {
			return ReportPartial
		}
	}
	return ReportCompleted
}
