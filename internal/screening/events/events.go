// Package events publishes report lifecycle notifications. Publishing runs
// after the report is committed and never affects the screening result.
package events

import (
	"context"
	"encoding/json"
	"time"

	"screener/internal/screening/models"
	"screener/pkg/requestcontext"
)

const TypeReportCreated = "report.created"

// ReportCreated is the message body. It carries no subject data beyond the
// display name so downstream consumers see headline facts only.
type ReportCreated struct {
	Type            string           `json:"type"`
	ReportID        string           `json:"report_id"`
	SubjectName     string           `json:"subject_name"`
	RiskLevel       models.RiskLevel `json:"risk_level"`
	Status          string           `json:"status"`
	Matches         int              `json:"matches"`
	ScreenedSources int              `json:"screened_sources"`
	Jurisdictions   []string         `json:"jurisdictions"`
	RequestID       string           `json:"request_id,omitempty"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

// NewReportCreated builds the event for r.
func NewReportCreated(ctx context.Context, r *models.ScreeningReport) ReportCreated {
	summary := r.Summary()
	return ReportCreated{
		Type:            TypeReportCreated,
		ReportID:        r.ID.String(),
		SubjectName:     summary.SubjectName,
		RiskLevel:       summary.RiskLevel,
		Status:          string(r.Status),
		Matches:         summary.TotalMatches,
		ScreenedSources: summary.ScreenedSources,
		Jurisdictions:   summary.Jurisdictions,
		RequestID:       requestcontext.RequestID(ctx),
		OccurredAt:      r.CreatedAt,
	}
}

func (e ReportCreated) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Noop discards events. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishReportCreated(context.Context, *models.ScreeningReport) error { return nil }

func (Noop) Close() {}
