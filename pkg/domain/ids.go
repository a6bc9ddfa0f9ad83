// Package domain holds typed identifiers shared across screening packages.
package domain

import (
	"github.com/google/uuid"

	dErrors "screener/pkg/domain-errors"
)

// ReportID identifies a persisted screening report. It is internal and never
// doubles as the retrieval token.
type ReportID uuid.UUID

// HistoryEntryID identifies one lifecycle event of a report.
type HistoryEntryID uuid.UUID

func NewReportID() ReportID             { return ReportID(uuid.New()) }
func NewHistoryEntryID() HistoryEntryID { return HistoryEntryID(uuid.New()) }

func (id ReportID) String() string       { return uuid.UUID(id).String() }
func (id HistoryEntryID) String() string { return uuid.UUID(id).String() }

func (id ReportID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id HistoryEntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseReportID parses a non-nil UUID report ID.
func ParseReportID(s string) (ReportID, error) {
	u, err := parseUUID(s, "report ID")
	return ReportID(u), err
}

// ParseHistoryEntryID parses a non-nil UUID history entry ID.
func ParseHistoryEntryID(s string) (HistoryEntryID, error) {
	u, err := parseUUID(s, "history entry ID")
	return HistoryEntryID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be nil")
	}
	return u, nil
}
