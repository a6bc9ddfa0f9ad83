package handler

import (
	"time"

	"screener/internal/screening/models"
)

// ScreenedListResponse is one row of the screened-sources audit list.
type ScreenedListResponse struct {
	Name         string `json:"name"`
	Issuer       string `json:"issuer"`
	Jurisdiction string `json:"jurisdiction"`
	Type         string `json:"type"`
	URL          string `json:"url"`
	MatchesFound int    `json:"matches_found"`
	Outcome      string `json:"outcome"`
	Annotation   string `json:"annotation,omitempty"`
}

// ScreenResponse is the HTTP response for POST /screenings.
type ScreenResponse struct {
	Token         string                  `json:"token"`
	ReportID      string                  `json:"report_id"`
	Status        string                  `json:"status"`
	Summary       models.Summary          `json:"summary"`
	Matches       []models.MatchCandidate `json:"matches"`
	ScreenedLists []ScreenedListResponse  `json:"screened_lists"`
}

// SubjectResponse echoes the screened subject.
type SubjectResponse struct {
	DisplayName        string   `json:"display_name"`
	LocalizedName      string   `json:"localized_name,omitempty"`
	NationalID         string   `json:"national_id,omitempty"`
	DateOfBirth        string   `json:"date_of_birth,omitempty"`
	Country            string   `json:"country,omitempty"`
	Gender             string   `json:"gender,omitempty"`
	OrganizationName   string   `json:"organization_name,omitempty"`
	RegistrationNumber string   `json:"registration_number,omitempty"`
	EntityKind         string   `json:"entity_kind"`
	Categories         []string `json:"categories"`
}

// HistoryResponse is one lifecycle event.
type HistoryResponse struct {
	Action    string    `json:"action"`
	ClientIP  string    `json:"client_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReportResponse is the HTTP response for GET /screenings/{token} and its export.
type ReportResponse struct {
	ReportID      string                  `json:"report_id"`
	Status        string                  `json:"status"`
	Summary       models.Summary          `json:"summary"`
	Subject       SubjectResponse         `json:"subject"`
	Matches       []models.MatchCandidate `json:"matches"`
	ScreenedLists []ScreenedListResponse  `json:"screened_lists"`
	Metadata      models.RequestMetadata  `json:"metadata"`
	CreatedAt     time.Time               `json:"created_at"`
	History       []HistoryResponse       `json:"history"`
}

func toScreenedLists(sources []models.ScreenedSource) []ScreenedListResponse {
	out := make([]ScreenedListResponse, 0, len(sources))
	for _, s := range sources {
		out = append(out, ScreenedListResponse{
			Name:         s.Name,
			Issuer:       s.Issuer,
			Jurisdiction: s.Jurisdiction,
			Type:         s.Type,
			URL:          s.URL,
			MatchesFound: s.MatchesFound,
			Outcome:      string(s.Outcome),
			Annotation:   s.Annotation,
		})
	}
	return out
}

func matchesOrEmpty(m []models.MatchCandidate) []models.MatchCandidate {
	if m == nil {
		return []models.MatchCandidate{}
	}
	return m
}

// FromCreated converts a freshly persisted report to the create response.
func FromCreated(r *models.ScreeningReport) *ScreenResponse {
	return &ScreenResponse{
		Token:         r.Token,
		ReportID:      r.ID.String(),
		Status:        string(r.Status),
		Summary:       r.Summary(),
		Matches:       matchesOrEmpty(r.Matches),
		ScreenedLists: toScreenedLists(r.ScreenedSources),
	}
}

// FromReport converts a stored report to the full response.
func FromReport(r *models.ScreeningReport) *ReportResponse {
	req := r.Request
	categories := make([]string, 0, len(req.Categories))
	for _, c := range req.Categories {
		categories = append(categories, string(c))
	}
	history := make([]HistoryResponse, 0, len(r.History))
	for _, e := range r.History {
		history = append(history, HistoryResponse{
			Action:    string(e.Action),
			ClientIP:  e.ClientIP,
			UserAgent: e.UserAgent,
			CreatedAt: e.CreatedAt,
		})
	}
	return &ReportResponse{
		ReportID: r.ID.String(),
		Status:   string(r.Status),
		Summary:  r.Summary(),
		Subject: SubjectResponse{
			DisplayName:        req.DisplayName,
			LocalizedName:      req.LocalizedName,
			NationalID:         req.NationalID,
			DateOfBirth:        req.DateOfBirth,
			Country:            req.Country,
			Gender:             req.Gender,
			OrganizationName:   req.OrganizationName,
			RegistrationNumber: req.RegistrationNumber,
			EntityKind:         string(req.EntityKind),
			Categories:         categories,
		},
		Matches:       matchesOrEmpty(r.Matches),
		ScreenedLists: toScreenedLists(r.ScreenedSources),
		Metadata:      r.Metadata,
		CreatedAt:     r.CreatedAt,
		History:       history,
	}
}
