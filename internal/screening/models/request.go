package models

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	dErrors "screener/pkg/domain-errors"
	pstrings "screener/pkg/platform/strings"
)

const (
	maxNameLength = 256
	dateLayout    = "2006-01-02"
)

// RequestInput carries caller-supplied fields before validation.
// A nil Threshold selects the policy default.
type RequestInput struct {
	DisplayName        string
	LocalizedName      string
	NationalID         string
	DateOfBirth        string
	Country            string
	Gender             string
	OrganizationName   string
	RegistrationNumber string
	Categories         []string
	Jurisdictions      []string
	Threshold          *int
	EntityKind         string
}

// ScreeningRequest is the validated subject of one screening call.
//
// Invariants:
//   - DisplayName is non-empty after whitespace normalization
//   - Threshold is within [0,100]
//   - EntityKind is individual or organization
//   - Jurisdictions is upper-cased and deduplicated; empty means all
//   - Categories is deduplicated; empty means all categories
//
// Values are built once by NewScreeningRequest and never mutated.
type ScreeningRequest struct {
	DisplayName        string
	LocalizedName      string
	NationalID         string
	DateOfBirth        string
	Country            string
	Gender             string
	OrganizationName   string
	RegistrationNumber string
	Categories         []Category
	Jurisdictions      []string
	Threshold          int
	EntityKind         EntityKind
}

// NewScreeningRequest validates in and applies defaultThreshold when the
// caller did not set one. Failures carry CodeValidation.
func NewScreeningRequest(in RequestInput, defaultThreshold int) (ScreeningRequest, error) {
	req := ScreeningRequest{
		DisplayName:        collapseSpace(in.DisplayName),
		LocalizedName:      collapseSpace(in.LocalizedName),
		NationalID:         strings.TrimSpace(in.NationalID),
		DateOfBirth:        strings.TrimSpace(in.DateOfBirth),
		Country:            normalizeJurisdiction(in.Country),
		Gender:             strings.ToLower(strings.TrimSpace(in.Gender)),
		OrganizationName:   collapseSpace(in.OrganizationName),
		RegistrationNumber: strings.TrimSpace(in.RegistrationNumber),
		Threshold:          defaultThreshold,
		EntityKind:         EntityKind(strings.ToLower(strings.TrimSpace(in.EntityKind))),
	}
	if in.Threshold != nil {
		req.Threshold = *in.Threshold
	}
	if req.EntityKind == "" {
		req.EntityKind = EntityIndividual
	}

	if req.DisplayName == "" {
		return ScreeningRequest{}, dErrors.New(dErrors.CodeValidation, "display_name is required")
	}
	if utf8.RuneCountInString(req.DisplayName) > maxNameLength || utf8.RuneCountInString(req.LocalizedName) > maxNameLength {
		return ScreeningRequest{}, dErrors.New(dErrors.CodeValidation, "names must be 256 characters or less")
	}
	if !req.EntityKind.IsValid() {
		return ScreeningRequest{}, dErrors.New(dErrors.CodeValidation, "entity_kind must be individual or organization")
	}
	if req.Threshold < 0 || req.Threshold > 100 {
		return ScreeningRequest{}, dErrors.New(dErrors.CodeValidation, "threshold must be between 0 and 100")
	}
	if req.DateOfBirth != "" {
		if _, err := time.Parse(dateLayout, req.DateOfBirth); err != nil {
			return ScreeningRequest{}, dErrors.New(dErrors.CodeValidation, "date_of_birth must be YYYY-MM-DD")
		}
	}

	for _, c := range pstrings.DedupeAndTrimLower(in.Categories) {
		cat := Category(c)
		if !cat.IsValid() {
			return ScreeningRequest{}, dErrors.New(dErrors.CodeValidation, "unknown category: "+c)
		}
		req.Categories = append(req.Categories, cat)
	}

	jurisdictions := pstrings.DedupeAndTrimUpper(in.Jurisdictions)
	if !slices.Contains(jurisdictions, JurisdictionAll) && len(jurisdictions) > 0 {
		req.Jurisdictions = jurisdictions
	}
	return req, nil
}

// AllJurisdictions reports whether the request uses the "all" wildcard.
func (r ScreeningRequest) AllJurisdictions() bool {
	return len(r.Jurisdictions) == 0
}

// Identifier returns the national identifier to look up, if any.
// Organizations use their registration number, falling back to NationalID.
func (r ScreeningRequest) Identifier() string {
	if r.EntityKind == EntityOrganization && r.RegistrationNumber != "" {
		return r.RegistrationNumber
	}
	return r.NationalID
}

// SearchNames lists the names candidates are scored against, display name
// first.
func (r ScreeningRequest) SearchNames() []string {
	names := []string{r.DisplayName}
	for _, n := range []string{r.LocalizedName, r.OrganizationName} {
		if n != "" && !slices.Contains(names, n) {
			names = append(names, n)
		}
	}
	return names
}

// WantsTag reports whether a candidate with tag t should be kept under the
// requested categories. Registry confirmations are always kept.
func (r ScreeningRequest) WantsTag(t Tag) bool {
	if len(r.Categories) == 0 {
		return true
	}
	cat, ok := t.Category()
	if !ok {
		return true
	}
	return slices.Contains(r.Categories, cat)
}

// JurisdictionLabels returns the requested jurisdictions for display.
func (r ScreeningRequest) JurisdictionLabels() []string {
	if r.AllJurisdictions() {
		return []string{JurisdictionAll}
	}
	return slices.Clone(r.Jurisdictions)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
