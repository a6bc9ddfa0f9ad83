package handler

import (
	"strings"

	"screener/internal/screening/models"
	dErrors "screener/pkg/domain-errors"
)

const (
	maxFieldLength = 512
	maxListLength  = 64
)

// ScreenRequest is the HTTP request body for POST /screenings.
type ScreenRequest struct {
	DisplayName        string   `json:"display_name"`
	LocalizedName      string   `json:"localized_name"`
	NationalID         string   `json:"national_id"`
	DateOfBirth        string   `json:"date_of_birth"`
	Country            string   `json:"country"`
	Gender             string   `json:"gender"`
	OrganizationName   string   `json:"organization_name"`
	RegistrationNumber string   `json:"registration_number"`
	Categories         []string `json:"categories"`
	Jurisdictions      []string `json:"jurisdictions"`
	Threshold          *int     `json:"threshold"`
	EntityKind         string   `json:"entity_kind"`
}

// Normalize trims free-text fields.
func (r *ScreenRequest) Normalize() {
	r.NationalID = strings.TrimSpace(r.NationalID)
	r.RegistrationNumber = strings.TrimSpace(r.RegistrationNumber)
	r.EntityKind = strings.TrimSpace(r.EntityKind)
}

// Validate enforces size limits only; field semantics are checked by the
// domain constructor so every entry point shares them.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ScreenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	for _, f := range []string{
		r.DisplayName, r.LocalizedName, r.NationalID, r.DateOfBirth, r.Country,
		r.Gender, r.OrganizationName, r.RegistrationNumber, r.EntityKind,
	} {
		if len(f) > maxFieldLength {
			return dErrors.New(dErrors.CodeValidation, "fields must be at most 512 bytes")
		}
	}
	if len(r.Categories) > maxListLength || len(r.Jurisdictions) > maxListLength {
		return dErrors.New(dErrors.CodeValidation, "categories and jurisdictions must have at most 64 entries")
	}
	return nil
}

// ToInput converts the body to the domain input.
func (r *ScreenRequest) ToInput() models.RequestInput {
	return models.RequestInput{
		DisplayName:        r.DisplayName,
		LocalizedName:      r.LocalizedName,
		NationalID:         r.NationalID,
		DateOfBirth:        r.DateOfBirth,
		Country:            r.Country,
		Gender:             r.Gender,
		OrganizationName:   r.OrganizationName,
		RegistrationNumber: r.RegistrationNumber,
		Categories:         r.Categories,
		Jurisdictions:      r.Jurisdictions,
		Threshold:          r.Threshold,
		EntityKind:         r.EntityKind,
	}
}
