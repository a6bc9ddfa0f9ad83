// Package connectors defines the capability surface every screening source
// implements and the registry the orchestrator selects sources from.
package connectors

import (
	"context"
	"slices"
	"time"

	"screener/internal/screening/models"
)

// Descriptor is what a connector declares about itself. Selection reads
// only this, never the concrete type.
type Descriptor struct {
	Name          string
	Issuer        string
	Type          string
	URL           string
	Jurisdictions []string
	EntityKinds   []models.EntityKind
	Family        models.SourceFamily
	Authority     models.Authority
	// AlwaysSearchByName asks for a name search even when an identifier
	// lookup already ran.
	AlwaysSearchByName bool
	// Timeout overrides the orchestrator's per-call timeout when set.
	Timeout time.Duration
}

// Serves reports whether the connector is authoritative for kind.
func (d Descriptor) Serves(kind models.EntityKind) bool {
	return slices.Contains(d.EntityKinds, kind)
}

// RawRecord is one record as a source returns it, before scoring.
type RawRecord struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Aliases      []string          `json:"aliases,omitempty"`
	EntityKind   models.EntityKind `json:"entity_kind"`
	Tag          models.Tag        `json:"tag"`
	Jurisdiction string            `json:"jurisdiction,omitempty"`
	Identifiers  []string          `json:"identifiers,omitempty"`
	Remark       string            `json:"remark,omitempty"`
	Associates   []string          `json:"associates,omitempty"`
}

// Names returns the primary name followed by aliases.
func (r RawRecord) Names() []string {
	return append([]string{r.Name}, r.Aliases...)
}

// Result is the typed outcome of one source call.
type Result struct {
	Outcome models.LookupOutcome
	Records []RawRecord
	Err     error
}

func OK(records []RawRecord) Result {
	if len(records) == 0 {
		return NotFound()
	}
	return Result{Outcome: models.OutcomeOK, Records: records}
}

func NotFound() Result {
	return Result{Outcome: models.OutcomeNotFound}
}

func Unavailable(err error) Result {
	return Result{Outcome: models.OutcomeUnavailable, Err: err}
}

func InvalidIdentifier(err error) Result {
	return Result{Outcome: models.OutcomeInvalidIdentifier, Err: err}
}

// FromError classifies a source failure: not-found categories become a
// valid negative, everything else marks the source unavailable.
func FromError(err error) Result {
	switch GetCategory(err) {
	case ErrorNotFound:
		return NotFound()
	case ErrorInvalidIdentifier:
		return InvalidIdentifier(err)
	}
	return Unavailable(err)
}

// SearchFilters narrows a name search where the source supports it.
type SearchFilters struct {
	EntityKind  models.EntityKind
	Country     string
	DateOfBirth string
}

// Connector is the base every source implements.
type Connector interface {
	ID() string
	Descriptor() Descriptor
}

// IdentifierLookup resolves a national identifier to at most a few records.
type IdentifierLookup interface {
	Connector
	LookupByIdentifier(ctx context.Context, identifier string) Result
}

// NameSearch returns candidates the caller must score locally.
type NameSearch interface {
	Connector
	SearchByName(ctx context.Context, name string, filters SearchFilters) Result
}

// IdentifierValidator checks identifier format locally, with no network
// call. It returns the canonical form used as the cache key.
type IdentifierValidator interface {
	Connector
	ValidateIdentifier(identifier string) (string, error)
}
