package models

import "strings"

// EntityKind discriminates the subject being screened.
type EntityKind string

const (
	EntityIndividual   EntityKind = "individual"
	EntityOrganization EntityKind = "organization"
)

func (k EntityKind) IsValid() bool {
	return k == EntityIndividual || k == EntityOrganization
}

// Category is a requested screening category.
type Category string

const (
	CategorySanctions Category = "sanctions"
	CategoryPEP       Category = "pep"
	CategoryCriminal  Category = "criminal"
	CategoryWatchlist Category = "watchlist"
)

func (c Category) IsValid() bool {
	switch c {
	case CategorySanctions, CategoryPEP, CategoryCriminal, CategoryWatchlist:
		return true
	}
	return false
}

// Tag classifies a match candidate.
type Tag string

const (
	TagSanctioned Tag = "sanctioned"
	TagDebarred   Tag = "debarred"
	TagCriminal   Tag = "criminal"
	TagPEP        Tag = "pep"
	TagRegistry   Tag = "registry"
	TagWatchlist  Tag = "watchlist"
)

// IsAdverse reports whether the tag is anything other than a plain registry
// confirmation.
func (t Tag) IsAdverse() bool {
	return t != TagRegistry && t != ""
}

// Category returns the screening category a tag falls under. Registry
// confirmations belong to none.
func (t Tag) Category() (Category, bool) {
	switch t {
	case TagSanctioned, TagDebarred:
		return CategorySanctions, true
	case TagPEP:
		return CategoryPEP, true
	case TagCriminal:
		return CategoryCriminal, true
	case TagWatchlist:
		return CategoryWatchlist, true
	}
	return "", false
}

// RiskLevel is the coarse ordinal handed to downstream review.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// ReportStatus says whether every selected source was consulted.
type ReportStatus string

const (
	ReportCompleted ReportStatus = "completed"
	ReportPartial   ReportStatus = "partial"
)

// Authority ranks sources for tie-breaking. Higher wins.
type Authority int

const (
	AuthorityDefault       Authority = 0
	AuthorityInternational Authority = 1
	AuthorityNational      Authority = 2
)

func (a Authority) String() string {
	switch a {
	case AuthorityNational:
		return "national"
	case AuthorityInternational:
		return "international"
	}
	return "default"
}

// SourceFamily groups sources sharing a lookup contract and cache policy.
type SourceFamily string

const (
	FamilySanctions  SourceFamily = "sanctions"
	FamilyRegistry   SourceFamily = "registry"
	FamilyIdentifier SourceFamily = "identifier"
)

// LookupOutcome is the typed result of consulting one source.
type LookupOutcome string

const (
	OutcomeOK                LookupOutcome = "ok"
	OutcomeNotFound          LookupOutcome = "not_found"
	OutcomeUnavailable       LookupOutcome = "unavailable"
	OutcomeInvalidIdentifier LookupOutcome = "invalid_identifier"
)

// Consulted reports whether the source actually answered. Unavailable
// sources were attempted but say nothing about the subject.
func (o LookupOutcome) Consulted() bool {
	return o != OutcomeUnavailable
}

// HistoryAction is a report lifecycle event.
type HistoryAction string

const (
	ActionCreated  HistoryAction = "created"
	ActionViewed   HistoryAction = "viewed"
	ActionExported HistoryAction = "exported"
)

// JurisdictionAll is the wildcard selecting every registered source.
const JurisdictionAll = "ALL"

func normalizeJurisdiction(j string) string {
	return strings.ToUpper(strings.TrimSpace(j))
}
