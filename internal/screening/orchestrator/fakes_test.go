package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"screener/internal/screening/connectors"
	"screener/internal/screening/models"
)

type fakeBase struct {
	id    string
	desc  connectors.Descriptor
	calls atomic.Int32
}

func (f *fakeBase) ID() string                        { return f.id }
func (f *fakeBase) Descriptor() connectors.Descriptor { return f.desc }

type searchSource struct {
	*fakeBase
	fn func(ctx context.Context, name string) connectors.Result
}

func (s searchSource) SearchByName(ctx context.Context, name string, _ connectors.SearchFilters) connectors.Result {
	s.calls.Add(1)
	return s.fn(ctx, name)
}

// lookupSource validates locally and rejects anything containing "bad".
type lookupSource struct {
	*fakeBase
	fn func(ctx context.Context, id string) connectors.Result
}

func (s lookupSource) ValidateIdentifier(id string) (string, error) {
	if strings.Contains(id, "bad") {
		return "", errors.New("check digit mismatch")
	}
	return strings.ReplaceAll(id, "-", ""), nil
}

func (s lookupSource) LookupByIdentifier(ctx context.Context, id string) connectors.Result {
	s.calls.Add(1)
	return s.fn(ctx, id)
}

// dualSource offers both lookups; search calls are counted on searches.
type dualSource struct {
	lookupSource
	searches atomic.Int32
	searchFn func(ctx context.Context, name string) connectors.Result
}

func (s *dualSource) SearchByName(ctx context.Context, name string, _ connectors.SearchFilters) connectors.Result {
	s.searches.Add(1)
	return s.searchFn(ctx, name)
}

var bothKinds = []models.EntityKind{models.EntityIndividual, models.EntityOrganization}

func descriptor(name string, family models.SourceFamily, authority models.Authority, jurisdictions ...string) connectors.Descriptor {
	return connectors.Descriptor{
		Name:          name,
		Issuer:        name + " issuer",
		Type:          "test source",
		URL:           "https://example.test/" + name,
		Jurisdictions: jurisdictions,
		EntityKinds:   bothKinds,
		Family:        family,
		Authority:     authority,
	}
}

func newSearch(id string, authority models.Authority, fn func(context.Context, string) connectors.Result, jurisdictions ...string) searchSource {
	return searchSource{
		fakeBase: &fakeBase{id: id, desc: descriptor(id, models.FamilySanctions, authority, jurisdictions...)},
		fn:       fn,
	}
}

func newLookup(id string, fn func(context.Context, string) connectors.Result, jurisdictions ...string) lookupSource {
	return lookupSource{
		fakeBase: &fakeBase{id: id, desc: descriptor(id, models.FamilyIdentifier, models.AuthorityNational, jurisdictions...)},
		fn:       fn,
	}
}

func returns(records ...connectors.RawRecord) func(context.Context, string) connectors.Result {
	return func(context.Context, string) connectors.Result {
		return connectors.OK(records)
	}
}

func outage(sourceID string) func(context.Context, string) connectors.Result {
	return func(context.Context, string) connectors.Result {
		return connectors.Unavailable(connectors.NewSourceError(connectors.ErrorSourceOutage, sourceID, "503", nil))
	}
}

func blocks(ctx context.Context, _ string) connectors.Result {
	<-ctx.Done()
	return connectors.Unavailable(connectors.NewSourceError(connectors.ErrorTimeout, "slow", "deadline", ctx.Err()))
}

func sanctioned(id, name string) connectors.RawRecord {
	return connectors.RawRecord{ID: id, Name: name, Tag: models.TagSanctioned, EntityKind: models.EntityIndividual}
}
