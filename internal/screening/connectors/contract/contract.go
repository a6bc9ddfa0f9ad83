// Package contract runs the behaviour every connector must honour against
// a concrete implementation, usually backed by an httptest server.
package contract

import (
	"context"
	"testing"

	"screener/internal/screening/connectors"
	"screener/internal/screening/models"
)

// Case is one call into the connector. Set Identifier for a lookup or Search
// for a name search.
type Case struct {
	Name        string
	Identifier  string
	Search      string
	Filters     connectors.SearchFilters
	WantOutcome models.LookupOutcome
	Validate    func(t *testing.T, res connectors.Result)
}

// Suite checks the descriptor and then each case.
type Suite struct {
	Connector connectors.Connector
	Cases     []Case
}

func (s *Suite) Run(t *testing.T) {
	t.Helper()

	t.Run("descriptor is complete", func(t *testing.T) {
		d := s.Connector.Descriptor()
		if s.Connector.ID() == "" {
			t.Error("connector ID is empty")
		}
		if d.Name == "" || d.Type == "" {
			t.Errorf("descriptor missing name or type: %+v", d)
		}
		if len(d.Jurisdictions) == 0 {
			t.Error("descriptor declares no jurisdictions")
		}
		if len(d.EntityKinds) == 0 {
			t.Error("descriptor declares no entity kinds")
		}
		if d.Family == "" {
			t.Error("descriptor declares no source family")
		}
	})

	for _, tc := range s.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			res := s.call(t, tc)
			if res.Outcome != tc.WantOutcome {
				t.Fatalf("outcome = %s, want %s (err: %v)", res.Outcome, tc.WantOutcome, res.Err)
			}
			switch res.Outcome {
			case models.OutcomeOK:
				if len(res.Records) == 0 {
					t.Fatal("ok outcome with no records")
				}
				for _, r := range res.Records {
					if r.ID == "" || r.Name == "" {
						t.Errorf("record missing id or name: %+v", r)
					}
					if r.Tag == "" {
						t.Errorf("record %s has no tag", r.ID)
					}
				}
			case models.OutcomeNotFound:
				if len(res.Records) != 0 {
					t.Fatal("not-found outcome carries records")
				}
			case models.OutcomeUnavailable, models.OutcomeInvalidIdentifier:
				if res.Err == nil {
					t.Fatalf("%s outcome without an error", res.Outcome)
				}
			}
			if tc.Validate != nil {
				tc.Validate(t, res)
			}
		})
	}
}

func (s *Suite) call(t *testing.T, tc Case) connectors.Result {
	t.Helper()
	ctx := context.Background()
	if tc.Identifier != "" {
		lookup, ok := s.Connector.(connectors.IdentifierLookup)
		if !ok {
			t.Fatalf("%s does not support identifier lookup", s.Connector.ID())
		}
		return lookup.LookupByIdentifier(ctx, tc.Identifier)
	}
	search, ok := s.Connector.(connectors.NameSearch)
	if !ok {
		t.Fatalf("%s does not support name search", s.Connector.ID())
	}
	return search.SearchByName(ctx, tc.Search, tc.Filters)
}
