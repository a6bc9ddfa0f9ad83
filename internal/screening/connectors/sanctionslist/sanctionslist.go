// Package sanctionslist connects to a government sanctions or debarment
// list. Each configured list is its own connector instance.
package sanctionslist

import (
	"context"
	"net/url"
	"strings"

	"screener/internal/screening/connectors"
	"screener/internal/screening/connectors/httpsource"
	"screener/internal/screening/models"
)

type entry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases"`
	Kind        string   `json:"kind"`
	Country     string   `json:"country"`
	Reason      string   `json:"reason"`
	ListedOn    string   `json:"listed_on"`
	Identifiers []string `json:"identifiers"`
}

type entriesResponse struct {
	Entries []entry `json:"entries"`
}

// Config describes one list.
type Config struct {
	ID           string
	Name         string
	Issuer       string
	Jurisdiction string
	Tag          models.Tag
	BaseURL      string
}

// Connector implements NameSearch only. Lists publish names, not national
// identifiers, so every match is scored locally.
type Connector struct {
	cfg    Config
	client *httpsource.Client
}

func New(cfg Config, opts ...httpsource.Option) *Connector {
	if cfg.Tag != models.TagDebarred {
		cfg.Tag = models.TagSanctioned
	}
	return &Connector{
		cfg:    cfg,
		client: httpsource.New(cfg.ID, cfg.BaseURL, opts...),
	}
}

func (c *Connector) ID() string { return c.cfg.ID }

func (c *Connector) Descriptor() connectors.Descriptor {
	listType := "sanctions list"
	if c.cfg.Tag == models.TagDebarred {
		listType = "debarment list"
	}
	return connectors.Descriptor{
		Name:          c.cfg.Name,
		Issuer:        c.cfg.Issuer,
		Type:          listType,
		URL:           c.cfg.BaseURL,
		Jurisdictions: []string{c.cfg.Jurisdiction},
		EntityKinds:   []models.EntityKind{models.EntityIndividual, models.EntityOrganization},
		Family:        models.FamilySanctions,
		Authority:     models.AuthorityNational,
	}
}

func (c *Connector) SearchByName(ctx context.Context, name string, filters connectors.SearchFilters) connectors.Result {
	q := url.Values{"name": {name}}
	if filters.EntityKind != "" {
		q.Set("kind", string(filters.EntityKind))
	}
	var out entriesResponse
	if err := c.client.GetJSON(ctx, "/entries", q, &out); err != nil {
		return connectors.FromError(err)
	}

	records := make([]connectors.RawRecord, 0, len(out.Entries))
	for _, e := range out.Entries {
		if e.ID == "" || e.Name == "" {
			continue
		}
		kind := models.EntityKind(strings.ToLower(e.Kind))
		if !kind.IsValid() {
			kind = filters.EntityKind
		}
		if filters.EntityKind != "" && kind != filters.EntityKind {
			continue
		}
		remark := e.Reason
		if e.ListedOn != "" {
			remark = strings.TrimSpace(remark + " (listed " + e.ListedOn + ")")
		}
		records = append(records, connectors.RawRecord{
			ID:           e.ID,
			Name:         e.Name,
			Aliases:      e.Aliases,
			EntityKind:   kind,
			Tag:          c.cfg.Tag,
			Jurisdiction: strings.ToUpper(e.Country),
			Identifiers:  e.Identifiers,
			Remark:       remark,
		})
	}
	return connectors.OK(records)
}
