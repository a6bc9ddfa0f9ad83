// Package aggregator connects to an international sanctions and PEP
// aggregator that returns candidate entities for a free-text name query.
package aggregator

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"screener/internal/screening/connectors"
	"screener/internal/screening/connectors/httpsource"
	"screener/internal/screening/models"
)

type properties struct {
	Name      []string `json:"name"`
	Alias     []string `json:"alias"`
	Country   []string `json:"country"`
	Notes     []string `json:"notes"`
	IDNumber  []string `json:"idNumber"`
	BirthDate []string `json:"birthDate"`
}

type entity struct {
	ID         string     `json:"id"`
	Caption    string     `json:"caption"`
	Schema     string     `json:"schema"`
	Properties properties `json:"properties"`
	Topics     []string   `json:"topics"`
	Datasets   []string   `json:"datasets"`
}

type searchResponse struct {
	Results []entity `json:"results"`
}

// Config describes the aggregator endpoint.
type Config struct {
	ID            string
	Name          string
	Issuer        string
	Jurisdictions []string
	BaseURL       string
	APIKey        string
	Limit         int
}

// Connector implements NameSearch. It is always searched by name, even
// when the request also carries an identifier.
type Connector struct {
	cfg    Config
	client *httpsource.Client
}

func New(cfg Config, opts ...httpsource.Option) *Connector {
	if cfg.Limit <= 0 {
		cfg.Limit = 25
	}
	if cfg.APIKey != "" {
		opts = append([]httpsource.Option{httpsource.WithAPIKey("Authorization", "ApiKey "+cfg.APIKey)}, opts...)
	}
	return &Connector{
		cfg:    cfg,
		client: httpsource.New(cfg.ID, cfg.BaseURL, opts...),
	}
}

func (c *Connector) ID() string { return c.cfg.ID }

func (c *Connector) Descriptor() connectors.Descriptor {
	return connectors.Descriptor{
		Name:               c.cfg.Name,
		Issuer:             c.cfg.Issuer,
		Type:               "international watchlist aggregator",
		URL:                c.cfg.BaseURL,
		Jurisdictions:      c.cfg.Jurisdictions,
		EntityKinds:        []models.EntityKind{models.EntityIndividual, models.EntityOrganization},
		Family:             models.FamilySanctions,
		Authority:          models.AuthorityInternational,
		AlwaysSearchByName: true,
	}
}

func (c *Connector) SearchByName(ctx context.Context, name string, filters connectors.SearchFilters) connectors.Result {
	q := url.Values{"q": {name}, "limit": {strconv.Itoa(c.cfg.Limit)}}
	if schema := schemaFor(filters.EntityKind); schema != "" {
		q.Set("schema", schema)
	}
	if filters.Country != "" {
		q.Set("countries", strings.ToLower(filters.Country))
	}
	var out searchResponse
	if err := c.client.GetJSON(ctx, "/search", q, &out); err != nil {
		return connectors.FromError(err)
	}

	records := make([]connectors.RawRecord, 0, len(out.Results))
	for _, e := range out.Results {
		name := e.Caption
		if name == "" && len(e.Properties.Name) > 0 {
			name = e.Properties.Name[0]
		}
		if e.ID == "" || name == "" {
			continue
		}
		var aliases []string
		for _, a := range append(slices.Clone(e.Properties.Name), e.Properties.Alias...) {
			if a != name && !slices.Contains(aliases, a) {
				aliases = append(aliases, a)
			}
		}
		var jurisdiction string
		if len(e.Properties.Country) > 0 {
			jurisdiction = strings.ToUpper(e.Properties.Country[0])
		}
		records = append(records, connectors.RawRecord{
			ID:           e.ID,
			Name:         name,
			Aliases:      aliases,
			EntityKind:   kindFor(e.Schema, filters.EntityKind),
			Tag:          TagForTopics(e.Topics),
			Jurisdiction: jurisdiction,
			Identifiers:  e.Properties.IDNumber,
			Remark:       strings.Join(e.Properties.Notes, " "),
		})
	}
	return connectors.OK(records)
}

// TagForTopics maps aggregator topics to the most severe tag present.
func TagForTopics(topics []string) models.Tag {
	has := func(prefix string) bool {
		return slices.ContainsFunc(topics, func(t string) bool { return strings.HasPrefix(t, prefix) })
	}
	switch {
	case has("sanction"):
		return models.TagSanctioned
	case has("debarment"):
		return models.TagDebarred
	case has("crime"):
		return models.TagCriminal
	case has("role.pep"), has("role.rca"):
		return models.TagPEP
	}
	return models.TagWatchlist
}

func schemaFor(kind models.EntityKind) string {
	switch kind {
	case models.EntityIndividual:
		return "Person"
	case models.EntityOrganization:
		return "Organization"
	}
	return ""
}

func kindFor(schema string, fallback models.EntityKind) models.EntityKind {
	switch schema {
	case "Person":
		return models.EntityIndividual
	case "Organization", "Company", "LegalEntity":
		return models.EntityOrganization
	}
	return fallback
}
