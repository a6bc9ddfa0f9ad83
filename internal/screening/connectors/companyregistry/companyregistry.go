// Package companyregistry connects to the national company registry:
// organization-number lookup and company name search.
package companyregistry

import (
	"context"
	"net/url"
	"strings"

	"screener/internal/screening/connectors"
	"screener/internal/screening/connectors/httpsource"
	"screener/internal/screening/identifier"
	"screener/internal/screening/models"
)

type officer struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type company struct {
	OrgNumber string    `json:"org_number"`
	Name      string    `json:"name"`
	Aliases   []string  `json:"aliases"`
	Status    string    `json:"status"`
	Country   string    `json:"country"`
	Officers  []officer `json:"officers"`
}

type searchResponse struct {
	Results []company `json:"results"`
}

// Config names the registry instance.
type Config struct {
	ID           string
	Name         string
	Issuer       string
	Jurisdiction string
	BaseURL      string
}

// Connector implements IdentifierValidator, IdentifierLookup and NameSearch.
type Connector struct {
	cfg    Config
	client *httpsource.Client
	scheme identifier.OrgNumber
}

func New(cfg Config, opts ...httpsource.Option) *Connector {
	return &Connector{
		cfg:    cfg,
		client: httpsource.New(cfg.ID, cfg.BaseURL, opts...),
	}
}

func (c *Connector) ID() string { return c.cfg.ID }

func (c *Connector) Descriptor() connectors.Descriptor {
	return connectors.Descriptor{
		Name:          c.cfg.Name,
		Issuer:        c.cfg.Issuer,
		Type:          "company registry",
		URL:           c.cfg.BaseURL,
		Jurisdictions: []string{c.cfg.Jurisdiction},
		EntityKinds:   []models.EntityKind{models.EntityOrganization},
		Family:        models.FamilyRegistry,
		Authority:     models.AuthorityNational,
	}
}

func (c *Connector) ValidateIdentifier(id string) (string, error) {
	return c.scheme.Normalize(id)
}

func (c *Connector) LookupByIdentifier(ctx context.Context, id string) connectors.Result {
	orgNumber, err := c.scheme.Normalize(id)
	if err != nil {
		return connectors.InvalidIdentifier(err)
	}
	var out company
	if err := c.client.GetJSON(ctx, "/companies/"+url.PathEscape(orgNumber), nil, &out); err != nil {
		return connectors.FromError(err)
	}
	if out.OrgNumber == "" {
		out.OrgNumber = orgNumber
	}
	return connectors.OK([]connectors.RawRecord{c.toRecord(out)})
}

func (c *Connector) SearchByName(ctx context.Context, name string, _ connectors.SearchFilters) connectors.Result {
	var out searchResponse
	if err := c.client.GetJSON(ctx, "/companies", url.Values{"name": {name}}, &out); err != nil {
		return connectors.FromError(err)
	}
	records := make([]connectors.RawRecord, 0, len(out.Results))
	for _, co := range out.Results {
		if co.OrgNumber == "" || co.Name == "" {
			continue
		}
		records = append(records, c.toRecord(co))
	}
	return connectors.OK(records)
}

func (c *Connector) toRecord(co company) connectors.RawRecord {
	associates := make([]string, 0, len(co.Officers))
	for _, o := range co.Officers {
		if o.Role != "" {
			associates = append(associates, o.Name+" ("+o.Role+")")
			continue
		}
		associates = append(associates, o.Name)
	}
	jurisdiction := strings.ToUpper(co.Country)
	if jurisdiction == "" {
		jurisdiction = c.cfg.Jurisdiction
	}
	var remark string
	if co.Status != "" && !strings.EqualFold(co.Status, "active") {
		remark = "registry status: " + co.Status
	}
	return connectors.RawRecord{
		ID:           co.OrgNumber,
		Name:         co.Name,
		Aliases:      co.Aliases,
		EntityKind:   models.EntityOrganization,
		Tag:          models.TagRegistry,
		Jurisdiction: jurisdiction,
		Identifiers:  []string{co.OrgNumber},
		Remark:       remark,
		Associates:   associates,
	}
}
