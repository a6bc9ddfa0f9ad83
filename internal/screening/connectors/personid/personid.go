// Package personid validates national person numbers and confirms them
// against the population register.
package personid

import (
	"context"
	"net/url"
	"strings"

	"screener/internal/screening/connectors"
	"screener/internal/screening/connectors/httpsource"
	"screener/internal/screening/identifier"
	"screener/internal/screening/models"
)

type person struct {
	PersonID    string `json:"person_id"`
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth"`
	Country     string `json:"country"`
	Deceased    bool   `json:"deceased"`
	Protected   bool   `json:"protected"`
}

// Config names the register instance.
type Config struct {
	ID           string
	Name         string
	Issuer       string
	Jurisdiction string
	BaseURL      string
}

// Connector implements IdentifierValidator and IdentifierLookup. It has no
// name search: the register does not answer by name.
type Connector struct {
	cfg    Config
	client *httpsource.Client
	scheme identifier.PersonID
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
		Type:          "person identifier register",
		URL:           c.cfg.BaseURL,
		Jurisdictions: []string{c.cfg.Jurisdiction},
		EntityKinds:   []models.EntityKind{models.EntityIndividual},
		Family:        models.FamilyIdentifier,
		Authority:     models.AuthorityNational,
	}
}

func (c *Connector) ValidateIdentifier(id string) (string, error) {
	return c.scheme.Normalize(id)
}

func (c *Connector) LookupByIdentifier(ctx context.Context, id string) connectors.Result {
	pnr, err := c.scheme.Normalize(id)
	if err != nil {
		return connectors.InvalidIdentifier(err)
	}
	var out person
	if err := c.client.GetJSON(ctx, "/persons/"+url.PathEscape(pnr), nil, &out); err != nil {
		return connectors.FromError(err)
	}
	if out.Name == "" {
		return connectors.Unavailable(connectors.NewSourceError(connectors.ErrorBadData, c.cfg.ID, "person record without name", nil))
	}

	var remarks []string
	if out.Deceased {
		remarks = append(remarks, "registered as deceased")
	}
	if out.Protected {
		remarks = append(remarks, "protected identity")
	}
	jurisdiction := strings.ToUpper(out.Country)
	if jurisdiction == "" {
		jurisdiction = c.cfg.Jurisdiction
	}
	return connectors.OK([]connectors.RawRecord{{
		ID:           pnr,
		Name:         out.Name,
		EntityKind:   models.EntityIndividual,
		Tag:          models.TagRegistry,
		Jurisdiction: jurisdiction,
		Identifiers:  []string{pnr},
		Remark:       strings.Join(remarks, "; "),
	}})
}
