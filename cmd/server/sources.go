package main

import (
	"fmt"
	"time"

	"screener/internal/platform/config"
	"screener/internal/screening/connectors"
	"screener/internal/screening/connectors/aggregator"
	"screener/internal/screening/connectors/companyregistry"
	"screener/internal/screening/connectors/httpsource"
	"screener/internal/screening/connectors/personid"
	"screener/internal/screening/connectors/sanctionslist"
	"screener/internal/screening/models"
)

// buildRegistry registers every source with a configured URL. Registration
// order is the deterministic order of the screened-sources list.
func buildRegistry(src config.SourcesConfig, timeout time.Duration) (*connectors.Registry, error) {
	registry := connectors.NewRegistry()
	opts := []httpsource.Option{httpsource.WithTimeout(timeout)}
	national := src.NationalJurisdiction

	var all []connectors.Connector
	if src.PopulationRegistryURL != "" {
		all = append(all, personid.New(personid.Config{
			ID:           "population-registry",
			Name:         "Population Register",
			Issuer:       "National Tax Agency",
			Jurisdiction: national,
			BaseURL:      src.PopulationRegistryURL,
		}, opts...))
	}
	if src.CompanyRegistryURL != "" {
		all = append(all, companyregistry.New(companyregistry.Config{
			ID:           "company-registry",
			Name:         "Company Register",
			Issuer:       "Companies Registration Office",
			Jurisdiction: national,
			BaseURL:      src.CompanyRegistryURL,
		}, opts...))
	}
	for _, l := range src.SanctionsLists {
		all = append(all, sanctionslist.New(sanctionslist.Config{
			ID:           l.ID,
			Name:         l.Name,
			Issuer:       l.Issuer,
			Jurisdiction: l.Jurisdiction,
			Tag:          models.Tag(l.Tag),
			BaseURL:      l.URL,
		}, opts...))
	}
	if src.AggregatorURL != "" {
		all = append(all, aggregator.New(aggregator.Config{
			ID:            "aggregator",
			Name:          "Consolidated Watchlists",
			Issuer:        "Watchlist Aggregator",
			Jurisdictions: src.AggregatorJurisdictions,
			BaseURL:       src.AggregatorURL,
			APIKey:        src.AggregatorAPIKey,
		}, opts...))
	}

	for _, c := range all {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register source %s: %w", c.ID(), err)
		}
	}
	return registry, nil
}
