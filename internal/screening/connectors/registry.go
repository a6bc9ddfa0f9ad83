package connectors

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"screener/internal/screening/models"
)

var (
	ErrDuplicateConnector = errors.New("connector already registered")
	ErrInvalidDescriptor  = errors.New("invalid connector descriptor")
)

// Registry holds the connectors known at startup and the explicit
// jurisdiction table built from their declarations. There is no fallback
// source: a jurisdiction nobody declares selects nothing.
type Registry struct {
	ordered        []Connector
	byID           map[string]Connector
	byJurisdiction map[string][]Connector
}

func NewRegistry() *Registry {
	return &Registry{
		byID:           make(map[string]Connector),
		byJurisdiction: make(map[string][]Connector),
	}
}

// Register adds a connector. Its descriptor must name at least one
// jurisdiction and entity kind, and it must expose a lookup capability.
func (r *Registry) Register(c Connector) error {
	id := c.ID()
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDescriptor)
	}
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateConnector, id)
	}
	d := c.Descriptor()
	if len(d.Jurisdictions) == 0 {
		return fmt.Errorf("%w: %s declares no jurisdictions", ErrInvalidDescriptor, id)
	}
	if len(d.EntityKinds) == 0 {
		return fmt.Errorf("%w: %s declares no entity kinds", ErrInvalidDescriptor, id)
	}
	_, byID := c.(IdentifierLookup)
	_, byName := c.(NameSearch)
	if !byID && !byName {
		return fmt.Errorf("%w: %s can neither look up identifiers nor search names", ErrInvalidDescriptor, id)
	}

	r.byID[id] = c
	r.ordered = append(r.ordered, c)
	for _, j := range d.Jurisdictions {
		key := strings.ToUpper(strings.TrimSpace(j))
		r.byJurisdiction[key] = append(r.byJurisdiction[key], c)
	}
	return nil
}

// MustRegister is Register for wiring code that cannot continue on error.
func (r *Registry) MustRegister(cs ...Connector) {
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Get(id string) (Connector, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// All returns connectors in registration order.
func (r *Registry) All() []Connector {
	return slices.Clone(r.ordered)
}

// Jurisdictions lists every jurisdiction with at least one connector.
func (r *Registry) Jurisdictions() []string {
	out := make([]string, 0, len(r.byJurisdiction))
	for j := range r.byJurisdiction {
		out = append(out, j)
	}
	slices.Sort(out)
	return out
}

// Select returns connectors serving kind that cover any of jurisdictions,
// in registration order. Empty jurisdictions means all.
func (r *Registry) Select(jurisdictions []string, kind models.EntityKind) []Connector {
	var candidates []Connector
	if len(jurisdictions) == 0 {
		candidates = r.ordered
	} else {
		seen := make(map[string]struct{})
		for _, j := range jurisdictions {
			for _, c := range r.byJurisdiction[strings.ToUpper(j)] {
				if _, ok := seen[c.ID()]; ok {
					continue
				}
				seen[c.ID()] = struct{}{}
				candidates = append(candidates, c)
			}
		}
		slices.SortStableFunc(candidates, func(a, b Connector) int {
			return r.position(a) - r.position(b)
		})
	}

	out := make([]Connector, 0, len(candidates))
	for _, c := range candidates {
		if c.Descriptor().Serves(kind) {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) position(c Connector) int {
	return slices.IndexFunc(r.ordered, func(o Connector) bool { return o.ID() == c.ID() })
}
