// Package store holds the report repositories: an in-memory one for tests
// and single-node runs, and a Postgres one for production.
package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"screener/internal/screening/models"
	id "screener/pkg/domain"
	"screener/pkg/platform/sentinel"
)

type stageKey struct{}

// stage collects the writes of one RunInTx call until fn returns.
type stage struct {
	reports []*models.ScreeningReport
	matches map[id.ReportID][]models.MatchCandidate
	lists   map[id.ReportID][]models.ScreenedSource
	history []models.HistoryEntry
}

func (st *stage) hasReport(reportID id.ReportID) bool {
	return slices.ContainsFunc(st.reports, func(r *models.ScreeningReport) bool { return r.ID == reportID })
}

// InMemory is a report repository backed by maps. Writes made inside
// RunInTx become visible together when fn succeeds, or not at all.
type InMemory struct {
	mu      sync.RWMutex
	reports map[id.ReportID]*models.ScreeningReport
	tokens  map[string]id.ReportID
	matches map[id.ReportID][]models.MatchCandidate
	lists   map[id.ReportID][]models.ScreenedSource
	history map[id.ReportID][]models.HistoryEntry
}

func NewInMemory() *InMemory {
	return &InMemory{
		reports: make(map[id.ReportID]*models.ScreeningReport),
		tokens:  make(map[string]id.ReportID),
		matches: make(map[id.ReportID][]models.MatchCandidate),
		lists:   make(map[id.ReportID][]models.ScreenedSource),
		history: make(map[id.ReportID][]models.HistoryEntry),
	}
}

func stageFrom(ctx context.Context) (*stage, bool) {
	st, ok := ctx.Value(stageKey{}).(*stage)
	return st, ok
}

func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := stageFrom(ctx); ok {
		return fn(ctx)
	}
	st := &stage{
		matches: make(map[id.ReportID][]models.MatchCandidate),
		lists:   make(map[id.ReportID][]models.ScreenedSource),
	}
	if err := fn(context.WithValue(ctx, stageKey{}, st)); err != nil {
		return err
	}
	return s.commit(st)
}

func (s *InMemory) commit(st *stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range st.reports {
		if err := s.checkUniqueLocked(r); err != nil {
			return err
		}
	}
	for _, r := range st.reports {
		s.insertLocked(r)
	}
	for reportID, m := range st.matches {
		s.matches[reportID] = append(s.matches[reportID], m...)
	}
	for reportID, l := range st.lists {
		s.lists[reportID] = append(s.lists[reportID], l...)
	}
	for _, e := range st.history {
		s.history[e.ReportID] = append(s.history[e.ReportID], e)
	}
	return nil
}

func (s *InMemory) checkUniqueLocked(r *models.ScreeningReport) error {
	if _, exists := s.reports[r.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.tokens[r.Token]; exists {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *InMemory) insertLocked(r *models.ScreeningReport) {
	stored := *r
	stored.Matches = nil
	stored.ScreenedSources = nil
	stored.History = nil
	s.reports[r.ID] = &stored
	s.tokens[r.Token] = r.ID
}

func (s *InMemory) CreateReport(ctx context.Context, r *models.ScreeningReport) error {
	if r == nil || r.Token == "" || r.ID.IsNil() {
		return sentinel.ErrInvalidState
	}
	if st, ok := stageFrom(ctx); ok {
		if st.hasReport(r.ID) {
			return sentinel.ErrConflict
		}
		st.reports = append(st.reports, r)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUniqueLocked(r); err != nil {
		return err
	}
	s.insertLocked(r)
	return nil
}

// exists reports whether reportID is committed or staged in ctx.
func (s *InMemory) exists(ctx context.Context, reportID id.ReportID) bool {
	if st, ok := stageFrom(ctx); ok && st.hasReport(reportID) {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.reports[reportID]
	return ok
}

func (s *InMemory) AppendMatches(ctx context.Context, reportID id.ReportID, matches []models.MatchCandidate) error {
	if !s.exists(ctx, reportID) {
		return sentinel.ErrNotFound
	}
	if st, ok := stageFrom(ctx); ok {
		st.matches[reportID] = append(st.matches[reportID], matches...)
		return nil
	}
	s.mu.Lock()
	s.matches[reportID] = append(s.matches[reportID], matches...)
	s.mu.Unlock()
	return nil
}

func (s *InMemory) AppendScreenedLists(ctx context.Context, reportID id.ReportID, sources []models.ScreenedSource) error {
	if !s.exists(ctx, reportID) {
		return sentinel.ErrNotFound
	}
	if st, ok := stageFrom(ctx); ok {
		st.lists[reportID] = append(st.lists[reportID], sources...)
		return nil
	}
	s.mu.Lock()
	s.lists[reportID] = append(s.lists[reportID], sources...)
	s.mu.Unlock()
	return nil
}

func (s *InMemory) AppendHistory(ctx context.Context, entry models.HistoryEntry) error {
	if !s.exists(ctx, entry.ReportID) {
		return sentinel.ErrNotFound
	}
	if st, ok := stageFrom(ctx); ok {
		st.history = append(st.history, entry)
		return nil
	}
	s.mu.Lock()
	s.history[entry.ReportID] = append(s.history[entry.ReportID], entry)
	s.mu.Unlock()
	return nil
}

func (s *InMemory) GetReportByToken(_ context.Context, token string) (*models.ScreeningReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reportID, ok := s.tokens[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *s.reports[reportID]
	out.Matches = slices.Clone(s.matches[reportID])
	if out.Matches == nil {
		out.Matches = []models.MatchCandidate{}
	}
	out.ScreenedSources = slices.Clone(s.lists[reportID])
	out.History = slices.Clone(s.history[reportID])
	return &out, nil
}

// Tokens lists every stored retrieval token.
func (s *InMemory) Tokens() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.tokens))
}
