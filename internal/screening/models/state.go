package models

import (
	dErrors "screener/pkg/domain-errors"
)

// ScreeningState tracks one request through the orchestration pipeline.
type ScreeningState string

const (
	StatePending         ScreeningState = "pending"
	StateSourcesSelected ScreeningState = "sources_selected"
	StateSourcesQueried  ScreeningState = "sources_queried"
	StateMerged          ScreeningState = "merged"
	StateClassified      ScreeningState = "classified"
	StatePersisted       ScreeningState = "persisted"
	StateFailed          ScreeningState = "failed"
)

var stateTransitions = map[ScreeningState][]ScreeningState{
	StatePending:         {StateSourcesSelected, StateFailed},
	StateSourcesSelected: {StateSourcesQueried, StateFailed},
	StateSourcesQueried:  {StateMerged, StateFailed},
	StateMerged:          {StateClassified},
	StateClassified:      {StatePersisted, StateFailed},
}

// IsTerminal reports whether no further transition is possible.
func (s ScreeningState) IsTerminal() bool {
	return s == StatePersisted || s == StateFailed
}

// CanTransitionTo reports whether next directly follows s.
func (s ScreeningState) CanTransitionTo(next ScreeningState) bool {
	for _, allowed := range stateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition returns next if the move is legal.
func (s ScreeningState) Transition(next ScreeningState) (ScreeningState, error) {
	if !s.CanTransitionTo(next) {
		return s, dErrors.New(dErrors.CodeInvariantViolation, "invalid screening transition "+string(s)+" -> "+string(next))
	}
	return next, nil
}
