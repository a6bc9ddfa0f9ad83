// Package risk maps a ranked match list to a risk level.
package risk

import (
	"screener/internal/screening/models"
	dErrors "screener/pkg/domain-errors"
)

// Policy holds the minimum match rate for each elevated level.
type Policy struct {
	Critical int
	High     int
	Medium   int
}

// DefaultPolicy is 95/90/80.
func DefaultPolicy() Policy {
	return Policy{Critical: 95, High: 90, Medium: 80}
}

// Validate checks the thresholds are in range and ordered.
func (p Policy) Validate() error {
	for _, v := range []int{p.Critical, p.High, p.Medium} {
		if v < 0 || v > 100 {
			return dErrors.New(dErrors.CodeInvalidInput, "risk thresholds must be within 0..100")
		}
	}
	if p.Critical < p.High || p.High < p.Medium {
		return dErrors.New(dErrors.CodeInvalidInput, "risk thresholds must satisfy critical >= high >= medium")
	}
	return nil
}

// Classify derives the risk level from matches. Only adverse tags count; a
// registry confirmation never raises risk, whatever its rate.
// No I/O, no side effects.
func (p Policy) Classify(matches []models.MatchCandidate) models.RiskLevel {
	top := -1
	for _, m := range matches {
		if m.Tag.IsAdverse() && m.MatchRate > top {
			top = m.MatchRate
		}
	}
	switch {
	case top < 0:
		return models.RiskLow
	case top >= p.Critical:
		return models.RiskCritical
	case top >= p.High:
		return models.RiskHigh
	case top >= p.Medium:
		return models.RiskMedium
	}
	return models.RiskLow
}
