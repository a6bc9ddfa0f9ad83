package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and connectors
// return these (optionally wrapped) so services can translate them into
// domain errors.
//
//   - ErrNotFound: record or report does not exist
//   - ErrExpired: cached record is past its expiry
//   - ErrInvalidState: lifecycle transition not allowed
//   - ErrUnavailable: upstream source or backing store cannot be reached
//
// Validation failures belong in pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
