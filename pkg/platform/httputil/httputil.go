// Package httputil holds the JSON request/response helpers shared by handlers.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "screener/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies decoded by DecodeAndPrepare.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error onto a status and an error body. Internal
// errors never leak their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		body.Description = dErrors.MessageOf(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

type normalizer interface {
	Normalize()
}

type validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the body into a *T, then runs Normalize and
// Validate when T implements them. On failure it writes the error response
// and returns false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "failed to decode request body",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	if n, ok := any(req).(normalizer); ok {
		n.Normalize()
	}
	if v, ok := any(req).(validatable); ok {
		if err := v.Validate(); err != nil {
			if logger != nil {
				logger.WarnContext(ctx, "request validation failed",
					"request_id", requestID,
					"error", err,
				)
			}
			WriteError(w, err)
			return nil, false
		}
	}
	return req, true
}
