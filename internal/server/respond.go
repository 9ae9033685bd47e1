package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bookwright/steward/internal/override"
	"github.com/bookwright/steward/internal/sim"
	"github.com/bookwright/steward/internal/store"
)

// Stable error codes. Clients branch on these, not on messages.
const (
	codeInvalidRequest   = "invalid_request"
	codeNotFound         = "not_found"
	codeConflict         = "conflict"
	codeEnvForbidden     = "env_forbidden"
	codeOverrideRejected = "override_rejected"
	codeInternal         = "internal"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{
		"error": {Code: code, Message: message},
	})
}

// decodeBody strictly decodes a JSON request body.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeDomainError maps known sentinel errors to their codes; anything
// unrecognized is a genuine internal fault.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sim.ErrAlreadyRunning), errors.Is(err, sim.ErrNotRunning):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case isOverrideRejection(err):
		writeError(w, http.StatusUnprocessableEntity, codeOverrideRejected, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
	}
}

func isOverrideRejection(err error) bool {
	for _, sentinel := range []error{
		override.ErrNoOverridesRequired,
		override.ErrEmptyJustification,
		override.ErrInsufficientRole,
		override.ErrDecisionHashMismatch,
		override.ErrProposalMismatch,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
