// Package handlers exposes the drone ops control plane over HTTP. Every
// response uses the {status, message?, ...fields} envelope.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/skyward-ops/droneops/internal/core/domain"
)

// writeSuccess writes a 2xx envelope with the given extra fields.
func writeSuccess(w http.ResponseWriter, code int, fields map[string]any) {
	body := map[string]any{"status": "success"}
	for k, v := range fields {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// writeError writes an error envelope.
func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "error",
		"message": message,
	})
}

// writeServiceError maps domain sentinels to their HTTP status; anything
// unrecognized is a 500 and logged.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrIncidentNotFound),
		errors.Is(err, domain.ErrRequestNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotArmed):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrEmptyTitle),
		errors.Is(err, domain.ErrInvalidSeverity),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrEmptyArtifact),
		errors.Is(err, domain.ErrIncidentClosed),
		errors.Is(err, domain.ErrEmptyActionType),
		errors.Is(err, domain.ErrAlreadyExecuted),
		errors.Is(err, domain.ErrRequestRejected),
		errors.Is(err, domain.ErrInsufficientApprovals),
		errors.Is(err, domain.ErrInvalidSessionMode):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("unexpected handler error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeBody parses a JSON request body into dst. An empty body is allowed.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && err.Error() == "EOF" {
		return nil
	}
	return err
}

// pathID extracts a numeric path variable.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

// queryInt parses a bounded integer query parameter with a default.
func queryInt(r *http.Request, name string, def, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// queryFloat parses a float query parameter with a default.
func queryFloat(r *http.Request, name string, def float64) float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

// queryOptionalID parses an optional int64 query parameter.
func queryOptionalID(r *http.Request, name string) *int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
