package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/vitalsync/server/internal/models"
	"github.com/vitalsync/server/internal/observability"
)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError translates a service error into its HTTP status. Services
// never produce transport codes themselves; this is the one place the
// error taxonomy meets HTTP.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var (
		validation    *models.ValidationError
		notFound      *models.NotFoundError
		state         *models.StateError
		storage       *models.StorageError
		configuration *models.ConfigurationError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: validation.Error()})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: notFound.Error()})
	case errors.As(err, &state):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: state.Error()})
	case errors.As(err, &configuration):
		writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: configuration.Error()})
	case errors.As(err, &storage):
		log.Error().Err(err).Msg("Storage failure")
		observability.CaptureError(err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "storage failure"})
	default:
		log.Error().Err(err).Msg("Unhandled error")
		observability.CaptureError(err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "internal error"})
	}
}

// decodeJSON decodes a request body, returning a ValidationError on
// malformed input so it maps to a 400 like every other bad request.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.NewValidationError("body", "is not valid JSON")
	}
	return nil
}
