package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/interviewsim/orchestrator/internal/apperrors"
)

// errorBody is the stable {error, status} shape spec.md §7 requires for
// every 4xx/5xx response.
type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encode failed","status":500}`, http.StatusInternalServerError)
	}
}

// writeError maps the domain error taxonomy of spec.md §7 onto an HTTP
// status and a stable body. 5xx causes are logged with full detail; their
// response body carries only a generic message — vendor and internal
// detail never reach the client.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	status, message, logDetail := classify(err)
	if logDetail {
		log.Error("httpapi: request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Error: message, Status: status})
}

func classify(err error) (status int, message string, logDetail bool) {
	var notFound *apperrors.NotFound
	var illegalState *apperrors.IllegalState
	var duplicate *apperrors.Duplicate
	var validation *apperrors.ValidationFailed
	var uploadNotFound *apperrors.UploadNotFound
	var externalFailure *apperrors.ExternalServiceFailure
	var blobFailure *apperrors.BlobStoreFailure
	var timeout *apperrors.Timeout
	var internal *apperrors.Internal

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, err.Error(), false
	case errors.As(err, &uploadNotFound):
		return http.StatusNotFound, err.Error(), false
	case errors.As(err, &illegalState):
		return http.StatusConflict, err.Error(), false
	case errors.As(err, &duplicate):
		return http.StatusConflict, err.Error(), false
	case errors.As(err, &validation):
		return http.StatusBadRequest, err.Error(), false
	case errors.As(err, &externalFailure):
		return http.StatusBadGateway, "a dependent service is unavailable, try again later", true
	case errors.As(err, &blobFailure):
		return http.StatusInternalServerError, "an internal error occurred", true
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout, "the request timed out, try again later", true
	case errors.As(err, &internal):
		return http.StatusInternalServerError, "an internal error occurred", true
	default:
		return http.StatusInternalServerError, "an internal error occurred", true
	}
}
