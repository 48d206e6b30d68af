package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/crowdvisual/crowdvisual-platform/internal/prediction"
	"github.com/crowdvisual/crowdvisual-platform/internal/refdata"
	"github.com/crowdvisual/crowdvisual-platform/internal/source"
	"github.com/crowdvisual/crowdvisual-platform/pkg/timecode"
)

// errorResponse is the JSON body for all error replies
type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// errorKind maps a sentinel error to its stable kind and HTTP status
func errorKind(err error) (string, int) {
	switch {
	case errors.Is(err, timecode.ErrInvalidFormat):
		return "invalid_timestamp_format", http.StatusBadRequest
	case errors.Is(err, timecode.ErrOutOfRange):
		return "invalid_timestamp", http.StatusBadRequest
	case errors.Is(err, source.ErrDataUnavailable):
		return "data_unavailable", http.StatusNotFound
	case errors.Is(err, refdata.ErrUnknownBuilding):
		return "invalid_building", http.StatusNotFound
	case errors.Is(err, refdata.ErrUnknownAccessPoint):
		return "invalid_access_point", http.StatusNotFound
	case errors.Is(err, prediction.ErrDateBeforeEpoch):
		return "date_before_epoch", http.StatusBadRequest
	default:
		return "internal", http.StatusInternalServerError
	}
}

func jsonBody(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders a sentinel error as a structured JSON reply
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, status := errorKind(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs
		msg = "internal error"
	}

	writeJSON(w, status, errorResponse{
		Error:     kind,
		Message:   msg,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// writeBadRequest renders a request-validation failure with an explicit kind
func writeBadRequest(w http.ResponseWriter, r *http.Request, kind, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:     kind,
		Message:   msg,
		RequestID: RequestIDFromContext(r.Context()),
	})
}
