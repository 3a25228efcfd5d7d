package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/videofeed/internal/common"
)

const (
	contentTypeJSON = "application/json; charset=UTF-8"

	msgEndpointNotFound    = "Endpoint not found"
	msgMethodNotAllowed    = "Method not allowed"
	msgVideoNotFound       = "Video not found"
	msgUnauthorized        = "Unauthorized"
	msgTooManyRequests     = "Too many requests"
	msgTranscoderDown      = "Transcoding service unavailable"
	msgInternalServerError = "Internal server error"
	msgVideoUpdated        = "Video updated successfully"
	msgVideoDeleted        = "Video deleted successfully"
)

type errorResponse struct {
	Error string `json:"error"`
}

type mutationResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	RowsAffected int64  `json:"rowsAffected"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorStatus maps a service error onto the HTTP status and the message shown
// to the client. Unknown errors become a generic 500.
func errorStatus(err error) (int, string) {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, msgVideoNotFound
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, common.ErrorUnavailable):
		return http.StatusBadGateway, msgTranscoderDown
	default:
		return http.StatusInternalServerError, msgInternalServerError
	}
}
