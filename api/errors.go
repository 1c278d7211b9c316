package api

import (
	"net/http"

	"bee-finder/pkg/apperr"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// StatusFor maps an error code onto an HTTP status.
func StatusFor(code apperr.Code) int {
	switch code {
	case apperr.InvalidArgument:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Unavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	e := apperr.From(err)
	status := StatusFor(e.Code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "code", e.Code, "error", err)
	} else {
		h.logger.Warn("request rejected", "code", e.Code, "error", err)
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: e.Code, Message: e.Message}})
}
