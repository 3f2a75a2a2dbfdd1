// Package utils maps service errors onto the HTTP wire.
package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rallytrack/tracking-service-manager-go/log"
	"github.com/rallytrack/tracking-service-manager-go/pkg/auth"
	"github.com/rallytrack/tracking-service-manager-go/pkg/repository"
	"github.com/rallytrack/tracking-service-manager-go/pkg/service"
	"github.com/rallytrack/tracking-service-manager-go/pkg/tracking/cascade"
)

type errorBody struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // client gone, nothing to do
		json.NewEncoder(w).Encode(v)
	}
}

// WriteError translates the error taxonomy to HTTP status codes:
// validation 400, auth 401, not found 404, everything else 500.
func WriteError(w http.ResponseWriter, l *log.Logger, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr), errors.Is(err, cascade.ErrOrderMismatch):
		WriteJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, auth.ErrPermissionDenied):
		WriteJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, repository.ErrNoData):
		WriteJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		l.Error("internal error", log.ErrorField(err))
		WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
