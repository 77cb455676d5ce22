package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
)

// errorBody is the JSON envelope of every error response.
type errorBody struct {
	Detail any `json:"detail"`
}

// writeDomainError converts domain errors to HTTP responses.
func writeDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: ve.Fields})

	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrParentNotFound),
		errors.Is(err, domain.ErrCategoryNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Detail: err.Error()})

	case errors.Is(err, domain.ErrInvalidImage):
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})

	case errors.Is(err, domain.ErrTransactionFailed):
		logger.Warn("transaction failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Detail: "transaction failed, retry the request"})

	default:
		logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "internal server error"})
	}
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Detail: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
