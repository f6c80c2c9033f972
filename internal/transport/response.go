package transport

import (
	"encoding/json"
	"net/http"

	"atelier-be/internal/db"
	"atelier-be/internal/logger"
	"atelier-be/internal/order"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Warn("failed to encode response", zap.Error(err))
	}
}

func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// writeError maps domain errors to status codes. Anything unrecognized is a
// 500 whose cause is only logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr *order.ValidationError
		iErr *order.ItemError
	)

	switch {
	case errors.As(err, &vErr):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: vErr.Error(), Fields: vErr.Fields})
	case errors.As(err, &iErr):
		WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: iErr.Error(), Fields: iErr.Fields})
	case errors.Is(err, order.ErrOrderNotFound):
		WriteJSONError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrInvalidStatus):
		WriteJSONError(w, http.StatusBadRequest, err.Error())
	default:
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("layer", "transport"),
			zap.String("path", r.URL.Path),
			zap.String("pg_code", db.PgErrorCode(err)),
			zap.Error(err),
		)
		WriteJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}
