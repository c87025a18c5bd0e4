package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/menucraft/api/internal/checkout"
	"github.com/menucraft/api/internal/database"
	"github.com/menucraft/api/internal/service"
)

// writeServiceError maps service and checkout errors to a status code.
// Backend failures are logged under op; clients only see the sanitized message.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var ve *service.ValidationError
	var be *service.BackendError

	switch {
	case errors.As(err, &ve):
		body := map[string]string{"error": ve.Message}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		writeJSON(w, http.StatusBadRequest, body)
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, checkout.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrCategoryInUse), errors.Is(err, checkout.ErrInvalidState):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, checkout.ErrAuthChallenge):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.As(err, &be):
		log.Printf("ERROR: %s: %v", op, be.Err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": be.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func numericToString(n pgtype.Numeric) string {
	return database.NumericToDecimal(n).StringFixed(2)
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}
