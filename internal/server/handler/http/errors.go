package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/tradejournal/internal/models"
	"github.com/atinyakov/tradejournal/internal/service"
)

// errBadBody marks a request body that could not be decoded.
var errBadBody = errors.New("invalid request body")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and an ErrorResponse body. Field
// validation failures are listed in details keyed by field name.
func writeError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	writeJSON(w, status, body)
}

func errorResponse(err error) (int, models.ErrorResponse) {
	switch {
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, models.ErrorResponse{Error: errBadBody.Error()}
	case errors.Is(err, models.ErrInvalid):
		details := map[string]any{}
		for _, fe := range models.FieldErrors(err) {
			if _, dup := details[fe.Field]; !dup {
				details[fe.Field] = fe.Message
			}
		}
		return http.StatusUnprocessableEntity, models.ErrorResponse{Error: "validation failed", Details: details}
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, models.ErrorResponse{Error: err.Error()}
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, models.ErrorResponse{Error: "invalid or expired token"}
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, models.ErrorResponse{Error: "not found"}
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, models.ErrorResponse{Error: err.Error()}
	}
	return http.StatusInternalServerError, models.ErrorResponse{Error: "internal error"}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadBody
	}
	return nil
}
