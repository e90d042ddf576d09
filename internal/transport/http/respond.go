package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"ecoquest-quiz-service/internal/app"
	"ecoquest-quiz-service/internal/domain"
)

type errorPayload struct {
	Error  string               `json:"error"`
	Fields app.ValidationErrors `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorPayload{Error: msg})
}

// writeDomainErr maps service errors onto status codes.
func writeDomainErr(w http.ResponseWriter, err error) {
	var verrs app.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, errorPayload{Error: domain.ErrValidation.Error(), Fields: verrs})
	case errors.Is(err, domain.ErrQuizNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidQuizFormat):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrLoadFailed):
		writeErr(w, http.StatusServiceUnavailable, domain.ErrLoadFailed.Error())
	case errors.Is(err, domain.ErrSaveFailed):
		writeErr(w, http.StatusInternalServerError, domain.ErrSaveFailed.Error())
	default:
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}
