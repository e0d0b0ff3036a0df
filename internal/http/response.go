package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"pondo/internal/log"
	"pondo/internal/services"
	"pondo/internal/syncer"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps domain errors to a status and a display message.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var (
		field *syncer.FieldError
		form  *syncer.FormError
		input *services.InputError
	)
	switch {
	case errors.As(err, &field):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: field.Message, Field: field.Field})
	case errors.As(err, &input):
		writeError(w, http.StatusUnprocessableEntity, input.Message)
	case errors.Is(err, syncer.ErrSaveInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &form):
		log.FromContext(r.Context()).WarnContext(r.Context(), "Ledger write failed", log.FieldError, err)
		writeError(w, http.StatusBadGateway, form.Message)
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

// decodeJSON reads a single JSON object, rejecting unknown fields and
// oversized bodies.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("unsupported content type %q", ct)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
