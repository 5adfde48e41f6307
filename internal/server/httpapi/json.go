package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/avolkovs/taskdeck/internal/common"
)

type envelope map[string]any

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error(context.Background(), "response marshal error", "error", err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, envelope{"error": msg})
}

// writeServiceError maps the shared sentinel errors onto HTTP status codes.
// Unauthorized responses are deliberately uniform: missing, malformed and
// expired tokens, bad credentials, and gone users all read the same.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorAlreadyExists):
		s.writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, common.ErrorNotFound):
		s.writeError(w, http.StatusNotFound, "not found")
	default:
		s.logger.Error(r.Context(), "internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s", common.ErrorValidation, err.Error())
	}
	return nil
}

// readJSONInto decodes the body into dst and additionally records the
// top-level keys that were present into raw, so callers can tell absent
// fields from zero values.
func (s *Server) readJSONInto(w http.ResponseWriter, r *http.Request, dst any, raw map[string]any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrorValidation, err.Error())
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s", common.ErrorValidation, err.Error())
	}

	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("%w: %s", common.ErrorValidation, err.Error())
	}
	return nil
}
