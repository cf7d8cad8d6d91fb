package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Clark-Hu/boxoffice-viewer/internal/domain"
	"github.com/Clark-Hu/boxoffice-viewer/internal/reviews"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.WithError(err).Error("failed to encode response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

// respondDomainError maps the error taxonomy of the viewer to status codes.
// action names the failed operation in the generic 500 message.
func (s *Server) respondDomainError(w http.ResponseWriter, err error, action string) {
	var (
		validation *domain.ValidationError
		configErr  *domain.ConfigError
		fault      *domain.RemoteFault
		fetchErr   *domain.FetchError
		httpErr    *domain.HTTPError
	)
	switch {
	case errors.As(err, &validation):
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: validation.Error(),
			Details: validation.Fields,
		})
	case errors.Is(err, domain.ErrAuthMismatch):
		s.respondError(w, http.StatusForbidden, "AUTH_MISMATCH", "Password does not match")
	case errors.Is(err, domain.ErrMovieNotFound), errors.Is(err, reviews.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.As(err, &configErr):
		s.respondError(w, http.StatusServiceUnavailable, "CONFIG_ERROR", configErr.Error())
	case errors.As(err, &fault):
		s.respondError(w, http.StatusBadGateway, "UPSTREAM_FAULT", fault.Message)
	case errors.As(err, &fetchErr), errors.As(err, &httpErr):
		s.logger.WithError(err).Warn(action + " failed upstream")
		s.respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.respondError(w, http.StatusGatewayTimeout, "TIMEOUT", "Upstream did not respond in time")
	default:
		s.logger.WithError(err).Error(action + " failed")
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action)
	}
}
