package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cepcode/backend/internal/domain"
	"github.com/cepcode/backend/internal/logging"
)

// Error codes carried in ErrorResponse.Error.Code.
const (
	codeInvalidFormat = "invalid_format"
	codeValidation    = "validation_error"
	codeNotFound      = "not_found"
	codeConflict      = "conflict"
	codeUpstream      = "upstream_unavailable"
	codeTooLarge      = "request_too_large"
	codeInternal      = "internal_error"
)

// ErrorDetail is the body of every non-2xx response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail as {"error":{...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// respondError maps a service error onto a status code by its domain kind.
// Anything without a known kind is logged and reported as a bare 500 so
// internal details never reach the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	switch kind {
	case domain.ErrInvalidFormat:
		writeError(w, http.StatusBadRequest, codeInvalidFormat, errorMessage(err, kind))
	case domain.ErrValidation:
		writeError(w, http.StatusUnprocessableEntity, codeValidation, errorMessage(err, kind))
	case domain.ErrNotFound:
		writeError(w, http.StatusNotFound, codeNotFound, errorMessage(err, kind))
	case domain.ErrConflict:
		writeError(w, http.StatusConflict, codeConflict, errorMessage(err, kind))
	case domain.ErrTransport:
		logging.FromContext(r.Context()).Warn("upstream lookup failed", "error", err)
		writeError(w, http.StatusBadGateway, codeUpstream, errorMessage(err, kind))
	default:
		logging.FromContext(r.Context()).Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

// errorMessage extracts the human-readable part of a wrapped sentinel error.
// e.g. "service.ProductService.Create: validation error: name is required" → "name is required"
func errorMessage(err error, kind error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Detail != "" {
		return de.Detail
	}
	msg := err.Error()
	marker := kind.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return kind.Error()
}

// decodeBody reads a JSON request body into dst and runs its validate tags.
// It writes the error response itself and reports whether decoding succeeded.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "malformed JSON body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, validationMessage(err))
		return false
	}
	return true
}

// validationMessage flattens validator errors into "field: rule" pairs.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: must satisfy %s=%s", field, fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", field, fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
