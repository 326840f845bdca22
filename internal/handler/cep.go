package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cepcode/backend/internal/domain"
)

// FormatResponse is the body of GET /cep/{cep}/format.
type FormatResponse struct {
	PostalCode string `json:"postal_code"`
	Formatted  string `json:"formatted"`
}

// GetPostalCode handles GET /cep/{cep}.
// The record is served from the cache when present, otherwise looked up
// upstream and cached.
func (s *Server) GetPostalCode(w http.ResponseWriter, r *http.Request) {
	rec, err := s.ceps.Resolve(r.Context(), chi.URLParam(r, "cep"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ValidatePostalCode handles GET /cep/{cep}/validate. It is offline: an
// invalid CEP is a 200 with valid=false, not an error.
func (s *Server) ValidatePostalCode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.CheckPostalCode(chi.URLParam(r, "cep")))
}

// FormatPostalCode handles GET /cep/{cep}/format.
func (s *Server) FormatPostalCode(w http.ResponseWriter, r *http.Request) {
	code, err := domain.NormalizePostalCode(chi.URLParam(r, "cep"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FormatResponse{PostalCode: code, Formatted: domain.FormatPostalCode(code)})
}

// DeletePostalCode handles DELETE /cep/{cep}. The next lookup goes upstream.
func (s *Server) DeletePostalCode(w http.ResponseWriter, r *http.Request) {
	if err := s.ceps.Invalidate(r.Context(), chi.URLParam(r, "cep")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPostalCodes handles GET /cep?state=&page=&limit=.
func (s *Server) ListPostalCodes(w http.ResponseWriter, r *http.Request) {
	state, ok := queryString(w, r, "state")
	if !ok {
		return
	}
	p, ok := pagination(w, r)
	if !ok {
		return
	}
	page, err := s.ceps.List(r.Context(), state, p)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
