package handler

import "net/http"

// GetStats handles GET /stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	sum, err := s.stats.Summary(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// GetCacheStats handles GET /stats/cep.
func (s *Server) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	cs, err := s.stats.CacheStats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}
