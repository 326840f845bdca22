package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cepcode/backend/internal/domain"
)

// StateRegionResponse is the body of GET /regions/state/{uf} and one entry of
// GET /regions/states.
type StateRegionResponse struct {
	State      string `json:"state"`
	StateName  string `json:"state_name"`
	RegionID   int    `json:"region_id"`
	RegionName string `json:"region_name"`
}

// RegionStatesResponse is the body of GET /regions/{id}/states.
type RegionStatesResponse struct {
	RegionID int      `json:"region_id"`
	States   []string `json:"states"`
}

// ListRegions handles GET /regions.
func (s *Server) ListRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.Regions())
}

// GetRegion handles GET /regions/{id}.
func (s *Server) GetRegion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	region, err := domain.GetRegion(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, region)
}

// ListRegionStates handles GET /regions/{id}/states.
func (s *Server) ListRegionStates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if !domain.IsValidRegion(id) {
		writeError(w, http.StatusNotFound, codeNotFound, "region not found")
		return
	}
	writeJSON(w, http.StatusOK, RegionStatesResponse{RegionID: id, States: domain.StatesForRegion(id)})
}

// GetStateRegion handles GET /regions/state/{uf}. Unlike RegionFor it
// reports unknown states as 404 instead of falling back.
func (s *Server) GetStateRegion(w http.ResponseWriter, r *http.Request) {
	uf := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "uf")))
	if !domain.IsValidState(uf) {
		writeError(w, http.StatusNotFound, codeNotFound, "unknown state "+uf)
		return
	}
	writeJSON(w, http.StatusOK, stateRegion(uf))
}

// ListStates handles GET /regions/states: every federal unit with its region,
// sorted by abbreviation.
func (s *Server) ListStates(w http.ResponseWriter, _ *http.Request) {
	states := domain.AllStates()
	out := make([]StateRegionResponse, len(states))
	for i, uf := range states {
		out[i] = stateRegion(uf)
	}
	writeJSON(w, http.StatusOK, out)
}

func stateRegion(uf string) StateRegionResponse {
	region := domain.RegionFor(uf)
	return StateRegionResponse{
		State:      uf,
		StateName:  domain.StateName(uf),
		RegionID:   region,
		RegionName: domain.RegionName(region),
	}
}

// SearchRegions handles GET /regions/search?q=.
func (s *Server) SearchRegions(w http.ResponseWriter, r *http.Request) {
	q, ok := queryString(w, r, "q")
	if !ok {
		return
	}
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "q is required")
		return
	}
	region, err := domain.FindRegion(q)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, region)
}
