package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepcode/backend/internal/domain"
	"github.com/cepcode/backend/internal/handler"
)

func TestListRegions(t *testing.T) {
	rec := serve(handler.NewHealthHandler(), http.MethodGet, "/regions", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	regions := decodeJSON[[]domain.Region](t, rec)
	require.Len(t, regions, 3)
	assert.Equal(t, "North/Northeast", regions[0].Name)
}

func TestGetRegion(t *testing.T) {
	srv := handler.NewHealthHandler()

	rec := serve(srv, http.MethodGet, "/regions/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	region := decodeJSON[domain.Region](t, rec)
	assert.Equal(t, []string{"DF", "GO", "MS", "MT"}, region.States)

	rec = serve(srv, http.MethodGet, "/regions/9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(srv, http.MethodGet, "/regions/north", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRegionStates(t *testing.T) {
	srv := handler.NewHealthHandler()

	rec := serve(srv, http.MethodGet, "/regions/3/states", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON[handler.RegionStatesResponse](t, rec)
	assert.Equal(t, []string{"ES", "MG", "PR", "RJ", "RS", "SC", "SP"}, resp.States)

	rec = serve(srv, http.MethodGet, "/regions/0/states", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStateRegion(t *testing.T) {
	srv := handler.NewHealthHandler()

	rec := serve(srv, http.MethodGet, "/regions/state/ba", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON[handler.StateRegionResponse](t, rec)
	assert.Equal(t, "BA", resp.State)
	assert.Equal(t, "Bahia", resp.StateName)
	assert.Equal(t, domain.RegionNorthNortheast, resp.RegionID)

	rec = serve(srv, http.MethodGet, "/regions/state/XX", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListStates(t *testing.T) {
	rec := serve(handler.NewHealthHandler(), http.MethodGet, "/regions/states", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	states := decodeJSON[[]handler.StateRegionResponse](t, rec)
	require.Len(t, states, 27)
	assert.Equal(t, handler.StateRegionResponse{State: "AC", StateName: "Acre", RegionID: 1, RegionName: "North/Northeast"}, states[0])

	perRegion := map[int]int{}
	for i, s := range states {
		if i > 0 {
			assert.Less(t, states[i-1].State, s.State, "sorted by abbreviation")
		}
		assert.Equal(t, domain.RegionFor(s.State), s.RegionID)
		perRegion[s.RegionID]++
	}
	assert.Equal(t, map[int]int{1: 16, 2: 4, 3: 7}, perRegion)
}

func TestSearchRegions(t *testing.T) {
	srv := handler.NewHealthHandler()

	rec := serve(srv, http.MethodGet, "/regions/search?q=cerrado", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RegionCentralWest, decodeJSON[domain.Region](t, rec).ID)

	rec = serve(srv, http.MethodGet, "/regions/search?q=atlantis", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(srv, http.MethodGet, "/regions/search", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
