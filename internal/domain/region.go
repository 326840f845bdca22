// Package domain contains the core data types and pure rules of the CEP region
// service: the state → region table, postal code normalization, and the
// region-tagged identifier codec.
// This package has no I/O and is imported by every other internal package.
package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Region identifiers. Every valid state maps to exactly one of them.
const (
	RegionNorthNortheast = 1
	RegionCentralWest    = 2
	RegionSouthSoutheast = 3

	// DefaultRegion is returned for empty, unknown, or malformed input.
	DefaultRegion = RegionNorthNortheast
)

// UnknownRegionName is returned by RegionName for ids outside {1,2,3}.
const UnknownRegionName = "Unknown"

// Region describes one shipping region and the states routed to it.
type Region struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	States      []string `json:"states"`
}

type stateInfo struct {
	region int
	name   string
}

// stateTable is the fixed UF → region assignment. It is built once and never
// written after package init; only read accessors are exported.
var stateTable = map[string]stateInfo{
	// North
	"AC": {RegionNorthNortheast, "Acre"},
	"AP": {RegionNorthNortheast, "Amapá"},
	"AM": {RegionNorthNortheast, "Amazonas"},
	"PA": {RegionNorthNortheast, "Pará"},
	"RO": {RegionNorthNortheast, "Rondônia"},
	"RR": {RegionNorthNortheast, "Roraima"},
	"TO": {RegionNorthNortheast, "Tocantins"},
	// Northeast
	"AL": {RegionNorthNortheast, "Alagoas"},
	"BA": {RegionNorthNortheast, "Bahia"},
	"CE": {RegionNorthNortheast, "Ceará"},
	"MA": {RegionNorthNortheast, "Maranhão"},
	"PB": {RegionNorthNortheast, "Paraíba"},
	"PE": {RegionNorthNortheast, "Pernambuco"},
	"PI": {RegionNorthNortheast, "Piauí"},
	"RN": {RegionNorthNortheast, "Rio Grande do Norte"},
	"SE": {RegionNorthNortheast, "Sergipe"},
	// Central-West
	"DF": {RegionCentralWest, "Distrito Federal"},
	"GO": {RegionCentralWest, "Goiás"},
	"MT": {RegionCentralWest, "Mato Grosso"},
	"MS": {RegionCentralWest, "Mato Grosso do Sul"},
	// Southeast
	"ES": {RegionSouthSoutheast, "Espírito Santo"},
	"MG": {RegionSouthSoutheast, "Minas Gerais"},
	"RJ": {RegionSouthSoutheast, "Rio de Janeiro"},
	"SP": {RegionSouthSoutheast, "São Paulo"},
	// South
	"PR": {RegionSouthSoutheast, "Paraná"},
	"RS": {RegionSouthSoutheast, "Rio Grande do Sul"},
	"SC": {RegionSouthSoutheast, "Santa Catarina"},
}

var regionNames = map[int]string{
	RegionNorthNortheast: "North/Northeast",
	RegionCentralWest:    "Central-West",
	RegionSouthSoutheast: "South/Southeast",
}

var regionDescriptions = map[int]string{
	RegionNorthNortheast: "North and Northeast regions of Brazil",
	RegionCentralWest:    "Central-West region of Brazil",
	RegionSouthSoutheast: "South and Southeast regions of Brazil",
}

// regionKeywords backs FindRegion. Lowercase, accents stripped.
var regionKeywords = map[int][]string{
	RegionNorthNortheast: {"norte", "nordeste", "north", "northeast", "amazonia", "sertao"},
	RegionCentralWest:    {"centro", "oeste", "central", "west", "pantanal", "cerrado"},
	RegionSouthSoutheast: {"sul", "sudeste", "south", "southeast", "serra", "mata atlantica"},
}

// statesByRegion is the inverse of stateTable, sorted alphabetically.
var statesByRegion = func() map[int][]string {
	out := make(map[int][]string, len(regionNames))
	for uf, info := range stateTable {
		out[info.region] = append(out[info.region], uf)
	}
	for id := range out {
		slices.Sort(out[id])
	}
	return out
}()

func normalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

// RegionFor returns the region id for a two-letter state abbreviation.
// Matching is case-insensitive. Empty or unknown input yields DefaultRegion;
// this is intentional so that product creation never fails on a state code
// that was already validated upstream.
func RegionFor(state string) int {
	if info, ok := stateTable[normalizeState(state)]; ok {
		return info.region
	}
	return DefaultRegion
}

// StrictRegionFor is RegionFor without the fallback: unknown states return
// ErrValidation.
func StrictRegionFor(state string) (int, error) {
	info, ok := stateTable[normalizeState(state)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown state %q", ErrValidation, state)
	}
	return info.region, nil
}

// RegionName maps a region id to its display name, or UnknownRegionName.
func RegionName(id int) string {
	if name, ok := regionNames[id]; ok {
		return name
	}
	return UnknownRegionName
}

// RegionDescription returns a longer description of the region.
func RegionDescription(id int) string {
	if d, ok := regionDescriptions[id]; ok {
		return d
	}
	return "Unidentified region"
}

// StatesForRegion returns the states bound to a region in alphabetical order.
// Unknown ids yield an empty, non-nil slice. The result is a copy.
func StatesForRegion(id int) []string {
	return append([]string{}, statesByRegion[id]...)
}

// IsValidRegion reports whether id is one of the three region ids.
func IsValidRegion(id int) bool {
	_, ok := regionNames[id]
	return ok
}

// IsValidState reports whether state is one of the 27 federal units.
func IsValidState(state string) bool {
	_, ok := stateTable[normalizeState(state)]
	return ok
}

// StateName returns the full name of a state ("SP" → "São Paulo"), or "" when unknown.
func StateName(state string) string {
	return stateTable[normalizeState(state)].name
}

// AllStates returns every state abbreviation, sorted.
func AllStates() []string {
	out := make([]string, 0, len(stateTable))
	for uf := range stateTable {
		out = append(out, uf)
	}
	slices.Sort(out)
	return out
}

// RegionIDs returns the region ids in ascending order.
func RegionIDs() []int {
	return []int{RegionNorthNortheast, RegionCentralWest, RegionSouthSoutheast}
}

// GetRegion returns the full description of one region.
// Returns ErrNotFound for ids outside {1,2,3}.
func GetRegion(id int) (Region, error) {
	if !IsValidRegion(id) {
		return Region{}, fmt.Errorf("%w: region %d", ErrNotFound, id)
	}
	return Region{
		ID:          id,
		Name:        RegionName(id),
		Description: RegionDescription(id),
		States:      StatesForRegion(id),
	}, nil
}

// Regions returns all three regions in id order.
func Regions() []Region {
	out := make([]Region, 0, len(regionNames))
	for _, id := range RegionIDs() {
		r, _ := GetRegion(id)
		out = append(out, r)
	}
	return out
}

// FindRegion searches regions by name or keyword ("nordeste", "cerrado").
// Returns ErrNotFound when nothing matches.
func FindRegion(query string) (Region, error) {
	q := foldAccents(strings.ToLower(strings.TrimSpace(query)))
	if q == "" {
		return Region{}, fmt.Errorf("%w: empty region query", ErrNotFound)
	}
	for _, id := range RegionIDs() {
		name := strings.ToLower(RegionName(id))
		if strings.Contains(name, q) || strings.Contains(q, name) {
			return GetRegion(id)
		}
	}
	for _, id := range RegionIDs() {
		for _, kw := range regionKeywords[id] {
			if strings.Contains(q, kw) {
				return GetRegion(id)
			}
		}
	}
	return Region{}, fmt.Errorf("%w: no region matches %q", ErrNotFound, query)
}

var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u",
	"ç", "c",
)

func foldAccents(s string) string {
	return accentFolder.Replace(s)
}
