package domain

import "time"

// ResolutionOutcome labels how a single CEP resolution ended.
type ResolutionOutcome string

const (
	OutcomeCacheHit        ResolutionOutcome = "cache_hit"
	OutcomeCacheMiss       ResolutionOutcome = "cache_miss"
	OutcomeNotFound        ResolutionOutcome = "not_found"
	OutcomeInvalid         ResolutionOutcome = "invalid"
	OutcomeTransportError  ResolutionOutcome = "transport_error"
	OutcomeStorageError    ResolutionOutcome = "storage_error"
	OutcomeCacheWriteError ResolutionOutcome = "cache_write_error"
)

// Outcomes lists every ResolutionOutcome in a stable order.
var Outcomes = []ResolutionOutcome{
	OutcomeCacheHit,
	OutcomeCacheMiss,
	OutcomeNotFound,
	OutcomeInvalid,
	OutcomeTransportError,
	OutcomeStorageError,
	OutcomeCacheWriteError,
}

// ResolutionEvent is recorded once per resolver outcome.
// State and RegionID are empty/zero when the resolution did not produce a record.
type ResolutionEvent struct {
	Outcome  ResolutionOutcome
	State    string
	RegionID int
	At       time.Time
}

// RegionCount is one row of a per-region aggregate.
type RegionCount struct {
	RegionID   int    `json:"region_id"`
	RegionName string `json:"region_name"`
	Count      int64  `json:"count"`
}

// StateCount is one row of a per-state aggregate.
type StateCount struct {
	State    string `json:"state"`
	RegionID int    `json:"region_id"`
	Count    int64  `json:"count"`
}

// RegionSummary aggregates activity for one region.
type RegionSummary struct {
	RegionID    int    `json:"region_id"`
	RegionName  string `json:"region_name"`
	Products    int64  `json:"products"`
	Barcodes    int64  `json:"barcodes"`
	Downloads   int64  `json:"downloads"`
	PostalCodes int64  `json:"postal_codes"`
}

// Summary is the system-wide statistics snapshot.
type Summary struct {
	Products    int64           `json:"products"`
	Barcodes    int64           `json:"barcodes"`
	Downloads   int64           `json:"downloads"`
	PostalCodes int64           `json:"postal_codes"`
	Regions     []RegionSummary `json:"regions"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// CacheStats describes the CEP cache and how resolutions have been served.
type CacheStats struct {
	PostalCodes   int64                       `json:"postal_codes"`
	ByRegion      []RegionCount               `json:"by_region"`
	Outcomes      map[ResolutionOutcome]int64 `json:"outcomes,omitempty"`
	CurrentMinute map[ResolutionOutcome]int64 `json:"current_minute,omitempty"`
	Source        string                      `json:"source"`
}
