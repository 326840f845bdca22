package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is an item routed by the region of its destination CEP.
// State, City and RegionID are copied from the resolved PostalRecord when the
// product is created or its CEP changes.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PostalCode  string    `json:"postal_code"`
	Formatted   string    `json:"formatted_postal_code"`
	State       string    `json:"state"`
	City        string    `json:"city"`
	RegionID    int       `json:"region_id"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RegionName returns the display name of the product's region.
func (p Product) RegionName() string {
	return RegionName(p.RegionID)
}

// ProductFilter narrows product listings. Zero fields do not filter.
type ProductFilter struct {
	RegionID int
	State    string
	// Query matches a substring of the name, case-insensitively.
	Query string
}
