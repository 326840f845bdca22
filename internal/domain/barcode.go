package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultBarcodeFormat is the symbology used when none is configured.
const DefaultBarcodeFormat = "CODE128"

// Barcode is a stored region-tagged identifier assigned to a product.
// BaseCode is unique across all barcodes; FullCode is derived from RegionID
// and BaseCode and is never regenerated on its own.
type Barcode struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	BaseCode       string     `json:"base_code"`
	FullCode       string     `json:"full_code"`
	RegionID       int        `json:"region_id"`
	Format         string     `json:"format"`
	Downloads      int64      `json:"downloads"`
	LastDownloadAt *time.Time `json:"last_download_at,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ScanResult is what a scanner (and the sorting actuator behind it) needs from
// a code: the region id, which is always in {1,2,3}.
type ScanResult struct {
	Code       string `json:"code"`
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	RegionID   int    `json:"region_id"`
	RegionName string `json:"region_name"`
}
