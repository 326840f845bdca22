package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// BarcodeRequest is the body of POST /barcodes. RegionID overrides the
// product's region when set.
type BarcodeRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	RegionID  *int      `json:"region_id,omitempty" validate:"omitempty,oneof=1 2 3"`
}

// CreateBarcode handles POST /barcodes.
func (s *Server) CreateBarcode(w http.ResponseWriter, r *http.Request) {
	var body BarcodeRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	b, err := s.barcodes.Generate(r.Context(), body.ProductID, body.RegionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// ListBarcodes handles GET /barcodes?region_id=&page=&limit=.
func (s *Server) ListBarcodes(w http.ResponseWriter, r *http.Request) {
	region, ok := queryInt(w, r, "region_id")
	if !ok {
		return
	}
	p, ok := pagination(w, r)
	if !ok {
		return
	}

	page, err := s.barcodes.ListPaged(r.Context(), region, p)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetBarcode handles GET /barcodes/{id}.
func (s *Server) GetBarcode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	b, err := s.barcodes.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DeleteBarcode handles DELETE /barcodes/{id}.
func (s *Server) DeleteBarcode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := s.barcodes.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordBarcodeDownload handles POST /barcodes/{id}/downloads.
func (s *Server) RecordBarcodeDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	b, err := s.barcodes.RecordDownload(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// GetBarcodeByCode handles GET /barcodes/code/{code}.
func (s *Server) GetBarcodeByCode(w http.ResponseWriter, r *http.Request) {
	b, err := s.barcodes.GetByFullCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ValidateBarcode handles GET /barcodes/validate/{code}. Always 200.
func (s *Server) ValidateBarcode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.barcodes.Validate(chi.URLParam(r, "code")))
}

// ScanBarcode handles GET /barcodes/scan/{code}. Invalid codes are a 400 so a
// sorter never acts on the fallback region.
func (s *Server) ScanBarcode(w http.ResponseWriter, r *http.Request) {
	res, err := s.barcodes.Scan(chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
