package handler

import (
	"net/http"

	"github.com/cepcode/backend/internal/domain"
	"github.com/cepcode/backend/internal/service"
)

// ProductRequest is the body of POST /products and PUT /products/{id}.
// State, city and region are never accepted from the client.
type ProductRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=1000"`
	PostalCode  string `json:"postal_code" validate:"required"`
}

func (p ProductRequest) input() service.ProductInput {
	return service.ProductInput{Name: p.Name, Description: p.Description, PostalCode: p.PostalCode}
}

// ProductResponse adds the derived region name to a product.
type ProductResponse struct {
	domain.Product
	RegionName string `json:"region_name"`
}

func productToResponse(p domain.Product) ProductResponse {
	return ProductResponse{Product: p, RegionName: p.RegionName()}
}

// CreateProduct handles POST /products.
func (s *Server) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var body ProductRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	created, err := s.products.Create(r.Context(), body.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, productToResponse(created))
}

// ListProducts handles GET /products?region_id=&state=&q=&page=&limit=.
func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	region, ok := queryInt(w, r, "region_id")
	if !ok {
		return
	}
	state, ok := queryString(w, r, "state")
	if !ok {
		return
	}
	query, ok := queryString(w, r, "q")
	if !ok {
		return
	}
	p, ok := pagination(w, r)
	if !ok {
		return
	}

	f := domain.ProductFilter{State: state, Query: query}
	if region != nil {
		f.RegionID = *region
	}
	page, err := s.products.ListPaged(r.Context(), f, p)
	if err != nil {
		respondError(w, r, err)
		return
	}

	data := make([]ProductResponse, len(page.Items))
	for i, item := range page.Items {
		data[i] = productToResponse(item)
	}
	writeJSON(w, http.StatusOK, domain.Page[ProductResponse]{
		Items:      data,
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

// GetProduct handles GET /products/{id}.
func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := s.products.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productToResponse(p))
}

// UpdateProduct handles PUT /products/{id}.
func (s *Server) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var body ProductRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	updated, err := s.products.Update(r.Context(), id, body.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productToResponse(updated))
}

// DeleteProduct handles DELETE /products/{id}. Products are soft-deleted.
func (s *Server) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := s.products.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProductBarcodes handles GET /products/{id}/barcodes.
func (s *Server) ListProductBarcodes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	codes, err := s.barcodes.ListByProduct(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, codes)
}
