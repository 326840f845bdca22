package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cepcode/backend/internal/domain"
	"github.com/cepcode/backend/internal/handler"
	"github.com/cepcode/backend/internal/service"
)

// Test doubles for the handler.*Servicer interfaces.
// Set only the method fields your test needs.

type mockCEPServicer struct {
	resolve    func(ctx context.Context, raw string) (domain.PostalRecord, error)
	invalidate func(ctx context.Context, raw string) error
	list       func(ctx context.Context, state string, p domain.PaginationParams) (domain.Page[domain.PostalRecord], error)
}

func (m *mockCEPServicer) Resolve(ctx context.Context, raw string) (domain.PostalRecord, error) {
	return m.resolve(ctx, raw)
}
func (m *mockCEPServicer) Invalidate(ctx context.Context, raw string) error {
	return m.invalidate(ctx, raw)
}
func (m *mockCEPServicer) List(ctx context.Context, state string, p domain.PaginationParams) (domain.Page[domain.PostalRecord], error) {
	return m.list(ctx, state, p)
}

type mockProductServicer struct {
	create    func(ctx context.Context, in service.ProductInput) (domain.Product, error)
	getByID   func(ctx context.Context, id uuid.UUID) (domain.Product, error)
	listPaged func(ctx context.Context, f domain.ProductFilter, p domain.PaginationParams) (domain.Page[domain.Product], error)
	update    func(ctx context.Context, id uuid.UUID, in service.ProductInput) (domain.Product, error)
	delete    func(ctx context.Context, id uuid.UUID) error
}

func (m *mockProductServicer) Create(ctx context.Context, in service.ProductInput) (domain.Product, error) {
	return m.create(ctx, in)
}
func (m *mockProductServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	return m.getByID(ctx, id)
}
func (m *mockProductServicer) ListPaged(ctx context.Context, f domain.ProductFilter, p domain.PaginationParams) (domain.Page[domain.Product], error) {
	return m.listPaged(ctx, f, p)
}
func (m *mockProductServicer) Update(ctx context.Context, id uuid.UUID, in service.ProductInput) (domain.Product, error) {
	return m.update(ctx, id, in)
}
func (m *mockProductServicer) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

type mockBarcodeServicer struct {
	generate       func(ctx context.Context, productID uuid.UUID, region *int) (domain.Barcode, error)
	getByID        func(ctx context.Context, id uuid.UUID) (domain.Barcode, error)
	getByFullCode  func(ctx context.Context, code string) (domain.Barcode, error)
	listByProduct  func(ctx context.Context, productID uuid.UUID) ([]domain.Barcode, error)
	listPaged      func(ctx context.Context, region *int, p domain.PaginationParams) (domain.Page[domain.Barcode], error)
	recordDownload func(ctx context.Context, id uuid.UUID) (domain.Barcode, error)
	delete         func(ctx context.Context, id uuid.UUID) error
	validate       func(code string) domain.ScanResult
	scan           func(code string) (domain.ScanResult, error)
}

func (m *mockBarcodeServicer) Generate(ctx context.Context, productID uuid.UUID, region *int) (domain.Barcode, error) {
	return m.generate(ctx, productID, region)
}
func (m *mockBarcodeServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Barcode, error) {
	return m.getByID(ctx, id)
}
func (m *mockBarcodeServicer) GetByFullCode(ctx context.Context, code string) (domain.Barcode, error) {
	return m.getByFullCode(ctx, code)
}
func (m *mockBarcodeServicer) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.Barcode, error) {
	return m.listByProduct(ctx, productID)
}
func (m *mockBarcodeServicer) ListPaged(ctx context.Context, region *int, p domain.PaginationParams) (domain.Page[domain.Barcode], error) {
	return m.listPaged(ctx, region, p)
}
func (m *mockBarcodeServicer) RecordDownload(ctx context.Context, id uuid.UUID) (domain.Barcode, error) {
	return m.recordDownload(ctx, id)
}
func (m *mockBarcodeServicer) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}
func (m *mockBarcodeServicer) Validate(code string) domain.ScanResult {
	return m.validate(code)
}
func (m *mockBarcodeServicer) Scan(code string) (domain.ScanResult, error) {
	return m.scan(code)
}

type mockStatsServicer struct {
	summary    func(ctx context.Context) (domain.Summary, error)
	cacheStats func(ctx context.Context) (domain.CacheStats, error)
}

func (m *mockStatsServicer) Summary(ctx context.Context) (domain.Summary, error) {
	return m.summary(ctx)
}
func (m *mockStatsServicer) CacheStats(ctx context.Context) (domain.CacheStats, error) {
	return m.cacheStats(ctx)
}

// compile-time checks: the mocks must satisfy the handler interfaces.
var (
	_ handler.CEPServicer     = (*mockCEPServicer)(nil)
	_ handler.ProductServicer = (*mockProductServicer)(nil)
	_ handler.BarcodeServicer = (*mockBarcodeServicer)(nil)
	_ handler.StatsServicer   = (*mockStatsServicer)(nil)

	// The real services must satisfy them too.
	_ handler.CEPServicer     = (*service.Resolver)(nil)
	_ handler.ProductServicer = (*service.ProductService)(nil)
	_ handler.BarcodeServicer = (*service.BarcodeService)(nil)
	_ handler.StatsServicer   = (*service.StatsService)(nil)
)

// ---- helpers ---------------------------------------------------------------

// serve runs one request through a fully routed Server, the same way main.go
// mounts it in production.
func serve(srv *handler.Server, method, target string, body *bytes.Buffer) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}
