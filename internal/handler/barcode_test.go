package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepcode/backend/internal/domain"
	"github.com/cepcode/backend/internal/handler"
)

func barcodeServer(m *mockBarcodeServicer) *handler.Server {
	return handler.NewServer(nil, nil, m, nil)
}

func barcodeFixture() domain.Barcode {
	return domain.Barcode{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		BaseCode:  "ABCDEFGHJK12",
		FullCode:  "3ABCDEFGHJK12",
		RegionID:  domain.RegionSouthSoutheast,
		Format:    domain.DefaultBarcodeFormat,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}

// ---- GET /barcodes ---------------------------------------------------------

func TestListBarcodes_200(t *testing.T) {
	var (
		gotRegion *int
		gotPage   domain.PaginationParams
	)
	m := &mockBarcodeServicer{
		listPaged: func(_ context.Context, region *int, p domain.PaginationParams) (domain.Page[domain.Barcode], error) {
			gotRegion, gotPage = region, p
			return domain.NewPage([]domain.Barcode{barcodeFixture()}, 41, p), nil
		},
	}

	rec := serve(barcodeServer(m), http.MethodGet, "/barcodes?region_id=3&page=2&limit=20", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotRegion)
	assert.Equal(t, 3, *gotRegion)
	assert.Equal(t, domain.PaginationParams{Page: 2, Limit: 20}, gotPage)
	resp := decodeJSON[domain.Page[domain.Barcode]](t, rec)
	assert.Equal(t, int64(41), resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "3ABCDEFGHJK12", resp.Items[0].FullCode)
}

func TestListBarcodes_allRegions(t *testing.T) {
	called := false
	m := &mockBarcodeServicer{
		listPaged: func(_ context.Context, region *int, p domain.PaginationParams) (domain.Page[domain.Barcode], error) {
			called = true
			assert.Nil(t, region)
			return domain.NewPage[domain.Barcode](nil, 0, p), nil
		},
	}

	rec := serve(barcodeServer(m), http.MethodGet, "/barcodes", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestListBarcodes_errors(t *testing.T) {
	m := &mockBarcodeServicer{
		listPaged: func(context.Context, *int, domain.PaginationParams) (domain.Page[domain.Barcode], error) {
			return domain.Page[domain.Barcode]{}, domain.NewError(domain.ErrValidation, "test", "region_id must be 1, 2 or 3", nil)
		},
	}

	rec := serve(barcodeServer(m), http.MethodGet, "/barcodes?region_id=9", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "region_id must be 1, 2 or 3", decodeError(t, rec).Error.Message)

	rec = serve(barcodeServer(m), http.MethodGet, "/barcodes?region_id=north", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---- POST /barcodes --------------------------------------------------------

func TestCreateBarcode_201(t *testing.T) {
	fixture := barcodeFixture()
	var gotRegion *int
	m := &mockBarcodeServicer{
		generate: func(_ context.Context, productID uuid.UUID, region *int) (domain.Barcode, error) {
			gotRegion = region
			fixture.ProductID = productID
			return fixture, nil
		},
	}

	productID := uuid.New()
	rec := serve(barcodeServer(m), http.MethodPost, "/barcodes", jsonBody(t, map[string]any{"product_id": productID}))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, gotRegion)
	resp := decodeJSON[domain.Barcode](t, rec)
	assert.Equal(t, productID, resp.ProductID)
	assert.Equal(t, "3ABCDEFGHJK12", resp.FullCode)
}

func TestCreateBarcode_regionOverride(t *testing.T) {
	var gotRegion *int
	m := &mockBarcodeServicer{
		generate: func(_ context.Context, _ uuid.UUID, region *int) (domain.Barcode, error) {
			gotRegion = region
			return barcodeFixture(), nil
		},
	}

	body := jsonBody(t, map[string]any{"product_id": uuid.New(), "region_id": 2})
	rec := serve(barcodeServer(m), http.MethodPost, "/barcodes", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, gotRegion)
	assert.Equal(t, 2, *gotRegion)
}

func TestCreateBarcode_422(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing product", map[string]any{}},
		{"nil product", map[string]any{"product_id": uuid.Nil}},
		{"bad product id", map[string]any{"product_id": "nope"}},
		{"region out of range", map[string]any{"product_id": uuid.New(), "region_id": 7}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := &mockBarcodeServicer{
				generate: func(context.Context, uuid.UUID, *int) (domain.Barcode, error) {
					t.Fatal("service must not be called")
					return domain.Barcode{}, nil
				},
			}

			rec := serve(barcodeServer(m), http.MethodPost, "/barcodes", jsonBody(t, tc.body))

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
}

func TestCreateBarcode_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"product missing", fmt.Errorf("service.BarcodeService.Generate: %w", domain.ErrNotFound), http.StatusNotFound},
		{"attempts exhausted", domain.NewError(domain.ErrConflict, "op", "no unused code after 10 attempts", nil), http.StatusConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := &mockBarcodeServicer{
				generate: func(context.Context, uuid.UUID, *int) (domain.Barcode, error) {
					return domain.Barcode{}, tc.err
				},
			}

			rec := serve(barcodeServer(m), http.MethodPost, "/barcodes", jsonBody(t, map[string]any{"product_id": uuid.New()}))

			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

// ---- GET/DELETE /barcodes/{id} ---------------------------------------------

func TestGetBarcode(t *testing.T) {
	fixture := barcodeFixture()
	m := &mockBarcodeServicer{
		getByID: func(_ context.Context, id uuid.UUID) (domain.Barcode, error) {
			if id != fixture.ID {
				return domain.Barcode{}, domain.ErrNotFound
			}
			return fixture, nil
		},
	}
	srv := barcodeServer(m)

	rec := serve(srv, http.MethodGet, "/barcodes/"+fixture.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fixture.FullCode, decodeJSON[domain.Barcode](t, rec).FullCode)

	rec = serve(srv, http.MethodGet, "/barcodes/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteBarcode_204(t *testing.T) {
	m := &mockBarcodeServicer{
		delete: func(context.Context, uuid.UUID) error { return nil },
	}

	rec := serve(barcodeServer(m), http.MethodDelete, "/barcodes/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecordBarcodeDownload(t *testing.T) {
	fixture := barcodeFixture()
	m := &mockBarcodeServicer{
		recordDownload: func(context.Context, uuid.UUID) (domain.Barcode, error) {
			now := time.Now().UTC()
			fixture.Downloads++
			fixture.LastDownloadAt = &now
			return fixture, nil
		},
	}

	rec := serve(barcodeServer(m), http.MethodPost, "/barcodes/"+fixture.ID.String()+"/downloads", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON[domain.Barcode](t, rec)
	assert.Equal(t, int64(1), resp.Downloads)
	assert.NotNil(t, resp.LastDownloadAt)
}

// ---- GET /barcodes/code/{code} ---------------------------------------------

func TestGetBarcodeByCode(t *testing.T) {
	var got string
	m := &mockBarcodeServicer{
		getByFullCode: func(_ context.Context, code string) (domain.Barcode, error) {
			got = code
			return barcodeFixture(), nil
		},
	}

	rec := serve(barcodeServer(m), http.MethodGet, "/barcodes/code/3abcdefghjk12", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3abcdefghjk12", got)
}

// ---- GET /barcodes/validate/{code} and /scan/{code} ------------------------

func TestValidateBarcode_alwaysOK(t *testing.T) {
	m := &mockBarcodeServicer{
		validate: func(code string) domain.ScanResult {
			return domain.ScanResult{Code: code, Valid: false, Reason: "wrong_length", RegionID: 1, RegionName: "North/Northeast"}
		},
	}

	rec := serve(barcodeServer(m), http.MethodGet, "/barcodes/validate/9XYZ", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON[domain.ScanResult](t, rec)
	assert.False(t, resp.Valid)
	assert.Equal(t, "wrong_length", resp.Reason)
	assert.Equal(t, 1, resp.RegionID)
}

func TestScanBarcode(t *testing.T) {
	m := &mockBarcodeServicer{
		scan: func(code string) (domain.ScanResult, error) {
			if code == "2ABCDEFGHJK12" {
				return domain.ScanResult{Code: code, Valid: true, RegionID: 2, RegionName: "Central-West"}, nil
			}
			return domain.ScanResult{Code: code, Reason: "bad_region_digit", RegionID: 1},
				domain.NewError(domain.ErrInvalidFormat, "op", "invalid code: bad_region_digit", nil)
		},
	}
	srv := barcodeServer(m)

	rec := serve(srv, http.MethodGet, "/barcodes/scan/2ABCDEFGHJK12", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeJSON[domain.ScanResult](t, rec).RegionID)

	rec = serve(srv, http.MethodGet, "/barcodes/scan/9ABCDEFGHJK12", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid code: bad_region_digit", decodeError(t, rec).Error.Message)
}
