package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/cepcode/backend/internal/domain"
	"github.com/cepcode/backend/internal/repo"
)

// DefaultMaxAttempts bounds the generate-check-insert loop.
const DefaultMaxAttempts = 10

// BarcodeService issues and reads region-tagged product codes.
type BarcodeService struct {
	repo        repo.BarcodeRepo
	products    repo.ProductRepo
	codec       domain.IdentifierCodec
	maxAttempts int
	format      string
}

type BarcodeOption func(*BarcodeService)

// WithCodec replaces the default crypto/rand codec.
func WithCodec(c domain.IdentifierCodec) BarcodeOption {
	return func(s *BarcodeService) { s.codec = c }
}

func WithMaxAttempts(n int) BarcodeOption {
	return func(s *BarcodeService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithFormat(format string) BarcodeOption {
	return func(s *BarcodeService) {
		if format != "" {
			s.format = format
		}
	}
}

func NewBarcodeService(r repo.BarcodeRepo, products repo.ProductRepo, opts ...BarcodeOption) *BarcodeService {
	s := &BarcodeService{
		repo:        r,
		products:    products,
		maxAttempts: DefaultMaxAttempts,
		format:      domain.DefaultBarcodeFormat,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate issues a new code for a product. The region defaults to the
// product's own; a non-nil region overrides it and must be 1, 2 or 3.
//
// A candidate base that is already taken, or that loses an insert race, is
// discarded and a new one drawn, up to the configured number of attempts.
func (s *BarcodeService) Generate(ctx context.Context, productID uuid.UUID, region *int) (domain.Barcode, error) {
	const op = "service.BarcodeService.Generate"

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return domain.Barcode{}, fmt.Errorf("%s: %w", op, err)
	}

	regionID := product.RegionID
	if region != nil {
		if !domain.IsValidRegion(*region) {
			return domain.Barcode{}, domain.NewError(domain.ErrValidation, op, "region_id must be 1, 2 or 3", nil)
		}
		regionID = *region
	}

	for range s.maxAttempts {
		base, err := s.codec.GenerateBase()
		if err != nil {
			return domain.Barcode{}, fmt.Errorf("%s: %w", op, err)
		}

		taken, err := s.repo.ExistsBase(ctx, base)
		if err != nil {
			return domain.Barcode{}, fmt.Errorf("%s: %w", op, err)
		}
		if taken {
			continue
		}

		created, err := s.repo.Create(ctx, domain.Barcode{
			ProductID: product.ID,
			BaseCode:  base,
			FullCode:  s.codec.Encode(regionID, base),
			RegionID:  regionID,
			Format:    s.format,
		})
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			return domain.Barcode{}, fmt.Errorf("%s: %w", op, err)
		}
		return created, nil
	}

	return domain.Barcode{}, domain.NewError(domain.ErrConflict, op,
		"no unused code after "+strconv.Itoa(s.maxAttempts)+" attempts", nil)
}

func (s *BarcodeService) GetByID(ctx context.Context, id uuid.UUID) (domain.Barcode, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Barcode{}, fmt.Errorf("service.BarcodeService.GetByID: %w", err)
	}
	return b, nil
}

// GetByFullCode looks up a stored code. Input is trimmed and upper-cased and
// must be structurally valid.
func (s *BarcodeService) GetByFullCode(ctx context.Context, code string) (domain.Barcode, error) {
	const op = "service.BarcodeService.GetByFullCode"

	full := domain.CanonicalCode(code)
	if err := s.codec.Validate(full); err != nil {
		return domain.Barcode{}, domain.NewError(domain.ErrInvalidFormat, op, err.Error(), err)
	}
	b, err := s.repo.GetByFullCode(ctx, full)
	if err != nil {
		return domain.Barcode{}, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// ListByProduct returns the active codes of an active product.
func (s *BarcodeService) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.Barcode, error) {
	const op = "service.BarcodeService.ListByProduct"

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if list == nil {
		list = []domain.Barcode{}
	}
	return list, nil
}

// ListPaged returns one page of active codes across all products. A nil
// region lists every region.
func (s *BarcodeService) ListPaged(ctx context.Context, region *int, p domain.PaginationParams) (domain.Page[domain.Barcode], error) {
	const op = "service.BarcodeService.ListPaged"

	regionID := 0
	if region != nil {
		if !domain.IsValidRegion(*region) {
			return domain.Page[domain.Barcode]{}, domain.NewError(domain.ErrValidation, op, "region_id must be 1, 2 or 3", nil)
		}
		regionID = *region
	}
	items, total, err := s.repo.ListPaged(ctx, regionID, p)
	if err != nil {
		return domain.Page[domain.Barcode]{}, fmt.Errorf("%s: %w", op, err)
	}
	return domain.NewPage(items, total, p), nil
}

// RecordDownload counts one download of a code's rendered image.
func (s *BarcodeService) RecordDownload(ctx context.Context, id uuid.UUID) (domain.Barcode, error) {
	b, err := s.repo.RecordDownload(ctx, id)
	if err != nil {
		return domain.Barcode{}, fmt.Errorf("service.BarcodeService.RecordDownload: %w", err)
	}
	return b, nil
}

// Delete soft-deletes a code. Its base stays reserved.
func (s *BarcodeService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("service.BarcodeService.Delete: %w", err)
	}
	return nil
}

// Validate reports whether code is structurally valid. It never fails; an
// invalid code carries the reason and the fallback region.
func (s *BarcodeService) Validate(code string) domain.ScanResult {
	return ValidateCode(s.codec, code)
}

// ValidateCode is Validate without a service, for offline tools.
func ValidateCode(codec domain.IdentifierCodec, code string) domain.ScanResult {
	full := domain.CanonicalCode(code)
	region := codec.ExtractRegion(full)
	res := domain.ScanResult{
		Code:       full,
		Valid:      true,
		RegionID:   region,
		RegionName: domain.RegionName(region),
	}
	if err := codec.Validate(full); err != nil {
		res.Valid = false
		var ce *domain.CodeError
		if errors.As(err, &ce) {
			res.Reason = string(ce.Reason)
		}
	}
	return res
}

// Scan returns the delivery region for a scanned code. Unlike Validate it
// refuses invalid codes so a sorter never routes on a fallback region.
func (s *BarcodeService) Scan(code string) (domain.ScanResult, error) {
	res := s.Validate(code)
	if !res.Valid {
		return res, domain.NewError(domain.ErrInvalidFormat, "service.BarcodeService.Scan", "invalid code: "+res.Reason, nil)
	}
	return res, nil
}
