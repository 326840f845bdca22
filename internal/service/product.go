package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cepcode/backend/internal/domain"
	"github.com/cepcode/backend/internal/repo"
)

// Product field limits.
const (
	MinProductNameLen    = 2
	MaxProductNameLen    = 200
	MaxProductDescLength = 1000
)

// PostalResolver is the part of Resolver the product service needs.
type PostalResolver interface {
	Resolve(ctx context.Context, raw string) (domain.PostalRecord, error)
}

// ProductInput carries the client-supplied fields of a product.
type ProductInput struct {
	Name        string
	Description string
	PostalCode  string
}

// ProductService implements business logic for Product operations.
type ProductService struct {
	repo     repo.ProductRepo
	resolver PostalResolver
	strict   bool
}

type ProductOption func(*ProductService)

// WithStrictRegion makes Create and Update reject a CEP whose state has no
// region mapping instead of routing it to the default region.
func WithStrictRegion(strict bool) ProductOption {
	return func(s *ProductService) { s.strict = strict }
}

// NewProductService constructs a ProductService.
func NewProductService(r repo.ProductRepo, resolver PostalResolver, opts ...ProductOption) *ProductService {
	s := &ProductService{repo: r, resolver: resolver}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates in, resolves its CEP and persists the product. State, city
// and region come from the resolved CEP, never from the client.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (domain.Product, error) {
	const op = "service.ProductService.Create"

	name, desc, err := validateProductInput(in)
	if err != nil {
		return domain.Product{}, err
	}

	rec, err := s.resolve(ctx, op, in.PostalCode)
	if err != nil {
		return domain.Product{}, err
	}

	p := domain.Product{Name: name, Description: desc}
	if err := s.locate(op, &p, rec); err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// GetByID returns a single active product.
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("service.ProductService.GetByID: %w", err)
	}
	return p, nil
}

// ListPaged returns one page of products. A zero RegionID, empty State or
// blank Query means no filter on that field.
func (s *ProductService) ListPaged(ctx context.Context, f domain.ProductFilter, p domain.PaginationParams) (domain.Page[domain.Product], error) {
	f.Query = strings.TrimSpace(f.Query)
	if utf8.RuneCountInString(f.Query) > MaxProductNameLen {
		return domain.Page[domain.Product]{}, fmt.Errorf("%w: q must have at most %d characters", domain.ErrValidation, MaxProductNameLen)
	}
	if f.RegionID != 0 && !domain.IsValidRegion(f.RegionID) {
		return domain.Page[domain.Product]{}, fmt.Errorf("%w: region_id must be 1, 2 or 3", domain.ErrValidation)
	}
	if f.State != "" {
		if !domain.IsValidState(f.State) {
			return domain.Page[domain.Product]{}, fmt.Errorf("%w: unknown state %q", domain.ErrValidation, f.State)
		}
		f.State = strings.ToUpper(strings.TrimSpace(f.State))
	}

	items, total, err := s.repo.ListPaged(ctx, f, p)
	if err != nil {
		return domain.Page[domain.Product]{}, fmt.Errorf("service.ProductService.ListPaged: %w", err)
	}
	return domain.NewPage(items, total, p), nil
}

// Update replaces the name, description and CEP of a product. The CEP is
// only re-resolved when it changes.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, in ProductInput) (domain.Product, error) {
	const op = "service.ProductService.Update"

	name, desc, err := validateProductInput(in)
	if err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	existing.Name, existing.Description = name, desc

	code, err := domain.NormalizePostalCode(in.PostalCode)
	if err != nil {
		return domain.Product{}, domain.NewError(domain.ErrInvalidFormat, op, domain.Detail(err), nil)
	}
	if code != existing.PostalCode {
		rec, err := s.resolve(ctx, op, code)
		if err != nil {
			return domain.Product{}, err
		}
		if err := s.locate(op, &existing, rec); err != nil {
			return domain.Product{}, err
		}
	}

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// Delete soft-deletes a product.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("service.ProductService.Delete: %w", err)
	}
	return nil
}

// resolve maps an unknown CEP to a validation failure: for a product the CEP
// is user input, not a resource being fetched.
func (s *ProductService) resolve(ctx context.Context, op, raw string) (domain.PostalRecord, error) {
	rec, err := s.resolver.Resolve(ctx, raw)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.PostalRecord{}, domain.NewError(domain.ErrValidation, op, "CEP "+domain.FormatPostalCode(raw)+" does not exist", err)
	}
	return domain.PostalRecord{}, err
}

func (s *ProductService) locate(op string, p *domain.Product, rec domain.PostalRecord) error {
	region := domain.RegionFor(rec.State)
	if s.strict {
		var err error
		if region, err = domain.StrictRegionFor(rec.State); err != nil {
			return domain.NewError(domain.ErrValidation, op, "CEP state "+rec.State+" has no region", err)
		}
	}
	p.PostalCode = rec.PostalCode
	p.Formatted = domain.FormatPostalCode(rec.PostalCode)
	p.State = rec.State
	p.City = rec.City
	p.RegionID = region
	return nil
}

func validateProductInput(in ProductInput) (string, string, error) {
	name := strings.TrimSpace(in.Name)
	desc := strings.TrimSpace(in.Description)

	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return "", "", fmt.Errorf("%w: name is required", domain.ErrValidation)
	case n < MinProductNameLen:
		return "", "", fmt.Errorf("%w: name must have at least %d characters", domain.ErrValidation, MinProductNameLen)
	case n > MaxProductNameLen:
		return "", "", fmt.Errorf("%w: name must have at most %d characters", domain.ErrValidation, MaxProductNameLen)
	}
	if utf8.RuneCountInString(desc) > MaxProductDescLength {
		return "", "", fmt.Errorf("%w: description must have at most %d characters", domain.ErrValidation, MaxProductDescLength)
	}
	if strings.TrimSpace(in.PostalCode) == "" {
		return "", "", fmt.Errorf("%w: postal_code is required", domain.ErrValidation)
	}
	return name, desc, nil
}
