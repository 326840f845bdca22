package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cepcode/backend/internal/domain"
)

// ProductRepo defines the persistence operations for Products.
// Soft-deleted products are invisible to every read.
type ProductRepo interface {
	// Create inserts a new product and returns the persisted record (with DB-generated
	// id, created_at, and updated_at populated).
	Create(ctx context.Context, p domain.Product) (domain.Product, error)

	// GetByID returns domain.ErrNotFound if the product does not exist or was deleted.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Product, error)

	// ListPaged returns one page of active products, newest first, and the
	// total count. Query is matched literally: % and _ are not wildcards.
	ListPaged(ctx context.Context, f domain.ProductFilter, p domain.PaginationParams) ([]domain.Product, int64, error)

	// Update overwrites the mutable fields of an existing product.
	Update(ctx context.Context, p domain.Product) (domain.Product, error)

	// Deactivate soft-deletes a product. Returns domain.ErrNotFound if it is
	// missing or already inactive.
	Deactivate(ctx context.Context, id uuid.UUID) error

	Count(ctx context.Context) (int64, error)
	CountByRegion(ctx context.Context) (map[int]int64, error)
}

type pgProductRepo struct {
	db db
}

// NewProductRepo constructs a ProductRepo backed by the provided db connection.
func NewProductRepo(db db) ProductRepo {
	return &pgProductRepo{db: db}
}

const productColumns = `id, name, description, postal_code, state, city, region_id, active, created_at, updated_at`

func (r *pgProductRepo) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	const q = `
		INSERT INTO products (name, description, postal_code, state, city, region_id)
		VALUES (@name, @description, @postal_code, @state, @city, @region_id)
		RETURNING ` + productColumns

	args := pgx.NamedArgs{
		"name":        p.Name,
		"description": p.Description,
		"postal_code": p.PostalCode,
		"state":       p.State,
		"city":        p.City,
		"region_id":   p.RegionID,
	}

	result, err := scanProduct(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Product{}, fmt.Errorf("repo.ProductRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	const q = `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = @id AND active`

	result, err := scanProduct(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Product{}, fmt.Errorf("repo.ProductRepo.GetByID: %w", notFound(err))
	}
	return result, nil
}

func (r *pgProductRepo) ListPaged(ctx context.Context, f domain.ProductFilter, p domain.PaginationParams) ([]domain.Product, int64, error) {
	const where = `
		WHERE active
		  AND (@region_id::int = 0 OR region_id = @region_id::int)
		  AND (@state::text = '' OR state = @state::text)
		  AND (@name_like::text = '' OR name ILIKE @name_like::text)`

	const countQ = `SELECT count(*) FROM products` + where

	const q = `
		SELECT ` + productColumns + `
		FROM products` + where + `
		ORDER BY created_at DESC, id
		LIMIT @limit OFFSET @offset`

	args := pgx.NamedArgs{
		"region_id": f.RegionID,
		"state":     f.State,
		"name_like": containsPattern(f.Query),
		"limit":     p.Limit,
		"offset":    p.Offset(),
	}

	var total int64
	if err := r.db.QueryRow(ctx, countQ, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.ProductRepo.ListPaged: count: %w", err)
	}

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ProductRepo.ListPaged: %w", err)
	}
	products, err := collect(rows, scanProduct)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ProductRepo.ListPaged: scan: %w", err)
	}
	return products, total, nil
}

func (r *pgProductRepo) Update(ctx context.Context, p domain.Product) (domain.Product, error) {
	const q = `
		UPDATE products
		SET name        = @name,
		    description = @description,
		    postal_code = @postal_code,
		    state       = @state,
		    city        = @city,
		    region_id   = @region_id,
		    updated_at  = now()
		WHERE id = @id AND active
		RETURNING ` + productColumns

	args := pgx.NamedArgs{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"postal_code": p.PostalCode,
		"state":       p.State,
		"city":        p.City,
		"region_id":   p.RegionID,
	}

	result, err := scanProduct(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Product{}, fmt.Errorf("repo.ProductRepo.Update: %w", notFound(err))
	}
	return result, nil
}

func (r *pgProductRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE products SET active = FALSE, updated_at = now() WHERE id = @id AND active`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.ProductRepo.Deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ProductRepo.Deactivate: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgProductRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM products WHERE active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo.ProductRepo.Count: %w", err)
	}
	return n, nil
}

func (r *pgProductRepo) CountByRegion(ctx context.Context) (map[int]int64, error) {
	const q = `SELECT region_id, count(*) FROM products WHERE active GROUP BY region_id`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.ProductRepo.CountByRegion: %w", err)
	}
	out, err := regionCounts(rows)
	if err != nil {
		return nil, fmt.Errorf("repo.ProductRepo.CountByRegion: rows: %w", err)
	}
	return out, nil
}

func scanProduct(s scanner) (domain.Product, error) {
	var (
		p  domain.Product
		id pgtype.UUID
	)
	err := s.Scan(&id, &p.Name, &p.Description, &p.PostalCode, &p.State, &p.City,
		&p.RegionID, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	p.ID = uuid.UUID(id.Bytes)
	p.Formatted = domain.FormatPostalCode(p.PostalCode)
	return p, nil
}
