package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cepcode/backend/internal/domain"
)

// BarcodeRepo defines the persistence operations for Barcodes.
type BarcodeRepo interface {
	// Create inserts a barcode. A base or full code that is already taken
	// returns domain.ErrConflict.
	Create(ctx context.Context, b domain.Barcode) (domain.Barcode, error)

	// ExistsBase reports whether any barcode, active or not, uses base.
	ExistsBase(ctx context.Context, base string) (bool, error)

	GetByID(ctx context.Context, id uuid.UUID) (domain.Barcode, error)
	GetByFullCode(ctx context.Context, full string) (domain.Barcode, error)

	// ListByProduct returns the active barcodes of a product, newest first.
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.Barcode, error)

	// ListPaged returns one page of active barcodes, newest first, and the
	// total count. A zero regionID means all regions.
	ListPaged(ctx context.Context, regionID int, p domain.PaginationParams) ([]domain.Barcode, int64, error)

	// RecordDownload increments the download counter and stamps last_download_at.
	RecordDownload(ctx context.Context, id uuid.UUID) (domain.Barcode, error)

	Deactivate(ctx context.Context, id uuid.UUID) error

	// Totals returns the number of active barcodes and their summed downloads.
	Totals(ctx context.Context) (count, downloads int64, err error)

	// TotalsByRegion is Totals grouped by region id.
	TotalsByRegion(ctx context.Context) (counts, downloads map[int]int64, err error)
}

type pgBarcodeRepo struct {
	db db
}

// NewBarcodeRepo constructs a BarcodeRepo backed by the provided db connection.
func NewBarcodeRepo(db db) BarcodeRepo {
	return &pgBarcodeRepo{db: db}
}

const barcodeColumns = `id, product_id, base_code, full_code, region_id, format, downloads, last_download_at, active, created_at`

func (r *pgBarcodeRepo) Create(ctx context.Context, b domain.Barcode) (domain.Barcode, error) {
	const q = `
		INSERT INTO barcodes (product_id, base_code, full_code, region_id, format)
		VALUES (@product_id, @base_code, @full_code, @region_id, @format)
		RETURNING ` + barcodeColumns

	args := pgx.NamedArgs{
		"product_id": b.ProductID,
		"base_code":  b.BaseCode,
		"full_code":  b.FullCode,
		"region_id":  b.RegionID,
		"format":     b.Format,
	}

	result, err := scanBarcode(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if constraint, ok := violatedConstraint(err); ok {
			return domain.Barcode{}, fmt.Errorf("repo.BarcodeRepo.Create: %w: %s", domain.ErrConflict, constraint)
		}
		return domain.Barcode{}, fmt.Errorf("repo.BarcodeRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgBarcodeRepo) ExistsBase(ctx context.Context, base string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM barcodes WHERE base_code = @base)`

	var exists bool
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"base": base}).Scan(&exists); err != nil {
		return false, fmt.Errorf("repo.BarcodeRepo.ExistsBase: %w", err)
	}
	return exists, nil
}

func (r *pgBarcodeRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Barcode, error) {
	const q = `SELECT ` + barcodeColumns + ` FROM barcodes WHERE id = @id AND active`

	result, err := scanBarcode(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Barcode{}, fmt.Errorf("repo.BarcodeRepo.GetByID: %w", notFound(err))
	}
	return result, nil
}

func (r *pgBarcodeRepo) GetByFullCode(ctx context.Context, full string) (domain.Barcode, error) {
	const q = `SELECT ` + barcodeColumns + ` FROM barcodes WHERE full_code = @full AND active`

	result, err := scanBarcode(r.db.QueryRow(ctx, q, pgx.NamedArgs{"full": full}))
	if err != nil {
		return domain.Barcode{}, fmt.Errorf("repo.BarcodeRepo.GetByFullCode: %w", notFound(err))
	}
	return result, nil
}

func (r *pgBarcodeRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.Barcode, error) {
	const q = `
		SELECT ` + barcodeColumns + `
		FROM barcodes
		WHERE product_id = @product_id AND active
		ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"product_id": productID})
	if err != nil {
		return nil, fmt.Errorf("repo.BarcodeRepo.ListByProduct: %w", err)
	}
	barcodes, err := collect(rows, scanBarcode)
	if err != nil {
		return nil, fmt.Errorf("repo.BarcodeRepo.ListByProduct: scan: %w", err)
	}
	return barcodes, nil
}

func (r *pgBarcodeRepo) ListPaged(ctx context.Context, regionID int, p domain.PaginationParams) ([]domain.Barcode, int64, error) {
	const where = `
		WHERE active
		  AND (@region_id::int = 0 OR region_id = @region_id::int)`

	const countQ = `SELECT count(*) FROM barcodes` + where

	const q = `
		SELECT ` + barcodeColumns + `
		FROM barcodes` + where + `
		ORDER BY created_at DESC, id
		LIMIT @limit OFFSET @offset`

	args := pgx.NamedArgs{
		"region_id": regionID,
		"limit":     p.Limit,
		"offset":    p.Offset(),
	}

	var total int64
	if err := r.db.QueryRow(ctx, countQ, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.BarcodeRepo.ListPaged: count: %w", err)
	}

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.BarcodeRepo.ListPaged: %w", err)
	}
	barcodes, err := collect(rows, scanBarcode)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.BarcodeRepo.ListPaged: scan: %w", err)
	}
	return barcodes, total, nil
}

func (r *pgBarcodeRepo) RecordDownload(ctx context.Context, id uuid.UUID) (domain.Barcode, error) {
	const q = `
		UPDATE barcodes
		SET downloads        = downloads + 1,
		    last_download_at = now()
		WHERE id = @id AND active
		RETURNING ` + barcodeColumns

	result, err := scanBarcode(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Barcode{}, fmt.Errorf("repo.BarcodeRepo.RecordDownload: %w", notFound(err))
	}
	return result, nil
}

func (r *pgBarcodeRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE barcodes SET active = FALSE WHERE id = @id AND active`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.BarcodeRepo.Deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.BarcodeRepo.Deactivate: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgBarcodeRepo) Totals(ctx context.Context) (int64, int64, error) {
	const q = `SELECT count(*), coalesce(sum(downloads), 0)::bigint FROM barcodes WHERE active`

	var count, downloads int64
	if err := r.db.QueryRow(ctx, q).Scan(&count, &downloads); err != nil {
		return 0, 0, fmt.Errorf("repo.BarcodeRepo.Totals: %w", err)
	}
	return count, downloads, nil
}

func (r *pgBarcodeRepo) TotalsByRegion(ctx context.Context) (map[int]int64, map[int]int64, error) {
	const q = `
		SELECT region_id, count(*), coalesce(sum(downloads), 0)::bigint
		FROM barcodes
		WHERE active
		GROUP BY region_id`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, nil, fmt.Errorf("repo.BarcodeRepo.TotalsByRegion: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int64, 3)
	downloads := make(map[int]int64, 3)
	for rows.Next() {
		var (
			id   int
			c, d int64
		)
		if err := rows.Scan(&id, &c, &d); err != nil {
			return nil, nil, fmt.Errorf("repo.BarcodeRepo.TotalsByRegion: scan: %w", err)
		}
		counts[id], downloads[id] = c, d
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("repo.BarcodeRepo.TotalsByRegion: rows: %w", err)
	}
	return counts, downloads, nil
}

func scanBarcode(s scanner) (domain.Barcode, error) {
	var (
		b            domain.Barcode
		id, product  pgtype.UUID
		lastDownload pgtype.Timestamptz
	)
	err := s.Scan(&id, &product, &b.BaseCode, &b.FullCode, &b.RegionID, &b.Format,
		&b.Downloads, &lastDownload, &b.Active, &b.CreatedAt)
	if err != nil {
		return domain.Barcode{}, err
	}
	b.ID = uuid.UUID(id.Bytes)
	b.ProductID = uuid.UUID(product.Bytes)
	if lastDownload.Valid {
		at := lastDownload.Time
		b.LastDownloadAt = &at
	}
	return b, nil
}
