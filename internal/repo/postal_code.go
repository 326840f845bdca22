package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cepcode/backend/internal/domain"
)

// PostalCodeRepo is the persistent CEP cache.
type PostalCodeRepo interface {
	// Get returns the oldest active record for a normalized CEP.
	// Returns domain.ErrNotFound on a miss.
	Get(ctx context.Context, code string) (domain.PostalRecord, error)

	// Put inserts a record and returns it with id and timestamps populated.
	// It does not check for an existing row.
	Put(ctx context.Context, rec domain.PostalRecord) (domain.PostalRecord, error)

	// Deactivate soft-deletes every active row for code.
	// Returns domain.ErrNotFound if there was none.
	Deactivate(ctx context.Context, code string) error

	Count(ctx context.Context) (int64, error)
	CountByRegion(ctx context.Context) (map[int]int64, error)

	// ListPaged returns one page of active records ordered by code, optionally
	// filtered by state, plus the total matching count.
	ListPaged(ctx context.Context, state string, p domain.PaginationParams) ([]domain.PostalRecord, int64, error)
}

type pgPostalCodeRepo struct {
	db db
}

// NewPostalCodeRepo constructs a PostalCodeRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPostalCodeRepo(db db) PostalCodeRepo {
	return &pgPostalCodeRepo{db: db}
}

const postalCodeColumns = `id, postal_code, formatted, state, city, neighborhood, street, region_id, source, active, created_at, updated_at`

func (r *pgPostalCodeRepo) Get(ctx context.Context, code string) (domain.PostalRecord, error) {
	const q = `
		SELECT ` + postalCodeColumns + `
		FROM postal_codes
		WHERE postal_code = @code AND active
		ORDER BY id
		LIMIT 1`

	rec, err := scanPostalRecord(r.db.QueryRow(ctx, q, pgx.NamedArgs{"code": code}))
	if err != nil {
		return domain.PostalRecord{}, fmt.Errorf("repo.PostalCodeRepo.Get: %w", notFound(err))
	}
	return rec, nil
}

func (r *pgPostalCodeRepo) Put(ctx context.Context, rec domain.PostalRecord) (domain.PostalRecord, error) {
	const q = `
		INSERT INTO postal_codes (postal_code, formatted, state, city, neighborhood, street, region_id, source, active)
		VALUES (@postal_code, @formatted, @state, @city, @neighborhood, @street, @region_id, @source, TRUE)
		RETURNING ` + postalCodeColumns

	source := rec.Source
	if source == "" {
		source = domain.SourceViaCEP
	}
	args := pgx.NamedArgs{
		"postal_code":  rec.PostalCode,
		"formatted":    domain.FormatPostalCode(rec.PostalCode),
		"state":        rec.State,
		"city":         rec.City,
		"neighborhood": rec.Neighborhood,
		"street":       rec.Street,
		"region_id":    rec.RegionID,
		"source":       source,
	}

	saved, err := scanPostalRecord(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.PostalRecord{}, fmt.Errorf("repo.PostalCodeRepo.Put: %w", err)
	}
	saved.RawCode = rec.RawCode
	return saved, nil
}

func (r *pgPostalCodeRepo) Deactivate(ctx context.Context, code string) error {
	const q = `
		UPDATE postal_codes
		SET active = FALSE, updated_at = now()
		WHERE postal_code = @code AND active`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"code": code})
	if err != nil {
		return fmt.Errorf("repo.PostalCodeRepo.Deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.PostalCodeRepo.Deactivate: %w", domain.ErrNotFound)
	}
	return nil
}

// Count returns the number of distinct active codes in the cache.
func (r *pgPostalCodeRepo) Count(ctx context.Context) (int64, error) {
	const q = `SELECT count(DISTINCT postal_code) FROM postal_codes WHERE active`

	var n int64
	if err := r.db.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo.PostalCodeRepo.Count: %w", err)
	}
	return n, nil
}

func (r *pgPostalCodeRepo) CountByRegion(ctx context.Context) (map[int]int64, error) {
	const q = `
		SELECT region_id, count(DISTINCT postal_code)
		FROM postal_codes
		WHERE active
		GROUP BY region_id`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.PostalCodeRepo.CountByRegion: %w", err)
	}
	out, err := regionCounts(rows)
	if err != nil {
		return nil, fmt.Errorf("repo.PostalCodeRepo.CountByRegion: rows: %w", err)
	}
	return out, nil
}

func (r *pgPostalCodeRepo) ListPaged(ctx context.Context, state string, p domain.PaginationParams) ([]domain.PostalRecord, int64, error) {
	const countQ = `
		SELECT count(*)
		FROM postal_codes
		WHERE active AND (@state::text = '' OR state = @state::text)`

	const q = `
		SELECT ` + postalCodeColumns + `
		FROM postal_codes
		WHERE active AND (@state::text = '' OR state = @state::text)
		ORDER BY postal_code, id
		LIMIT @limit OFFSET @offset`

	args := pgx.NamedArgs{"state": state, "limit": p.Limit, "offset": p.Offset()}

	var total int64
	if err := r.db.QueryRow(ctx, countQ, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.PostalCodeRepo.ListPaged: count: %w", err)
	}

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.PostalCodeRepo.ListPaged: %w", err)
	}
	recs, err := collect(rows, scanPostalRecord)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.PostalCodeRepo.ListPaged: scan: %w", err)
	}
	return recs, total, nil
}

func scanPostalRecord(s scanner) (domain.PostalRecord, error) {
	var rec domain.PostalRecord
	err := s.Scan(
		&rec.ID, &rec.PostalCode, &rec.Formatted, &rec.State, &rec.City,
		&rec.Neighborhood, &rec.Street, &rec.RegionID, &rec.Source, &rec.Active,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return domain.PostalRecord{}, err
	}
	rec.RegionName = domain.RegionName(rec.RegionID)
	return rec, nil
}
