package service_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cepcode/backend/internal/domain"
	"github.com/cepcode/backend/internal/repo"
	"github.com/cepcode/backend/internal/service"
)

// memCache is an in-memory repo.PostalCodeRepo. Set getErr / putErr to make
// the corresponding calls fail.
type memCache struct {
	mu     sync.Mutex
	rows   []domain.PostalRecord
	gets   int
	puts   int
	getErr error
	putErr error
}

func (m *memCache) Get(_ context.Context, code string) (domain.PostalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return domain.PostalRecord{}, m.getErr
	}
	for _, r := range m.rows {
		if r.PostalCode == code && r.Active {
			return r, nil
		}
	}
	return domain.PostalRecord{}, domain.ErrNotFound
}

func (m *memCache) Put(_ context.Context, rec domain.PostalRecord) (domain.PostalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return domain.PostalRecord{}, m.putErr
	}
	rec.ID = int64(len(m.rows) + 1)
	rec.Active = true
	rec.RawCode = ""
	rec.CreatedAt = time.Now()
	m.rows = append(m.rows, rec)
	return rec, nil
}

func (m *memCache) Deactivate(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.rows {
		if m.rows[i].PostalCode == code && m.rows[i].Active {
			m.rows[i].Active = false
			n++
		}
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (m *memCache) active() []domain.PostalRecord {
	var out []domain.PostalRecord
	for _, r := range m.rows {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

func (m *memCache) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.active())), nil
}

func (m *memCache) CountByRegion(context.Context) (map[int]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int]int64{}
	for _, r := range m.active() {
		out[r.RegionID]++
	}
	return out, nil
}

func (m *memCache) ListPaged(_ context.Context, state string, p domain.PaginationParams) ([]domain.PostalRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var match []domain.PostalRecord
	for _, r := range m.active() {
		if state == "" || r.State == state {
			match = append(match, r)
		}
	}
	lo := min(p.Offset(), len(match))
	hi := min(lo+p.Limit, len(match))
	return match[lo:hi], int64(len(match)), nil
}

// seed stores a record as if it had been resolved earlier.
func (m *memCache) seed(code, state string) {
	rec := domain.NewPostalRecord(code, code, domain.ExternalAddress{State: state, City: "Cidade"})
	_, _ = m.Put(context.Background(), rec)
	m.puts = 0
}

var _ repo.PostalCodeRepo = (*memCache)(nil)

// stubLookup counts calls and answers from a fixed table.
type stubLookup struct {
	mu        sync.Mutex
	calls     int
	requested []string
	byCEP     map[string]domain.ExternalAddress
	err       error
}

func (s *stubLookup) LookupPostalCode(_ context.Context, cep string) (domain.ExternalAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.requested = append(s.requested, cep)
	if s.err != nil {
		return domain.ExternalAddress{}, s.err
	}
	addr, ok := s.byCEP[cep]
	if !ok {
		return domain.ExternalAddress{}, domain.NewError(domain.ErrNotFound, "stub", "no such CEP", nil)
	}
	return addr, nil
}

var _ service.AddressLookup = (*stubLookup)(nil)

// recorderSpy collects resolution events.
type recorderSpy struct {
	mu     sync.Mutex
	events []domain.ResolutionEvent
	ctxs   []context.Context
	err    error
}

func (r *recorderSpy) Record(ctx context.Context, ev domain.ResolutionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	r.ctxs = append(r.ctxs, ctx)
	return r.err
}

func (r *recorderSpy) outcomes() []domain.ResolutionOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ResolutionOutcome, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Outcome)
	}
	return out
}

// mockProductRepo is a hand-written test double for repo.ProductRepo.
// Each method is a function field: set only the ones your test needs.
type mockProductRepo struct {
	create        func(ctx context.Context, p domain.Product) (domain.Product, error)
	getByID       func(ctx context.Context, id uuid.UUID) (domain.Product, error)
	listPaged     func(ctx context.Context, f domain.ProductFilter, p domain.PaginationParams) ([]domain.Product, int64, error)
	update        func(ctx context.Context, p domain.Product) (domain.Product, error)
	deactivate    func(ctx context.Context, id uuid.UUID) error
	count         func(ctx context.Context) (int64, error)
	countByRegion func(ctx context.Context) (map[int]int64, error)
}

func (m *mockProductRepo) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	return m.create(ctx, p)
}
func (m *mockProductRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	return m.getByID(ctx, id)
}
func (m *mockProductRepo) ListPaged(ctx context.Context, f domain.ProductFilter, p domain.PaginationParams) ([]domain.Product, int64, error) {
	return m.listPaged(ctx, f, p)
}
func (m *mockProductRepo) Update(ctx context.Context, p domain.Product) (domain.Product, error) {
	return m.update(ctx, p)
}
func (m *mockProductRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return m.deactivate(ctx, id)
}
func (m *mockProductRepo) Count(ctx context.Context) (int64, error) {
	return m.count(ctx)
}
func (m *mockProductRepo) CountByRegion(ctx context.Context) (map[int]int64, error) {
	return m.countByRegion(ctx)
}

// compile-time check: mockProductRepo must satisfy repo.ProductRepo.
var _ repo.ProductRepo = (*mockProductRepo)(nil)

// memBarcodes is an in-memory repo.BarcodeRepo that enforces the same unique
// constraints as the database.
type memBarcodes struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]domain.Barcode
	bases     map[string]bool
	fulls     map[string]bool
	creates   int
	conflicts int
	// existsLies makes ExistsBase report false even for taken bases, so the
	// insert-time conflict path is exercised.
	existsLies bool
}

func newMemBarcodes() *memBarcodes {
	return &memBarcodes{
		byID:  map[uuid.UUID]domain.Barcode{},
		bases: map[string]bool{},
		fulls: map[string]bool{},
	}
}

var errUniqueViolation = errors.New("unique violation")

func (m *memBarcodes) Create(_ context.Context, b domain.Barcode) (domain.Barcode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.bases[b.BaseCode] || m.fulls[b.FullCode] {
		m.conflicts++
		return domain.Barcode{}, errors.Join(domain.ErrConflict, errUniqueViolation)
	}
	b.ID = uuid.New()
	b.Active = true
	b.CreatedAt = time.Now()
	m.byID[b.ID] = b
	m.bases[b.BaseCode] = true
	m.fulls[b.FullCode] = true
	return b, nil
}

func (m *memBarcodes) ExistsBase(_ context.Context, base string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsLies {
		return false, nil
	}
	return m.bases[base], nil
}

func (m *memBarcodes) GetByID(_ context.Context, id uuid.UUID) (domain.Barcode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byID[id]
	if !ok || !b.Active {
		return domain.Barcode{}, domain.ErrNotFound
	}
	return b, nil
}

func (m *memBarcodes) GetByFullCode(_ context.Context, full string) (domain.Barcode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.byID {
		if b.FullCode == full && b.Active {
			return b, nil
		}
	}
	return domain.Barcode{}, domain.ErrNotFound
}

func (m *memBarcodes) ListByProduct(_ context.Context, productID uuid.UUID) ([]domain.Barcode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Barcode
	for _, b := range m.byID {
		if b.ProductID == productID && b.Active {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b domain.Barcode) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *memBarcodes) ListPaged(_ context.Context, regionID int, p domain.PaginationParams) ([]domain.Barcode, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Barcode
	for _, b := range m.byID {
		if b.Active && (regionID == 0 || b.RegionID == regionID) {
			all = append(all, b)
		}
	}
	slices.SortFunc(all, func(a, b domain.Barcode) int { return b.CreatedAt.Compare(a.CreatedAt) })
	start := min(p.Offset(), len(all))
	end := min(start+p.Limit, len(all))
	return all[start:end], int64(len(all)), nil
}

func (m *memBarcodes) RecordDownload(_ context.Context, id uuid.UUID) (domain.Barcode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byID[id]
	if !ok || !b.Active {
		return domain.Barcode{}, domain.ErrNotFound
	}
	now := time.Now()
	b.Downloads++
	b.LastDownloadAt = &now
	m.byID[id] = b
	return b, nil
}

func (m *memBarcodes) Deactivate(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byID[id]
	if !ok || !b.Active {
		return domain.ErrNotFound
	}
	b.Active = false
	m.byID[id] = b
	return nil
}

func (m *memBarcodes) Totals(context.Context) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count, downloads int64
	for _, b := range m.byID {
		if b.Active {
			count++
			downloads += b.Downloads
		}
	}
	return count, downloads, nil
}

func (m *memBarcodes) TotalsByRegion(context.Context) (map[int]int64, map[int]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts, downloads := map[int]int64{}, map[int]int64{}
	for _, b := range m.byID {
		if b.Active {
			counts[b.RegionID]++
			downloads[b.RegionID] += b.Downloads
		}
	}
	return counts, downloads, nil
}

var _ repo.BarcodeRepo = (*memBarcodes)(nil)
