// Package service contains the business logic for the CEP region API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here: services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/cepcode/backend/internal/domain"
	"github.com/cepcode/backend/internal/logging"
	"github.com/cepcode/backend/internal/repo"
)

// AddressLookup answers which address a CEP belongs to. A definitive miss is
// domain.ErrNotFound; anything else is treated as a transport failure.
type AddressLookup interface {
	LookupPostalCode(ctx context.Context, cep string) (domain.ExternalAddress, error)
}

// ResolutionRecorder receives one event per Resolve call.
type ResolutionRecorder interface {
	Record(ctx context.Context, ev domain.ResolutionEvent) error
}

// Resolver turns a raw CEP into a PostalRecord, reading through the local
// cache and falling back to the external lookup on a miss.
type Resolver struct {
	cache    repo.PostalCodeRepo
	lookup   AddressLookup
	recorder ResolutionRecorder
	now      func() time.Time
}

type ResolverOption func(*Resolver)

// WithRecorder attaches a best-effort outcome recorder.
func WithRecorder(r ResolutionRecorder) ResolverOption {
	return func(s *Resolver) { s.recorder = r }
}

// NewResolver constructs a Resolver over the given cache and lookup.
func NewResolver(cache repo.PostalCodeRepo, lookup AddressLookup, opts ...ResolverOption) *Resolver {
	s := &Resolver{cache: cache, lookup: lookup, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve normalizes raw and returns its record.
//
// Malformed input fails with domain.ErrInvalidFormat before any I/O. A cache
// hit returns without calling the lookup. On a miss the lookup result is
// classified locally and written back; a failed write is logged and the
// record is still returned. An upstream miss is domain.ErrNotFound and is not
// cached. A failed lookup is domain.ErrTransport and a failed cache read is
// domain.ErrStorage.
func (s *Resolver) Resolve(ctx context.Context, raw string) (domain.PostalRecord, error) {
	const op = "service.Resolver.Resolve"

	code, err := domain.NormalizePostalCode(raw)
	if err != nil {
		s.record(ctx, domain.OutcomeInvalid, domain.PostalRecord{})
		return domain.PostalRecord{}, domain.NewError(domain.ErrInvalidFormat, op, domain.Detail(err), nil)
	}

	cached, err := s.cache.Get(ctx, code)
	switch {
	case err == nil:
		cached.RawCode = raw
		s.record(ctx, domain.OutcomeCacheHit, cached)
		return cached, nil
	case !errors.Is(err, domain.ErrNotFound):
		s.record(ctx, domain.OutcomeStorageError, domain.PostalRecord{})
		return domain.PostalRecord{}, domain.NewError(domain.ErrStorage, op, "cache read failed", err)
	}

	formatted := domain.FormatPostalCode(code)
	addr, err := s.lookup.LookupPostalCode(ctx, formatted)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.record(ctx, domain.OutcomeNotFound, domain.PostalRecord{})
			return domain.PostalRecord{}, domain.NewError(domain.ErrNotFound, op, "CEP "+formatted+" does not exist", err)
		}
		s.record(ctx, domain.OutcomeTransportError, domain.PostalRecord{})
		return domain.PostalRecord{}, domain.NewError(domain.ErrTransport, op, "address lookup failed", err)
	}

	fresh := domain.NewPostalRecord(raw, code, addr)
	saved, err := s.cache.Put(ctx, fresh)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "cep cache write failed",
			"cep", code,
			"state", fresh.State,
			"error", err,
		)
		s.record(ctx, domain.OutcomeCacheWriteError, fresh)
		return fresh, nil
	}

	saved.RawCode = raw
	s.record(ctx, domain.OutcomeCacheMiss, saved)
	return saved, nil
}

// Invalidate soft-deletes the cached record for raw so the next Resolve goes
// upstream again.
func (s *Resolver) Invalidate(ctx context.Context, raw string) error {
	const op = "service.Resolver.Invalidate"

	code, err := domain.NormalizePostalCode(raw)
	if err != nil {
		return domain.NewError(domain.ErrInvalidFormat, op, domain.Detail(err), nil)
	}
	if err := s.cache.Deactivate(ctx, code); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewError(domain.ErrNotFound, op, "CEP "+domain.FormatPostalCode(code)+" is not cached", err)
		}
		return domain.NewError(domain.ErrStorage, op, "cache update failed", err)
	}
	return nil
}

// List returns one page of cached records, optionally for a single state.
func (s *Resolver) List(ctx context.Context, state string, p domain.PaginationParams) (domain.Page[domain.PostalRecord], error) {
	const op = "service.Resolver.List"

	if state != "" {
		if !domain.IsValidState(state) {
			return domain.Page[domain.PostalRecord]{}, domain.NewError(domain.ErrValidation, op, "unknown state "+state, nil)
		}
		state = domain.CanonicalCode(state)
	}

	recs, total, err := s.cache.ListPaged(ctx, state, p)
	if err != nil {
		return domain.Page[domain.PostalRecord]{}, domain.NewError(domain.ErrStorage, op, "cache read failed", err)
	}
	return domain.NewPage(recs, total, p), nil
}

// recordTimeout bounds one counter write.
const recordTimeout = 2 * time.Second

// record is best-effort: a failing recorder never affects the resolution.
// The write outlives the request so a client hanging up right after a
// resolution still gets it counted.
func (s *Resolver) record(ctx context.Context, outcome domain.ResolutionOutcome, rec domain.PostalRecord) {
	if s.recorder == nil {
		return
	}
	ev := domain.ResolutionEvent{Outcome: outcome, State: rec.State, RegionID: rec.RegionID, At: s.now()}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.recorder.Record(recCtx, ev); err != nil {
		logging.FromContext(ctx).DebugContext(ctx, "resolution stats not recorded", "outcome", outcome, "error", err)
	}
}
