package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cepcode/backend/internal/domain"
	"github.com/cepcode/backend/internal/logging"
	"github.com/cepcode/backend/internal/repo"
	"github.com/cepcode/backend/internal/stats"
)

// CountsSource is the read side of a stats.Recorder.
type CountsSource interface {
	Counts(ctx context.Context) (stats.Counts, error)
	Source() string
}

// MinuteSource is implemented by counter stores that keep per-minute buckets.
type MinuteSource interface {
	Bucket(ctx context.Context, at time.Time) (map[domain.ResolutionOutcome]int64, error)
}

// StatsService aggregates system-wide statistics.
type StatsService struct {
	products repo.ProductRepo
	barcodes repo.BarcodeRepo
	postal   repo.PostalCodeRepo
	counts   CountsSource
	now      func() time.Time
}

func NewStatsService(products repo.ProductRepo, barcodes repo.BarcodeRepo, postal repo.PostalCodeRepo, counts CountsSource) *StatsService {
	return &StatsService{products: products, barcodes: barcodes, postal: postal, counts: counts, now: time.Now}
}

// Summary returns totals of active products, barcodes, downloads and cached
// CEPs, overall and per region. Every region appears even when empty.
func (s *StatsService) Summary(ctx context.Context) (domain.Summary, error) {
	const op = "service.StatsService.Summary"

	products, err := s.products.Count(ctx)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("%s: %w", op, err)
	}
	productsByRegion, err := s.products.CountByRegion(ctx)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("%s: %w", op, err)
	}
	barcodes, downloads, err := s.barcodes.Totals(ctx)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("%s: %w", op, err)
	}
	barcodesByRegion, downloadsByRegion, err := s.barcodes.TotalsByRegion(ctx)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("%s: %w", op, err)
	}
	postal, err := s.postal.Count(ctx)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("%s: %w", op, err)
	}
	postalByRegion, err := s.postal.CountByRegion(ctx)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("%s: %w", op, err)
	}

	out := domain.Summary{
		Products:    products,
		Barcodes:    barcodes,
		Downloads:   downloads,
		PostalCodes: postal,
		Regions:     make([]domain.RegionSummary, 0, 3),
		GeneratedAt: s.now().UTC(),
	}
	for _, id := range domain.RegionIDs() {
		out.Regions = append(out.Regions, domain.RegionSummary{
			RegionID:    id,
			RegionName:  domain.RegionName(id),
			Products:    productsByRegion[id],
			Barcodes:    barcodesByRegion[id],
			Downloads:   downloadsByRegion[id],
			PostalCodes: postalByRegion[id],
		})
	}
	return out, nil
}

// CacheStats describes the CEP cache plus how resolutions have been served.
// CurrentMinute is filled when the counter store keeps per-minute buckets.
// A failing counter store degrades to cache figures only.
func (s *StatsService) CacheStats(ctx context.Context) (domain.CacheStats, error) {
	const op = "service.StatsService.CacheStats"

	total, err := s.postal.Count(ctx)
	if err != nil {
		return domain.CacheStats{}, fmt.Errorf("%s: %w", op, err)
	}
	byRegion, err := s.postal.CountByRegion(ctx)
	if err != nil {
		return domain.CacheStats{}, fmt.Errorf("%s: %w", op, err)
	}

	out := domain.CacheStats{PostalCodes: total, ByRegion: make([]domain.RegionCount, 0, 3)}
	for _, id := range domain.RegionIDs() {
		out.ByRegion = append(out.ByRegion, domain.RegionCount{RegionID: id, RegionName: domain.RegionName(id), Count: byRegion[id]})
	}

	if s.counts == nil {
		return out, nil
	}
	out.Source = s.counts.Source()
	c, err := s.counts.Counts(ctx)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "resolution counters unavailable", "source", out.Source, "error", err)
		return out, nil
	}
	out.Outcomes = everyOutcome(c.Outcomes)

	if ms, ok := s.counts.(MinuteSource); ok {
		bucket, err := ms.Bucket(ctx, s.now())
		if err != nil {
			logging.FromContext(ctx).WarnContext(ctx, "current minute counters unavailable", "source", out.Source, "error", err)
			return out, nil
		}
		out.CurrentMinute = everyOutcome(bucket)
	}
	return out, nil
}

// everyOutcome copies counts with a zero entry for each outcome never seen.
func everyOutcome(counts map[domain.ResolutionOutcome]int64) map[domain.ResolutionOutcome]int64 {
	out := make(map[domain.ResolutionOutcome]int64, len(domain.Outcomes))
	for _, o := range domain.Outcomes {
		out[o] = counts[o]
	}
	return out
}
