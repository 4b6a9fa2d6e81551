package services

import (
	"context"
	"fmt"

	"github.com/longtq2501/Tutor-Pro-sub001/internal/repository"
)

type totalsReader interface {
	Totals(ctx context.Context, tutorID int64, month string) (*repository.BillingTotals, error)
	DistinctMonths(ctx context.Context, tutorID int64) ([]string, error)
}

type statsCache interface {
	Get(key string) (any, bool)
	Set(key string, value any, tags ...string)
}

// DashboardService serves the billing summaries behind the dashboard. Results
// are cached under tags that every record mutation evicts, so a hit is always
// consistent with the last write.
type DashboardService struct {
	totals totalsReader
	cache  statsCache
}

func NewDashboardService(totals totalsReader, cache statsCache) *DashboardService {
	return &DashboardService{totals: totals, cache: cache}
}

func (s *DashboardService) Stats(ctx context.Context, actorID int64, role string) (*repository.BillingTotals, error) {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("dashboard:%d", tutorID)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.(*repository.BillingTotals), nil
		}
	}
	totals, err := s.totals.Totals(ctx, tutorID, "")
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(key, totals, CacheTagDashboardStats)
	}
	return totals, nil
}

func (s *DashboardService) MonthlyStats(ctx context.Context, actorID int64, role string, month string) (*repository.BillingTotals, error) {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return nil, err
	}
	if month == "" {
		return nil, ErrInvalidInput
	}
	key := fmt.Sprintf("monthly:%d:%s", tutorID, month)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.(*repository.BillingTotals), nil
		}
	}
	totals, err := s.totals.Totals(ctx, tutorID, month)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(key, totals, CacheTagMonthlyStats)
	}
	return totals, nil
}

func (s *DashboardService) Months(ctx context.Context, actorID int64, role string) ([]string, error) {
	tutorID, err := resolveTutorID(role, actorID)
	if err != nil {
		return nil, err
	}
	return s.totals.DistinctMonths(ctx, tutorID)
}
