package services

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"finledger/internal/auth"
	"finledger/internal/cache"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// AnalyticsService computes aggregate snapshots and chart series. Snapshots
// are cached per user; chart data is always computed fresh.
type AnalyticsService struct {
	storage     *storage.SQLiteRepository
	cache       cache.Store
	snapshotTTL time.Duration
	logger      *log.Logger
}

func NewAnalyticsService(storage *storage.SQLiteRepository, cacheStore cache.Store, snapshotTTL time.Duration, logger *log.Logger) *AnalyticsService {
	return &AnalyticsService{
		storage:     storage,
		cache:       cacheStore,
		snapshotTTL: snapshotTTL,
		logger:      logger.WithComponent(log.ComponentAnalytics),
	}
}

// snapshotWindowStart returns the YYYY-MM key of the oldest month in the
// trailing 12-calendar-month window ending at now. Anchored to the first of
// the month: subtracting months from a month-end date would otherwise
// overflow into the following month and drop the oldest month.
func snapshotWindowStart(now time.Time) string {
	return time.Date(now.Year(), now.Month()-11, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// Snapshot returns the aggregate view for targetUserID, or for the caller
// when targetUserID is zero. Only admins may target another user. The
// second return value reports whether the result came from cache.
func (s *AnalyticsService) Snapshot(ctx context.Context, caller *auth.Identity, targetUserID int64) (core.Snapshot, bool, error) {
	if caller == nil {
		return core.Snapshot{}, false, core.ErrForbidden
	}
	if targetUserID == 0 {
		targetUserID = caller.ID
	}
	if !auth.CanAct(caller, auth.ResourceAnalytics, auth.ActionRead, targetUserID) {
		return core.Snapshot{}, false, core.ErrForbidden
	}

	key := cache.AnalyticsKey(targetUserID)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var snap core.Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err == nil {
			return snap, true, nil
		}
		s.cache.Delete(ctx, key)
	}

	snap, err := s.storage.Analytics(ctx, targetUserID, snapshotWindowStart(time.Now().UTC()))
	if err != nil {
		return core.Snapshot{}, false, err
	}

	if raw, err := json.Marshal(snap); err == nil {
		s.cache.Set(ctx, key, string(raw), s.snapshotTTL)
	}
	return snap, false, nil
}

// Chart returns the three chart series for the caller's dashboard. The
// series are independent, so they are fetched concurrently.
func (s *AnalyticsService) Chart(ctx context.Context, caller *auth.Identity) (core.ChartData, error) {
	if caller == nil {
		return core.ChartData{}, core.ErrForbidden
	}
	targetUserID := caller.ID
	if !auth.CanAct(caller, auth.ResourceAnalytics, auth.ActionRead, targetUserID) {
		return core.ChartData{}, core.ErrForbidden
	}

	var data core.ChartData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dist, err := s.storage.CategoryDistribution(gctx, targetUserID)
		if err == nil {
			data.CategoryDistribution = dist
		}
		return err
	})
	g.Go(func() error {
		trends, err := s.storage.MonthlyTrends(gctx, targetUserID)
		if err == nil {
			data.MonthlyTrends = trends
		}
		return err
	})
	g.Go(func() error {
		totals, err := s.storage.IncomeVsExpense(gctx, targetUserID)
		if err == nil {
			data.IncomeVsExpenses = totals
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return core.ChartData{}, err
	}
	return data, nil
}
