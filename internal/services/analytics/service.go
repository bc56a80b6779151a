package analytics

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

// Source returns settled orders created in [from, to), ordered by creation
// time, each carrying its items with their dish category.
type Source interface {
	ListSettledOrders(ctx context.Context, from, to time.Time) ([]models.Order, error)
}

// Service computes read-only aggregates over settled orders
type Service struct {
	source   Source
	logger   *logger.Logger
	location *time.Location
	now      func() time.Time
}

// NewService creates the analytics engine. Day and hour boundaries are taken in loc.
func NewService(source Source, log *logger.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		source:   source,
		logger:   log,
		location: loc,
		now:      time.Now,
	}
}

// WithClock replaces the clock used to resolve presets
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Location is the zone windows are computed in
func (s *Service) Location() *time.Location {
	return s.location
}

// Window resolves a range request against the current time
func (s *Service) Window(r Range) (Window, error) {
	return r.Resolve(s.now(), s.location)
}

func (s *Service) settled(ctx context.Context, w Window) ([]models.Order, error) {
	orders, err := s.source.ListSettledOrders(ctx, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("list settled orders: %w", err)
	}
	return orders, nil
}

// Summary returns revenue, order count and averages of the window
func (s *Service) Summary(ctx context.Context, w Window) (models.Summary, error) {
	orders, err := s.settled(ctx, w)
	if err != nil {
		return models.Summary{}, err
	}
	return summarize(orders), nil
}

// CategoryPerformance returns the four best selling categories
func (s *Service) CategoryPerformance(ctx context.Context, w Window) ([]models.CategoryPerformance, error) {
	orders, err := s.settled(ctx, w)
	if err != nil {
		return nil, err
	}
	return categoryPerformance(orders), nil
}

// HourlyRush returns 24 rows, one per hour of day
func (s *Service) HourlyRush(ctx context.Context, w Window) ([]models.HourlyRush, error) {
	orders, err := s.settled(ctx, w)
	if err != nil {
		return nil, err
	}
	return hourlyRush(orders, w, s.location), nil
}

// SalesTrend returns one row per calendar day of the window
func (s *Service) SalesTrend(ctx context.Context, w Window) ([]models.SalesTrend, error) {
	orders, err := s.settled(ctx, w)
	if err != nil {
		return nil, err
	}
	return salesTrend(orders, w, s.location), nil
}

// OrderSizeDistribution counts orders per size bucket
func (s *Service) OrderSizeDistribution(ctx context.Context, w Window) ([]models.OrderSize, error) {
	orders, err := s.settled(ctx, w)
	if err != nil {
		return nil, err
	}
	return orderSizes(orders), nil
}

// TopDishes ranks dishes by revenue or quantity and returns at most limit rows
func (s *Service) TopDishes(ctx context.Context, w Window, rankBy models.RankBy, limit int) ([]models.DishPerformance, error) {
	if !rankBy.Valid() {
		return nil, models.ValidationError{Field: "rank_by", Message: "rank_by must be revenue or quantity"}
	}
	if limit <= 0 {
		return nil, models.ValidationError{Field: "limit", Message: "limit must be greater than 0"}
	}

	orders, err := s.settled(ctx, w)
	if err != nil {
		return nil, err
	}
	return topDishes(orders, rankBy, limit), nil
}

// Dashboard runs the five dashboard aggregates concurrently. Each reads its
// own snapshot, so the parts may disagree if orders settle in between.
func (s *Service) Dashboard(ctx context.Context, w Window, requestID string) (*models.Dashboard, error) {
	start := time.Now()
	var d models.Dashboard

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Summary, err = s.Summary(gctx, w)
		return err
	})
	g.Go(func() (err error) {
		d.CategoryPerformanceData, err = s.CategoryPerformance(gctx, w)
		return err
	})
	g.Go(func() (err error) {
		d.HourlyRushData, err = s.HourlyRush(gctx, w)
		return err
	})
	g.Go(func() (err error) {
		d.SalesTrendData, err = s.SalesTrend(gctx, w)
		return err
	})
	g.Go(func() (err error) {
		d.OrderSizeData, err = s.OrderSizeDistribution(gctx, w)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug("dashboard_computed", "Analytics dashboard computed", requestID, map[string]interface{}{
		"from":        w.StartDate.Format(dateLayout),
		"to":          w.EndDate.Format(dateLayout),
		"orders":      d.Summary.TotalOrders,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return &d, nil
}
