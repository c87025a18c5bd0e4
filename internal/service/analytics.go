package service

import (
	"context"
	"sort"
	"time"

	"github.com/menucraft/api/internal/database"
	"github.com/menucraft/api/internal/enum"
	"github.com/shopspring/decimal"
)

const (
	DefaultAnalyticsDays = 30
	MaxAnalyticsDays     = 366
	topItemsLimit        = 5
	dayLayout            = "2006-01-02"
)

// AnalyticsStore defines the DB methods needed for analytics.
// Satisfied by *database.Queries; narrow interface for testability.
type AnalyticsStore interface {
	ListOrdersSince(ctx context.Context, arg database.ListOrdersSinceParams) ([]database.Order, error)
}

// LocationResolver gives the timezone daily buckets are computed in.
// Satisfied by *SettingsService.
type LocationResolver interface {
	Location(ctx context.Context, tenantID string) *time.Location
}

type TopItem struct {
	Name     string
	Quantity int64
	Revenue  decimal.Decimal
}

type DailyRevenue struct {
	Date    string
	Revenue decimal.Decimal
}

// Analytics summarizes the orders of the last Days days.
type Analytics struct {
	Days              int
	TotalOrders       int
	TotalRevenue      decimal.Decimal
	AverageOrderValue decimal.Decimal
	TopItems          []TopItem
	OrdersByStatus    map[string]int
	DailyRevenue      []DailyRevenue
}

type AnalyticsService struct {
	store     AnalyticsStore
	locations LocationResolver
	now       func() time.Time
}

// NewAnalyticsService creates an AnalyticsService. locations may be nil, in
// which case days are bucketed in UTC.
func NewAnalyticsService(store AnalyticsStore, locations LocationResolver) *AnalyticsService {
	return &AnalyticsService{store: store, locations: locations, now: time.Now}
}

// NormalizeDays applies the default window and the upper bound.
func NormalizeDays(days int) int {
	if days <= 0 {
		return DefaultAnalyticsDays
	}
	if days > MaxAnalyticsDays {
		return MaxAnalyticsDays
	}
	return days
}

// GetAnalytics aggregates orders created in the last days days.
func (s *AnalyticsService) GetAnalytics(ctx context.Context, tenantID string, days int) (Analytics, error) {
	days = NormalizeDays(days)
	now := s.now().In(s.location(ctx, tenantID))

	orders, err := s.store.ListOrdersSince(ctx, database.ListOrdersSinceParams{
		TenantID: tenantID,
		Since:    now.AddDate(0, 0, -days),
	})
	if err != nil {
		return Analytics{}, backend("load analytics", err)
	}
	return ComputeAnalytics(orders, days, now), nil
}

// EmptyAnalytics is returned in place of a failed computation: all zero,
// with one zero-revenue entry per day.
func (s *AnalyticsService) EmptyAnalytics(ctx context.Context, tenantID string, days int) Analytics {
	days = NormalizeDays(days)
	return ComputeAnalytics(nil, days, s.now().In(s.location(ctx, tenantID)))
}

func (s *AnalyticsService) location(ctx context.Context, tenantID string) *time.Location {
	if s.locations == nil {
		return time.UTC
	}
	return s.locations.Location(ctx, tenantID)
}

// ComputeAnalytics aggregates orders. Daily buckets are the local dates (in
// now's location) of the days days ending today, oldest first. Orders whose
// date falls outside the buckets still count toward the totals.
func ComputeAnalytics(orders []database.Order, days int, now time.Time) Analytics {
	a := Analytics{
		Days:              days,
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		TopItems:          []TopItem{},
		OrdersByStatus:    map[string]int{},
		DailyRevenue:      make([]DailyRevenue, days),
	}

	loc := now.Location()
	bucket := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := now.AddDate(0, 0, -(days - 1 - i)).Format(dayLayout)
		a.DailyRevenue[i] = DailyRevenue{Date: date, Revenue: decimal.Zero}
		bucket[date] = i
	}

	items := map[string]*TopItem{}
	var order []string // first-seen order of item names, for stable ties

	for _, o := range orders {
		total := database.NumericToDecimal(o.Total)
		a.TotalOrders++
		a.TotalRevenue = a.TotalRevenue.Add(total)

		status := o.Status
		if status == "" {
			status = enum.OrderStatusPending
		}
		a.OrdersByStatus[status]++

		if i, ok := bucket[o.CreatedAt.In(loc).Format(dayLayout)]; ok {
			a.DailyRevenue[i].Revenue = a.DailyRevenue[i].Revenue.Add(total)
		}

		for _, line := range o.Items {
			ti, ok := items[line.Name]
			if !ok {
				ti = &TopItem{Name: line.Name, Revenue: decimal.Zero}
				items[line.Name] = ti
				order = append(order, line.Name)
			}
			ti.Quantity += int64(line.Quantity)
			ti.Revenue = ti.Revenue.Add(line.Price.Mul(decimal.NewFromInt32(line.Quantity)))
		}
	}

	if a.TotalOrders > 0 {
		a.AverageOrderValue = a.TotalRevenue.Div(decimal.NewFromInt(int64(a.TotalOrders))).Round(2)
	}

	for _, name := range order {
		a.TopItems = append(a.TopItems, *items[name])
	}
	sort.SliceStable(a.TopItems, func(i, j int) bool {
		return a.TopItems[i].Quantity > a.TopItems[j].Quantity
	})
	if len(a.TopItems) > topItemsLimit {
		a.TopItems = a.TopItems[:topItemsLimit]
	}

	return a
}
