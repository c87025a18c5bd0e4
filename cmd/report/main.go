package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/menucraft/api/internal/config"
	"github.com/menucraft/api/internal/database"
	"github.com/menucraft/api/internal/service"
	"github.com/olekukonko/tablewriter"
)

func main() {
	tenant := flag.String("tenant", os.Getenv("SEED_TENANT"), "Restaurant (tenant) ID")
	days := flag.Int("days", service.DefaultAnalyticsDays, "Number of days to report on")
	flag.Parse()

	if *tenant == "" {
		log.Fatal("tenant is required (-tenant or SEED_TENANT)")
	}

	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	queries := database.New(pool)
	analytics := service.NewAnalyticsService(queries, service.NewSettingsService(queries))

	a, err := analytics.GetAnalytics(ctx, *tenant, *days)
	if err != nil {
		log.Fatalf("Failed to compute analytics: %v", err)
	}

	if err := writeReport(os.Stdout, *tenant, a); err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
}

// writeReport prints the summary, top items, status breakdown and daily
// revenue as separate tables.
func writeReport(w io.Writer, tenant string, a service.Analytics) error {
	fmt.Fprintf(w, "Analytics for %s, last %d days\n\n", tenant, a.Days)

	summary := tablewriter.NewWriter(w)
	summary.Header("Orders", "Revenue", "Average order")
	if err := summary.Append([]string{
		strconv.Itoa(a.TotalOrders),
		a.TotalRevenue.StringFixed(2),
		a.AverageOrderValue.StringFixed(2),
	}); err != nil {
		return err
	}
	if err := summary.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nTop items")
	top := tablewriter.NewWriter(w)
	top.Header("Item", "Quantity", "Revenue")
	for _, t := range a.TopItems {
		if err := top.Append([]string{t.Name, strconv.FormatInt(t.Quantity, 10), t.Revenue.StringFixed(2)}); err != nil {
			return err
		}
	}
	if err := top.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nOrders by status")
	statuses := make([]string, 0, len(a.OrdersByStatus))
	for s := range a.OrdersByStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	byStatus := tablewriter.NewWriter(w)
	byStatus.Header("Status", "Orders")
	for _, s := range statuses {
		if err := byStatus.Append([]string{s, strconv.Itoa(a.OrdersByStatus[s])}); err != nil {
			return err
		}
	}
	if err := byStatus.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nDaily revenue")
	daily := tablewriter.NewWriter(w)
	daily.Header("Date", "Revenue")
	for _, d := range a.DailyRevenue {
		if err := daily.Append([]string{d.Date, d.Revenue.StringFixed(2)}); err != nil {
			return err
		}
	}
	return daily.Render()
}
