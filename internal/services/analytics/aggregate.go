package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
)

// topCategories is how many categories CategoryPerformance returns
const topCategories = 4

// The functions below take settled orders (CLOSED and paid) of one window,
// ordered by creation time, with items ordered by id.

func summarize(orders []models.Order) models.Summary {
	var summary models.Summary
	if len(orders) == 0 {
		return summary
	}

	var items int64
	for i := range orders {
		summary.TotalRevenue += orders[i].Total
		items += int64(orders[i].ActiveQuantity())
	}
	summary.TotalOrders = len(orders)

	n := decimal.NewFromInt(int64(len(orders)))
	summary.AvgOrderValue = decimal.NewFromInt(summary.TotalRevenue).Div(n).Round(2).InexactFloat64()
	summary.AvgItemsPerOrder = decimal.NewFromInt(items).Div(n).Round(2).InexactFloat64()
	return summary
}

// categoryPerformance groups every line, whatever its status, by dish category
func categoryPerformance(orders []models.Order) []models.CategoryPerformance {
	rows := make([]models.CategoryPerformance, 0)
	index := make(map[string]int)

	for _, o := range orders {
		for _, item := range o.Items {
			if item.Category == "" {
				continue
			}
			pos, ok := index[item.Category]
			if !ok {
				rows = append(rows, models.CategoryPerformance{Name: item.Category})
				pos = len(rows) - 1
				index[item.Category] = pos
			}
			rows[pos].Sales += item.LineTotal()
			rows[pos].Quantity += item.Quantity
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Sales > rows[j].Sales })
	if len(rows) > topCategories {
		rows = rows[:topCategories]
	}
	return rows
}

// hourlyRush averages the order count of each hour of day over the window's days
func hourlyRush(orders []models.Order, w Window, loc *time.Location) []models.HourlyRush {
	var counts [24]int64
	for _, o := range orders {
		counts[o.CreatedAt.In(loc).Hour()]++
	}

	days := decimal.NewFromInt(int64(len(w.Days())))
	rows := make([]models.HourlyRush, 24)
	for hour := 0; hour < 24; hour++ {
		rows[hour] = models.HourlyRush{
			Hour:      hour,
			AvgOrders: decimal.NewFromInt(counts[hour]).Div(days).Round(0).IntPart(),
		}
	}
	return rows
}

// salesTrend emits one row per day of the window, zero-filled where no orders exist
func salesTrend(orders []models.Order, w Window, loc *time.Location) []models.SalesTrend {
	type bucket struct {
		sales  int64
		orders int
	}
	byDay := make(map[string]*bucket)
	for _, o := range orders {
		key := o.CreatedAt.In(loc).Format(dateLayout)
		b, ok := byDay[key]
		if !ok {
			b = &bucket{}
			byDay[key] = b
		}
		b.sales += o.Total
		b.orders++
	}

	days := w.Days()
	rows := make([]models.SalesTrend, 0, len(days))
	for _, day := range days {
		key := day.Format(dateLayout)
		row := models.SalesTrend{Date: key}
		if b, ok := byDay[key]; ok {
			row.Sales = b.sales
			row.Orders = b.orders
			row.AOV = decimal.NewFromInt(b.sales).Div(decimal.NewFromInt(int64(b.orders))).Round(0).IntPart()
		}
		rows = append(rows, row)
	}
	return rows
}

// orderSizes buckets orders by their non-cancelled quantity. Orders with no
// such items are skipped and empty buckets are omitted.
func orderSizes(orders []models.Order) []models.OrderSize {
	var counts [4]int
	for i := range orders {
		n := orders[i].ActiveQuantity()
		if n == 0 {
			continue
		}
		_, rank := models.SizeBucket(n)
		counts[rank]++
	}

	rows := make([]models.OrderSize, 0, len(counts))
	for rank, label := range models.SizeBuckets {
		if counts[rank] > 0 {
			rows = append(rows, models.OrderSize{Size: label, Count: counts[rank]})
		}
	}
	return rows
}

// topDishes ranks non-cancelled lines grouped by dish, snapshot name and category
func topDishes(orders []models.Order, rankBy models.RankBy, limit int) []models.DishPerformance {
	type key struct {
		dishID   int64
		name     string
		category string
	}
	rows := make([]models.DishPerformance, 0)
	index := make(map[key]int)

	for _, o := range orders {
		for _, item := range o.Items {
			if item.Status == models.ItemCancelled || item.Category == "" {
				continue
			}
			k := key{item.DishID, item.Name, item.Category}
			pos, ok := index[k]
			if !ok {
				rows = append(rows, models.DishPerformance{ID: item.DishID, Name: item.Name, Category: item.Category})
				pos = len(rows) - 1
				index[k] = pos
			}
			rows[pos].Sales += item.Quantity
			rows[pos].Revenue += item.LineTotal()
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rankBy == models.RankByQuantity {
			return rows[i].Sales > rows[j].Sales
		}
		return rows[i].Revenue > rows[j].Revenue
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
