package models

// Summary is the headline KPI block of a window
type Summary struct {
	TotalRevenue     int64   `json:"totalRevenue"`
	TotalOrders      int     `json:"totalOrders"`
	AvgOrderValue    float64 `json:"avgOrderValue"`
	AvgItemsPerOrder float64 `json:"avgItemsPerOrder"`
}

// CategoryPerformance is sales and quantity of one dish category
type CategoryPerformance struct {
	Name     string `json:"name"`
	Sales    int64  `json:"sales"`
	Quantity int    `json:"quantity"`
}

// HourlyRush is the average number of settled orders in one hour of the day
type HourlyRush struct {
	Hour      int   `json:"hour"`
	AvgOrders int64 `json:"avgOrders"`
}

// SalesTrend is one calendar day of the window
type SalesTrend struct {
	Date   string `json:"date"`
	Sales  int64  `json:"sales"`
	Orders int    `json:"orders"`
	AOV    int64  `json:"aov"`
}

// OrderSize is the number of orders falling in one size bucket
type OrderSize struct {
	Size  string `json:"size"`
	Count int    `json:"count"`
}

// DishPerformance is one row of the dish ranking
type DishPerformance struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Sales    int    `json:"sales"`
	Revenue  int64  `json:"revenue"`
}

// Dashboard bundles the aggregates shown on the analytics screen
type Dashboard struct {
	Summary                 Summary               `json:"summary"`
	CategoryPerformanceData []CategoryPerformance `json:"categoryPerformanceData"`
	HourlyRushData          []HourlyRush          `json:"hourlyRushData"`
	SalesTrendData          []SalesTrend          `json:"salesTrendData"`
	OrderSizeData           []OrderSize           `json:"orderSizeData"`
}

// Order size bucket labels, in rank order
const (
	SizeOne       = "1 Item"
	SizeTwo       = "2 Items"
	SizeThreeFour = "3-4 Items"
	SizeFivePlus  = "5+ Items"
)

// SizeBuckets lists the bucket labels in rank order
var SizeBuckets = []string{SizeOne, SizeTwo, SizeThreeFour, SizeFivePlus}

// SizeBucket returns the bucket label and its rank for an item count
func SizeBucket(itemCount int) (string, int) {
	switch {
	case itemCount == 1:
		return SizeOne, 0
	case itemCount == 2:
		return SizeTwo, 1
	case itemCount >= 3 && itemCount <= 4:
		return SizeThreeFour, 2
	default:
		return SizeFivePlus, 3
	}
}

// RankBy selects the dish ranking measure
type RankBy string

const (
	RankByRevenue  RankBy = "revenue"
	RankByQuantity RankBy = "quantity"
)

// Valid reports whether r is a known measure
func (r RankBy) Valid() bool {
	return r == RankByRevenue || r == RankByQuantity
}
