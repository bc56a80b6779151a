package facade

import (
	"time"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/analytics"
)

// Operation names accepted by Dispatch
const (
	OpGetDishes          = "getDishes"
	OpGetCategories      = "getCategories"
	OpCreateOrder        = "createOrder"
	OpGetOrders          = "getOrders"
	OpGetOrderForPrint   = "getOrderForPrint"
	OpToggleServedStatus = "toggleServedStatus"
	OpCloseOrder         = "closeOrder"
	OpDeleteItem         = "deleteItemFromOrder"
	OpTogglePayment      = "toggleOrderPayment"
	OpCancelOrder        = "cancelOrder"
	OpGetAnalytics       = "getAnalytics"
	OpGetDishPerformance = "getDishPerformance"
	OpAddDish            = "addDish"
	OpUpdateDish         = "updateDish"
)

// CreateOrderLine is one requested line. The dish may be given as id or
// dish_id; name and price sent by clients are ignored.
type CreateOrderLine struct {
	ID       int64  `json:"id,omitempty"`
	DishID   int64  `json:"dish_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Price    int64  `json:"price,omitempty"`
	Quantity int    `json:"quantity"`
}

// CreateOrderPayload is the createOrder argument
type CreateOrderPayload struct {
	Tag   string            `json:"tag"`
	Items []CreateOrderLine `json:"items"`
}

func (p CreateOrderPayload) request() *models.CreateOrderRequest {
	req := &models.CreateOrderRequest{
		Tag:   p.Tag,
		Items: make([]models.OrderLine, 0, len(p.Items)),
	}
	for _, item := range p.Items {
		dishID := item.DishID
		if dishID == 0 {
			dishID = item.ID
		}
		req.Items = append(req.Items, models.OrderLine{DishID: dishID, Quantity: item.Quantity})
	}
	return req
}

// OrderRef addresses an order
type OrderRef struct {
	OrderID int64 `json:"order_id"`
}

// ItemRef addresses an item, optionally within an order
type ItemRef struct {
	OrderID int64 `json:"order_id,omitempty"`
	ItemID  int64 `json:"item_id"`
}

// DishPerformancePayload is the getDishPerformance argument
type DishPerformancePayload struct {
	analytics.Range
	RankBy models.RankBy `json:"rank_by"`
	Limit  int           `json:"limit"`
}

// Ack acknowledges a mutation
type Ack struct {
	Success bool  `json:"success"`
	OrderID int64 `json:"order_id,omitempty"`
}

// StatusResult is the toggleServedStatus result
type StatusResult struct {
	Status models.ItemStatus `json:"status"`
}

// PaymentResult is the toggleOrderPayment result
type PaymentResult struct {
	IsPaymentDone bool `json:"isPaymentDone"`
}

// ItemView is an order line as shown to clients
type ItemView struct {
	ID       int64             `json:"id"`
	Quantity int               `json:"quantity"`
	Status   models.ItemStatus `json:"status"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Price    int64             `json:"price"`
}

// OrderView is an order as shown to clients
type OrderView struct {
	ID          int64              `json:"id"`
	Tag         string             `json:"tag"`
	CreatedAt   time.Time          `json:"createdAt"`
	Status      models.OrderStatus `json:"status"`
	PaymentDone bool               `json:"paymentDone"`
	Total       int64              `json:"total"`
	Items       []ItemView         `json:"items"`
}

func newOrderView(o *models.Order) OrderView {
	view := OrderView{
		ID:          o.ID,
		Tag:         o.Tag,
		CreatedAt:   o.CreatedAt,
		Status:      o.Status,
		PaymentDone: o.PaymentDone,
		Total:       o.Total,
		Items:       make([]ItemView, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		view.Items = append(view.Items, ItemView{
			ID:       item.ID,
			Quantity: item.Quantity,
			Status:   item.Status,
			Name:     item.Name,
			Category: item.Category,
			Price:    item.Price,
		})
	}
	return view
}

// DefaultResult is what a failed operation degrades to
func DefaultResult(operation string) interface{} {
	switch operation {
	case OpGetDishes:
		return map[string]interface{}{}
	case OpGetCategories:
		return []string{}
	case OpGetOrders:
		return []OrderView{}
	case OpToggleServedStatus:
		return StatusResult{}
	case OpTogglePayment:
		return PaymentResult{}
	case OpGetAnalytics:
		return &models.Dashboard{
			CategoryPerformanceData: []models.CategoryPerformance{},
			HourlyRushData:          []models.HourlyRush{},
			SalesTrendData:          []models.SalesTrend{},
			OrderSizeData:           []models.OrderSize{},
		}
	case OpGetDishPerformance:
		return []models.DishPerformance{}
	case OpCreateOrder, OpCloseOrder, OpDeleteItem, OpCancelOrder:
		return Ack{}
	default:
		// getOrderForPrint, addDish, updateDish and unknown operations
		return nil
	}
}
