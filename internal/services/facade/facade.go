// Package facade maps named operations onto the catalog, ledger and analytics
// services. Dispatch returns typed errors; Handle is the boundary that turns
// them into a degraded but well-formed Response.
package facade

import (
	"context"
	"encoding/json"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/analytics"
	"restaurant-pos/internal/services/catalog"
	"restaurant-pos/internal/services/ledger"
)

// Request is a named operation call
type Request struct {
	RequestID string          `json:"request_id"`
	Operation string          `json:"operation"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewRequest marshals payload into a request envelope
func NewRequest(requestID, operation string, payload interface{}) (Request, error) {
	req := Request{RequestID: requestID, Operation: operation}
	if payload == nil {
		return req, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return req, err
	}
	req.Payload = raw
	return req, nil
}

// Response is the transport-neutral reply to a Request
type Response struct {
	RequestID string      `json:"request_id"`
	Operation string      `json:"operation"`
	Success   bool        `json:"success"`
	Result    interface{} `json:"result"`
	Error     string      `json:"error,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty"`
}

// Facade routes operations to the core services
type Facade struct {
	catalog   *catalog.Service
	ledger    *ledger.Service
	analytics *analytics.Service
	logger    *logger.Logger
}

// New creates a facade over explicitly constructed services
func New(cat *catalog.Service, led *ledger.Service, an *analytics.Service, log *logger.Logger) *Facade {
	return &Facade{
		catalog:   cat,
		ledger:    led,
		analytics: an,
		logger:    log,
	}
}

// Handle runs the request and never fails: errors are logged and replaced by
// DefaultResult with Success false and the error kind set.
func (f *Facade) Handle(ctx context.Context, req Request) Response {
	if req.RequestID == "" {
		req.RequestID = logger.GenerateRequestID()
	}

	resp := Response{
		RequestID: req.RequestID,
		Operation: req.Operation,
	}

	result, err := f.Dispatch(ctx, req)
	if err != nil {
		kind := models.ErrorKind(err)
		f.logger.Error("operation_failed", "Operation failed, returning default result", req.RequestID, err, map[string]interface{}{
			"operation":  req.Operation,
			"error_kind": kind,
		})
		resp.Result = DefaultResult(req.Operation)
		resp.Error = err.Error()
		resp.ErrorKind = kind
		return resp
	}

	resp.Success = true
	resp.Result = result
	return resp
}

// Dispatch runs the named operation and returns its result or a typed error
func (f *Facade) Dispatch(ctx context.Context, req Request) (interface{}, error) {
	switch req.Operation {
	case OpGetDishes:
		return f.catalog.Menu(ctx)

	case OpGetCategories:
		return f.catalog.Categories(ctx)

	case OpCreateOrder:
		var p CreateOrderPayload
		if err := decode(req.Payload, &p); err != nil {
			return nil, err
		}
		id, err := f.ledger.CreateOrder(ctx, p.request(), req.RequestID)
		if err != nil {
			return nil, err
		}
		return Ack{Success: true, OrderID: id}, nil

	case OpGetOrders:
		orders, err := f.ledger.ListActiveOrders(ctx)
		if err != nil {
			return nil, err
		}
		views := make([]OrderView, 0, len(orders))
		for i := range orders {
			views = append(views, newOrderView(&orders[i]))
		}
		return views, nil

	case OpGetOrderForPrint:
		var p OrderRef
		if err := decode(req.Payload, &p); err != nil {
			return nil, err
		}
		order, err := f.ledger.GetOrder(ctx, p.OrderID)
		if err != nil {
			return nil, err
		}
		return newOrderView(order), nil

	case OpToggleServedStatus:
		var p ItemRef
		if err := decode(req.Payload, &p); err != nil {
			return nil, err
		}
		status, err := f.ledger.ToggleItemStatus(ctx, p.OrderID, p.ItemID, req.RequestID)
		if err != nil {
			return nil, err
		}
		return StatusResult{Status: status}, nil

	case OpCloseOrder:
		var p OrderRef
		if err := decode(req.Payload, &p); err != nil {
			return nil, err
		}
		if err := f.ledger.CloseOrder(ctx, p.OrderID, req.RequestID); err != nil {
			return nil, err
		}
		return Ack{Success: true, OrderID: p.OrderID}, nil

	case OpDeleteItem:
		var p ItemRef
		if err := decode(req.Payload, &p); err != nil {
			return nil, err
		}
		if err := f.ledger.DeleteItem(ctx, p.ItemID, req.RequestID); err != nil {
			return nil, err
		}
		return Ack{Success: true}, nil

	case OpTogglePayment:
		var p OrderRef
		if err := decode(req.Payload, &p); err != nil {
			return nil, err
		}
		done, err := f.ledger.TogglePayment(ctx, p.OrderID, req.RequestID)
		if err != nil {
			return nil, err
		}
		return PaymentResult{IsPaymentDone: done}, nil

	case OpCancelOrder:
		var p OrderRef
		if err := decode(req.Payload, &p); err != nil {
			return nil, err
		}
		if err := f.ledger.CancelOrder(ctx, p.OrderID, req.RequestID); err != nil {
			return nil, err
		}
		return Ack{Success: true, OrderID: p.OrderID}, nil

	case OpGetAnalytics:
		var p analytics.Range
		if err := decode(req.Payload, &p); err != nil {
			return nil, err
		}
		w, err := f.analytics.Window(p)
		if err != nil {
			return nil, err
		}
		return f.analytics.Dashboard(ctx, w, req.RequestID)

	case OpGetDishPerformance:
		var p DishPerformancePayload
		if err := decode(req.Payload, &p); err != nil {
			return nil, err
		}
		w, err := f.analytics.Window(p.Range)
		if err != nil {
			return nil, err
		}
		return f.analytics.TopDishes(ctx, w, p.RankBy, p.Limit)

	case OpAddDish:
		var dish models.Dish
		if err := decode(req.Payload, &dish); err != nil {
			return nil, err
		}
		return f.catalog.CreateDish(ctx, dish, req.RequestID)

	case OpUpdateDish:
		var dish models.Dish
		if err := decode(req.Payload, &dish); err != nil {
			return nil, err
		}
		if dish.ID <= 0 {
			return nil, models.ValidationError{Field: "id", Message: "dish id is required"}
		}
		return f.catalog.UpdateDish(ctx, dish, req.RequestID)

	default:
		return nil, models.ValidationError{Field: "operation", Message: "unknown operation " + req.Operation}
	}
}

func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return models.ValidationError{Field: "payload", Message: "payload is required"}
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return models.ValidationError{Field: "payload", Message: "invalid payload: " + err.Error()}
	}
	return nil
}
