package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/analytics"
	"restaurant-pos/internal/services/facade"
)

// RequestIDHeader carries a caller supplied request id
const RequestIDHeader = "X-Request-ID"

const defaultDishLimit = 10

type ctxKey struct{}

// Pinger reports storage health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler exposes the facade operations over HTTP
type Handler struct {
	facade *facade.Facade
	store  Pinger
	logger *logger.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(f *facade.Facade, store Pinger, log *logger.Logger) *Handler {
	return &Handler{
		facade: f,
		store:  store,
		logger: log,
	}
}

// Routes builds the chi router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.withLogging)

	r.Get("/health", h.HealthCheck)
	r.Post("/rpc", h.RPC)

	r.Route("/dishes", func(r chi.Router) {
		r.Get("/", h.GetDishes)
		r.Get("/categories", h.GetCategories)
		r.Post("/", h.AddDish)
		r.Put("/{id}", h.UpdateDish)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.GetOrders)
		r.Post("/", h.CreateOrder)
		r.Get("/{id}", h.GetOrder)
		r.Delete("/{id}", h.CancelOrder)
		r.Post("/{id}/close", h.CloseOrder)
		r.Post("/{id}/payment", h.TogglePayment)
		r.Post("/{id}/items/{itemID}/toggle", h.ToggleItem)
	})
	r.Delete("/items/{itemID}", h.DeleteItem)

	r.Get("/analytics", h.GetAnalytics)
	r.Get("/analytics/dishes", h.GetDishPerformance)

	return r
}

// GetDishes handles GET /dishes
func (h *Handler) GetDishes(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, facade.OpGetDishes, nil, http.StatusOK)
}

// GetCategories handles GET /dishes/categories
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, facade.OpGetCategories, nil, http.StatusOK)
}

// AddDish handles POST /dishes
func (h *Handler) AddDish(w http.ResponseWriter, r *http.Request) {
	var dish models.Dish
	if !h.decodeBody(w, r, &dish) {
		return
	}
	h.run(w, r, facade.OpAddDish, dish, http.StatusCreated)
}

// UpdateDish handles PUT /dishes/{id}
func (h *Handler) UpdateDish(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var dish models.Dish
	if !h.decodeBody(w, r, &dish) {
		return
	}
	dish.ID = id
	h.run(w, r, facade.OpUpdateDish, dish, http.StatusOK)
}

// GetOrders handles GET /orders
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, facade.OpGetOrders, nil, http.StatusOK)
}

// CreateOrder handles POST /orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var payload facade.CreateOrderPayload
	if !h.decodeBody(w, r, &payload) {
		return
	}
	h.run(w, r, facade.OpCreateOrder, payload, http.StatusCreated)
}

// GetOrder handles GET /orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	h.run(w, r, facade.OpGetOrderForPrint, facade.OrderRef{OrderID: id}, http.StatusOK)
}

// CancelOrder handles DELETE /orders/{id}
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	h.run(w, r, facade.OpCancelOrder, facade.OrderRef{OrderID: id}, http.StatusOK)
}

// CloseOrder handles POST /orders/{id}/close
func (h *Handler) CloseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	h.run(w, r, facade.OpCloseOrder, facade.OrderRef{OrderID: id}, http.StatusOK)
}

// TogglePayment handles POST /orders/{id}/payment
func (h *Handler) TogglePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	h.run(w, r, facade.OpTogglePayment, facade.OrderRef{OrderID: id}, http.StatusOK)
}

// ToggleItem handles POST /orders/{id}/items/{itemID}/toggle
func (h *Handler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "itemID")
	if !ok {
		return
	}
	h.run(w, r, facade.OpToggleServedStatus, facade.ItemRef{OrderID: orderID, ItemID: itemID}, http.StatusOK)
}

// DeleteItem handles DELETE /items/{itemID}
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.pathID(w, r, "itemID")
	if !ok {
		return
	}
	h.run(w, r, facade.OpDeleteItem, facade.ItemRef{ItemID: itemID}, http.StatusOK)
}

// GetAnalytics handles GET /analytics?range=... or ?start=...&end=...
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, facade.OpGetAnalytics, rangeFromQuery(r), http.StatusOK)
}

// GetDishPerformance handles GET /analytics/dishes
func (h *Handler) GetDishPerformance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	payload := facade.DishPerformancePayload{
		Range:  rangeFromQuery(r),
		RankBy: models.RankBy(q.Get("rank_by")),
		Limit:  defaultDishLimit,
	}
	if payload.RankBy == "" {
		payload.RankBy = models.RankByRevenue
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.writeErrorResponse(w, http.StatusBadRequest, "limit must be an integer", requestIDFrom(r.Context()))
			return
		}
		payload.Limit = limit
	}

	h.run(w, r, facade.OpGetDishPerformance, payload, http.StatusOK)
}

// RPC handles POST /rpc with a raw request envelope
func (h *Handler) RPC(w http.ResponseWriter, r *http.Request) {
	var req facade.Request
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.RequestID == "" {
		req.RequestID = requestIDFrom(r.Context())
	}

	resp := h.facade.Handle(r.Context(), req)
	h.writeJSON(w, statusFor(resp, http.StatusOK), resp, req.RequestID)
}

// HealthCheck handles GET /health requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "pos-service",
	}

	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("health_check_failed", "Storage ping failed", requestIDFrom(r.Context()), err, nil)
		status = http.StatusServiceUnavailable
		response["status"] = "unhealthy"
	}

	h.writeJSON(w, status, response, requestIDFrom(r.Context()))
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, op string, payload interface{}, okStatus int) {
	requestID := requestIDFrom(r.Context())

	req, err := facade.NewRequest(requestID, op, payload)
	if err != nil {
		h.logger.Error("request_encoding_failed", "Failed to encode operation payload", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	resp := h.facade.Handle(ctx, req)
	h.writeJSON(w, statusFor(resp, okStatus), resp, requestID)
}

// statusFor maps an error kind to an HTTP status. The body still carries
// the degraded default result.
func statusFor(resp facade.Response, okStatus int) int {
	if resp.Success {
		return okStatus
	}
	switch resp.ErrorKind {
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func rangeFromQuery(r *http.Request) analytics.Range {
	q := r.URL.Query()
	return analytics.Range{
		Preset: q.Get("range"),
		Start:  q.Get("start"),
		End:    q.Get("end"),
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name), requestIDFrom(r.Context()))
		return 0, false
	}
	return id, true
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	requestID := requestIDFrom(r.Context())

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		h.writeErrorResponse(w, http.StatusBadRequest, "Content-Type must be application/json", requestID)
		return false
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		h.logger.Error("validation_failed", "Failed to parse request body", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", requestID, err, nil)
	}
}

// writeErrorResponse writes an error response in JSON format
func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message, requestID string) {
	h.writeJSON(w, statusCode, map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	}, requestID)
}

// withLogging assigns a request id and logs every request
func (h *Handler) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, requestID))

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"user_agent":  r.Header.Get("User-Agent"),
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
			})
	})
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return logger.GenerateRequestID()
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
