package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/adapter/memory"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/analytics"
	"restaurant-pos/internal/services/catalog"
	"restaurant-pos/internal/services/facade"
	"restaurant-pos/internal/services/ledger"
)

type envelope struct {
	RequestID string          `json:"request_id"`
	Operation string          `json:"operation"`
	Success   bool            `json:"success"`
	Result    json.RawMessage `json:"result"`
	Error     string          `json:"error"`
	ErrorKind string          `json:"error_kind"`
}

type downStore struct{}

func (downStore) Ping(ctx context.Context) error { return errors.New("connection refused") }

func newServer(t *testing.T) http.Handler {
	t.Helper()
	store := memory.New(
		models.Dish{Name: "Dish A", Category: "Mains", Price: 100},
		models.Dish{Name: "Dish B", Category: "Sides", Price: 50},
	)
	return newServerWith(t, store, store)
}

func newServerWith(t *testing.T, store *memory.Store, pinger Pinger) http.Handler {
	t.Helper()
	log := logger.Discard()
	cat := catalog.NewService(store, log)
	led := ledger.NewService(store, cat, nil, log, ledger.Options{Location: time.UTC})
	an := analytics.NewService(store, log, time.UTC)
	return NewHandler(facade.New(cat, led, an, log), pinger, log).Routes()
}

func do(t *testing.T, srv http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestOrderFlow(t *testing.T) {
	srv := newServer(t)

	rec, env := do(t, srv, http.MethodPost, "/orders", `{"tag":"T1","items":[{"id":1,"quantity":2},{"dish_id":2,"quantity":1}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ack facade.Ack
	require.NoError(t, json.Unmarshal(env.Result, &ack))
	assert.True(t, ack.Success)
	id := ack.OrderID

	rec, env = do(t, srv, http.MethodGet, "/orders/"+itoa(id), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view facade.OrderView
	require.NoError(t, json.Unmarshal(env.Result, &view))
	assert.Equal(t, int64(250), view.Total)
	require.Len(t, view.Items, 2)

	rec, env = do(t, srv, http.MethodPost, "/orders/"+itoa(id)+"/items/"+itoa(view.Items[1].ID)+"/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"SERVED"}`, string(env.Result))

	rec, env = do(t, srv, http.MethodPost, "/orders/"+itoa(id)+"/payment", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isPaymentDone":true}`, string(env.Result))

	rec, _ = do(t, srv, http.MethodPost, "/orders/"+itoa(id)+"/close", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, srv, http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []facade.OrderView
	require.NoError(t, json.Unmarshal(env.Result, &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderClosed, orders[0].Status)

	rec, env = do(t, srv, http.MethodGet, "/analytics?range=Today", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var dashboard models.Dashboard
	require.NoError(t, json.Unmarshal(env.Result, &dashboard))
	assert.Equal(t, 1, dashboard.Summary.TotalOrders)
	assert.Len(t, dashboard.HourlyRushData, 24)

	rec, env = do(t, srv, http.MethodGet, "/analytics/dishes?range=Today&rank_by=quantity&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var dishes []models.DishPerformance
	require.NoError(t, json.Unmarshal(env.Result, &dishes))
	require.Len(t, dishes, 1)
	assert.Equal(t, "Dish A", dishes[0].Name)
	assert.Equal(t, 2, dishes[0].Sales)
}

func TestCancelThenGetIsNotFound(t *testing.T) {
	srv := newServer(t)

	_, env := do(t, srv, http.MethodPost, "/orders", `{"tag":"T1","items":[{"id":1,"quantity":1}]}`)
	var ack facade.Ack
	require.NoError(t, json.Unmarshal(env.Result, &ack))

	rec, _ := do(t, srv, http.MethodDelete, "/orders/"+itoa(ack.OrderID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, srv, http.MethodGet, "/orders/"+itoa(ack.OrderID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, models.KindNotFound, env.ErrorKind)
	assert.Equal(t, "null", string(env.Result))
}

func TestErrorStatuses(t *testing.T) {
	srv := newServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "unknown preset", method: http.MethodGet, path: "/analytics?range=Forever", want: http.StatusBadRequest},
		{name: "bad dates", method: http.MethodGet, path: "/analytics?start=2024-05-03&end=2024-05-01", want: http.StatusBadRequest},
		{name: "bad limit", method: http.MethodGet, path: "/analytics/dishes?range=Today&limit=ten", want: http.StatusBadRequest},
		{name: "bad order id", method: http.MethodGet, path: "/orders/abc", want: http.StatusBadRequest},
		{name: "missing item", method: http.MethodDelete, path: "/items/42", want: http.StatusNotFound},
		{name: "missing order payment", method: http.MethodPost, path: "/orders/42/payment", want: http.StatusNotFound},
		{name: "invalid json", method: http.MethodPost, path: "/orders", body: `{"tag":`, want: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, path: "/orders", body: `{"table":"T1"}`, want: http.StatusBadRequest},
		{name: "empty order", method: http.MethodPost, path: "/orders", body: `{"tag":"T1","items":[]}`, want: http.StatusBadRequest},
		{name: "unknown dish", method: http.MethodPost, path: "/orders", body: `{"items":[{"id":9,"quantity":1}]}`, want: http.StatusNotFound},
		{name: "invalid dish", method: http.MethodPost, path: "/dishes", body: `{"name":"","category":"Mains","price":10}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestContentTypeRequired(t *testing.T) {
	srv := newServer(t)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"tag":"T1"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Content-Type")
}

func TestDishes(t *testing.T) {
	srv := newServer(t)

	rec, _ := do(t, srv, http.MethodPost, "/dishes", `{"name":"Dish C","category":"Mains","price":300}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = do(t, srv, http.MethodPut, "/dishes/2", `{"name":"Dish B","category":"Sides","price":75}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env := do(t, srv, http.MethodGet, "/dishes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"Mains": [{"id": 1, "name": "Dish A", "price": 100}, {"id": 3, "name": "Dish C", "price": 300}],
		"Sides": [{"id": 2, "name": "Dish B", "price": 75}]
	}`, string(env.Result))

	rec, env = do(t, srv, http.MethodGet, "/dishes/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["Mains","Sides"]`, string(env.Result))

	rec, _ = do(t, srv, http.MethodPut, "/dishes/99", `{"name":"Ghost","category":"Mains","price":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRPC(t *testing.T) {
	srv := newServer(t)

	rec, env := do(t, srv, http.MethodPost, "/rpc", `{"request_id":"abc","operation":"getDishes"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", env.RequestID)
	assert.Equal(t, facade.OpGetDishes, env.Operation)
	assert.True(t, env.Success)

	rec, env = do(t, srv, http.MethodPost, "/rpc", `{"operation":"toggleOrderPayment","payload":{"order_id":5}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, env.RequestID)
	assert.JSONEq(t, `{"isPaymentDone":false}`, string(env.Result))
}

func TestRequestIDPropagation(t *testing.T) {
	srv := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "req-42", env.RequestID)
}

func TestHealthCheck(t *testing.T) {
	rec, _ := do(t, newServer(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	srv := newServerWith(t, memory.New(), downStore{})
	rec, _ = do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unhealthy")
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
