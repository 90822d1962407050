package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-food-court/internal/dashboard"
	"github.com/ariefcatur/go-food-court/internal/orders"
	"github.com/ariefcatur/go-food-court/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r := NewRouter(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func newDashboardRouter(t *testing.T, st *store.Store) (http.Handler, *DashboardHandler) {
	t.Helper()
	h := &DashboardHandler{
		Store:     st,
		Live:      dashboard.NewLiveStats(),
		Stream:    dashboard.NewBroadcaster[dashboard.Update]("test-http", 0, nil),
		KeepAlive: 20 * time.Millisecond,
	}
	r := NewRouter(nil)
	h.Register(r)
	return r, h
}

func TestDashboard_Stats(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	_, err := st.SaveOrder(ctx, orders.NewOrder("u1", "Ana", orders.FoodBurger, 3))
	require.NoError(t, err)

	r, h := newDashboardRouter(t, st)
	h.Live.ApplyReaction(orders.ReactionEvent{Reaction: "🔥"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got orders.DashboardStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 1, got.TotalOrders)
	assert.Equal(t, 1, got.OrdersByFoodType[orders.FoodBurger])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats/live", nil))
	require.Equal(t, http.StatusOK, w.Code)
	got = orders.DashboardStats{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 0, got.TotalOrders)
	assert.Equal(t, 1, got.ReactionCounts["🔥"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders?limit=5", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"foodType":"burger"`)
}

func TestDashboard_StatsUnavailable(t *testing.T) {
	st := openStore(t)
	r, _ := newDashboardRouter(t, st)
	require.NoError(t, st.Close())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"outcome":"unavailable"`)
}

func TestDashboard_Stream(t *testing.T) {
	r, h := newDashboardRouter(t, openStore(t))
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func(prefix string) string {
		for lines.Scan() {
			if l := lines.Text(); strings.HasPrefix(l, prefix) {
				return l
			}
		}
		t.Fatalf("stream ended before %q", prefix)
		return ""
	}

	assert.Equal(t, ": connected", next(": connected"))
	assert.Contains(t, next("data: "), `"description":"connected"`)

	require.Eventually(t, func() bool { return h.Stream.Len() == 1 }, time.Second, 5*time.Millisecond)
	st := h.Live.ApplyReaction(orders.ReactionEvent{Reaction: "🚀"})
	h.Stream.Publish(dashboard.Update{Stats: st, Description: "Reaction: 🚀"})

	var u dashboard.Update
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(next("data: "), "data: ")), &u))
	assert.Equal(t, "Reaction: 🚀", u.Description)
	assert.Equal(t, 1, u.Stats.ReactionCounts["🚀"])

	assert.Equal(t, ": keepalive", next(": keepalive"))
}

type fakeTransitioner struct {
	err  error
	last StatusReq
}

func (f *fakeTransitioner) Transition(_ context.Context, _ string, status orders.Status, reason string) error {
	f.last = StatusReq{Status: status, Reason: reason}
	return f.err
}

func TestKitchen_Partitions(t *testing.T) {
	h := &KitchenHandler{KitchenID: "kitchen-1", Partitions: func() []int { return []int{0, 2} }}
	r := NewRouter(nil)
	h.Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/partitions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got PartitionsResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, PartitionsResp{KitchenID: "kitchen-1", Partitions: []int{0, 2}}, got)
}

func TestKitchen_ListOrdersFiltersByOwnership(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	// "abc123" hashes to partition 0
	mine := orders.Order{OrderID: "abc123", UserName: "Ana", FoodType: orders.FoodPizza, Quantity: 1}
	claimed := orders.Order{OrderID: "abc123-x", UserName: "Ana", FoodType: orders.FoodTaco, Quantity: 1, KitchenID: "kitchen-9"}
	for _, o := range []orders.Order{mine, claimed} {
		_, err := st.SaveOrder(ctx, o)
		require.NoError(t, err)
	}

	h := &KitchenHandler{KitchenID: "kitchen-1", Partitions: func() []int { return []int{0} }, Orders: st}
	r := NewRouter(nil)
	h.Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Orders []orders.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Orders, 1)
	assert.Equal(t, "abc123", got.Orders[0].OrderID)
}

func TestKitchen_UpdateStatus(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		code int
	}{
		{"ok", `{"status":"PREPARING"}`, nil, http.StatusOK},
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"missing status", `{}`, nil, http.StatusBadRequest},
		{"illegal transition", `{"status":"DELIVERED"}`, &store.TransitionError{OrderID: "o1", From: orders.StatusPending, To: orders.StatusDelivered}, http.StatusConflict},
		{"unknown order", `{"status":"READY"}`, store.ErrOrderNotFound, http.StatusNotFound},
		{"store busy", `{"status":"READY"}`, store.ErrBusy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeTransitioner{err: tt.err}
			h := &KitchenHandler{KitchenID: "kitchen-1", Service: svc}
			r := NewRouter(nil)
			h.Register(r)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders/o1/status", strings.NewReader(tt.body)))
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

type savingPublisher struct {
	st        *store.Store
	reactions []string
	statuses  []orders.OrderStatusUpdate
}

func (p *savingPublisher) PublishOrderStatus(ctx context.Context, orderID string, status orders.Status, kitchenID, reason string) error {
	u := orders.OrderStatusUpdate{OrderID: orderID, Status: status, KitchenID: kitchenID, Reason: reason}
	if _, err := p.st.UpdateOrderStatus(ctx, u); err != nil {
		return err
	}
	p.statuses = append(p.statuses, u)
	return nil
}

func (p *savingPublisher) PublishOrder(ctx context.Context, o orders.Order) error {
	if err := orders.ValidateOrder(o); err != nil {
		return err
	}
	_, err := p.st.SaveOrder(ctx, o)
	return err
}

func (p *savingPublisher) PublishReaction(_ context.Context, userID, reaction string) error {
	if err := orders.ValidateReaction(userID, reaction); err != nil {
		return err
	}
	p.reactions = append(p.reactions, reaction)
	return nil
}

func newOrdersRouter(t *testing.T) (http.Handler, *OrdersHandler, *savingPublisher) {
	t.Helper()
	st := openStore(t)
	pub := &savingPublisher{st: st}
	h := &OrdersHandler{
		Store:     st,
		Orders:    pub,
		Reactions: pub,
		Statuses:  dashboard.NewBroadcaster[orders.OrderStatusUpdate]("test-status", 0, nil),
		KeepAlive: time.Second,
	}
	r := NewRouter(nil)
	h.Register(r)
	return r, h, pub
}

func do(t *testing.T, r http.Handler, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestOrders_AccountFlow(t *testing.T) {
	r, _, _ := newOrdersRouter(t)

	w := do(t, r, http.MethodPost, "/auth/register", `{"name":"Ana","email":"Ana@Example.com","password":"correct horse"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	ana := sessionCookie(t, w)
	assert.True(t, ana.HttpOnly)
	assert.NotContains(t, w.Body.String(), "passwordHash")

	w = do(t, r, http.MethodPost, "/auth/register", `{"name":"Ana","email":"ana@example.com","password":"correct horse"}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, "/auth/register", `{"name":"B","email":"b@example.com","password":"short"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"wrong password"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"correct horse"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	second := sessionCookie(t, w)

	w = do(t, r, http.MethodGet, "/auth/me", "", ana)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"ana@example.com"`)

	w = do(t, r, http.MethodPost, "/auth/logout", "", ana)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, r, http.MethodGet, "/auth/me", "", ana)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodGet, "/auth/me", "", second)
	assert.Equal(t, http.StatusOK, w.Code, "other sessions survive a logout")

	w = do(t, r, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrders_PlaceAndRead(t *testing.T) {
	r, _, pub := newOrdersRouter(t)

	ana := sessionCookie(t, do(t, r, http.MethodPost, "/auth/register", `{"name":"Ana","email":"ana@example.com","password":"correct horse"}`, nil))
	budi := sessionCookie(t, do(t, r, http.MethodPost, "/auth/register", `{"name":"Budi","email":"budi@example.com","password":"correct horse"}`, nil))

	w := do(t, r, http.MethodPost, "/orders", `{"foodType":"pizza","quantity":2}`, ana)
	require.Equal(t, http.StatusAccepted, w.Code)
	var created CreateOrderResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, orders.OrderPartition(created.OrderID), created.Partition)

	w = do(t, r, http.MethodPost, "/orders", `{"foodType":"pizza","quantity":11}`, ana)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"rejected"`)

	w = do(t, r, http.MethodGet, "/orders/"+created.OrderID, "", ana)
	require.Equal(t, http.StatusOK, w.Code)
	var o orders.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.Equal(t, "Ana", o.UserName)
	assert.Equal(t, orders.StatusPending, o.Status)

	w = do(t, r, http.MethodGet, "/orders/"+created.OrderID, "", budi)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/orders", "", budi)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"orders":[]}`, w.Body.String())

	w = do(t, r, http.MethodPost, "/reactions", `{"reaction":"🔥"}`, budi)
	assert.Equal(t, http.StatusAccepted, w.Code)
	w = do(t, r, http.MethodPost, "/reactions", `{"reaction":"nope"}`, budi)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"🔥"}, pub.reactions)
}

func TestOrders_ConfirmDelivery(t *testing.T) {
	r, _, pub := newOrdersRouter(t)
	ctx := context.Background()

	ana := sessionCookie(t, do(t, r, http.MethodPost, "/auth/register", `{"name":"Ana","email":"ana@example.com","password":"correct horse"}`, nil))
	budi := sessionCookie(t, do(t, r, http.MethodPost, "/auth/register", `{"name":"Budi","email":"budi@example.com","password":"correct horse"}`, nil))

	w := do(t, r, http.MethodPost, "/orders", `{"foodType":"taco","quantity":1}`, ana)
	require.Equal(t, http.StatusAccepted, w.Code)
	var created CreateOrderResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.OrderID

	w = do(t, r, http.MethodPost, "/orders/"+id+"/deliver", "", ana)
	assert.Equal(t, http.StatusConflict, w.Code, "not ready yet")

	for _, st := range []orders.Status{orders.StatusPreparing, orders.StatusReady} {
		_, err := pub.st.UpdateOrderStatus(ctx, orders.OrderStatusUpdate{OrderID: id, Status: st, KitchenID: "kitchen-1"})
		require.NoError(t, err)
	}

	w = do(t, r, http.MethodPost, "/orders/"+id+"/deliver", "", budi)
	assert.Equal(t, http.StatusNotFound, w.Code, "only the owner confirms")
	w = do(t, r, http.MethodPost, "/orders/missing/deliver", "", ana)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, r, http.MethodPost, "/orders/"+id+"/deliver", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/orders/"+id+"/deliver", "", ana)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, pub.statuses, 1)
	assert.Equal(t, orders.StatusDelivered, pub.statuses[0].Status)
	assert.Equal(t, orders.ClientAppID, pub.statuses[0].KitchenID)

	got, err := pub.st.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusDelivered, got.Status)
}

func TestOrders_StatusStreamFilters(t *testing.T) {
	r, h, _ := newOrdersRouter(t)
	ana := sessionCookie(t, do(t, r, http.MethodPost, "/auth/register", `{"name":"Ana","email":"ana@example.com","password":"correct horse"}`, nil))

	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/orders/stream?orderId=o2", nil)
	require.NoError(t, err)
	req.AddCookie(ana)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool { return h.Statuses.Len() == 1 }, time.Second, 5*time.Millisecond)
	h.Statuses.Publish(orders.OrderStatusUpdate{OrderID: "o1", Status: orders.StatusPreparing, KitchenID: "k"})
	h.Statuses.Publish(orders.OrderStatusUpdate{OrderID: "o2", Status: orders.StatusReady, KitchenID: "k"})

	lines := bufio.NewScanner(resp.Body)
	for lines.Scan() {
		l := lines.Text()
		if !strings.HasPrefix(l, "data: ") {
			continue
		}
		var u orders.OrderStatusUpdate
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(l, "data: ")), &u))
		assert.Equal(t, "o2", u.OrderID)
		return
	}
	t.Fatal("no status event received")
}
