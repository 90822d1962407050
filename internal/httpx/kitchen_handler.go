package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-food-court/internal/orders"
)

type Transitioner interface {
	Transition(ctx context.Context, orderID string, status orders.Status, reason string) error
}

type RecentOrders interface {
	RecentOrders(ctx context.Context, limit int) ([]orders.Order, error)
}

type KitchenHandler struct {
	KitchenID  string
	Partitions func() []int
	Service    Transitioner
	Orders     RecentOrders
}

type StatusReq struct {
	Status orders.Status `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

type PartitionsResp struct {
	KitchenID  string `json:"kitchenId"`
	Partitions []int  `json:"partitions"`
}

func (h *KitchenHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(RequestTimeout))
		r.Get("/partitions", h.partitions)
		r.Get("/orders", h.listOrders)
		r.Post("/orders/{id}/status", h.updateStatus)
	})
}

func (h *KitchenHandler) partitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PartitionsResp{KitchenID: h.KitchenID, Partitions: h.Partitions()})
}

// listOrders: order yang relevan untuk kitchen ini saja. Order yang sudah
// punya kitchenId ikut kitchen itu; sisanya ikut partisi yang di-assign.
func (h *KitchenHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Orders.RecentOrders(ctx, 0)
	if err != nil {
		writeError(w, err)
		return
	}

	assigned := map[int]bool{}
	for _, p := range h.Partitions() {
		assigned[p] = true
	}
	out := make([]orders.Order, 0, len(list))
	for _, o := range list {
		if o.KitchenID != "" {
			if o.KitchenID == h.KitchenID {
				out = append(out, o)
			}
			continue
		}
		if assigned[orders.OrderPartition(o.OrderID)] {
			out = append(out, o)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}

func (h *KitchenHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req StatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if orderID == "" || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Service.Transition(ctx, orderID, req.Status, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcome": "ok", "orderId": orderID, "status": req.Status})
}
