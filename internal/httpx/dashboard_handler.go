package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-food-court/internal/dashboard"
	"github.com/ariefcatur/go-food-court/internal/orders"
)

const DefaultKeepAlive = 15 * time.Second

type StatsStore interface {
	Stats(ctx context.Context) (orders.DashboardStats, error)
	RecentOrders(ctx context.Context, limit int) ([]orders.Order, error)
}

type DashboardHandler struct {
	Store     StatsStore // authoritative
	Live      *dashboard.LiveStats
	Stream    *dashboard.Broadcaster[dashboard.Update]
	KeepAlive time.Duration // 0 means DefaultKeepAlive
}

func (h *DashboardHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(RequestTimeout))
		r.Get("/stats", h.stats)
		r.Get("/stats/live", h.liveStats)
		r.Get("/orders", h.recentOrders)
	})
	r.Get("/stream", h.stream)
}

func (h *DashboardHandler) stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	st, err := h.Store.Stats(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *DashboardHandler) liveStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Live.Snapshot())
}

func (h *DashboardHandler) recentOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	list, err := h.Store.RecentOrders(ctx, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list})
}

// stream is a server-sent event feed of dashboard updates. It opens with
// the current live snapshot.
func (h *DashboardHandler) stream(w http.ResponseWriter, r *http.Request) {
	hello := dashboard.Update{Stats: h.Live.Snapshot(), Description: "connected"}
	serveSSE(w, r, h.Stream, &hello, h.KeepAlive, nil)
}
