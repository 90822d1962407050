package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-food-court/internal/dashboard"
	"github.com/ariefcatur/go-food-court/internal/orders"
	"github.com/ariefcatur/go-food-court/internal/store"
)

const SessionCookie = "food_court_session"

type AccountStore interface {
	Register(ctx context.Context, in store.RegisterInput) (store.PublicUser, error)
	Authenticate(ctx context.Context, email, password string) (store.PublicUser, error)
	CreateSession(ctx context.Context, userID string) (store.Session, error)
	RevokeSession(ctx context.Context, token string) error
	ResolveSession(ctx context.Context, token string) (*store.PublicUser, error)
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
	OrdersByUser(ctx context.Context, userID string) ([]orders.Order, error)
}

type OrderPublisher interface {
	PublishOrder(ctx context.Context, o orders.Order) error
	PublishOrderStatus(ctx context.Context, orderID string, status orders.Status, kitchenID, reason string) error
}

type ReactionPublisher interface {
	PublishReaction(ctx context.Context, userID, reaction string) error
}

// OrdersHandler is the customer-facing API: accounts, placing orders,
// reactions and a live feed of status changes.
type OrdersHandler struct {
	Store        AccountStore
	Orders       OrderPublisher
	Reactions    ReactionPublisher
	Statuses     *dashboard.Broadcaster[orders.OrderStatusUpdate]
	SecureCookie bool
	KeepAlive    time.Duration
}

type RegisterReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateOrderReq struct {
	FoodType orders.FoodType `json:"foodType"`
	Quantity int             `json:"quantity"`
	Notes    string          `json:"notes,omitempty"`
}

type CreateOrderResp struct {
	OrderID   string `json:"orderId"`
	Partition int    `json:"partition"`
}

type ReactionReq struct {
	Reaction string `json:"reaction"`
}

type ctxKey struct{}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(RequestTimeout))
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)
		r.Post("/auth/logout", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireUser)
			r.Get("/auth/me", h.me)
			r.Post("/orders", h.createOrder)
			r.Get("/orders", h.myOrders)
			r.Get("/orders/{id}", h.getOrder)
			r.Post("/orders/{id}/deliver", h.confirmDelivery)
			r.Post("/reactions", h.react)
		})
	})
	r.With(h.requireUser).Get("/orders/stream", h.statusStream)
}

func userFrom(ctx context.Context) store.PublicUser {
	u, _ := ctx.Value(ctxKey{}).(store.PublicUser)
	return u
}

func (h *OrdersHandler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil || c.Value == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
			return
		}
		u, err := h.Store.ResolveSession(r.Context(), c.Value)
		if err != nil {
			writeError(w, err)
			return
		}
		if u == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session expired"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, *u)))
	})
}

func (h *OrdersHandler) startSession(w http.ResponseWriter, r *http.Request, u store.PublicUser, code int) {
	sess, err := h.Store.CreateSession(r.Context(), u.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, code, u)
}

func (h *OrdersHandler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	u, err := h.Store.Register(r.Context(), store.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(w, err)
		return
	}
	h.startSession(w, r, u, http.StatusCreated)
}

func (h *OrdersHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	u, err := h.Store.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	h.startSession(w, r, u, http.StatusOK)
}

func (h *OrdersHandler) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		if err := h.Store.RevokeSession(r.Context(), c.Value); err != nil {
			writeError(w, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: h.SecureCookie})
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()))
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u := userFrom(ctx)
	o := orders.NewOrder(u.ID, u.Name, req.FoodType, req.Quantity)
	o.Notes = req.Notes
	// invalid orders are dead-lettered by the producer and come back rejected
	if err := h.Orders.PublishOrder(ctx, o); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, CreateOrderResp{OrderID: o.OrderID, Partition: orders.OrderPartition(o.OrderID)})
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.OrdersByUser(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if o == nil || o.UserID != userFrom(ctx).ID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// confirmDelivery lets the customer close out their own READY order.
func (h *OrdersHandler) confirmDelivery(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Store.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if o == nil || o.UserID != userFrom(ctx).ID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err := h.Orders.PublishOrderStatus(ctx, orderID, orders.StatusDelivered, orders.ClientAppID, ""); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"outcome": "ok"})
}

func (h *OrdersHandler) react(w http.ResponseWriter, r *http.Request) {
	var req ReactionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Reactions.PublishReaction(r.Context(), userFrom(r.Context()).ID, req.Reaction); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"outcome": "ok"})
}

// statusStream feeds status changes. ?orderId= narrows it to one order.
func (h *OrdersHandler) statusStream(w http.ResponseWriter, r *http.Request) {
	var keep func(orders.OrderStatusUpdate) bool
	if id := r.URL.Query().Get("orderId"); id != "" {
		keep = func(u orders.OrderStatusUpdate) bool { return u.OrderID == id }
	}
	serveSSE(w, r, h.Statuses, nil, h.KeepAlive, keep)
}
