package orders

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

type FoodType string

const (
	FoodPizza  FoodType = "pizza"
	FoodBurger FoodType = "burger"
	FoodTaco   FoodType = "taco"
)

var foodTypes = []FoodType{FoodPizza, FoodBurger, FoodTaco}

var reactions = []string{"🔥", "👏", "😮", "👍", "🚀"}

func FoodTypes() []FoodType { return slices.Clone(foodTypes) }

func (f FoodType) Valid() bool { return slices.Contains(foodTypes, f) }

func Reactions() []string { return slices.Clone(reactions) }

func ValidReaction(r string) bool { return slices.Contains(reactions, r) }

const (
	MinQuantity = 1
	MaxQuantity = 10
)

type Order struct {
	OrderID   string     `json:"orderId"`
	UserID    string     `json:"userId"`
	UserName  string     `json:"userName"`
	FoodType  FoodType   `json:"foodType"`
	Item      string     `json:"item"`
	Quantity  int        `json:"quantity"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	KitchenID string     `json:"kitchenId,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// NewOrder builds a PENDING order with a fresh id.
func NewOrder(userID, userName string, food FoodType, quantity int) Order {
	return Order{
		OrderID:   NewOrderID(),
		UserID:    userID,
		UserName:  userName,
		FoodType:  food,
		Item:      string(food) + " Special",
		Quantity:  quantity,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

func NewOrderID() string { return uuid.NewString() }

type OrderStatusUpdate struct {
	OrderID   string    `json:"orderId"`
	Status    Status    `json:"status"`
	KitchenID string    `json:"kitchenId"`
	UpdatedAt time.Time `json:"updatedAt"`
	Reason    string    `json:"reason,omitempty"`
}

type ReactionEvent struct {
	UserID    string    `json:"userId"`
	Reaction  string    `json:"reaction"`
	Timestamp time.Time `json:"timestamp"`
}

type DeadLetterMessage struct {
	OriginalTopic   string    `json:"originalTopic"`
	OriginalMessage string    `json:"originalMessage"`
	Reason          string    `json:"reason"`
	FailedAt        time.Time `json:"failedAt"`
}

type KitchenMetric struct {
	KitchenID               string    `json:"kitchenId"`
	OrdersProcessed         int       `json:"ordersProcessed"`
	AverageProcessingTimeMs int64     `json:"averageProcessingTimeMs"`
	Timestamp               time.Time `json:"timestamp"`
}

type DashboardStats struct {
	TotalOrders      int                      `json:"totalOrders"`
	PendingOrders    int                      `json:"pendingOrders"`
	PreparingOrders  int                      `json:"preparingOrders"`
	ReadyOrders      int                      `json:"readyOrders"`
	DeliveredOrders  int                      `json:"deliveredOrders"`
	RejectedOrders   int                      `json:"rejectedOrders"`
	ReactionCounts   map[string]int           `json:"reactionCounts"`
	OrdersByFoodType map[FoodType]int         `json:"ordersByFoodType"`
	KitchenStats     map[string]KitchenMetric `json:"kitchenStats"`
}

// EmptyStats returns an all-zero aggregate with every food type present.
func EmptyStats() DashboardStats {
	byFood := make(map[FoodType]int, len(foodTypes))
	for _, f := range foodTypes {
		byFood[f] = 0
	}
	return DashboardStats{
		ReactionCounts:   map[string]int{},
		OrdersByFoodType: byFood,
		KitchenStats:     map[string]KitchenMetric{},
	}
}

// Bucket returns a pointer to the per-status counter for s.
func (d *DashboardStats) Bucket(s Status) *int {
	switch s {
	case StatusPending:
		return &d.PendingOrders
	case StatusPreparing:
		return &d.PreparingOrders
	case StatusReady:
		return &d.ReadyOrders
	case StatusDelivered:
		return &d.DeliveredOrders
	case StatusRejected:
		return &d.RejectedOrders
	}
	return nil
}

// Clone deep-copies the maps so the copy can leave the owner's lock.
func (d DashboardStats) Clone() DashboardStats {
	out := d
	out.ReactionCounts = maps.Clone(d.ReactionCounts)
	out.OrdersByFoodType = maps.Clone(d.OrdersByFoodType)
	out.KitchenStats = maps.Clone(d.KitchenStats)
	return out
}
