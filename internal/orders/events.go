package orders

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusUpdated = "order.status_updated"
	EventOrderDeadLetter    = "order.dead_letter"
	EventReaction           = "reaction.created"
	EventKitchenMetric      = "kitchen.metric"
)

const (
	HeaderContentType = "content-type"
	HeaderEventType   = "event-type"

	ContentTypeJSON = "application/json"
)
