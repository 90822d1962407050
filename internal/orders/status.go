package orders

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusDelivered Status = "DELIVERED"
	StatusRejected  Status = "REJECTED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPreparing: true, StatusRejected: true},
	StatusPreparing: {StatusReady: true, StatusRejected: true},
	StatusReady:     {StatusDelivered: true},
	StatusDelivered: {},
	StatusRejected:  {},
}

// Statuses in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusPreparing, StatusReady, StatusDelivered, StatusRejected}
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s Status) Terminal() bool {
	return s.Valid() && len(validNext[s]) == 0
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Predecessor is the status an order usually leaves when it enters s.
// Used when the actual previous status is unknown.
func Predecessor(s Status) (Status, bool) {
	switch s {
	case StatusPreparing, StatusRejected:
		return StatusPending, true
	case StatusReady:
		return StatusPreparing, true
	case StatusDelivered:
		return StatusReady, true
	}
	return "", false
}
