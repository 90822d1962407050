package orders

import "hash/fnv"

const (
	TopicOrders         = "orders"
	TopicOrderStatus    = "order-status"
	TopicReactions      = "reactions"
	TopicDeadLetter     = "dead-letter"
	TopicKitchenMetrics = "kitchen-metrics"
)

// Consumer groups. Kitchens compete inside one group; every other reader
// gets its own group and therefore a full copy of the stream.
const (
	GroupKitchens     = "kitchens"
	GroupDashboard    = "dashboard"
	GroupClientStatus = "client-status"
)

// ClientStatusGroupFor gives each API replica its own client-status group,
// so every replica sees every status update for its SSE clients.
func ClientStatusGroupFor(instance string) string {
	if instance == "" {
		return GroupClientStatus
	}
	return GroupClientStatus + "-" + instance
}

// ClientAppID is the kitchenId stamped on updates the customer makes
// themselves, such as confirming delivery.
const ClientAppID = "client-app"

// OrdersTopicPartitions must match the partition count the orders topic is
// created with.
const OrdersTopicPartitions = 3

// Topics lists every channel of the deployment.
func Topics() []string {
	return []string{TopicOrders, TopicOrderStatus, TopicReactions, TopicDeadLetter, TopicKitchenMetrics}
}

// PartitionFor maps a key onto [0, n) with FNV-1a 32. This is the wire
// contract: every producer and partition-aware reader must use it.
func PartitionFor(key string, n int) int {
	if n <= 0 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

// OrderPartition returns the orders-topic partition of an order.
func OrderPartition(orderID string) int {
	return PartitionFor(orderID, OrdersTopicPartitions)
}

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
