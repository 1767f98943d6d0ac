package models

import "time"

// EventType names a committed state change
type EventType string

const (
	EventInventoryChanged  EventType = "inventory_changed"
	EventOrderPlaced       EventType = "order_placed"
	EventOrderDeleted      EventType = "order_deleted"
	EventItemCooked        EventType = "item_cooked"
	EventCookUndone        EventType = "cook_undone"
	EventOrderDelivered    EventType = "order_delivered"
	EventOrderUndelivered  EventType = "order_undelivered"
	EventPreparedConfirmed EventType = "prepared_confirmed"
	EventPreparedConverted EventType = "prepared_converted"
	EventPreparedDeleted   EventType = "prepared_deleted"
	EventNotification      EventType = "notification"
)

// Collection names a persisted collection, used to drive mirroring
type Collection string

const (
	CollectionInventory      Collection = "inventory"
	CollectionCustomerOrders Collection = "customer_orders"
	CollectionSalesOrders    Collection = "sales_orders"
	CollectionKitchenItems   Collection = "kitchen_items"
	CollectionPreparedOrders Collection = "prepared_orders"
	CollectionNotifications  Collection = "notifications"
)

// AllCollections lists every mirrored collection
var AllCollections = []Collection{
	CollectionInventory, CollectionCustomerOrders, CollectionSalesOrders,
	CollectionKitchenItems, CollectionPreparedOrders, CollectionNotifications,
}

// Event is published after a mutation commits
type Event struct {
	Type            EventType     `json:"type"`
	OrderID         string        `json:"order_id,omitempty"`
	OrderNumber     string        `json:"order_number,omitempty"`
	KitchenItemID   string        `json:"kitchen_item_id,omitempty"`
	ItemID          string        `json:"item_id,omitempty"`
	ItemName        string        `json:"item_name,omitempty"`
	Quantity        int           `json:"quantity,omitempty"`
	PreparedOrderID string        `json:"prepared_order_id,omitempty"`
	Notification    *Notification `json:"notification,omitempty"`
	Collections     []Collection  `json:"collections,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
}

// IsKitchenEvent reports whether kitchen displays care about this event
func (e Event) IsKitchenEvent() bool {
	switch e.Type {
	case EventOrderPlaced, EventOrderDeleted, EventItemCooked, EventCookUndone,
		EventOrderDelivered, EventOrderUndelivered:
		return true
	}
	return false
}
