package services

import (
	"time"

	"YellowbellPOS/app/database"
	"YellowbellPOS/app/models"

	"gorm.io/gorm"
)

// Backend wires every service around one store and one event bus
type Backend struct {
	Store         *database.Store
	Bus           *EventBus
	Notifications *NotificationService
	Inventory     *InventoryService
	Kitchen       *KitchenService
	Orders        *OrderService
	Prepared      *PreparedService
}

// NewBackend creates the services over store. sinks receive every committed event.
func NewBackend(store *database.Store, sinks ...EventSink) *Backend {
	bus := NewEventBus(sinks...)
	notifications := NewNotificationService(store, bus)
	kitchen := NewKitchenService(store, bus, notifications)

	return &Backend{
		Store:         store,
		Bus:           bus,
		Notifications: notifications,
		Inventory:     NewInventoryService(store, bus, notifications),
		Kitchen:       kitchen,
		Orders:        NewOrderService(store, bus, notifications, kitchen),
		Prepared:      NewPreparedService(store, bus, notifications),
	}
}

// Snapshot returns the full current contents of a collection
func (b *Backend) Snapshot(collection models.Collection) (interface{}, error) {
	var out interface{}
	err := b.Store.View(func(db *gorm.DB) error {
		var err error
		out, err = SnapshotCollection(db, collection)
		return err
	})
	return out, err
}

// KitchenBoard returns today's grouped kitchen board
func (b *Backend) KitchenBoard() ([]KitchenGroup, error) {
	return b.Kitchen.GetBoard()
}

// MarkItemAsCooked forwards to the order lifecycle
func (b *Backend) MarkItemAsCooked(kitchenItemID string, qty int) error {
	return b.Orders.MarkItemAsCooked(kitchenItemID, qty)
}

// UndoCooked forwards to the order lifecycle
func (b *Backend) UndoCooked(itemName string, qty int) error {
	return b.Orders.UndoCooked(itemName, qty)
}

// MarkOrderAsDelivered forwards to the order lifecycle
func (b *Backend) MarkOrderAsDelivered(orderID string) error {
	return b.Orders.MarkOrderAsDelivered(orderID)
}

// MarkOrderAsUndelivered forwards to the order lifecycle
func (b *Backend) MarkOrderAsUndelivered(orderID string) error {
	return b.Orders.MarkOrderAsUndelivered(orderID)
}

// PlaceOrder forwards to the order lifecycle
func (b *Backend) PlaceOrder(req PlaceOrderRequest) (*models.CustomerOrder, error) {
	return b.Orders.PlaceOrder(req)
}

// DeleteOrder forwards to the order lifecycle
func (b *Backend) DeleteOrder(orderID string) error {
	return b.Orders.DeleteOrder(orderID)
}

// ConfirmPrepared forwards to the prepared-stock tracker
func (b *Backend) ConfirmPrepared(items []CartLine, mealType string) (*models.PreparedOrder, error) {
	return b.Prepared.ConfirmPrepared(items, mealType)
}

// ConvertToOrder forwards to the prepared-stock tracker
func (b *Backend) ConvertToOrder(preparedID string, perItemQty []int, customerName string) (*models.SalesOrder, error) {
	return b.Prepared.ConvertToOrder(preparedID, perItemQty, customerName)
}

// DeletePrepared forwards to the prepared-stock tracker
func (b *Backend) DeletePrepared(preparedID string) error {
	return b.Prepared.DeletePrepared(preparedID)
}

// SetClock replaces the time source of every service
func (b *Backend) SetClock(clock func() time.Time) {
	b.Notifications.SetClock(clock)
	b.Inventory.SetClock(clock)
	b.Kitchen.SetClock(clock)
	b.Orders.SetClock(clock)
	b.Prepared.SetClock(clock)
}
