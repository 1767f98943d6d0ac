package services

import (
	"context"
	"fmt"
	"time"

	"YellowbellPOS/app/database"
	"YellowbellPOS/app/models"

	"gorm.io/gorm"
)

// BaseService provides the store, event bus and clock shared by every service
type BaseService struct {
	store    *database.Store
	bus      *EventBus
	notifier *NotificationService
	clock    func() time.Time
}

// NewBaseService creates a new base service instance
func NewBaseService(store *database.Store, bus *EventBus, notifier *NotificationService) BaseService {
	return BaseService{
		store:    store,
		bus:      bus,
		notifier: notifier,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// EnsureStore checks if the store is set and returns an error if not
func (b *BaseService) EnsureStore() error {
	if b.store == nil {
		return fmt.Errorf("store not initialized")
	}
	return nil
}

// WithTransaction executes fn atomically against the store
func (b *BaseService) WithTransaction(fn func(tx *gorm.DB) error) error {
	if err := b.EnsureStore(); err != nil {
		return err
	}
	return b.store.Update(fn)
}

// WithReader executes fn against a consistent read view of the store
func (b *BaseService) WithReader(fn func(db *gorm.DB) error) error {
	if err := b.EnsureStore(); err != nil {
		return err
	}
	return b.store.View(fn)
}

// SetClock replaces the time source (useful for testing)
func (b *BaseService) SetClock(clock func() time.Time) {
	b.clock = clock
}

func (b *BaseService) now() time.Time {
	return b.clock()
}

// publish sends a committed event to every subscriber
func (b *BaseService) publish(evt models.Event) {
	if b.bus == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = b.now()
	}
	b.bus.Publish(context.Background(), evt)
}

// notify records a notification. Failures are logged and never reach the caller.
func (b *BaseService) notify(kind models.NotificationType, title, message string, priority models.NotificationPriority) {
	if b.notifier == nil {
		return
	}
	b.notifier.SaveNotification(kind, title, message, priority)
}

// reportStockChanges raises low/out-of-stock notifications for items whose stock fell across a threshold
func (b *BaseService) reportStockChanges(changes []stockChange) {
	for _, change := range changes {
		item := change.Item
		if item.Status == change.Before || item.Stock >= change.BeforeStock {
			continue
		}
		switch item.Status {
		case models.StockStatusOutOfStock:
			b.notify(models.NotificationOutOfStock,
				fmt.Sprintf("Out of stock: %s", item.Name),
				fmt.Sprintf("%s is out of stock", item.Name),
				models.PriorityHigh)
		case models.StockStatusLowStock:
			b.notify(models.NotificationLowStock,
				fmt.Sprintf("Low stock: %s", item.Name),
				fmt.Sprintf("%s has %d left", item.Name, item.Stock),
				models.PriorityMedium)
		}
	}
}

// startOfDay returns local midnight for t, in UTC
func startOfDay(t time.Time) time.Time {
	local := t.Local()
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local).UTC()
}
