package services

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"YellowbellPOS/app/database"
	"YellowbellPOS/app/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KitchenRow is one customer's share of a kitchen group
type KitchenRow struct {
	OrderID      string             `json:"orderId"`
	OrderNumber  string             `json:"orderNumber"`
	CustomerName string             `json:"customerName"`
	Ordered      int                `json:"ordered"`
	Cooked       int                `json:"cooked"`
	Pending      int                `json:"pending"`
	OrderStatus  models.OrderStatus `json:"orderStatus"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// KitchenGroup is a kitchen rollup with the customer rows behind it, in cooking order
type KitchenGroup struct {
	models.KitchenItem
	Rows []KitchenRow `json:"rows"`
}

// cookResult describes what a cook or undo action touched
type cookResult struct {
	Kitchen   models.KitchenItem
	Orders    []models.CustomerOrder
	Completed []models.CustomerOrder // orders that became complete
	Reopened  []models.CustomerOrder // orders that went back to incomplete
}

// KitchenService maintains the per-name kitchen rollups and the kitchen board
type KitchenService struct {
	BaseService
}

// NewKitchenService creates a new kitchen service
func NewKitchenService(store *database.Store, bus *EventBus, notifier *NotificationService) *KitchenService {
	return &KitchenService{
		BaseService: NewBaseService(store, bus, notifier),
	}
}

// GetKitchenItems returns every kitchen rollup ordered by name
func (s *KitchenService) GetKitchenItems() ([]models.KitchenItem, error) {
	var items []models.KitchenItem
	err := s.WithReader(func(db *gorm.DB) error {
		return db.Order("name").Find(&items).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load kitchen items: %w", err)
	}
	return items, nil
}

// GetKitchenItem returns one kitchen rollup
func (s *KitchenService) GetKitchenItem(id string) (*models.KitchenItem, error) {
	var item *models.KitchenItem
	err := s.WithReader(func(db *gorm.DB) error {
		var err error
		item, err = kitchenItemByID(db, id)
		return err
	})
	return item, err
}

// GetBoard returns today's kitchen groups: anything ordered today plus anything still
// pending from earlier. Groups with pending units come first, then by name.
func (s *KitchenService) GetBoard() ([]KitchenGroup, error) {
	since := startOfDay(s.now())

	var groups []KitchenGroup
	err := s.WithReader(func(db *gorm.DB) error {
		var orders []models.CustomerOrder
		if err := db.Where("created_at >= ? OR status = ?", since, models.OrderStatusIncomplete).
			Find(&orders).Error; err != nil {
			return err
		}

		var items []models.KitchenItem
		if err := db.Where("total_ordered > 0").Find(&items).Error; err != nil {
			return err
		}

		for _, item := range items {
			group := KitchenGroup{KitchenItem: item}
			members := ordersWithItem(orders, item.Name)
			sortForCooking(members)
			for _, order := range members {
				group.Rows = append(group.Rows, KitchenRow{
					OrderID:      order.ID,
					OrderNumber:  order.OrderNumber,
					CustomerName: order.CustomerName,
					Ordered:      order.OrderedQuantity(item.Name),
					Cooked:       order.CookedQuantity(item.Name),
					Pending:      order.PendingQuantity(item.Name),
					OrderStatus:  order.Status,
					CreatedAt:    order.CreatedAt,
				})
			}
			if len(group.Rows) > 0 {
				groups = append(groups, group)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build kitchen board: %w", err)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		pi, pj := groups[i].Pending > 0, groups[j].Pending > 0
		if pi != pj {
			return pi
		}
		return groups[i].Name < groups[j].Name
	})
	return groups, nil
}

// MarkGroupCooked marks n units of a name group cooked, filling rows in board order
func (s *KitchenService) MarkGroupCooked(name string, n int) error {
	return s.markCooked(func(tx *gorm.DB) (*models.KitchenItem, error) {
		return kitchenItemByName(tx, name)
	}, n)
}

// markCooked is the single cook path behind MarkGroupCooked and OrderService.MarkItemAsCooked
func (s *KitchenService) markCooked(lookup func(tx *gorm.DB) (*models.KitchenItem, error), qty int) error {
	if qty <= 0 {
		return fmt.Errorf("cook %d: %w", qty, ErrInvalidQuantity)
	}

	var result *cookResult
	err := s.WithTransaction(func(tx *gorm.DB) error {
		item, err := lookup(tx)
		if err != nil {
			return err
		}
		result, err = cookUnitsTx(tx, item, qty, s.now())
		return err
	})
	if err != nil {
		return err
	}

	log.Printf("🍳 Cooked %d x %s (pending %d)", qty, result.Kitchen.Name, result.Kitchen.Pending)
	s.publish(models.Event{
		Type:          models.EventItemCooked,
		KitchenItemID: result.Kitchen.ID,
		ItemName:      result.Kitchen.Name,
		Quantity:      qty,
		Collections:   []models.Collection{models.CollectionKitchenItems, models.CollectionCustomerOrders},
	})
	for _, order := range result.Completed {
		s.notify(models.NotificationKitchen,
			fmt.Sprintf("Order %s ready", order.OrderNumber),
			fmt.Sprintf("All items for %s are cooked", order.CustomerName),
			models.PriorityMedium)
	}
	return nil
}

// undoCooked is the single undo path behind OrderService.UndoCooked
func (s *KitchenService) undoCooked(name string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("undo %d: %w", qty, ErrInvalidQuantity)
	}

	var result *cookResult
	err := s.WithTransaction(func(tx *gorm.DB) error {
		var err error
		result, err = undoCookTx(tx, name, qty)
		return err
	})
	if err != nil {
		return err
	}

	log.Printf("↩️ Undid %d cooked x %s", qty, name)
	s.publish(models.Event{
		Type:          models.EventCookUndone,
		KitchenItemID: result.Kitchen.ID,
		ItemName:      name,
		Quantity:      qty,
		Collections:   []models.Collection{models.CollectionKitchenItems, models.CollectionCustomerOrders},
	})
	return nil
}

func kitchenItemByID(tx *gorm.DB, id string) (*models.KitchenItem, error) {
	var item models.KitchenItem
	if err := tx.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("kitchen item", id)
		}
		return nil, fmt.Errorf("failed to load kitchen item %s: %w", id, err)
	}
	return &item, nil
}

func kitchenItemByName(tx *gorm.DB, name string) (*models.KitchenItem, error) {
	var item models.KitchenItem
	if err := tx.First(&item, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("kitchen item", name)
		}
		return nil, fmt.Errorf("failed to load kitchen item %s: %w", name, err)
	}
	return &item, nil
}

// addOrderedTx adds qty to the rollup for name, creating the row on first use
func addOrderedTx(tx *gorm.DB, name string, qty int) (*models.KitchenItem, error) {
	item, err := kitchenItemByName(tx, name)
	if errors.Is(err, ErrNotFound) {
		item = &models.KitchenItem{ID: uuid.NewString(), Name: name}
	} else if err != nil {
		return nil, err
	}

	item.TotalOrdered += qty
	item.Recount()
	item.Status = models.KitchenStatusToCook
	if err := tx.Save(item).Error; err != nil {
		return nil, fmt.Errorf("failed to update kitchen item %s: %w", name, err)
	}
	return item, nil
}

// removeOrderTx takes an order's ordered and cooked units out of every rollup it touched.
// The order must already be deleted so status refresh no longer sees it.
func removeOrderTx(tx *gorm.DB, order *models.CustomerOrder) error {
	if err := tx.Where("order_id = ?", order.ID).Delete(&models.CookEvent{}).Error; err != nil {
		return fmt.Errorf("failed to delete cook events for %s: %w", order.ID, err)
	}

	for _, name := range order.ItemNames() {
		item, err := kitchenItemByName(tx, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		item.TotalOrdered = max(item.TotalOrdered-order.OrderedQuantity(name), 0)
		item.TotalCooked = min(max(item.TotalCooked-order.CookedQuantity(name), 0), item.TotalOrdered)
		if err := refreshKitchenStatusTx(tx, item); err != nil {
			return err
		}
	}
	return nil
}

// cookUnitsTx marks qty units of the item cooked, spreading them over orders in cooking order
func cookUnitsTx(tx *gorm.DB, item *models.KitchenItem, qty int, now time.Time) (*cookResult, error) {
	if qty > item.Pending {
		return nil, fmt.Errorf("cook %d of %s with %d pending: %w", qty, item.Name, item.Pending, ErrInvalidQuantity)
	}

	orders, err := ordersContainingTx(tx, item.Name)
	if err != nil {
		return nil, err
	}
	sortForCooking(orders)

	result := &cookResult{}
	remaining := qty
	for i := range orders {
		if remaining == 0 {
			break
		}
		order := &orders[i]
		if order.Status != models.OrderStatusIncomplete {
			continue
		}
		take := min(order.PendingQuantity(item.Name), remaining)
		if take == 0 {
			continue
		}

		order.AddCooked(item.Name, take)
		order.RecomputeStatus()
		if err := tx.Save(order).Error; err != nil {
			return nil, fmt.Errorf("failed to update order %s: %w", order.OrderNumber, err)
		}

		cookedAt := now
		event := models.CookEvent{
			KitchenItemID: item.ID,
			OrderID:       order.ID,
			CustomerName:  order.CustomerName,
			ItemName:      item.Name,
			Quantity:      take,
			CookedAt:      &cookedAt,
		}
		if err := tx.Create(&event).Error; err != nil {
			return nil, fmt.Errorf("failed to record cook event: %w", err)
		}

		remaining -= take
		result.Orders = append(result.Orders, *order)
		if order.Status == models.OrderStatusComplete {
			result.Completed = append(result.Completed, *order)
		}
	}

	if remaining > 0 {
		return nil, fmt.Errorf("only %d of %d units of %s are pending on open orders: %w",
			qty-remaining, qty, item.Name, ErrInvalidQuantity)
	}

	cookedAt := now
	item.TotalCooked += qty
	item.CookedAt = &cookedAt
	if err := refreshKitchenStatusTx(tx, item); err != nil {
		return nil, err
	}
	result.Kitchen = *item
	return result, nil
}

// undoCookTx takes back qty cooked units of name, newest cook first.
// Units cooked for delivered orders are not undone.
func undoCookTx(tx *gorm.DB, name string, qty int) (*cookResult, error) {
	item, err := kitchenItemByName(tx, name)
	if err != nil {
		return nil, err
	}
	if qty > item.TotalCooked {
		return nil, fmt.Errorf("undo %d of %s with %d cooked: %w", qty, name, item.TotalCooked, ErrInvalidQuantity)
	}

	var events []models.CookEvent
	if err := tx.Where("item_name = ?", name).
		Order("cooked_at IS NULL, cooked_at DESC, id DESC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to load cook events for %s: %w", name, err)
	}

	result := &cookResult{}
	touched := make(map[string]*models.CustomerOrder)
	var touchedOrder []string
	remaining := qty

	for i := range events {
		if remaining == 0 {
			break
		}
		event := &events[i]

		order, ok := touched[event.OrderID]
		if !ok {
			order, err = customerOrderByID(tx, event.OrderID)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if order.Status == models.OrderStatusDelivered {
				continue
			}
			touched[event.OrderID] = order
			touchedOrder = append(touchedOrder, event.OrderID)
		}

		take := min(event.Quantity, remaining)
		take = order.RemoveCooked(name, take)
		if take == 0 {
			continue
		}
		remaining -= take

		event.Quantity -= take
		if event.Quantity == 0 {
			if err := tx.Delete(&models.CookEvent{}, event.ID).Error; err != nil {
				return nil, fmt.Errorf("failed to delete cook event: %w", err)
			}
		} else if err := tx.Save(event).Error; err != nil {
			return nil, fmt.Errorf("failed to update cook event: %w", err)
		}
	}

	if remaining > 0 {
		return nil, fmt.Errorf("only %d of %d cooked units of %s can be undone: %w",
			qty-remaining, qty, name, ErrInvalidQuantity)
	}

	for _, id := range touchedOrder {
		order := touched[id]
		before := order.Status
		order.RecomputeStatus()
		if err := tx.Save(order).Error; err != nil {
			return nil, fmt.Errorf("failed to update order %s: %w", order.OrderNumber, err)
		}
		result.Orders = append(result.Orders, *order)
		if before == models.OrderStatusComplete && order.Status == models.OrderStatusIncomplete {
			result.Reopened = append(result.Reopened, *order)
		}
	}

	item.TotalCooked -= qty
	var latest models.CookEvent
	err = tx.Where("item_name = ? AND cooked_at IS NOT NULL", name).Order("cooked_at DESC").First(&latest).Error
	switch {
	case err == nil:
		item.CookedAt = latest.CookedAt
	case errors.Is(err, gorm.ErrRecordNotFound):
		item.CookedAt = nil
	default:
		return nil, fmt.Errorf("failed to load latest cook for %s: %w", name, err)
	}
	if err := refreshKitchenStatusTx(tx, item); err != nil {
		return nil, err
	}
	result.Kitchen = *item
	return result, nil
}

// refreshKitchenStatusTx recounts pending and derives the status, then saves.
// Nothing pending and every contributing order delivered means served.
func refreshKitchenStatusTx(tx *gorm.DB, item *models.KitchenItem) error {
	item.Recount()
	if item.Pending > 0 {
		item.Status = models.KitchenStatusToCook
	} else {
		orders, err := ordersContainingTx(tx, item.Name)
		if err != nil {
			return err
		}
		served := item.TotalCooked > 0 && len(orders) > 0
		for _, order := range orders {
			if order.Status != models.OrderStatusDelivered {
				served = false
				break
			}
		}
		if served {
			item.Status = models.KitchenStatusServed
		} else {
			item.Status = models.KitchenStatusCooked
		}
	}
	if err := tx.Save(item).Error; err != nil {
		return fmt.Errorf("failed to update kitchen item %s: %w", item.Name, err)
	}
	return nil
}

// ordersContainingTx loads every customer order that ordered name
func ordersContainingTx(tx *gorm.DB, name string) ([]models.CustomerOrder, error) {
	var orders []models.CustomerOrder
	if err := tx.Order("created_at, id").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to load customer orders: %w", err)
	}
	return ordersWithItem(orders, name), nil
}

func ordersWithItem(orders []models.CustomerOrder, name string) []models.CustomerOrder {
	var out []models.CustomerOrder
	for _, order := range orders {
		if order.OrderedQuantity(name) > 0 {
			out = append(out, order)
		}
	}
	return out
}

// sortForCooking puts incomplete orders first, then customers alphabetically.
// Ties fall back to placement time and id so the order is total.
func sortForCooking(orders []models.CustomerOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		ai, bi := a.Status == models.OrderStatusIncomplete, b.Status == models.OrderStatusIncomplete
		if ai != bi {
			return ai
		}
		an, bn := strings.ToLower(a.CustomerName), strings.ToLower(b.CustomerName)
		if an != bn {
			return an < bn
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
