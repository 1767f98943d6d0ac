package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"YellowbellPOS/app/database"
	"YellowbellPOS/app/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlaceOrderRequest is a cart plus the customer and delivery details
type PlaceOrderRequest struct {
	CustomerName    string               `json:"customerName"`
	Items           []CartLine           `json:"items"`
	DeliveryPhone   string               `json:"deliveryPhone,omitempty"`
	DeliveryAddress string               `json:"deliveryAddress,omitempty"`
	MealType        string               `json:"mealType,omitempty"`
	CookTime        *time.Time           `json:"cookTime,omitempty"`
	PaymentStatus   models.PaymentStatus `json:"paymentStatus,omitempty"`
	PaymentMethod   string               `json:"paymentMethod,omitempty"`
}

// OrderService places and deletes orders and drives their kitchen and delivery status
type OrderService struct {
	BaseService
	kitchen *KitchenService
}

// NewOrderService creates a new order service
func NewOrderService(store *database.Store, bus *EventBus, notifier *NotificationService, kitchen *KitchenService) *OrderService {
	return &OrderService{
		BaseService: NewBaseService(store, bus, notifier),
		kitchen:     kitchen,
	}
}

// PlaceOrder takes the whole cart out of stock, adds it to the kitchen rollups and records
// the customer and sales orders. Either all of that happens or none of it does.
func (s *OrderService) PlaceOrder(req PlaceOrderRequest) (*models.CustomerOrder, error) {
	customerName := strings.TrimSpace(req.CustomerName)
	if customerName == "" {
		return nil, fmt.Errorf("customer name is required")
	}

	now := s.now()
	var order models.CustomerOrder
	var changes []stockChange

	err := s.WithTransaction(func(tx *gorm.DB) error {
		plan, err := buildConsumptionPlan(tx, req.Items)
		if err != nil {
			return err
		}

		orderID := uuid.NewString()
		ledger := newLedgerTx(tx)
		if err := plan.commit(ledger, models.MovementSale, orderID); err != nil {
			return err
		}

		orderNumber, err := nextOrderNumber(tx, &models.SalesOrder{}, "YB", now)
		if err != nil {
			return err
		}

		ordered := make([]models.OrderLine, 0, len(plan.lines))
		sales := make([]models.SalesLine, 0, len(plan.lines))
		for _, line := range plan.lines {
			ordered = append(ordered, models.OrderLine{ItemID: line.Item.ID, Name: line.Item.Name, Quantity: line.Quantity})
			sales = append(sales, models.SalesLine{ItemID: line.Item.ID, Name: line.Item.Name, Price: line.Item.Price, Quantity: line.Quantity})
			if _, err := addOrderedTx(tx, line.Item.Name, line.Quantity); err != nil {
				return err
			}
		}

		order = models.CustomerOrder{
			ID:              orderID,
			OrderNumber:     orderNumber,
			CustomerName:    customerName,
			OrderedItems:    ordered,
			CookedItems:     []models.OrderLine{},
			Status:          models.OrderStatusIncomplete,
			DeliveryPhone:   req.DeliveryPhone,
			DeliveryAddress: req.DeliveryAddress,
			MealType:        req.MealType,
			CookTime:        req.CookTime,
			CreatedAt:       now,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create customer order: %w", err)
		}

		paymentStatus := req.PaymentStatus
		if paymentStatus == "" {
			paymentStatus = models.PaymentStatusPaid
		}
		salesOrder := models.SalesOrder{
			ID:            orderID,
			OrderNumber:   orderNumber,
			CustomerName:  customerName,
			Items:         sales,
			Total:         models.SalesTotal(sales),
			Date:          now.Local().Format("2006-01-02"),
			Status:        models.SalesStatusOpen,
			PaymentStatus: paymentStatus,
			PaymentMethod: req.PaymentMethod,
			CreatedAt:     now,
		}
		if err := tx.Create(&salesOrder).Error; err != nil {
			return fmt.Errorf("failed to create sales order: %w", err)
		}

		changes = ledger.changed()
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Order %s placed for %s (%d lines)", order.OrderNumber, order.CustomerName, len(order.OrderedItems))
	s.publish(models.Event{
		Type:        models.EventOrderPlaced,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Collections: []models.Collection{
			models.CollectionInventory, models.CollectionCustomerOrders,
			models.CollectionSalesOrders, models.CollectionKitchenItems,
		},
	})
	s.reportStockChanges(changes)
	s.notify(models.NotificationOrder,
		fmt.Sprintf("Order %s placed", order.OrderNumber),
		fmt.Sprintf("New order for %s", order.CustomerName),
		models.PriorityLow)

	return &order, nil
}

// DeleteOrder undoes a placement: stock, containers and utensils come back exactly as they
// were taken, kitchen rollups drop this order's units, and a prepared-batch sale returns its
// units to the batch.
func (s *OrderService) DeleteOrder(orderID string) error {
	var orderNumber string
	var changes []stockChange

	err := s.WithTransaction(func(tx *gorm.DB) error {
		customer, err := customerOrderByID(tx, orderID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		sales, err := salesOrderByID(tx, orderID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if customer == nil && sales == nil {
			return notFound("order", orderID)
		}

		ledger := newLedgerTx(tx)
		if sales != nil && sales.IsPreparedOrder {
			if err := returnToPreparedTx(tx, ledger, sales); err != nil {
				return err
			}
		} else if err := ledger.restoreReference(orderID); err != nil {
			return err
		}

		if customer != nil {
			orderNumber = customer.OrderNumber
			if err := tx.Delete(&models.CustomerOrder{}, "id = ?", orderID).Error; err != nil {
				return fmt.Errorf("failed to delete customer order: %w", err)
			}
			if err := removeOrderTx(tx, customer); err != nil {
				return err
			}
		}
		if sales != nil {
			orderNumber = sales.OrderNumber
			if err := tx.Delete(&models.SalesOrder{}, "id = ?", orderID).Error; err != nil {
				return fmt.Errorf("failed to delete sales order: %w", err)
			}
		}

		changes = ledger.changed()
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("🗑️ Order %s deleted", orderNumber)
	s.publish(models.Event{
		Type:        models.EventOrderDeleted,
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Collections: []models.Collection{
			models.CollectionInventory, models.CollectionCustomerOrders, models.CollectionSalesOrders,
			models.CollectionKitchenItems, models.CollectionPreparedOrders,
		},
	})
	s.reportStockChanges(changes)
	s.notify(models.NotificationOrder,
		fmt.Sprintf("Order %s deleted", orderNumber),
		"Stock was restored",
		models.PriorityLow)
	return nil
}

// MarkItemAsCooked marks qty units of a kitchen rollup cooked
func (s *OrderService) MarkItemAsCooked(kitchenItemID string, qty int) error {
	return s.kitchen.markCooked(func(tx *gorm.DB) (*models.KitchenItem, error) {
		return kitchenItemByID(tx, kitchenItemID)
	}, qty)
}

// UndoCooked takes back the most recently cooked qty units of an item
func (s *OrderService) UndoCooked(itemName string, qty int) error {
	return s.kitchen.undoCooked(itemName, qty)
}

// MarkOrderAsDelivered confirms delivery of a complete order
func (s *OrderService) MarkOrderAsDelivered(orderID string) error {
	order, err := s.transition(orderID, models.OrderStatusComplete, models.OrderStatusDelivered, models.SalesStatusDelivered)
	if err != nil {
		return err
	}

	log.Printf("🚚 Order %s delivered", order.OrderNumber)
	s.publish(models.Event{
		Type:        models.EventOrderDelivered,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Collections: []models.Collection{models.CollectionCustomerOrders, models.CollectionSalesOrders, models.CollectionKitchenItems},
	})
	s.notify(models.NotificationDelivery,
		fmt.Sprintf("Order %s delivered", order.OrderNumber),
		fmt.Sprintf("Delivered to %s", order.CustomerName),
		models.PriorityLow)
	return nil
}

// MarkOrderAsUndelivered reverts a delivery confirmation
func (s *OrderService) MarkOrderAsUndelivered(orderID string) error {
	order, err := s.transition(orderID, models.OrderStatusDelivered, models.OrderStatusComplete, models.SalesStatusOpen)
	if err != nil {
		return err
	}

	log.Printf("↩️ Order %s delivery undone", order.OrderNumber)
	s.publish(models.Event{
		Type:        models.EventOrderUndelivered,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Collections: []models.Collection{models.CollectionCustomerOrders, models.CollectionSalesOrders, models.CollectionKitchenItems},
	})
	return nil
}

func (s *OrderService) transition(orderID string, from, to models.OrderStatus, salesStatus models.SalesStatus) (*models.CustomerOrder, error) {
	var order *models.CustomerOrder
	err := s.WithTransaction(func(tx *gorm.DB) error {
		var err error
		order, err = customerOrderByID(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != from {
			return fmt.Errorf("order %s is %s, not %s: %w", order.OrderNumber, order.Status, from, ErrInvalidTransition)
		}

		order.Status = to
		if err := tx.Save(order).Error; err != nil {
			return fmt.Errorf("failed to update order %s: %w", order.OrderNumber, err)
		}
		if err := tx.Model(&models.SalesOrder{}).Where("id = ?", orderID).
			Update("status", salesStatus).Error; err != nil {
			return fmt.Errorf("failed to update sales order %s: %w", order.OrderNumber, err)
		}

		for _, name := range order.ItemNames() {
			item, err := kitchenItemByName(tx, name)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := refreshKitchenStatusTx(tx, item); err != nil {
				return err
			}
		}
		return nil
	})
	return order, err
}

// GetCustomerOrders returns every customer order, newest first
func (s *OrderService) GetCustomerOrders() ([]models.CustomerOrder, error) {
	var orders []models.CustomerOrder
	err := s.WithReader(func(db *gorm.DB) error {
		return db.Order("created_at DESC, id").Find(&orders).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load customer orders: %w", err)
	}
	return orders, nil
}

// GetTodayOrders returns customer orders placed since local midnight, newest first
func (s *OrderService) GetTodayOrders() ([]models.CustomerOrder, error) {
	var orders []models.CustomerOrder
	err := s.WithReader(func(db *gorm.DB) error {
		return db.Where("created_at >= ?", startOfDay(s.now())).Order("created_at DESC, id").Find(&orders).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load today's orders: %w", err)
	}
	return orders, nil
}

// GetCustomerOrder returns one customer order
func (s *OrderService) GetCustomerOrder(orderID string) (*models.CustomerOrder, error) {
	var order *models.CustomerOrder
	err := s.WithReader(func(db *gorm.DB) error {
		var err error
		order, err = customerOrderByID(db, orderID)
		return err
	})
	return order, err
}

// GetSalesOrders returns every sales order, newest first
func (s *OrderService) GetSalesOrders() ([]models.SalesOrder, error) {
	var orders []models.SalesOrder
	err := s.WithReader(func(db *gorm.DB) error {
		return db.Order("created_at DESC, id").Find(&orders).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load sales orders: %w", err)
	}
	return orders, nil
}

func customerOrderByID(tx *gorm.DB, orderID string) (*models.CustomerOrder, error) {
	var order models.CustomerOrder
	if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("customer order", orderID)
		}
		return nil, fmt.Errorf("failed to load customer order %s: %w", orderID, err)
	}
	return &order, nil
}

func salesOrderByID(tx *gorm.DB, orderID string) (*models.SalesOrder, error) {
	var order models.SalesOrder
	if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("sales order", orderID)
		}
		return nil, fmt.Errorf("failed to load sales order %s: %w", orderID, err)
	}
	return &order, nil
}

// nextOrderNumber returns PREFIX-YYYYMMDD-NNN, one past the highest number used today
// in the table behind model.
func nextOrderNumber(tx *gorm.DB, model interface{}, prefix string, now time.Time) (string, error) {
	dayPrefix := fmt.Sprintf("%s-%s-", prefix, now.Local().Format("20060102"))

	var numbers []string
	if err := tx.Model(model).Where("order_number LIKE ?", dayPrefix+"%").
		Pluck("order_number", &numbers).Error; err != nil {
		return "", fmt.Errorf("failed to load order numbers: %w", err)
	}

	highest := 0
	for _, number := range numbers {
		seq, err := strconv.Atoi(strings.TrimPrefix(number, dayPrefix))
		if err == nil && seq > highest {
			highest = seq
		}
	}
	return fmt.Sprintf("%s%03d", dayPrefix, highest+1), nil
}
