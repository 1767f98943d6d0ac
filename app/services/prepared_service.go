package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"YellowbellPOS/app/database"
	"YellowbellPOS/app/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WalkInCustomer names sales converted from a prepared batch without a customer
const WalkInCustomer = "Walk-in"

// PreparedService tracks pre-cooked batches and sells from them
type PreparedService struct {
	BaseService
}

// NewPreparedService creates a new prepared-stock service
func NewPreparedService(store *database.Store, bus *EventBus, notifier *NotificationService) *PreparedService {
	return &PreparedService{
		BaseService: NewBaseService(store, bus, notifier),
	}
}

// GetPreparedOrders returns every prepared batch, newest first
func (s *PreparedService) GetPreparedOrders() ([]models.PreparedOrder, error) {
	var batches []models.PreparedOrder
	err := s.WithReader(func(db *gorm.DB) error {
		return db.Order("created_at DESC, id").Find(&batches).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load prepared orders: %w", err)
	}
	return batches, nil
}

// GetPreparedOrder returns one prepared batch
func (s *PreparedService) GetPreparedOrder(id string) (*models.PreparedOrder, error) {
	var batch *models.PreparedOrder
	err := s.WithReader(func(db *gorm.DB) error {
		var err error
		batch, err = preparedOrderByID(db, id)
		return err
	})
	return batch, err
}

// ConfirmPrepared deducts a pre-cooked batch from stock the same way an order does.
// An open batch with the same meal type absorbs the new quantities.
func (s *PreparedService) ConfirmPrepared(items []CartLine, mealType string) (*models.PreparedOrder, error) {
	mealType = strings.TrimSpace(mealType)
	now := s.now()

	var batch models.PreparedOrder
	var merged bool
	var changes []stockChange

	err := s.WithTransaction(func(tx *gorm.DB) error {
		plan, err := buildConsumptionPlan(tx, items)
		if err != nil {
			return err
		}

		err = tx.Where("meal_type = ? AND status = ?", mealType, models.PreparedStatusPrepared).
			Order("created_at, id").First(&batch).Error
		switch {
		case err == nil:
			merged = true
		case errors.Is(err, gorm.ErrRecordNotFound):
			number, err := nextOrderNumber(tx, &models.PreparedOrder{}, "PR", now)
			if err != nil {
				return err
			}
			batch = models.PreparedOrder{
				ID:          uuid.NewString(),
				OrderNumber: number,
				MealType:    mealType,
				Items:       []models.PreparedLine{},
				CreatedAt:   now,
			}
		default:
			return fmt.Errorf("failed to load open prepared batch: %w", err)
		}

		ledger := newLedgerTx(tx)
		if err := plan.commit(ledger, models.MovementPrepared, batch.ID); err != nil {
			return err
		}

		for _, line := range plan.lines {
			batch.Items = mergePreparedLine(batch.Items, line)
		}
		batch.RecomputeTotal()
		batch.RecomputeStatus()
		save := tx.Create
		if merged {
			save = tx.Save
		}
		if err := save(&batch).Error; err != nil {
			return fmt.Errorf("failed to save prepared batch: %w", err)
		}

		changes = ledger.changed()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if merged {
		log.Printf("✅ Prepared items merged into %s", batch.OrderNumber)
	} else {
		log.Printf("✅ Prepared batch %s created", batch.OrderNumber)
	}
	s.publish(models.Event{
		Type:            models.EventPreparedConfirmed,
		PreparedOrderID: batch.ID,
		OrderNumber:     batch.OrderNumber,
		Collections:     []models.Collection{models.CollectionInventory, models.CollectionPreparedOrders},
	})
	s.reportStockChanges(changes)
	s.notify(models.NotificationPrepared,
		fmt.Sprintf("Prepared batch %s", batch.OrderNumber),
		fmt.Sprintf("%d units ready to sell", batch.RemainingUnits()),
		models.PriorityLow)

	return &batch, nil
}

// mergePreparedLine adds planned units to the line for the same item and packaging.
// Units packed differently get a line of their own so they are returned as they were taken.
func mergePreparedLine(lines []models.PreparedLine, planned plannedLine) []models.PreparedLine {
	for i := range lines {
		if lines[i].ItemID == planned.Item.ID && models.SamePackaging(lines[i].Packaging, planned.Packaging) {
			lines[i].Quantity += planned.Quantity
			lines[i].RemainingQuantity += planned.Quantity
			lines[i].Price = planned.Item.Price
			return lines
		}
	}
	return append(lines, models.PreparedLine{
		ItemID:            planned.Item.ID,
		Name:              planned.Item.Name,
		Price:             planned.Item.Price,
		Quantity:          planned.Quantity,
		RemainingQuantity: planned.Quantity,
		Packaging:         planned.Packaging,
	})
}

// ConvertToOrder sells perItemQty[i] units of line i of a batch. Stock was already taken
// when the batch was confirmed, so only the batch's remaining quantities move.
func (s *PreparedService) ConvertToOrder(preparedID string, perItemQty []int, customerName string) (*models.SalesOrder, error) {
	customerName = strings.TrimSpace(customerName)
	if customerName == "" {
		customerName = WalkInCustomer
	}
	now := s.now()

	var sale models.SalesOrder
	var batch *models.PreparedOrder

	err := s.WithTransaction(func(tx *gorm.DB) error {
		var err error
		batch, err = preparedOrderByID(tx, preparedID)
		if err != nil {
			return err
		}
		if len(perItemQty) != len(batch.Items) {
			return fmt.Errorf("batch %s has %d lines, got %d quantities: %w",
				batch.OrderNumber, len(batch.Items), len(perItemQty), ErrInvalidQuantity)
		}

		var lines []models.SalesLine
		for i, qty := range perItemQty {
			line := &batch.Items[i]
			if qty < 0 {
				return fmt.Errorf("quantity %d for %s: %w", qty, line.Name, ErrInvalidQuantity)
			}
			if qty > line.RemainingQuantity {
				return fmt.Errorf("%d x %s with %d remaining: %w", qty, line.Name, line.RemainingQuantity, ErrExceedsRemaining)
			}
			if qty == 0 {
				continue
			}
			line.RemainingQuantity -= qty
			lines = append(lines, models.SalesLine{
				ItemID:    line.ItemID,
				Name:      line.Name,
				Price:     line.Price,
				Quantity:  qty,
				Packaging: line.Packaging,
			})
		}
		if len(lines) == 0 {
			return fmt.Errorf("nothing to convert from %s: %w", batch.OrderNumber, ErrInvalidQuantity)
		}

		number, err := nextOrderNumber(tx, &models.SalesOrder{}, "YB", now)
		if err != nil {
			return err
		}
		sale = models.SalesOrder{
			ID:              uuid.NewString(),
			OrderNumber:     number,
			CustomerName:    customerName,
			Items:           lines,
			Total:           models.SalesTotal(lines),
			Date:            now.Local().Format("2006-01-02"),
			Status:          models.SalesStatusCompleted,
			PaymentStatus:   models.PaymentStatusPaid,
			IsPreparedOrder: true,
			PreparedOrderID: batch.ID,
			CreatedAt:       now,
		}
		if err := tx.Create(&sale).Error; err != nil {
			return fmt.Errorf("failed to create sales order: %w", err)
		}

		batch.RecomputeStatus()
		if err := tx.Save(batch).Error; err != nil {
			return fmt.Errorf("failed to update prepared batch %s: %w", batch.OrderNumber, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Sold %s from prepared batch %s (%s)", sale.OrderNumber, batch.OrderNumber, batch.Status)
	s.publish(models.Event{
		Type:            models.EventPreparedConverted,
		OrderID:         sale.ID,
		OrderNumber:     sale.OrderNumber,
		PreparedOrderID: batch.ID,
		Collections:     []models.Collection{models.CollectionPreparedOrders, models.CollectionSalesOrders},
	})
	if batch.Status == models.PreparedStatusConverted {
		s.notify(models.NotificationPrepared,
			fmt.Sprintf("Prepared batch %s sold out", batch.OrderNumber),
			"Every prepared item has been sold",
			models.PriorityLow)
	}
	return &sale, nil
}

// DeletePrepared returns a batch's unsold units to stock and removes the batch.
// Each unit brings back the container and utensils it took when it was confirmed.
func (s *PreparedService) DeletePrepared(preparedID string) error {
	var batch *models.PreparedOrder
	var changes []stockChange

	err := s.WithTransaction(func(tx *gorm.DB) error {
		var err error
		batch, err = preparedOrderByID(tx, preparedID)
		if err != nil {
			return err
		}

		ledger := newLedgerTx(tx)
		for _, line := range batch.Items {
			if err := ledger.returnUnits(line.ItemID, line.Packaging, line.RemainingQuantity,
				batch.ID, "prepared batch deleted"); err != nil {
				return err
			}
		}

		if err := tx.Delete(&models.PreparedOrder{}, "id = ?", batch.ID).Error; err != nil {
			return fmt.Errorf("failed to delete prepared batch %s: %w", batch.OrderNumber, err)
		}
		changes = ledger.changed()
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("🗑️ Prepared batch %s deleted", batch.OrderNumber)
	s.publish(models.Event{
		Type:            models.EventPreparedDeleted,
		PreparedOrderID: batch.ID,
		OrderNumber:     batch.OrderNumber,
		Collections:     []models.Collection{models.CollectionInventory, models.CollectionPreparedOrders},
	})
	s.reportStockChanges(changes)
	return nil
}

func preparedOrderByID(tx *gorm.DB, id string) (*models.PreparedOrder, error) {
	var batch models.PreparedOrder
	if err := tx.First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("prepared order", id)
		}
		return nil, fmt.Errorf("failed to load prepared order %s: %w", id, err)
	}
	return &batch, nil
}

// returnToPreparedTx gives a deleted prepared sale's units back to its batch.
// Units the batch has no room for, or all of them once the batch is gone, go back to stock.
func returnToPreparedTx(tx *gorm.DB, ledger *ledgerTx, sale *models.SalesOrder) error {
	batch, err := preparedOrderByID(tx, sale.PreparedOrderID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	for _, sold := range sale.Items {
		units := sold.Quantity
		if batch != nil {
			for i := range batch.Items {
				line := &batch.Items[i]
				if units == 0 {
					break
				}
				if line.ItemID != sold.ItemID || !models.SamePackaging(line.Packaging, sold.Packaging) {
					continue
				}
				back := min(units, line.Quantity-line.RemainingQuantity)
				line.RemainingQuantity += back
				units -= back
			}
		}
		if err := ledger.returnUnits(sold.ItemID, sold.Packaging, units, sale.ID, "prepared sale deleted"); err != nil {
			return err
		}
	}

	if batch == nil {
		return nil
	}
	batch.RecomputeStatus()
	if err := tx.Save(batch).Error; err != nil {
		return fmt.Errorf("failed to update prepared batch %s: %w", batch.OrderNumber, err)
	}
	return nil
}
