package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"YellowbellPOS/app/database"
	"YellowbellPOS/app/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const directReference = "direct"

// InventoryService is the stock ledger for menu items, containers and utensils
type InventoryService struct {
	BaseService
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store *database.Store, bus *EventBus, notifier *NotificationService) *InventoryService {
	return &InventoryService{
		BaseService: NewBaseService(store, bus, notifier),
	}
}

// GetItems returns every inventory item, menu items first
func (s *InventoryService) GetItems() ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := s.WithReader(func(db *gorm.DB) error {
		return db.Order("is_utensil, is_container, created_at, id").Find(&items).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	return items, nil
}

// GetMenuItems returns the customer-facing items (no containers or utensils)
func (s *InventoryService) GetMenuItems() ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := s.WithReader(func(db *gorm.DB) error {
		return db.Where("is_utensil = ? AND is_container = ?", false, false).
			Order("created_at, id").Find(&items).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load menu: %w", err)
	}
	return items, nil
}

// GetItem returns one inventory item
func (s *InventoryService) GetItem(itemID string) (*models.InventoryItem, error) {
	var item *models.InventoryItem
	err := s.WithReader(func(db *gorm.DB) error {
		var err error
		item, err = loadItem(db, itemID)
		return err
	})
	return item, err
}

// GetLowStockItems returns items at or below the low-stock threshold, emptiest first
func (s *InventoryService) GetLowStockItems() ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := s.WithReader(func(db *gorm.DB) error {
		return db.Where("stock <= ?", models.LowStockThreshold).Order("stock ASC, id").Find(&items).Error
	})
	return items, err
}

// AddItem creates a new inventory item. Containers and utensils are flagged from their category.
func (s *InventoryService) AddItem(item *models.InventoryItem) error {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return fmt.Errorf("item name is required")
	}
	if !item.Category.Valid() {
		return fmt.Errorf("unknown category %q", item.Category)
	}
	if item.Stock < 0 {
		return fmt.Errorf("initial stock %d: %w", item.Stock, ErrInvalidQuantity)
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("price cannot be negative")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.IsContainer = item.IsContainer || item.Category == models.CategoryContainer
	item.IsUtensil = item.IsUtensil || item.Category == models.CategoryUtensil

	if err := s.WithTransaction(func(tx *gorm.DB) error {
		return tx.Create(item).Error
	}); err != nil {
		return fmt.Errorf("failed to add item %s: %w", item.Name, err)
	}

	log.Printf("✅ Inventory item added: %s (%s)", item.Name, item.ID)
	s.publish(models.Event{
		Type:        models.EventInventoryChanged,
		ItemID:      item.ID,
		ItemName:    item.Name,
		Collections: []models.Collection{models.CollectionInventory},
	})
	return nil
}

// DeleteItem removes an item and its own packaging rules.
// A container still referenced by another item's rule cannot be deleted.
func (s *InventoryService) DeleteItem(itemID string) error {
	var name string
	err := s.WithTransaction(func(tx *gorm.DB) error {
		item, err := loadItem(tx, itemID)
		if err != nil {
			return err
		}
		name = item.Name

		var uses int64
		if err := tx.Model(&models.PackagingRule{}).Where("container_id = ?", itemID).Count(&uses).Error; err != nil {
			return err
		}
		if uses > 0 {
			return fmt.Errorf("container %s is used by %d packaging rules", item.Name, uses)
		}

		if err := tx.Where("item_id = ?", itemID).Delete(&models.PackagingRule{}).Error; err != nil {
			return fmt.Errorf("failed to delete packaging rules for %s: %w", itemID, err)
		}
		return tx.Delete(&models.InventoryItem{}, "id = ?", itemID).Error
	})
	if err != nil {
		return err
	}

	log.Printf("🗑️ Inventory item deleted: %s (%s)", name, itemID)
	s.publish(models.Event{
		Type:        models.EventInventoryChanged,
		ItemID:      itemID,
		ItemName:    name,
		Collections: []models.Collection{models.CollectionInventory},
	})
	return nil
}

// UpdatePrice sets an item's unit price
func (s *InventoryService) UpdatePrice(itemID string, price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("price cannot be negative")
	}
	err := s.WithTransaction(func(tx *gorm.DB) error {
		item, err := loadItem(tx, itemID)
		if err != nil {
			return err
		}
		item.Price = price
		return tx.Save(item).Error
	})
	if err != nil {
		return err
	}
	s.publish(models.Event{
		Type:        models.EventInventoryChanged,
		ItemID:      itemID,
		Collections: []models.Collection{models.CollectionInventory},
	})
	return nil
}

// ReduceStock takes qty units of an item. Nothing changes if stock is short.
func (s *InventoryService) ReduceStock(itemID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reduce %d: %w", qty, ErrInvalidQuantity)
	}
	return s.mutate(func(l *ledgerTx) error {
		_, err := l.apply(itemID, -qty, models.MovementSale, directReference, "")
		return err
	})
}

// RestoreStock returns qty units of an item. This is the only path that puts stock back.
func (s *InventoryService) RestoreStock(itemID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("restore %d: %w", qty, ErrInvalidQuantity)
	}
	return s.mutate(func(l *ledgerTx) error {
		_, err := l.apply(itemID, qty, models.MovementRestore, directReference, "")
		return err
	})
}

// AdjustStock applies a signed manual correction (delivery received, spoilage, count)
func (s *InventoryService) AdjustStock(itemID string, delta int, reason string) error {
	if delta == 0 {
		return nil
	}
	if reason == "" {
		reason = "manual adjustment"
	}
	return s.mutate(func(l *ledgerTx) error {
		_, err := l.apply(itemID, delta, models.MovementAdjustment, reason, "")
		return err
	})
}

// ReduceContainerForItem takes qty of the container the item is packed in.
// Items without a packaging rule are a no-op.
func (s *InventoryService) ReduceContainerForItem(itemID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("container quantity %d: %w", qty, ErrInvalidQuantity)
	}
	return s.moveContainer(itemID, -qty)
}

// RestoreContainerForItem returns qty of the container the item is packed in
func (s *InventoryService) RestoreContainerForItem(itemID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("container quantity %d: %w", qty, ErrInvalidQuantity)
	}
	return s.moveContainer(itemID, qty)
}

func (s *InventoryService) moveContainer(itemID string, delta int) error {
	return s.mutate(func(l *ledgerTx) error {
		item, err := loadItem(l.tx, itemID)
		if err != nil {
			return err
		}
		container, err := containerFor(l.tx, item)
		if err != nil || container == nil {
			return err
		}
		kind := models.MovementSale
		if delta > 0 {
			kind = models.MovementRestore
		}
		_, err = l.apply(container.ID, delta, kind, directReference, "container for "+item.Name)
		return err
	})
}

// ContainerFor returns the container an item is packed in, or nil
func (s *InventoryService) ContainerFor(itemID string) (*models.InventoryItem, error) {
	var container *models.InventoryItem
	err := s.WithReader(func(db *gorm.DB) error {
		item, err := loadItem(db, itemID)
		if err != nil {
			return err
		}
		container, err = containerFor(db, item)
		return err
	})
	return container, err
}

// ReduceUtensilsForMeal takes one unit of every utensil per meal unit, all or nothing
func (s *InventoryService) ReduceUtensilsForMeal(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("utensils for %d: %w", qty, ErrInvalidQuantity)
	}
	return s.mutate(func(l *ledgerTx) error {
		utensils, err := loadUtensils(l.tx)
		if err != nil {
			return err
		}
		for _, utensil := range utensils {
			if utensil.Stock < qty {
				return &StockError{ItemID: utensil.ID, ItemName: utensil.Name, Requested: qty, Available: utensil.Stock}
			}
		}
		for _, utensil := range utensils {
			if _, err := l.apply(utensil.ID, -qty, models.MovementSale, directReference, "utensils"); err != nil {
				return err
			}
		}
		return nil
	})
}

// RestoreUtensilsForQuantity returns one unit of every utensil per meal unit
func (s *InventoryService) RestoreUtensilsForQuantity(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("utensils for %d: %w", qty, ErrInvalidQuantity)
	}
	return s.mutate(func(l *ledgerTx) error {
		utensils, err := loadUtensils(l.tx)
		if err != nil {
			return err
		}
		for _, utensil := range utensils {
			if _, err := l.apply(utensil.ID, qty, models.MovementRestore, directReference, "utensils"); err != nil {
				return err
			}
		}
		return nil
	})
}

// CanOrderItem reports whether qty of an item, with its container and utensils, is available
func (s *InventoryService) CanOrderItem(itemID string, qty int) error {
	return s.CanOrderCart([]CartLine{{ItemID: itemID, Quantity: qty}})
}

// CanOrderCart checks a whole cart at once, so shared containers and utensils are summed
func (s *InventoryService) CanOrderCart(lines []CartLine) error {
	return s.WithReader(func(db *gorm.DB) error {
		plan, err := buildConsumptionPlan(db, lines)
		if err != nil {
			return err
		}
		return plan.validate()
	})
}

// GetMovements returns the newest stock movements for an item
func (s *InventoryService) GetMovements(itemID string, limit int) ([]models.StockMovement, error) {
	var movements []models.StockMovement
	err := s.WithReader(func(db *gorm.DB) error {
		query := db.Where("item_id = ?", itemID).Order("id DESC")
		if limit > 0 {
			query = query.Limit(limit)
		}
		return query.Find(&movements).Error
	})
	return movements, err
}

// GetPackagingRules returns every packaging rule
func (s *InventoryService) GetPackagingRules() ([]models.PackagingRule, error) {
	var rules []models.PackagingRule
	err := s.WithReader(func(db *gorm.DB) error {
		return db.Order("id").Find(&rules).Error
	})
	return rules, err
}

// SetPackagingRule creates or replaces the rule for an item or a category
func (s *InventoryService) SetPackagingRule(rule *models.PackagingRule) error {
	if (rule.ItemID == "") == (rule.Category == "") {
		return fmt.Errorf("packaging rule needs exactly one of item or category")
	}
	if rule.Category != "" && !rule.Category.Valid() {
		return fmt.Errorf("unknown category %q", rule.Category)
	}

	return s.WithTransaction(func(tx *gorm.DB) error {
		if rule.ContainerID != "" {
			container, err := loadItem(tx, rule.ContainerID)
			if err != nil {
				return err
			}
			if !container.IsContainer {
				return fmt.Errorf("%s is not a container", container.Name)
			}
		}
		if rule.ItemID != "" {
			if _, err := loadItem(tx, rule.ItemID); err != nil {
				return err
			}
		}

		var existing models.PackagingRule
		query := tx.Where("item_id = ? AND category = ?", rule.ItemID, rule.Category)
		err := query.First(&existing).Error
		switch {
		case err == nil:
			rule.ID = existing.ID
			rule.CreatedAt = existing.CreatedAt
			return tx.Save(rule).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(rule).Error
		default:
			return err
		}
	})
}

// mutate runs a ledger change atomically, then reports threshold crossings and publishes
func (s *InventoryService) mutate(fn func(l *ledgerTx) error) error {
	var changes []stockChange
	err := s.WithTransaction(func(tx *gorm.DB) error {
		l := newLedgerTx(tx)
		if err := fn(l); err != nil {
			return err
		}
		changes = l.changed()
		return nil
	})
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}

	s.reportStockChanges(changes)
	for _, change := range changes {
		s.publish(models.Event{
			Type:        models.EventInventoryChanged,
			ItemID:      change.Item.ID,
			ItemName:    change.Item.Name,
			Quantity:    change.Item.Stock,
			Collections: []models.Collection{models.CollectionInventory},
		})
	}
	return nil
}
