package services

import (
	"errors"
	"fmt"
	"log"

	"YellowbellPOS/app/models"

	"gorm.io/gorm"
)

// CartLine is one requested item and quantity
type CartLine struct {
	ItemID   string `json:"id"`
	Quantity int    `json:"quantity"`
}

// stockChange remembers an item's status at first touch and its state after the last write
type stockChange struct {
	Item        models.InventoryItem
	Before      models.StockStatus
	BeforeStock int
}

// ledgerTx applies stock mutations inside one transaction and journals each one
type ledgerTx struct {
	tx      *gorm.DB
	changes map[string]*stockChange
	order   []string
}

func newLedgerTx(tx *gorm.DB) *ledgerTx {
	return &ledgerTx{
		tx:      tx,
		changes: make(map[string]*stockChange),
	}
}

func loadItem(tx *gorm.DB, itemID string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := tx.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("inventory item", itemID)
		}
		return nil, fmt.Errorf("failed to load inventory item %s: %w", itemID, err)
	}
	return &item, nil
}

// apply adds delta to the item's stock. A delta that would take stock below zero
// fails with a *StockError and writes nothing.
func (l *ledgerTx) apply(itemID string, delta int, kind models.MovementType, reference, notes string) (*models.InventoryItem, error) {
	item, err := loadItem(l.tx, itemID)
	if err != nil {
		return nil, err
	}

	previous := item.Stock
	if previous+delta < 0 {
		return nil, &StockError{ItemID: item.ID, ItemName: item.Name, Requested: -delta, Available: previous}
	}

	if _, seen := l.changes[item.ID]; !seen {
		l.changes[item.ID] = &stockChange{Before: item.Status, BeforeStock: previous}
		l.order = append(l.order, item.ID)
	}

	item.Stock = previous + delta
	if err := l.tx.Save(item).Error; err != nil {
		return nil, fmt.Errorf("failed to update stock for %s: %w", item.ID, err)
	}

	movement := models.StockMovement{
		ItemID:      item.ID,
		Type:        kind,
		Quantity:    delta,
		PreviousQty: previous,
		NewQty:      item.Stock,
		Reference:   reference,
		Notes:       notes,
	}
	if err := l.tx.Create(&movement).Error; err != nil {
		return nil, fmt.Errorf("failed to record stock movement for %s: %w", item.ID, err)
	}

	l.changes[item.ID].Item = *item
	return item, nil
}

// restoreReference puts back every unit the sale movements tagged with reference took out
func (l *ledgerTx) restoreReference(reference string) error {
	var moves []models.StockMovement
	if err := l.tx.Where("reference = ? AND type IN ?", reference,
		[]models.MovementType{models.MovementSale, models.MovementPrepared}).
		Order("id").Find(&moves).Error; err != nil {
		return fmt.Errorf("failed to load movements for %s: %w", reference, err)
	}

	taken := make(map[string]int)
	var order []string
	for _, move := range moves {
		if _, ok := taken[move.ItemID]; !ok {
			order = append(order, move.ItemID)
		}
		taken[move.ItemID] -= move.Quantity
	}

	for _, itemID := range order {
		units := taken[itemID]
		if units <= 0 {
			continue
		}
		if _, err := l.apply(itemID, units, models.MovementRestore, reference, "restored on delete"); err != nil {
			if errors.Is(err, ErrNotFound) {
				log.Printf("⚠️ Cannot restore %d units of %s for %s: item no longer exists", units, itemID, reference)
				continue
			}
			return err
		}
	}
	return nil
}

func (l *ledgerTx) changed() []stockChange {
	out := make([]stockChange, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.changes[id])
	}
	return out
}

// consumptionPlan is everything a cart takes out of the ledger: menu items,
// their containers and utensils, summed per inventory item.
type consumptionPlan struct {
	lines []plannedLine
	units map[string]int
	items map[string]*models.InventoryItem
	order []string
}

type plannedLine struct {
	Item     models.InventoryItem
	Quantity int
	// Packaging lists the container and utensil ids one unit takes
	Packaging []string
}

func (p *consumptionPlan) add(item *models.InventoryItem, units int) {
	if _, ok := p.units[item.ID]; !ok {
		p.order = append(p.order, item.ID)
		p.items[item.ID] = item
	}
	p.units[item.ID] += units
}

// buildConsumptionPlan resolves the cart against the catalog and packaging rules.
// Duplicate lines for the same item are merged.
func buildConsumptionPlan(tx *gorm.DB, lines []CartLine) (*consumptionPlan, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("cart is empty: %w", ErrInvalidQuantity)
	}

	plan := &consumptionPlan{
		units: make(map[string]int),
		items: make(map[string]*models.InventoryItem),
	}

	merged := make(map[string]int)
	var lineOrder []string
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("quantity %d for item %s: %w", line.Quantity, line.ItemID, ErrInvalidQuantity)
		}
		if _, ok := merged[line.ItemID]; !ok {
			lineOrder = append(lineOrder, line.ItemID)
		}
		merged[line.ItemID] += line.Quantity
	}

	var utensils []models.InventoryItem
	utensilsLoaded := false

	for _, itemID := range lineOrder {
		qty := merged[itemID]
		item, err := loadItem(tx, itemID)
		if err != nil {
			return nil, err
		}
		plan.add(item, qty)
		line := plannedLine{Item: *item, Quantity: qty}

		container, err := containerFor(tx, item)
		if err != nil {
			return nil, err
		}
		if container != nil {
			plan.add(container, qty)
			line.Packaging = append(line.Packaging, container.ID)
		}

		if item.Category.RequiresUtensils() {
			if !utensilsLoaded {
				if utensils, err = loadUtensils(tx); err != nil {
					return nil, err
				}
				utensilsLoaded = true
			}
			for i := range utensils {
				plan.add(&utensils[i], qty)
				line.Packaging = append(line.Packaging, utensils[i].ID)
			}
		}
		plan.lines = append(plan.lines, line)
	}

	return plan, nil
}

// validate checks every reduction before any is applied
func (p *consumptionPlan) validate() error {
	for _, id := range p.order {
		item := p.items[id]
		if item.Stock < p.units[id] {
			return &StockError{ItemID: item.ID, ItemName: item.Name, Requested: p.units[id], Available: item.Stock}
		}
	}
	return nil
}

// commit takes every planned unit out of the ledger
func (p *consumptionPlan) commit(l *ledgerTx, kind models.MovementType, reference string) error {
	if err := p.validate(); err != nil {
		return err
	}
	for _, id := range p.order {
		if _, err := l.apply(id, -p.units[id], kind, reference, ""); err != nil {
			return err
		}
	}
	return nil
}

// returnUnits puts units of an item back together with the packaging each unit took.
// Items deleted from the catalog since are skipped with a warning.
func (l *ledgerTx) returnUnits(itemID string, packaging []string, units int, reference, notes string) error {
	if units <= 0 {
		return nil
	}
	for _, id := range append([]string{itemID}, packaging...) {
		if _, err := l.apply(id, units, models.MovementRestore, reference, notes); err != nil {
			if errors.Is(err, ErrNotFound) {
				log.Printf("⚠️ Cannot restore %d units of %s for %s: item no longer exists", units, id, reference)
				continue
			}
			return err
		}
	}
	return nil
}

// containerFor resolves the packaging rule for an item: item rule first, then category rule
func containerFor(tx *gorm.DB, item *models.InventoryItem) (*models.InventoryItem, error) {
	if item.IsContainer || item.IsUtensil {
		return nil, nil
	}

	var rule models.PackagingRule
	err := tx.Where("item_id = ?", item.ID).Order("id").First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = tx.Where("(item_id = '' OR item_id IS NULL) AND category = ?", item.Category).Order("id").First(&rule).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load packaging rule for %s: %w", item.ID, err)
	}
	if rule.ContainerID == "" {
		return nil, nil
	}

	container, err := loadItem(tx, rule.ContainerID)
	if err != nil {
		return nil, fmt.Errorf("packaging rule %d for %s: %w", rule.ID, item.ID, err)
	}
	return container, nil
}

func loadUtensils(tx *gorm.DB) ([]models.InventoryItem, error) {
	var utensils []models.InventoryItem
	if err := tx.Where("is_utensil = ?", true).Order("id").Find(&utensils).Error; err != nil {
		return nil, fmt.Errorf("failed to load utensils: %w", err)
	}
	return utensils, nil
}
