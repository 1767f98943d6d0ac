package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LowStockThreshold is the highest stock count still reported as low-stock.
const LowStockThreshold = 5

// Category groups inventory items for packaging and utensil rules
type Category string

const (
	CategoryChicken   Category = "chicken"
	CategoryLiempo    Category = "liempo"
	CategorySisig     Category = "sisig"
	CategoryRice      Category = "rice"
	CategoryMeals     Category = "meals"
	CategoryContainer Category = "container"
	CategoryUtensil   Category = "utensil"
	CategoryCustom    Category = "custom"
)

// Categories lists every known category in menu order
var Categories = []Category{
	CategoryChicken, CategoryLiempo, CategorySisig, CategoryRice,
	CategoryMeals, CategoryContainer, CategoryUtensil, CategoryCustom,
}

func (c Category) String() string {
	return string(c)
}

// Valid reports whether c is one of the fixed categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// RequiresUtensils reports whether items of this category consume a set of utensils per unit.
func (c Category) RequiresUtensils() bool {
	switch c {
	case CategorySisig, CategoryRice, CategoryContainer, CategoryUtensil:
		return false
	}
	return true
}

func (c *Category) Scan(value interface{}) error {
	s, err := scanString(value)
	*c = Category(s)
	return err
}

func (c Category) Value() (driver.Value, error) {
	return string(c), nil
}

// StockStatus is derived from the stock count and never set directly
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in-stock"
	StockStatusLowStock   StockStatus = "low-stock"
	StockStatusOutOfStock StockStatus = "out-of-stock"
)

func (s StockStatus) String() string {
	return string(s)
}

func (s *StockStatus) Scan(value interface{}) error {
	str, err := scanString(value)
	*s = StockStatus(str)
	return err
}

func (s StockStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// StockStatusFor classifies a stock count
func StockStatusFor(stock int) StockStatus {
	switch {
	case stock <= 0:
		return StockStatusOutOfStock
	case stock <= LowStockThreshold:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}

// InventoryItem is a stockable entity: menu items, containers and utensils share one ledger
type InventoryItem struct {
	ID          string          `gorm:"primaryKey;size:64" json:"id"`
	Name        string          `gorm:"not null;index" json:"name"`
	Category    Category        `gorm:"not null;index" json:"category"`
	Stock       int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	Status      StockStatus     `gorm:"index" json:"status"`
	IsUtensil   bool            `gorm:"default:false" json:"isUtensil,omitempty"`
	IsContainer bool            `gorm:"default:false" json:"isContainer,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BeforeSave keeps Status a pure function of Stock
func (i *InventoryItem) BeforeSave(tx *gorm.DB) error {
	if i.Stock < 0 {
		return fmt.Errorf("stock for %s cannot be negative (%d)", i.ID, i.Stock)
	}
	i.Status = StockStatusFor(i.Stock)
	return nil
}

// IsMenuItem reports whether the item is shown on customer-facing menus
func (i *InventoryItem) IsMenuItem() bool {
	return !i.IsUtensil && !i.IsContainer
}

// MovementType classifies a stock movement
type MovementType string

const (
	MovementSale       MovementType = "sale"
	MovementRestore    MovementType = "restore"
	MovementPrepared   MovementType = "prepared"
	MovementAdjustment MovementType = "adjustment"
)

// StockMovement tracks every change to an item's stock
type StockMovement struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	ItemID      string       `gorm:"index;size:64" json:"item_id"`
	Type        MovementType `gorm:"index" json:"type"`
	Quantity    int          `json:"quantity"` // Positive for additions, negative for removals
	PreviousQty int          `json:"previous_qty"`
	NewQty      int          `json:"new_qty"`
	Reference   string       `gorm:"index" json:"reference"` // Order or batch ID, adjustment reason
	Notes       string       `json:"notes"`
	CreatedAt   time.Time    `json:"created_at"`
}

// PackagingRule maps an item, or a whole category, to the container it is served in.
// An item rule takes precedence over a category rule. An empty ContainerID means no container.
type PackagingRule struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ItemID      string    `gorm:"index;size:64" json:"item_id,omitempty"`
	Category    Category  `gorm:"index" json:"category,omitempty"`
	ContainerID string    `gorm:"size:64" json:"container_id"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for PackagingRule
func (PackagingRule) TableName() string {
	return "packaging_rules"
}

func scanString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported status value %T", value)
	}
}
