package models

import (
	"database/sql/driver"
	"time"
)

// KitchenStatus of a kitchen rollup row
type KitchenStatus string

const (
	KitchenStatusToCook KitchenStatus = "to-cook"
	KitchenStatusCooked KitchenStatus = "cooked"
	KitchenStatusServed KitchenStatus = "served"
)

func (s KitchenStatus) String() string {
	return string(s)
}

func (s *KitchenStatus) Scan(value interface{}) error {
	str, err := scanString(value)
	*s = KitchenStatus(str)
	return err
}

func (s KitchenStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// KitchenItem is the cross-order rollup of one menu item name
type KitchenItem struct {
	ID           string        `gorm:"primaryKey;size:64" json:"id"`
	Name         string        `gorm:"uniqueIndex;not null" json:"name"`
	TotalOrdered int           `gorm:"not null;default:0;check:total_ordered >= 0" json:"totalOrdered"`
	TotalCooked  int           `gorm:"not null;default:0;check:total_cooked >= 0" json:"totalCooked"`
	Pending      int           `gorm:"not null;default:0" json:"pending"`
	Status       KitchenStatus `gorm:"index" json:"status"`
	CookedAt     *time.Time    `json:"cookedAt,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Recount refreshes Pending from the counters
func (k *KitchenItem) Recount() {
	k.Pending = k.TotalOrdered - k.TotalCooked
}

// CookEvent records which order received cooked units of an item and when.
// Undo walks these newest first.
type CookEvent struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	KitchenItemID string     `gorm:"index;size:64" json:"kitchenItemId"`
	OrderID       string     `gorm:"index;size:64" json:"orderId"`
	CustomerName  string     `json:"customerName"`
	ItemName      string     `gorm:"index" json:"itemName"`
	Quantity      int        `json:"quantity"`
	CookedAt      *time.Time `gorm:"index" json:"cookedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}
