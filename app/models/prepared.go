package models

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
)

// PreparedStatus of a prepared batch
type PreparedStatus string

const (
	PreparedStatusPrepared  PreparedStatus = "prepared"
	PreparedStatusConverted PreparedStatus = "converted"
)

func (s PreparedStatus) String() string {
	return string(s)
}

func (s *PreparedStatus) Scan(value interface{}) error {
	str, err := scanString(value)
	*s = PreparedStatus(str)
	return err
}

func (s PreparedStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// PreparedLine is one item in a prepared batch
type PreparedLine struct {
	ItemID            string          `json:"id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int             `json:"quantity"`
	RemainingQuantity int             `json:"remainingQuantity"`
	// Packaging holds the container and utensil ids each unit took at confirmation
	Packaging []string `json:"packaging,omitempty"`
}

// SamePackaging reports whether two packaging lists hold the same ids in the same order
func SamePackaging(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// PreparedOrder is a batch of pre-cooked items waiting to be sold
type PreparedOrder struct {
	ID          string          `gorm:"primaryKey;size:64" json:"id"`
	OrderNumber string          `gorm:"uniqueIndex;not null" json:"orderNumber"`
	Items       []PreparedLine  `gorm:"serializer:json;type:text" json:"items"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	MealType    string          `gorm:"index" json:"mealType,omitempty"`
	Status      PreparedStatus  `gorm:"index" json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// RecomputeTotal sets Total from the prepared quantities
func (p *PreparedOrder) RecomputeTotal() {
	total := decimal.Zero
	for _, line := range p.Items {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	p.Total = total
}

// RecomputeStatus flips the batch to converted once nothing remains
func (p *PreparedOrder) RecomputeStatus() {
	for _, line := range p.Items {
		if line.RemainingQuantity > 0 {
			p.Status = PreparedStatusPrepared
			return
		}
	}
	p.Status = PreparedStatusConverted
}

// RemainingUnits sums the remaining quantity across lines
func (p *PreparedOrder) RemainingUnits() int {
	total := 0
	for _, line := range p.Items {
		total += line.RemainingQuantity
	}
	return total
}
