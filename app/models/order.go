package models

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the kitchen/delivery status of a customer order
type OrderStatus string

const (
	OrderStatusIncomplete OrderStatus = "incomplete"
	OrderStatusComplete   OrderStatus = "complete"
	OrderStatusDelivered  OrderStatus = "delivered"

	// Legacy states, accepted when reading old records but never written
	OrderStatusCooking OrderStatus = "cooking"
	OrderStatusReady   OrderStatus = "ready"
	OrderStatusServed  OrderStatus = "served"
)

func (s OrderStatus) String() string {
	return string(s)
}

func (s *OrderStatus) Scan(value interface{}) error {
	str, err := scanString(value)
	*s = OrderStatus(str)
	return err
}

func (s OrderStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// OrderLine is a name and quantity pair on a customer order
type OrderLine struct {
	ItemID   string `json:"id,omitempty"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// CustomerOrder is the kitchen and delivery facing view of an order
type CustomerOrder struct {
	ID              string      `gorm:"primaryKey;size:64" json:"id"`
	OrderNumber     string      `gorm:"uniqueIndex;not null" json:"orderNumber"`
	CustomerName    string      `gorm:"index" json:"customerName"`
	OrderedItems    []OrderLine `gorm:"serializer:json;type:text" json:"orderedItems"`
	CookedItems     []OrderLine `gorm:"serializer:json;type:text" json:"cookedItems"`
	Status          OrderStatus `gorm:"index" json:"status"`
	DeliveryPhone   string      `json:"deliveryPhone,omitempty"`
	DeliveryAddress string      `json:"deliveryAddress,omitempty"`
	MealType        string      `json:"mealType,omitempty"`
	CookTime        *time.Time  `json:"cookTime,omitempty"`
	CreatedAt       time.Time   `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// OrderedQuantity sums the ordered quantity for an item name
func (o *CustomerOrder) OrderedQuantity(name string) int {
	return sumLines(o.OrderedItems, name)
}

// CookedQuantity sums the cooked quantity for an item name
func (o *CustomerOrder) CookedQuantity(name string) int {
	return sumLines(o.CookedItems, name)
}

// PendingQuantity is how many units of name still need cooking for this order
func (o *CustomerOrder) PendingQuantity(name string) int {
	pending := o.OrderedQuantity(name) - o.CookedQuantity(name)
	if pending < 0 {
		return 0
	}
	return pending
}

// ItemNames returns the distinct ordered item names in order of first appearance
func (o *CustomerOrder) ItemNames() []string {
	seen := make(map[string]bool, len(o.OrderedItems))
	names := make([]string, 0, len(o.OrderedItems))
	for _, line := range o.OrderedItems {
		if !seen[line.Name] {
			seen[line.Name] = true
			names = append(names, line.Name)
		}
	}
	return names
}

// IsFullyCooked reports whether every ordered name has cooked >= ordered
func (o *CustomerOrder) IsFullyCooked() bool {
	for _, name := range o.ItemNames() {
		if o.CookedQuantity(name) < o.OrderedQuantity(name) {
			return false
		}
	}
	return true
}

// RecomputeStatus derives incomplete/complete from the cooked lines.
// Delivered orders keep their status.
func (o *CustomerOrder) RecomputeStatus() {
	if o.Status == OrderStatusDelivered {
		return
	}
	if o.IsFullyCooked() {
		o.Status = OrderStatusComplete
	} else {
		o.Status = OrderStatusIncomplete
	}
}

// AddCooked merges qty cooked units of name into CookedItems
func (o *CustomerOrder) AddCooked(name string, qty int) {
	for i := range o.CookedItems {
		if o.CookedItems[i].Name == name {
			o.CookedItems[i].Quantity += qty
			return
		}
	}
	o.CookedItems = append(o.CookedItems, OrderLine{Name: name, Quantity: qty})
}

// RemoveCooked takes up to qty cooked units of name off CookedItems, dropping
// the line when it reaches zero. It returns how many units were removed.
func (o *CustomerOrder) RemoveCooked(name string, qty int) int {
	removed := 0
	kept := o.CookedItems[:0]
	for _, line := range o.CookedItems {
		if line.Name == name && removed < qty {
			take := min(line.Quantity, qty-removed)
			line.Quantity -= take
			removed += take
		}
		if line.Quantity > 0 {
			kept = append(kept, line)
		}
	}
	o.CookedItems = kept
	return removed
}

func sumLines(lines []OrderLine, name string) int {
	total := 0
	for _, line := range lines {
		if line.Name == name {
			total += line.Quantity
		}
	}
	return total
}

// PaymentStatus of a sales order
type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "paid"
	PaymentStatusUnpaid PaymentStatus = "unpaid"
)

// SalesStatus of a sales order
type SalesStatus string

const (
	SalesStatusOpen      SalesStatus = "open"
	SalesStatusCompleted SalesStatus = "completed"
	SalesStatusDelivered SalesStatus = "delivered"
)

// SalesLine is a priced line on a sales order
type SalesLine struct {
	ItemID    string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Packaging []string        `json:"packaging,omitempty"`
}

// Subtotal returns price times quantity
func (l SalesLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// SalesOrder is the sales-facing record of an order
type SalesOrder struct {
	ID              string          `gorm:"primaryKey;size:64" json:"id"`
	OrderNumber     string          `gorm:"uniqueIndex;not null" json:"orderNumber"`
	CustomerName    string          `gorm:"index" json:"customerName"`
	Items           []SalesLine     `gorm:"serializer:json;type:text" json:"items"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	Date            string          `gorm:"index" json:"date"` // YYYY-MM-DD in shop local time
	Status          SalesStatus     `gorm:"index" json:"status"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	IsPreparedOrder bool            `gorm:"default:false" json:"isPreparedOrder"`
	PreparedOrderID string          `gorm:"index;size:64" json:"preparedOrderId,omitempty"`
	CreatedAt       time.Time       `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// SalesTotal sums the subtotals of lines
func SalesTotal(lines []SalesLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}
