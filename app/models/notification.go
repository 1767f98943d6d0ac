package models

import "time"

// NotificationType identifies what a notification is about
type NotificationType string

const (
	NotificationLowStock   NotificationType = "low-stock"
	NotificationOutOfStock NotificationType = "out-of-stock"
	NotificationOrder      NotificationType = "order"
	NotificationKitchen    NotificationType = "kitchen"
	NotificationDelivery   NotificationType = "delivery"
	NotificationPrepared   NotificationType = "prepared"
	NotificationInventory  NotificationType = "inventory"
)

// NotificationPriority orders notifications in the inbox
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
)

// Notification is an inbox entry shown to staff
type Notification struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	Type      NotificationType     `gorm:"index" json:"type"`
	Title     string               `json:"title"`
	Message   string               `gorm:"type:text" json:"message"`
	Priority  NotificationPriority `json:"priority"`
	Read      bool                 `gorm:"default:false;index" json:"read"`
	CreatedAt time.Time            `gorm:"index" json:"createdAt"`
}
