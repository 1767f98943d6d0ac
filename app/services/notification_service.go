package services

import (
	"fmt"
	"log"

	"YellowbellPOS/app/database"
	"YellowbellPOS/app/models"

	"gorm.io/gorm"
)

// NotificationService is the staff inbox sink. Saving never fails the caller.
type NotificationService struct {
	BaseService
}

// NewNotificationService creates a new notification service
func NewNotificationService(store *database.Store, bus *EventBus) *NotificationService {
	return &NotificationService{
		BaseService: NewBaseService(store, bus, nil),
	}
}

// SaveNotification stores an inbox entry and broadcasts it. Errors are logged only.
func (s *NotificationService) SaveNotification(kind models.NotificationType, title, message string, priority models.NotificationPriority) {
	if priority == "" {
		priority = models.PriorityLow
	}

	notification := models.Notification{
		Type:     kind,
		Title:    title,
		Message:  message,
		Priority: priority,
	}

	if err := s.WithTransaction(func(tx *gorm.DB) error {
		return tx.Create(&notification).Error
	}); err != nil {
		log.Printf("⚠️ Failed to save notification %q: %v", title, err)
		return
	}

	s.publish(models.Event{
		Type:         models.EventNotification,
		Notification: &notification,
		Collections:  []models.Collection{models.CollectionNotifications},
	})
}

// GetNotifications returns the newest notifications first
func (s *NotificationService) GetNotifications(limit int, unreadOnly bool) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.WithReader(func(db *gorm.DB) error {
		query := db.Order("created_at DESC, id DESC")
		if unreadOnly {
			query = query.Where("read = ?", false)
		}
		if limit > 0 {
			query = query.Limit(limit)
		}
		return query.Find(&notifications).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead marks a notification as read
func (s *NotificationService) MarkNotificationRead(id uint) error {
	return s.WithTransaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Notification{}).Where("id = ?", id).Update("read", true)
		if result.Error != nil {
			return fmt.Errorf("failed to mark notification %d read: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return notFound("notification", fmt.Sprint(id))
		}
		return nil
	})
}
