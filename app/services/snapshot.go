package services

import (
	"fmt"

	"YellowbellPOS/app/models"

	"gorm.io/gorm"
)

// SnapshotCollection loads the full current contents of one collection
func SnapshotCollection(db *gorm.DB, collection models.Collection) (interface{}, error) {
	var err error
	var out interface{}

	switch collection {
	case models.CollectionInventory:
		var items []models.InventoryItem
		err = db.Order("id").Find(&items).Error
		out = items
	case models.CollectionCustomerOrders:
		var orders []models.CustomerOrder
		err = db.Order("created_at, id").Find(&orders).Error
		out = orders
	case models.CollectionSalesOrders:
		var orders []models.SalesOrder
		err = db.Order("created_at, id").Find(&orders).Error
		out = orders
	case models.CollectionKitchenItems:
		var items []models.KitchenItem
		err = db.Order("name").Find(&items).Error
		out = items
	case models.CollectionPreparedOrders:
		var batches []models.PreparedOrder
		err = db.Order("created_at, id").Find(&batches).Error
		out = batches
	case models.CollectionNotifications:
		var notifications []models.Notification
		err = db.Order("created_at DESC, id DESC").Limit(200).Find(&notifications).Error
		out = notifications
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to snapshot %s: %w", collection, err)
	}
	return out, nil
}
