package database

import (
	"fmt"
	"log"

	"YellowbellPOS/app/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Seeded container item IDs referenced by the packaging rules
const (
	SmallContainerID = "container-small"
	BigContainerID   = "container-big"
	PaperBoxID       = "container-paper-box"
)

// DefaultCatalog is the Yellowbell Roast Co. starting menu, containers and utensils
func DefaultCatalog() []models.InventoryItem {
	price := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
	return []models.InventoryItem{
		{ID: "1", Name: "Roast Chicken", Category: models.CategoryChicken, Stock: 20, Price: price(360)},
		{ID: "2", Name: "Half Roast Chicken", Category: models.CategoryChicken, Stock: 20, Price: price(190)},
		{ID: "3", Name: "Roast Liempo 1kg", Category: models.CategoryLiempo, Stock: 10, Price: price(520)},
		{ID: "4", Name: "Roast Liempo 1/2kg", Category: models.CategoryLiempo, Stock: 15, Price: price(270)},
		{ID: "5", Name: "Sisig Solo", Category: models.CategorySisig, Stock: 15, Price: price(120)},
		{ID: "6", Name: "Sisig Sharing", Category: models.CategorySisig, Stock: 10, Price: price(280)},
		{ID: "7", Name: "Sisig Party Tray", Category: models.CategorySisig, Stock: 5, Price: price(850)},
		{ID: "8", Name: "Plain Rice", Category: models.CategoryRice, Stock: 50, Price: price(25)},
		{ID: "9", Name: "Chicken Meal", Category: models.CategoryMeals, Stock: 25, Price: price(150)},
		{ID: "10", Name: "Liempo Meal", Category: models.CategoryMeals, Stock: 25, Price: price(165)},
		{ID: SmallContainerID, Name: "Small Container", Category: models.CategoryContainer, Stock: 100, IsContainer: true},
		{ID: BigContainerID, Name: "Big Container", Category: models.CategoryContainer, Stock: 30, IsContainer: true},
		{ID: PaperBoxID, Name: "Paper Box", Category: models.CategoryContainer, Stock: 100, IsContainer: true},
		{ID: "utensil-spoon", Name: "Spoon", Category: models.CategoryUtensil, Stock: 200, IsUtensil: true},
		{ID: "utensil-fork", Name: "Fork", Category: models.CategoryUtensil, Stock: 200, IsUtensil: true},
	}
}

// DefaultPackagingRules maps the seeded catalog to its containers.
// The whole chicken and the 1kg liempo go out in their own bags, so they have no rule.
func DefaultPackagingRules() []models.PackagingRule {
	return []models.PackagingRule{
		{ItemID: "4", ContainerID: SmallContainerID, Notes: "half kilo liempo"},
		{ItemID: "6", ContainerID: SmallContainerID, Notes: "sharing sisig"},
		{ItemID: "7", ContainerID: BigContainerID, Notes: "party tray"},
		{Category: models.CategoryMeals, ContainerID: PaperBoxID, Notes: "all meals"},
	}
}

// SeedCatalog inserts the default catalog and packaging rules that are missing.
// Existing rows are never touched, so it is safe to run at every start.
func (s *Store) SeedCatalog() error {
	return s.Update(func(tx *gorm.DB) error {
		created := 0
		for _, item := range DefaultCatalog() {
			var count int64
			if err := tx.Model(&models.InventoryItem{}).Where("id = ?", item.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check catalog item %s: %w", item.ID, err)
			}
			if count == 0 {
				if err := tx.Create(&item).Error; err != nil {
					return fmt.Errorf("failed to seed catalog item %s: %w", item.ID, err)
				}
				created++
			}
		}

		var ruleCount int64
		if err := tx.Model(&models.PackagingRule{}).Count(&ruleCount).Error; err != nil {
			return fmt.Errorf("failed to count packaging rules: %w", err)
		}
		if ruleCount == 0 {
			rules := DefaultPackagingRules()
			if err := tx.Create(&rules).Error; err != nil {
				return fmt.Errorf("failed to seed packaging rules: %w", err)
			}
		}

		if created > 0 {
			log.Printf("✅ Seeded %d catalog items", created)
		}
		return nil
	})
}
