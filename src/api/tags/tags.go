package tags

import (
	"github.com/productporter/productporter/src/api/types"
	"gorm.io/gorm"
)

// Replace sets the product's tag set to exactly names: tags missing from
// the catalog are created, associations not in the list are dropped, and
// tags left without any product are removed. Matching is case-sensitive
// exact match. Duplicate names collapse to their first occurrence, so
// applying the same list twice is a no-op.
//
// Callers that need the replace to be atomic with other writes pass a
// transaction handle.
func Replace(db *gorm.DB, product *types.Product, names []string) error {
	seen := make(map[string]bool, len(names))
	list := make([]types.Tag, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		var tag types.Tag
		if err := db.Where(types.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return err
		}
		list = append(list, tag)
	}

	if err := db.Model(product).Association("Tags").Replace(&list); err != nil {
		return err
	}
	product.Tags = list

	// Orphan cleanup: a tag has no lifecycle of its own beyond first use.
	return db.Where("id NOT IN (SELECT tag_id FROM product_tags)").
		Delete(&types.Tag{}).Error
}

// Names returns the tag names of a product in catalog order.
func Names(db *gorm.DB, product *types.Product) ([]string, error) {
	var names []string
	err := db.Table("product_tags").
		Joins("JOIN tags ON tags.id = product_tags.tag_id").
		Where("product_tags.product_id = ?", product.ID).
		Order("tags.id").
		Pluck("tags.name", &names).Error
	return names, err
}

// AllNames returns every tag name in the catalog, sorted.
func AllNames(db *gorm.DB) ([]string, error) {
	var names []string
	err := db.Model(&types.Tag{}).Order("name").Pluck("name", &names).Error
	return names, err
}
