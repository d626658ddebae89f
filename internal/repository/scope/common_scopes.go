package scope

import "gorm.io/gorm"

// NewestFirst orders by descending id. Ids are monotonic, so this is reverse
// insertion order and stays stable when created_at ties.
func NewestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("id DESC")
}

func OldestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
