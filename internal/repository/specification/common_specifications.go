package specification

import (
	"fmt"

	"giving-ledger-be/internal/repository/scope"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ByID filters by primary key
type ByID struct {
	ID uint64
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

type scoped func(*gorm.DB) *gorm.DB

func (s scoped) Apply(db *gorm.DB) *gorm.DB {
	return db.Scopes(s)
}

// Newest puts the most recently inserted row first.
func Newest() Specification {
	return scoped(scope.NewestFirst)
}

// Oldest puts rows in insertion order.
func Oldest() Specification {
	return scoped(scope.OldestFirst)
}

// ForUpdate row-locks whatever the query selects until the surrounding
// transaction ends.
type ForUpdate struct{}

func (s ForUpdate) Apply(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Pagination
type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit).Offset(s.Offset)
}

// IsNull matches rows where field has no value
type IsNull struct {
	Field string
}

func (s IsNull) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(fmt.Sprintf("%s IS NULL", s.Field))
}
