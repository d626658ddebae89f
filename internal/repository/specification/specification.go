// Package specification holds the query fragments ledger repositories
// compose. Fragments apply in argument order.
package specification

import "gorm.io/gorm"

type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
