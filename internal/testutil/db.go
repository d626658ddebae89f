// Package testutil holds the fixtures ledger tests share.
package testutil

import (
	"fmt"
	"testing"

	"giving-ledger-be/internal/model"
	"giving-ledger-be/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB opens a private in-memory SQLite database with the ledger schema.
// The pool holds a single connection, so transactions run one at a time the
// way row locks would order them on Postgres. Never query outside the open
// transaction handle while one is running: the call blocks forever.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.NewConfig(false))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Pledge{},
		&model.Transaction{},
		&model.Refund{},
		&model.WebhookEvent{},
	))
	return db
}
