package main

import (
	"log"

	"giving-ledger-be/internal/config"
	"giving-ledger-be/internal/model"
	"giving-ledger-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.Database.Debug, database.DefaultPoolConfig())
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Running AutoMigrate for ledger tables...")

	models := []interface{}{
		&model.Pledge{},
		&model.Transaction{},
		&model.Refund{},
		&model.WebhookEvent{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Step 2: Creating partial indexes...")

	// Postgres treats NULLs as distinct, so the composite (pledge_id, invoice)
	// key does not cover rows without a pledge.
	postMigrationSQL := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_orphan_invoice
		 ON transactions (stripe_invoice_id)
		 WHERE pledge_id IS NULL AND stripe_invoice_id IS NOT NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_pending_attempt
		 ON transactions (attempt_id)
		 WHERE status = 'pending' AND stripe_invoice_id IS NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_webhook_events_unfinished
		 ON webhook_events (created_at)
		 WHERE status <> 'processed';`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("Success: Database migration completed.")
}
