// database/migrate.go - Database Migration Runner
package database

import (
	"kandibot/models"
	"log"
)

// RunMigrations runs all database migrations
func RunMigrations() {
	db := GetDB()
	log.Println("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.UserRecord{},
		&models.Unlock{},
		&models.Purchase{},
	); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}

	createIndexes()

	log.Println("✅ All migrations completed successfully")
}

// createIndexes creates indexes beyond what the model tags declare
func createIndexes() {
	db := GetDB()

	db.Exec("CREATE INDEX IF NOT EXISTS idx_user_records_points ON user_records(points DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_unlocks_unlocked_at ON unlocks(unlocked_at DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_purchases_user ON purchases(user_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_purchases_created ON purchases(created_at DESC)")
}
