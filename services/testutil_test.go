package services

import (
	"os"
	"path/filepath"
	"testing"

	"kandibot/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.UserRecord{},
		&models.Unlock{},
		&models.Purchase{},
	))
	return db
}

func newTestCatalog(t *testing.T, content string) *Catalog {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, AchievementsFile), []byte(content), 0644))

	catalog, err := LoadCatalog(dir)
	require.NoError(t, err)
	return catalog
}

const testCatalogJSON = `{
    "first_win": {
        "name": "First Answer!",
        "description": "Answer one quiz question correctly.",
        "requirement": {"correct_answers": 1}
    },
    "quiz_streak": {
        "name": "Great Answers!",
        "description": "Answer 10 quiz questions correctly.",
        "requirement": {"correct_answers": 10}
    },
    "buy_once": {
        "name": "Gimmie your money!!",
        "description": "Make your first purchase.",
        "requirement": {"purchases": 1}
    },
    "rich": {
        "name": "Rich Man",
        "description": "Hold 100 points or more.",
        "requirement": {"points": 100}
    }
}`
