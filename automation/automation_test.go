package automation

import (
	"testing"

	"ringback/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// openTestDB gives each test a fresh in-memory database. Max one connection:
// every sqlite :memory: connection is its own database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.DB().SetMaxOpenConns(1)

	db.AutoMigrate(
		&models.CallRecord{},
		&models.AutomationConfig{},
		&models.ChatToken{},
	)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
