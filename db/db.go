package db

import (
	"os"
	"path/filepath"

	"ringback/config"
	"ringback/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/rs/zerolog/log"
)

var conf config.Configuration

func SetConfigurations(configuration config.Configuration) {
	conf = configuration
}

// Connect opens the local database (sqlite3 by default) and migrates the
// automation tables. The local DB is a cache plus the dedup ledger; losing it
// loses dedup history, so it lives on persistent storage, not in memory.
func Connect() (*gorm.DB, error) {
	database := conf.Database
	if database == "" {
		database = "sqlite3"
	}

	var (
		db  *gorm.DB
		err error
	)

	if database == "postgres" || database == "postgresql" {
		log.Info().Str("component", "db").Msg("connecting to postgresql")
		path := "host=" + conf.DbHost + " port=" + conf.DbPort
		path += " user=" + conf.DbUser + " dbname=" + conf.DbName
		path += " password=" + conf.DbPass
		db, err = gorm.Open("postgres", path)
	} else {
		path := conf.DbPath
		if path == "" {
			path = "db/database.db"
		}
		log.Info().Str("component", "db").Str("path", path).Msg("connecting to sqlite3")
		if dir := filepath.Dir(path); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		db, err = gorm.Open("sqlite3", path)
	}

	if err != nil {
		log.Error().Str("component", "db").Err(err).Msg("connect failed")
		return nil, err
	}

	db.AutoMigrate(
		&models.CallRecord{},
		&models.AutomationConfig{},
		&models.ChatToken{},
	)

	return db, nil
}
