package adapters

import (
	"testing"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err, "failed to initialize test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(Models()...)
	require.NoError(t, err, "failed to migrate tables")

	return db
}

// seedInstrument creates an instrument and optionally adds it to an index.
func seedInstrument(t *testing.T, db *gorm.DB, ticker, country, exchange, indexCode string) InstrumentModel {
	t.Helper()

	m := InstrumentModel{
		ID:       uuid.New(),
		Ticker:   ticker,
		Country:  country,
		Exchange: null.NewString(exchange, exchange != ""),
	}
	require.NoError(t, db.Create(&m).Error, "failed to seed instrument")
	if indexCode != "" {
		require.NoError(t, db.Create(&IndexMembershipModel{IndexCode: indexCode, InstrumentID: m.ID}).Error)
	}
	return m
}
