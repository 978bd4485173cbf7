package database

import (
	"fmt"
	"sync"

	"github.com/sccm-datasci/ards-platform/pkg/common/config"
	"github.com/sccm-datasci/ards-platform/pkg/common/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	db     *gorm.DB
	dbOnce sync.Once
)

// GetPostgres opens the relational ICU database once per process. A
// connection failure is fatal for the run; there is no partial-cohort
// fallback, so callers treat a nil handle as a hard stop.
func GetPostgres(cfg *config.Config) (*gorm.DB, error) {
	var err error
	dbOnce.Do(func() {
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.PostgresHost,
			cfg.PostgresUser,
			cfg.PostgresPassword,
			cfg.PostgresDB,
			cfg.PostgresPort,
			cfg.PostgresSSLMode,
		)

		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			logger.Log.WithError(err).Error("Failed to connect to PostgreSQL")
			return
		}

		logger.Log.Info("Connected to PostgreSQL")
	})

	if db == nil && err == nil {
		err = fmt.Errorf("postgres connection unavailable")
	}
	return db, err
}

func ClosePostgres() error {
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
