package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func getLogger(level logger.LogLevel) logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true, // keep bound values out of the log
			Colorful:                  level == logger.Info,
		},
	)
}

func configureConnectionPool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return nil
}

// Open opens any dialector with the service's gorm settings. TranslateError maps
// unique violations to gorm.ErrDuplicatedKey on every supported driver.
func Open(dialector gorm.Dialector, level logger.LogLevel) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:         getLogger(level),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// NewGormDBFromDSN connects to Postgres. verbose logs every statement.
func NewGormDBFromDSN(dsn string, verbose bool) (*gorm.DB, error) {
	level := logger.Warn
	if verbose {
		level = logger.Info
	}

	db, err := Open(postgres.New(postgres.Config{
		DSN: dsn,
		// Supabase's pooler (pgbouncer, transaction mode) cannot use prepared statements.
		PreferSimpleProtocol: true,
	}), level)
	if err != nil {
		return nil, err
	}

	if err := configureConnectionPool(db); err != nil {
		return nil, err
	}

	return db, nil
}
