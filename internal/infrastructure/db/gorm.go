package db

import (
	"fmt"
	"time"

	"lendledger/internal/domain/identity"
	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/participation"
	"lendledger/internal/domain/payment"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// OpenGorm opens the ledger database for driver ("mysql" or "sqlite").
func OpenGorm(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case DriverMySQL:
		return OpenGormWithDialector(mysql.Open(dsn))
	case DriverSQLite:
		return OpenGormWithDialector(sqlite.Open(dsn))
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

func OpenGormWithDialector(dial gorm.Dialector) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// unique violations surface as gorm.ErrDuplicatedKey on both drivers
		TranslateError:       true,
		DisableAutomaticPing: true,
		NowFunc:              func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dial.Name(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dial.Name() == DriverSQLite {
		// one writer; sqlite serializes anyway and :memory: dbs are per-connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(30)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s: %w", dial.Name(), err)
	}
	logrus.WithField("dialect", dial.Name()).Info("gorm: connected")
	return db, nil
}

// Models lists every table the ledger owns, in dependency order.
func Models() []any {
	return []any{
		&identity.User{},
		&loan.Loan{},
		&participation.Participation{},
		&participation.BankDetail{},
		&payment.Payment{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
