package storage

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gamebook/server/internal/config"
	"gamebook/server/internal/models"
)

// Store wraps the relational database holding scenarios and play sessions.
// Every engine operation runs inside WithTx so that imports and session
// advances commit or roll back as a whole.
type Store struct {
	db *gorm.DB
}

func NewStore(cfg config.DatabaseConfig) (*Store, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.SQLite.Path)
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.MySQL.Username,
			cfg.MySQL.Password,
			cfg.MySQL.Host,
			cfg.MySQL.Port,
			cfg.MySQL.Database,
		)
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "mysql" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(
		&models.Scenario{},
		&models.Scene{},
		&models.Selection{},
		&models.Transition{},
		&models.PlaySession{},
		&models.ChoiceEntry{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithTx runs fn inside one transaction. A returned error rolls the whole
// unit of work back, leaving prior state untouched.
func (s *Store) WithTx(fn func(*gorm.DB) error) error {
	return s.db.Transaction(fn)
}
