package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"gamebook/server/internal/config"
	"gamebook/server/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "engine.db")},
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStoreRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := NewStore(config.DatabaseConfig{Driver: "bolt"}); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func TestWithTxCommits(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	err := store.WithTx(func(tx *gorm.DB) error {
		return tx.Create(&models.Scenario{Title: "t", Description: "d"}).Error
	})
	if err != nil {
		t.Fatalf("with tx: %v", err)
	}

	var n int64
	if err := store.DB().Model(&models.Scenario{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("scenarios = %d, want 1", n)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	boom := errors.New("boom")
	err := store.WithTx(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Scenario{Title: "t", Description: "d"}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}

	var n int64
	if err := store.DB().Model(&models.Scenario{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("scenarios after rollback = %d, want 0", n)
	}
}
