package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"YellowbellPOS/app/models"

	"github.com/glebarez/sqlite"
	"github.com/gofrs/flock"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrStoreLocked is returned when another process already owns the store
var ErrStoreLocked = errors.New("store is locked by another process")

// Store is the authoritative local state: inventory, orders, kitchen rollups and prepared batches.
// Every mutating action runs through Update so readers never see half of it.
type Store struct {
	db     *gorm.DB
	mu     sync.RWMutex
	lock   *flock.Flock
	dbPath string
}

// Open opens (creating if needed) the SQLite store at dbPath and runs migrations.
// It takes an exclusive file lock next to the database so only one process writes.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	fileLock := flock.New(dbPath + ".lock")
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire store lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrStoreLocked, dbPath)
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		fileLock.Unlock()
		return nil, fmt.Errorf("failed to connect to local database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		fileLock.Unlock()
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	// One connection keeps SQLite writes serialized with the store mutex
	sqlDB.SetMaxOpenConns(1)

	store := &Store{
		db:     db,
		lock:   fileLock,
		dbPath: dbPath,
	}

	if err := store.runMigrations(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to run local migrations: %w", err)
	}

	log.Printf("Local store opened at %s", dbPath)
	return store, nil
}

// runMigrations creates the tables for every collection
func (s *Store) runMigrations() error {
	return s.db.AutoMigrate(
		&models.InventoryItem{},
		&models.StockMovement{},
		&models.PackagingRule{},
		&models.CustomerOrder{},
		&models.SalesOrder{},
		&models.KitchenItem{},
		&models.CookEvent{},
		&models.PreparedOrder{},
		&models.Notification{},

		&SyncLog{},
	)
}

// Update runs fn inside a single transaction while holding the write lock.
// Returning an error from fn rolls back every change fn made.
func (s *Store) Update(fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("store is closed")
	}
	return s.db.Transaction(fn)
}

// View runs fn against a consistent snapshot; no Update runs concurrently.
func (s *Store) View(fn func(db *gorm.DB) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return fmt.Errorf("store is closed")
	}
	return fn(s.db)
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database and releases the file lock
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var closeErr error
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil {
			closeErr = sqlDB.Close()
		}
		s.db = nil
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	return closeErr
}

// SyncLog journals every mirror attempt
type SyncLog struct {
	ID         uint      `gorm:"primaryKey"`
	Collection string    `gorm:"index" json:"collection"`
	Target     string    `json:"target"`
	Status     string    `json:"status"` // "success", "failed", "dropped"
	Error      string    `json:"error"`
	Bytes      int       `json:"bytes"`
	SyncedAt   time.Time `gorm:"index" json:"synced_at"`
}

// LogSync records a mirror attempt
func (s *Store) LogSync(collection, target, status, errMsg string, size int) error {
	entry := SyncLog{
		Collection: collection,
		Target:     target,
		Status:     status,
		Error:      errMsg,
		Bytes:      size,
		SyncedAt:   time.Now().UTC(),
	}
	return s.Update(func(tx *gorm.DB) error {
		return tx.Create(&entry).Error
	})
}

// RecentSyncLogs returns the latest mirror attempts, newest first
func (s *Store) RecentSyncLogs(limit int) ([]SyncLog, error) {
	var logs []SyncLog
	err := s.View(func(db *gorm.DB) error {
		return db.Order("synced_at DESC, id DESC").Limit(limit).Find(&logs).Error
	})
	return logs, err
}

// ClearSyncLogs removes mirror journal entries older than the given number of days
func (s *Store) ClearSyncLogs(daysOld int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -daysOld)
	return s.Update(func(tx *gorm.DB) error {
		return tx.Where("synced_at < ?", cutoff).Delete(&SyncLog{}).Error
	})
}
