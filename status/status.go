// Package status persists the per-job outcome label shared between the
// build worker, which writes it, and the API tier, which serves it.
package status

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Labels a job can carry. A job with no record at all is still queued
// (or was never submitted).
const (
	Deployed = "deployed"
	Failed   = "failed"
)

// ErrNotFound is returned by Get when no record exists for the job.
var ErrNotFound = errors.New("status: not found")

// Record maps a job identifier to its outcome label.
type Record struct {
	JobID     string    `gorm:"primaryKey;size:64"`
	Status    string    `gorm:"size:32;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName keeps the table name singular-free and explicit.
func (Record) TableName() string { return "job_status" }

// Store is a key-value map of job id to status label backed by a SQL
// database all pipeline processes can reach.
type Store struct {
	db *gorm.DB
}

// ConnectMySQL opens a Store over MySQL and migrates the schema.
func ConnectMySQL(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("status: connect: %w", err)
	}
	return newStore(db)
}

// ConnectSQLite opens a Store over a SQLite file, used by single-node
// dev mode and tests.
func ConnectSQLite(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("status: connect %s: %w", path, err)
	}
	return newStore(db)
}

func newStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("status: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Set records the label for a job, overwriting any previous value in a
// single upsert.
func (s *Store) Set(jobID, label string) error {
	rec := Record{JobID: jobID, Status: label}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("status: set %s: %w", jobID, err)
	}
	return nil
}

// Get returns the label recorded for a job, or ErrNotFound.
func (s *Store) Get(jobID string) (string, error) {
	var rec Record
	err := s.db.First(&rec, "job_id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("status: get %s: %w", jobID, err)
	}
	return rec.Status, nil
}
