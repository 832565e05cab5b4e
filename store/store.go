// Package store keeps the worker's local history of builds it has
// processed, so an operator can inspect a node's recent activity even
// when the shared status store only carries terminal labels.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// ErrBuildNotFound is returned when a build is not in the history.
var ErrBuildNotFound = errors.New("build not found")

var buildsBucket = []byte("builds")

// BuildState is the worker-local lifecycle of one job.
type BuildState string

const (
	StateQueued   BuildState = "Queued"
	StateBuilding BuildState = "Building"
	StateDeployed BuildState = "Deployed"
	StateFailed   BuildState = "Failed"
)

// BuildRecord is one job's entry in the worker's history.
type BuildRecord struct {
	JobID      string     `json:"job_id"`
	State      BuildState `json:"state"`
	DeployID   string     `json:"deploy_id,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at,omitzero"`
	Error      string     `json:"error,omitempty"`
}

// Store defines the interface for the build history.
type Store interface {
	SaveBuild(rec *BuildRecord) error
	GetBuild(jobID string) (*BuildRecord, error)
	Close() error
}

// BoltStore is a Store implementation backed by bbolt.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a new BoltStore at the given path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(buildsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create builds bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// SaveBuild writes a build record, replacing any previous entry for
// the same job.
func (s *BoltStore) SaveBuild(rec *BuildRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(buildsBucket)

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal build record: %w", err)
		}

		if err := b.Put([]byte(rec.JobID), data); err != nil {
			return fmt.Errorf("failed to put build record: %w", err)
		}
		return nil
	})
}

// GetBuild retrieves a build record from the history.
func (s *BoltStore) GetBuild(jobID string) (*BuildRecord, error) {
	var rec BuildRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(buildsBucket)
		data := b.Get([]byte(jobID))
		if data == nil {
			return ErrBuildNotFound
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal build record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
