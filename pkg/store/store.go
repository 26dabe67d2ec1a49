package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketUpdates       = []byte("updates")
	bucketBreakerEvents = []byte("breaker_events")
)

// UpdateRecord is one audit entry for a configuration update attempt.
type UpdateRecord struct {
	RequestID  string            `json:"request_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Changes    map[string]string `json:"changes"`
	BackupRef  string            `json:"backup_ref,omitempty"`
	Outcome    string            `json:"outcome"`
	RolledBack bool              `json:"rolled_back"`
	Error      string            `json:"error,omitempty"`
}

// BreakerEvent records a circuit breaker state transition.
type BreakerEvent struct {
	Service    string    `json:"service"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Store is a BoltDB-backed audit journal for update attempts and breaker
// transitions. Keys are timestamp-prefixed so chronological scans come
// for free from Bolt's key ordering.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the journal database under dataDir.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "poolkeeper.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketUpdates,
			bucketBreakerEvents,
		}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// recordKey builds a sortable key from a timestamp and a discriminator.
func recordKey(ts time.Time, id string) []byte {
	return []byte(ts.UTC().Format(time.RFC3339Nano) + "/" + id)
}

// RecordUpdate appends an update attempt to the journal.
func (s *Store) RecordUpdate(record *UpdateRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUpdates)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put(recordKey(record.StartedAt, record.RequestID), data)
	})
}

// ListUpdates returns up to limit update records, newest first. A limit
// of zero or less means all records.
func (s *Store) ListUpdates(limit int) ([]*UpdateRecord, error) {
	var records []*UpdateRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketUpdates).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var record UpdateRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, &record)
			if limit > 0 && len(records) >= limit {
				return nil
			}
		}
		return nil
	})
	return records, err
}

// LastUpdate returns the most recent update record, or nil when the
// journal is empty.
func (s *Store) LastUpdate() (*UpdateRecord, error) {
	records, err := s.ListUpdates(1)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// RecordBreakerEvent appends a breaker transition to the journal.
func (s *Store) RecordBreakerEvent(event *BreakerEvent) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBreakerEvents)
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return b.Put(recordKey(event.OccurredAt, event.Service), data)
	})
}

// ListBreakerEvents returns up to limit breaker events, newest first.
func (s *Store) ListBreakerEvents(limit int) ([]*BreakerEvent, error) {
	var events []*BreakerEvent
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketBreakerEvents).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var event BreakerEvent
			if err := json.Unmarshal(v, &event); err != nil {
				return err
			}
			events = append(events, &event)
			if limit > 0 && len(events) >= limit {
				return nil
			}
		}
		return nil
	})
	return events, err
}

// Prune deletes all but the newest keep entries from each bucket.
func (s *Store) Prune(keep int) error {
	if keep < 0 {
		keep = 0
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketUpdates, bucketBreakerEvents} {
			b := tx.Bucket(name)
			c := b.Cursor()
			seen := 0
			var stale [][]byte
			// Walk newest to oldest; everything past the keep horizon goes.
			for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
				seen++
				if seen > keep {
					stale = append(stale, append([]byte(nil), k...))
				}
			}
			for _, k := range stale {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
