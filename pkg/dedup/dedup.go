package dedup

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/opus-domini/sentinel/pkg/sentinelerr"
	"github.com/opus-domini/sentinel/pkg/types"
)

var bucketProcessedItems = []byte("processed_items")

// Store is the connector's dedup table.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the bbolt file at <dataDir>/connector.db.
func Open(dataDir string) (*Store, error) {
	path := filepath.Join(dataDir, "connector.db")
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, &sentinelerr.DbError{Op: "open dedup store", Err: err}
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketProcessedItems)
		return err
	})
	if err != nil {
		db.Close()
		return nil, &sentinelerr.DbError{Op: "create dedup bucket", Err: err}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying bbolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(sourceID int64, href string) []byte {
	return []byte(strconv.FormatInt(sourceID, 10) + "/" + href)
}

// Seen reports whether (sourceID, href) has already been recorded.
func (s *Store) Seen(sourceID int64, href string) (bool, error) {
	var seen bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProcessedItems)
		seen = b.Get(key(sourceID, href)) != nil
		return nil
	})
	if err != nil {
		return false, &sentinelerr.DbError{Op: "check dedup", Err: err}
	}
	return seen, nil
}

// MarkSeenBatch records every (sourceID, href) pair not already present, in
// a single commit, and returns only the pairs that were newly inserted —
// the ones the connector must emit as RawEvents.
func (s *Store) MarkSeenBatch(sourceID int64, candidates []types.Candidate) ([]types.Candidate, error) {
	var fresh []types.Candidate
	now := time.Now().UTC()

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProcessedItems)
		for _, c := range candidates {
			k := key(sourceID, c.Href)
			if b.Get(k) != nil {
				continue
			}
			item := types.ProcessedItem{SourceID: sourceID, ItemURL: c.Href, FirstSeen: now}
			data, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("marshal processed item: %w", err)
			}
			if err := b.Put(k, data); err != nil {
				return err
			}
			fresh = append(fresh, c)
		}
		return nil
	})
	if err != nil {
		return nil, &sentinelerr.DbError{Op: "mark dedup batch", Err: err}
	}
	return fresh, nil
}
