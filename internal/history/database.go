package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.etcd.io/bbolt"
)

const (
	searchBucketName = "search_history"
	billBucketName   = "bill_history"
)

var (
	// ErrEmptyQuery is returned when a search query is blank after trimming.
	ErrEmptyQuery = errors.New("search query is empty")

	// ErrBillNotFound is returned when a bill ID does not exist in the
	// user's history.
	ErrBillNotFound = errors.New("bill not found")
)

// Store defines per-user access to the two event collections the accrual
// engine is computed from. Each collection is read and written whole; there
// is no partial patch API.
type Store interface {
	// Searches returns the user's full search history in insertion order.
	Searches(userID string) ([]string, error)

	// AppendSearch normalizes the query (lower-case, trimmed), appends it
	// and returns the updated history.
	AppendSearch(userID, query string) ([]string, error)

	// Bills returns the user's full bill history in upload order.
	Bills(userID string) ([]Bill, error)

	// AppendBill appends a bill and returns the updated history.
	AppendBill(userID string, bill Bill) ([]Bill, error)

	// DeleteBill removes the bill with the given ID from the user's history.
	DeleteBill(userID, billID string) error
}

// BoltStore implements Store on a shared BoltDB. Collections are stored as
// JSON arrays keyed by user ID. The caller owns the database handle.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates the history buckets on db if needed.
func NewBoltStore(db *bbolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(searchBucketName)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(billBucketName))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Searches returns the user's full search history.
func (s *BoltStore) Searches(userID string) ([]string, error) {
	var searches []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		searches = decodeSearches(tx.Bucket([]byte(searchBucketName)).Get([]byte(userID)), userID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return searches, nil
}

// AppendSearch appends a normalized query to the user's search history.
func (s *BoltStore) AppendSearch(userID, query string) ([]string, error) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return nil, ErrEmptyQuery
	}

	var updated []string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(searchBucketName))
		searches := decodeSearches(bucket.Get([]byte(userID)), userID)
		updated = append(searches, normalized)
		data, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("marshaling search history: %w", err)
		}
		return bucket.Put([]byte(userID), data)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Bills returns the user's full bill history.
func (s *BoltStore) Bills(userID string) ([]Bill, error) {
	var bills []Bill
	err := s.db.View(func(tx *bbolt.Tx) error {
		bills = decodeBills(tx.Bucket([]byte(billBucketName)).Get([]byte(userID)), userID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bills, nil
}

// AppendBill appends a bill to the user's bill history.
func (s *BoltStore) AppendBill(userID string, bill Bill) ([]Bill, error) {
	var updated []Bill
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(billBucketName))
		bills := decodeBills(bucket.Get([]byte(userID)), userID)
		updated = append(bills, bill)
		data, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("marshaling bill history: %w", err)
		}
		return bucket.Put([]byte(userID), data)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBill removes the bill with the given ID from the user's history.
func (s *BoltStore) DeleteBill(userID, billID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(billBucketName))
		bills := decodeBills(bucket.Get([]byte(userID)), userID)

		remaining := make([]Bill, 0, len(bills))
		found := false
		for _, b := range bills {
			if b.ID == billID {
				found = true
				continue
			}
			remaining = append(remaining, b)
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrBillNotFound, billID)
		}

		data, err := json.Marshal(remaining)
		if err != nil {
			return fmt.Errorf("marshaling bill history: %w", err)
		}
		return bucket.Put([]byte(userID), data)
	})
}

// decodeSearches unmarshals a stored search history. Missing or corrupt
// values degrade to an empty collection so accrual computation never fails
// on a bad load.
func decodeSearches(data []byte, userID string) []string {
	if data == nil {
		return []string{}
	}
	var searches []string
	if err := json.Unmarshal(data, &searches); err != nil {
		slog.Warn("Corrupt search history, treating as empty", "user_id", userID, "error", err)
		return []string{}
	}
	return searches
}

func decodeBills(data []byte, userID string) []Bill {
	if data == nil {
		return []Bill{}
	}
	var bills []Bill
	if err := json.Unmarshal(data, &bills); err != nil {
		slog.Warn("Corrupt bill history, treating as empty", "user_id", userID, "error", err)
		return []Bill{}
	}
	return bills
}
