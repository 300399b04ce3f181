package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"
)

const priceBucketName = "prices"

// ErrPriceNotFound is returned when no record exists for a (shop, product)
// pair.
var ErrPriceNotFound = errors.New("price not found")

// DB defines the interface for price catalog persistence.
type DB interface {
	// Get retrieves the record for a (shop, product) pair.
	Get(shopID, productName string) (*Price, error)

	// Put saves a single price record.
	Put(price *Price) error

	// PutAll saves a batch of price records atomically.
	PutAll(prices []*Price) error

	// UpsertShopkeeper applies a manual shopkeeper price entry. A new
	// record starts unverified with a zero verification count; an existing
	// record keeps its verification state and takes the new price.
	UpsertShopkeeper(entry *Price) (*Price, error)

	// List returns all price records.
	List() ([]*Price, error)

	// SearchByProduct returns records whose product name contains the
	// query, case-insensitively.
	SearchByProduct(query string) ([]*Price, error)
}

// BoltDB implements the DB interface using BoltDB. Records are keyed by
// shopID and lower-cased product name so each pair has one active record.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates the price bucket on db if needed.
func NewBoltDB(db *bbolt.DB) (*BoltDB, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(priceBucketName))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	return &BoltDB{db: db}, nil
}

func priceKey(shopID, productName string) []byte {
	return []byte(shopID + "|" + strings.ToLower(strings.TrimSpace(productName)))
}

// Get retrieves the record for a (shop, product) pair.
func (b *BoltDB) Get(shopID, productName string) (*Price, error) {
	var price *Price
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(priceBucketName)).Get(priceKey(shopID, productName))
		if data == nil {
			return fmt.Errorf("%w: %s/%s", ErrPriceNotFound, shopID, productName)
		}
		return json.Unmarshal(data, &price)
	})
	if err != nil {
		return nil, err
	}
	return price, nil
}

// Put saves a single price record.
func (b *BoltDB) Put(price *Price) error {
	return b.PutAll([]*Price{price})
}

// PutAll saves a batch of price records in one transaction.
func (b *BoltDB) PutAll(prices []*Price) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(priceBucketName))
		for _, price := range prices {
			data, err := json.Marshal(price)
			if err != nil {
				return fmt.Errorf("marshaling price: %w", err)
			}
			if err := bucket.Put(priceKey(price.ShopID, price.ProductName), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertShopkeeper applies a manual shopkeeper price entry in one
// transaction and returns the stored record.
func (b *BoltDB) UpsertShopkeeper(entry *Price) (*Price, error) {
	stored := *entry
	stored.ProductName = strings.TrimSpace(entry.ProductName)
	stored.Source = SourceShopkeeper
	stored.VerificationCount = 0
	stored.IsVerified = false

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(priceBucketName))
		key := priceKey(entry.ShopID, entry.ProductName)

		if data := bucket.Get(key); data != nil {
			var existing Price
			if err := json.Unmarshal(data, &existing); err != nil {
				return fmt.Errorf("unmarshaling price: %w", err)
			}
			stored.VerificationCount = existing.VerificationCount
			stored.IsVerified = existing.IsVerified
		}

		data, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("marshaling price: %w", err)
		}
		return bucket.Put(key, data)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// List returns all price records.
func (b *BoltDB) List() ([]*Price, error) {
	prices := make([]*Price, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(priceBucketName)).ForEach(func(k, v []byte) error {
			var price Price
			if err := json.Unmarshal(v, &price); err != nil {
				return fmt.Errorf("unmarshaling price: %w", err)
			}
			prices = append(prices, &price)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return prices, nil
}

// SearchByProduct returns records whose product name contains the query.
func (b *BoltDB) SearchByProduct(query string) ([]*Price, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	matches := make([]*Price, 0)
	if needle == "" {
		return matches, nil
	}
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(priceBucketName)).ForEach(func(k, v []byte) error {
			var price Price
			if err := json.Unmarshal(v, &price); err != nil {
				return fmt.Errorf("unmarshaling price: %w", err)
			}
			if strings.Contains(strings.ToLower(price.ProductName), needle) {
				matches = append(matches, &price)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
