package shop

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"
)

const shopBucketName = "shops"

// ErrShopNotFound is returned when a shop ID is not in the directory.
var ErrShopNotFound = errors.New("shop not found")

// BoltDirectory implements Directory using BoltDB.
type BoltDirectory struct {
	db *bbolt.DB
}

// NewBoltDirectory creates the shop bucket on db if needed.
func NewBoltDirectory(db *bbolt.DB) (*BoltDirectory, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(shopBucketName))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	return &BoltDirectory{db: db}, nil
}

// Get retrieves a shop by ID.
func (d *BoltDirectory) Get(id string) (*Shop, error) {
	var shop *Shop
	err := d.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(shopBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrShopNotFound, id)
		}
		return json.Unmarshal(data, &shop)
	})
	if err != nil {
		return nil, err
	}
	return shop, nil
}

// Lookup returns the shop's display name and whether the shop exists.
func (d *BoltDirectory) Lookup(id string) (string, bool, error) {
	shop, err := d.Get(id)
	if errors.Is(err, ErrShopNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return shop.Name, true, nil
}

// List returns all registered shops.
func (d *BoltDirectory) List() ([]*Shop, error) {
	shops := make([]*Shop, 0)
	err := d.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(shopBucketName)).ForEach(func(k, v []byte) error {
			var shop Shop
			if err := json.Unmarshal(v, &shop); err != nil {
				return fmt.Errorf("unmarshaling shop: %w", err)
			}
			shops = append(shops, &shop)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return shops, nil
}

// Put registers or updates a shop.
func (d *BoltDirectory) Put(shop *Shop) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(shop)
		if err != nil {
			return fmt.Errorf("marshaling shop: %w", err)
		}
		return tx.Bucket([]byte(shopBucketName)).Put([]byte(shop.ID), data)
	})
}

// Seed registers the given shops if the directory is empty. Used at startup
// so a fresh install has somewhere to attach bills and prices.
func (d *BoltDirectory) Seed(shops []*Shop) error {
	existing, err := d.List()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, s := range shops {
		if err := d.Put(s); err != nil {
			return fmt.Errorf("seeding shop %s: %w", s.ID, err)
		}
	}
	return nil
}

// DefaultShops is the seed directory for a fresh database.
func DefaultShops() []*Shop {
	return []*Shop{
		{ID: "metro-store", Name: "Metro Store", Address: "14 MG Road", Lat: 28.6139, Lng: 77.2090, Rating: 4.2, Phone: "+91-9810001001"},
		{ID: "local-market", Name: "Local Market", Address: "3 Station Road", Lat: 28.6155, Lng: 77.2104, Rating: 3.9, Phone: "+91-9810001002"},
		{ID: "fresh-shop", Name: "Fresh Shop", Address: "27 Park Street", Lat: 28.6121, Lng: 77.2075, Rating: 4.5, Phone: "+91-9810001003"},
		{ID: "organic-hub", Name: "Organic Hub", Address: "8 Lake View", Lat: 28.6170, Lng: 77.2061, Rating: 4.1, Phone: "+91-9810001004"},
		{ID: "daily-needs", Name: "Daily Needs", Address: "51 Main Bazaar", Lat: 28.6102, Lng: 77.2122, Rating: 3.7, Phone: "+91-9810001005"},
	}
}
