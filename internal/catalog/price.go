package catalog

import (
	"errors"
	"time"
)

// ErrInvalidPriceEntry is returned for manual price entries with an empty
// product name or a negative price.
var ErrInvalidPriceEntry = errors.New("invalid price entry")

// Source indicates where a price record came from.
type Source string

const (
	// SourceShopkeeper marks prices entered manually by the shop owner.
	SourceShopkeeper Source = "shopkeeper"
	// SourceCrowdsourced marks prices confirmed through uploaded bills.
	SourceCrowdsourced Source = "crowdsourced"
)

// verifiedThreshold is the verification count at which a record becomes
// verified: two prior bill confirmations plus the current one.
const verifiedThreshold = 3

// DefaultUnit is used when an extracted item carries no unit.
const DefaultUnit = "kg"

// Price is the catalog entry for one product at one shop. At most one
// active record exists per (shop, product) pair. VerificationCount only
// increases, and IsVerified never reverts to false once set.
type Price struct {
	ShopID            string    `json:"shop_id"`
	ProductName       string    `json:"product_name"`
	ShopName          string    `json:"shop_name"`
	Price             float64   `json:"price"`
	Unit              string    `json:"unit"`
	VerificationCount int       `json:"verification_count"`
	IsVerified        bool      `json:"is_verified"`
	Source            Source    `json:"source"`
	UpdatedAt         time.Time `json:"updated_at"`
}
