package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var (
	// ErrInvalidShopReference is returned when a bill targets a shop the
	// directory does not know. The whole bill is rejected.
	ErrInvalidShopReference = errors.New("invalid shop reference")

	// ErrInvalidLineItem is returned in strict mode when an extracted item
	// is malformed.
	ErrInvalidLineItem = errors.New("invalid line item")
)

// ExtractedItem is one line item as produced by bill extraction.
type ExtractedItem struct {
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
}

// ShopDirectory is the subset of the shop directory the reconciler needs.
type ShopDirectory interface {
	// Lookup returns the shop's display name and whether the shop exists.
	Lookup(id string) (string, bool, error)
}

// Outcome describes how a line item changed the catalog.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
)

// Mutation records one applied create-or-update, with a snapshot of the
// record as it stood after the item was applied.
type Mutation struct {
	Outcome Outcome `json:"outcome"`
	Price   Price   `json:"price"`
}

// SkippedItem records a line item that was not applied and why.
type SkippedItem struct {
	Item   ExtractedItem `json:"item"`
	Reason string        `json:"reason"`
}

// Result is the outcome of reconciling one bill.
type Result struct {
	Applied []Mutation    `json:"applied"`
	Skipped []SkippedItem `json:"skipped"`
}

// Reconciler merges bill-extracted line items into the shop price catalog.
type Reconciler struct {
	db     DB
	shops  ShopDirectory
	strict bool
	now    func() time.Time
}

// NewReconciler creates a best-effort reconciler: malformed items are
// skipped and reported, the rest of the bill still applies.
func NewReconciler(db DB, shops ShopDirectory) *Reconciler {
	return NewReconcilerWithDeps(db, shops, false, time.Now)
}

// NewReconcilerWithDeps creates a Reconciler with explicit strictness and
// clock, for callers that need whole-bill failure on a malformed item or a
// fixed time in tests.
func NewReconcilerWithDeps(db DB, shops ShopDirectory, strict bool, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{db: db, shops: shops, strict: strict, now: now}
}

// Reconcile applies a bill's extracted items to the catalog for shopID.
// Items are processed in extraction order; a product appearing twice is
// applied twice, the second pass seeing the state the first produced. All
// writes land in one batch, so an unresolvable shop applies nothing.
func (r *Reconciler) Reconcile(shopID, fallbackShopName string, items []ExtractedItem) (*Result, error) {
	if shopID == "" {
		return nil, ErrInvalidShopReference
	}
	shopName, ok, err := r.shops.Lookup(shopID)
	if err != nil {
		return nil, fmt.Errorf("resolving shop: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidShopReference, shopID)
	}
	if shopName == "" {
		shopName = fallbackShopName
	}

	now := r.now()
	pending := make(map[string]*Price)
	order := make([]string, 0, len(items))
	result := &Result{Applied: []Mutation{}, Skipped: []SkippedItem{}}

	for _, item := range items {
		if reason := validateItem(item); reason != "" {
			if r.strict {
				return nil, fmt.Errorf("%w: %s", ErrInvalidLineItem, reason)
			}
			slog.Warn("Skipping invalid line item",
				"shop_id", shopID,
				"product", item.ProductName,
				"reason", reason,
			)
			result.Skipped = append(result.Skipped, SkippedItem{Item: item, Reason: reason})
			continue
		}

		key := strings.ToLower(strings.TrimSpace(item.ProductName))
		price, tracked := pending[key]
		if !tracked {
			existing, err := r.db.Get(shopID, item.ProductName)
			switch {
			case err == nil:
				price = existing
			case errors.Is(err, ErrPriceNotFound):
				price = nil
			default:
				return nil, fmt.Errorf("loading price: %w", err)
			}
		}

		if price == nil {
			unit := strings.TrimSpace(item.Unit)
			if unit == "" {
				unit = DefaultUnit
			}
			price = &Price{
				ShopID:            shopID,
				ProductName:       strings.TrimSpace(item.ProductName),
				ShopName:          shopName,
				Price:             item.Price,
				Unit:              unit,
				VerificationCount: 1,
				IsVerified:        false,
				Source:            SourceCrowdsourced,
				UpdatedAt:         now,
			}
			result.Applied = append(result.Applied, Mutation{Outcome: OutcomeCreated, Price: *price})
		} else {
			price.Price = item.Price
			price.VerificationCount++
			if price.VerificationCount >= verifiedThreshold {
				price.IsVerified = true
			}
			price.Source = SourceCrowdsourced
			price.UpdatedAt = now
			result.Applied = append(result.Applied, Mutation{Outcome: OutcomeUpdated, Price: *price})
		}

		if _, queued := pending[key]; !queued {
			order = append(order, key)
		}
		pending[key] = price
	}

	if len(pending) > 0 {
		batch := make([]*Price, 0, len(pending))
		for _, key := range order {
			batch = append(batch, pending[key])
		}
		if err := r.db.PutAll(batch); err != nil {
			return nil, fmt.Errorf("saving prices: %w", err)
		}
	}

	return result, nil
}

func validateItem(item ExtractedItem) string {
	if strings.TrimSpace(item.ProductName) == "" {
		return "empty product name"
	}
	if item.Price < 0 {
		return "negative price"
	}
	return ""
}
