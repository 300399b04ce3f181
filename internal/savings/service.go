package savings

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anikets/bachatbuddy/internal/accrual"
	"github.com/anikets/bachatbuddy/internal/catalog"
	"github.com/anikets/bachatbuddy/internal/extraction"
	"github.com/anikets/bachatbuddy/internal/history"
	"github.com/anikets/bachatbuddy/internal/shop"
)

// IDGenerator generates unique IDs for bills.
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service ties the savings engine together: it records search and bill
// events per user, reconciles bills into the price catalog and recomputes
// the derived accrual from the full collections on every mutation.
type Service struct {
	events     history.Store
	prices     catalog.DB
	reconciler *catalog.Reconciler
	extractor  extraction.Extractor
	shops      shop.Directory
	locator    shop.Locator

	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a Service with UUID bill IDs and the wall clock.
func NewService(events history.Store, prices catalog.DB, reconciler *catalog.Reconciler, extractor extraction.Extractor, shops shop.Directory, locator shop.Locator) *Service {
	return NewServiceWithDeps(events, prices, reconciler, extractor, shops, locator, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a Service with custom ID and time dependencies
// for testing.
func NewServiceWithDeps(events history.Store, prices catalog.DB, reconciler *catalog.Reconciler, extractor extraction.Extractor, shops shop.Directory, locator shop.Locator, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		events:      events,
		prices:      prices,
		reconciler:  reconciler,
		extractor:   extractor,
		shops:       shops,
		locator:     locator,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// RecordSearch appends a search event and returns the recomputed accrual.
func (s *Service) RecordSearch(userID, query string) (accrual.Accrual, error) {
	searches, err := s.events.AppendSearch(userID, query)
	if err != nil {
		return accrual.Accrual{}, fmt.Errorf("recording search: %w", err)
	}
	bills, err := s.events.Bills(userID)
	if err != nil {
		return accrual.Accrual{}, fmt.Errorf("loading bills: %w", err)
	}
	return accrual.Compute(searches, bills), nil
}

// Stats recomputes the user's accrual from the full event collections.
func (s *Service) Stats(userID string) (accrual.Accrual, error) {
	searches, err := s.events.Searches(userID)
	if err != nil {
		return accrual.Accrual{}, fmt.Errorf("loading searches: %w", err)
	}
	bills, err := s.events.Bills(userID)
	if err != nil {
		return accrual.Accrual{}, fmt.Errorf("loading bills: %w", err)
	}
	return accrual.Compute(searches, bills), nil
}

// ExtractBill runs the extractor on an uploaded bill and returns the draft
// for user review. Nothing is persisted until the draft is confirmed.
func (s *Service) ExtractBill(data []byte, contentType string) (*extraction.BillData, error) {
	draft, err := s.extractor.ExtractBill(data, contentType)
	if err != nil {
		slog.Error("Failed to extract bill",
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("extracting bill: %w", err)
	}
	return draft, nil
}

// ConfirmBill reconciles a reviewed draft into the price catalog for the
// selected shop, then records the bill in the user's history. An
// unresolvable shop rejects the whole bill and records nothing.
func (s *Service) ConfirmBill(userID, shopID string, draft extraction.BillData) (*history.Bill, *catalog.Result, error) {
	items := make([]catalog.ExtractedItem, 0, len(draft.Items))
	for _, item := range draft.Items {
		items = append(items, catalog.ExtractedItem{
			ProductName: item.ProductName,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
		})
	}

	result, err := s.reconciler.Reconcile(shopID, draft.ShopName, items)
	if err != nil {
		return nil, nil, fmt.Errorf("reconciling bill: %w", err)
	}

	shopName := draft.ShopName
	if name, ok, err := s.shops.Lookup(shopID); err == nil && ok && name != "" {
		shopName = name
	}

	bill := history.Bill{
		ID:          s.idGenerator.Generate(),
		ShopID:      shopID,
		ShopName:    shopName,
		Items:       toLineItems(draft.Items),
		TotalAmount: draft.TotalAmount,
		UploadedAt:  s.timeSource.Now(),
	}
	if _, err := s.events.AppendBill(userID, bill); err != nil {
		return nil, nil, fmt.Errorf("recording bill: %w", err)
	}

	return &bill, result, nil
}

// Bills returns the user's bill history.
func (s *Service) Bills(userID string) ([]history.Bill, error) {
	return s.events.Bills(userID)
}

// DeleteBill removes a bill from the user's history.
func (s *Service) DeleteBill(userID, billID string) error {
	if err := s.events.DeleteBill(userID, billID); err != nil {
		return fmt.Errorf("deleting bill: %w", err)
	}
	return nil
}

// SearchPrices records the search event, finds catalog records matching the
// query and returns them ranked, with the cheapest offer flagged. A blank
// query yields no offers and records nothing.
func (s *Service) SearchPrices(userID, query string, key catalog.SortKey) ([]catalog.Offer, error) {
	if _, err := s.events.AppendSearch(userID, query); err != nil {
		if errors.Is(err, history.ErrEmptyQuery) {
			return []catalog.Offer{}, nil
		}
		return nil, fmt.Errorf("recording search: %w", err)
	}

	matches, err := s.prices.SearchByProduct(query)
	if err != nil {
		return nil, fmt.Errorf("searching prices: %w", err)
	}

	// Distances follow listing order deterministically, standing in for a
	// live distance service.
	offers := make([]catalog.Offer, 0, len(matches))
	for i, price := range matches {
		offers = append(offers, catalog.Offer{
			Price:      *price,
			DistanceKm: 0.5 + float64(i)*0.3,
			TravelMins: 5 + i*3,
		})
	}
	return catalog.RankOffers(offers, key), nil
}

// SetShopPrice applies a manual shopkeeper price entry for a product. The
// shop must resolve in the directory; the entry carries no verification
// weight until bills confirm it.
func (s *Service) SetShopPrice(shopID, productName string, price float64, unit string) (*catalog.Price, error) {
	if strings.TrimSpace(productName) == "" || price < 0 {
		return nil, catalog.ErrInvalidPriceEntry
	}

	shopName, ok, err := s.shops.Lookup(shopID)
	if err != nil {
		return nil, fmt.Errorf("resolving shop: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrInvalidShopReference, shopID)
	}

	if strings.TrimSpace(unit) == "" {
		unit = catalog.DefaultUnit
	}
	stored, err := s.prices.UpsertShopkeeper(&catalog.Price{
		ShopID:      shopID,
		ProductName: productName,
		ShopName:    shopName,
		Price:       price,
		Unit:        strings.TrimSpace(unit),
		UpdatedAt:   s.timeSource.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("saving price entry: %w", err)
	}
	return stored, nil
}

// NearbyShops returns shops around the given location, nearest first.
func (s *Service) NearbyShops(lat, lng float64) []shop.NearbyShop {
	return s.locator.Nearby(lat, lng)
}

// Shops returns the registered shop directory.
func (s *Service) Shops() ([]*shop.Shop, error) {
	return s.shops.List()
}

func toLineItems(items []extraction.ExtractedItem) []history.LineItem {
	lineItems := make([]history.LineItem, 0, len(items))
	for _, item := range items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		lineItems = append(lineItems, history.LineItem{
			Name:     item.ProductName,
			Price:    item.Price,
			Quantity: qty,
			Unit:     item.Unit,
		})
	}
	return lineItems
}
