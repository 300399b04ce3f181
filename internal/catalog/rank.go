package catalog

import "sort"

// SortKey selects the ranking order for price offers.
type SortKey string

const (
	SortByPrice    SortKey = "price"
	SortByDistance SortKey = "distance"
)

// Offer is one shop's price for a searched product, enriched with distance
// for ranking.
type Offer struct {
	Price      Price   `json:"price"`
	DistanceKm float64 `json:"distance_km"`
	TravelMins int     `json:"travel_mins"`
	IsCheapest bool    `json:"is_cheapest"`
}

// RankOffers sorts offers ascending by the chosen key, stably, so equal
// keys keep their input order. The cheapest flag is always derived from
// price, regardless of the active sort key; ties go to the earliest input
// offer. The input slice is not modified.
func RankOffers(offers []Offer, key SortKey) []Offer {
	ranked := make([]Offer, len(offers))
	copy(ranked, offers)
	if len(ranked) == 0 {
		return ranked
	}

	cheapest := 0
	for i := range ranked {
		ranked[i].IsCheapest = false
		if ranked[i].Price.Price < ranked[cheapest].Price.Price {
			cheapest = i
		}
	}
	ranked[cheapest].IsCheapest = true

	sort.SliceStable(ranked, func(i, j int) bool {
		if key == SortByDistance {
			return ranked[i].DistanceKm < ranked[j].DistanceKm
		}
		return ranked[i].Price.Price < ranked[j].Price.Price
	})
	return ranked
}
