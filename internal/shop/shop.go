package shop

// Shop is one entry in the shop directory.
type Shop struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Rating  float64 `json:"rating"`
	Phone   string  `json:"phone"`
}

// Directory resolves shop IDs to shop details. Reconciliation and
// navigation consult it read-only.
type Directory interface {
	// Get retrieves a shop by ID.
	Get(id string) (*Shop, error)

	// Lookup returns the shop's display name and whether the shop exists.
	Lookup(id string) (string, bool, error)

	// List returns all registered shops.
	List() ([]*Shop, error)

	// Put registers or updates a shop.
	Put(shop *Shop) error
}

// NearbyShop is a directory entry paired with its distance from the
// caller's location.
type NearbyShop struct {
	Shop        Shop    `json:"shop"`
	DistanceKm  float64 `json:"distance_km"`
	WalkMinutes int     `json:"walk_minutes"`
}

// Locator discovers shops around a coordinate. Implementations must be
// deterministic for a given location so repeated queries agree.
type Locator interface {
	Nearby(lat, lng float64) []NearbyShop
}
