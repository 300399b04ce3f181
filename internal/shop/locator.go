package shop

import (
	"fmt"
	"math"
	"sort"
)

var locatorNames = []string{
	"Metro Store", "Local Market", "Fresh Shop", "Organic Hub", "Best Price",
	"Daily Needs", "Quick Shop", "Super Bazaar", "Quality Shop", "Market Hub",
}

const locatorCount = 5

// GridLocator derives a repeatable set of nearby shops from the caller's
// coordinates. The same location always yields the same shops, so results
// are stable across sessions without a live places backend.
type GridLocator struct{}

// NewGridLocator creates a GridLocator.
func NewGridLocator() *GridLocator {
	return &GridLocator{}
}

// Nearby returns shops around the given coordinate, nearest first.
func (g *GridLocator) Nearby(lat, lng float64) []NearbyShop {
	seed := int(math.Floor(lat*1000)) + int(math.Floor(lng*1000))
	if seed < 0 {
		seed = -seed
	}

	shops := make([]NearbyShop, 0, locatorCount)
	for idx := 0; idx < locatorCount; idx++ {
		s := seed + idx
		distance := 0.2 + float64(idx)*0.3 + float64(s%100)/1000
		shops = append(shops, NearbyShop{
			Shop: Shop{
				ID:     fmt.Sprintf("nearby-%d-%d", seed, idx),
				Name:   locatorNames[s%len(locatorNames)],
				Lat:    lat,
				Lng:    lng,
				Rating: 3.5 + float64(s%20)/10,
				Phone:  fmt.Sprintf("+91-%010d", s%9000000000+1000000000),
			},
			DistanceKm:  math.Round(distance*10) / 10,
			WalkMinutes: int(math.Round(distance * 12)),
		})
	}

	sort.SliceStable(shops, func(i, j int) bool {
		return shops[i].DistanceKm < shops[j].DistanceKm
	})
	return shops
}
