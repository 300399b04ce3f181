package shop

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("GridLocator", func() {
	var (
		locator  *GridLocator
		lat, lng float64
		shops    []NearbyShop
	)

	BeforeEach(func() {
		locator = NewGridLocator()
		lat, lng = 28.6139, 77.2090
	})

	JustBeforeEach(func() {
		shops = locator.Nearby(lat, lng)
	})

	It("should return five shops", func() {
		Expect(shops).To(HaveLen(5))
	})

	It("should be deterministic for the same location", func() {
		Expect(locator.Nearby(lat, lng)).To(Equal(shops))
	})

	It("should order shops nearest first", func() {
		for i := 1; i < len(shops); i++ {
			Expect(shops[i].DistanceKm).To(BeNumerically(">=", shops[i-1].DistanceKm))
		}
	})

	It("should give each shop a unique ID", func() {
		seen := make(map[string]bool)
		for _, s := range shops {
			Expect(seen[s.Shop.ID]).To(BeFalse())
			seen[s.Shop.ID] = true
		}
	})

	It("should keep walk time consistent with distance", func() {
		for _, s := range shops {
			Expect(s.WalkMinutes).To(BeNumerically(">", 0))
			Expect(s.DistanceKm).To(BeNumerically(">", 0))
		}
	})

	When("the location changes", func() {
		It("should yield a different set", func() {
			other := locator.Nearby(19.0760, 72.8777)
			Expect(other).To(HaveLen(5))
			Expect(other).NotTo(Equal(shops))
		})
	})

	When("coordinates are negative", func() {
		BeforeEach(func() {
			lat, lng = -33.8688, -151.2093
		})

		It("should still return shops", func() {
			Expect(shops).To(HaveLen(5))
			for _, s := range shops {
				Expect(s.Shop.Name).NotTo(BeEmpty())
			}
		})
	})
})
