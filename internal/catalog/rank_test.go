package catalog

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RankOffers", func() {
	var (
		offers []Offer
		key    SortKey
		ranked []Offer
	)

	BeforeEach(func() {
		key = SortByPrice
		offers = []Offer{
			{Price: Price{ShopID: "s1", ProductName: "Tomato", Price: 30}, DistanceKm: 0.5, TravelMins: 5},
			{Price: Price{ShopID: "s2", ProductName: "Tomato", Price: 25}, DistanceKm: 1.1, TravelMins: 11},
			{Price: Price{ShopID: "s3", ProductName: "Tomato", Price: 28}, DistanceKm: 0.2, TravelMins: 2},
		}
	})

	JustBeforeEach(func() {
		ranked = RankOffers(offers, key)
	})

	When("sorting by price", func() {
		It("should order offers cheapest first", func() {
			Expect(ranked[0].Price.ShopID).To(Equal("s2"))
			Expect(ranked[1].Price.ShopID).To(Equal("s3"))
			Expect(ranked[2].Price.ShopID).To(Equal("s1"))
		})

		It("should flag the cheapest offer", func() {
			Expect(ranked[0].IsCheapest).To(BeTrue())
			Expect(ranked[1].IsCheapest).To(BeFalse())
			Expect(ranked[2].IsCheapest).To(BeFalse())
		})

		It("should not modify the input slice", func() {
			Expect(offers[0].Price.ShopID).To(Equal("s1"))
			Expect(offers[0].IsCheapest).To(BeFalse())
		})
	})

	When("sorting by distance", func() {
		BeforeEach(func() {
			key = SortByDistance
		})

		It("should order offers nearest first", func() {
			Expect(ranked[0].Price.ShopID).To(Equal("s3"))
			Expect(ranked[1].Price.ShopID).To(Equal("s1"))
			Expect(ranked[2].Price.ShopID).To(Equal("s2"))
		})

		It("should still flag the cheapest by price", func() {
			Expect(ranked[0].IsCheapest).To(BeFalse())
			Expect(ranked[2].IsCheapest).To(BeTrue())
			Expect(ranked[2].Price.ShopID).To(Equal("s2"))
		})
	})

	When("two offers share the lowest price", func() {
		BeforeEach(func() {
			offers = []Offer{
				{Price: Price{ShopID: "s1", Price: 25}, DistanceKm: 2.0},
				{Price: Price{ShopID: "s2", Price: 25}, DistanceKm: 0.3},
			}
		})

		It("should keep input order for equal prices", func() {
			Expect(ranked[0].Price.ShopID).To(Equal("s1"))
			Expect(ranked[1].Price.ShopID).To(Equal("s2"))
		})

		It("should flag only the earliest of the tied offers", func() {
			Expect(ranked[0].IsCheapest).To(BeTrue())
			Expect(ranked[1].IsCheapest).To(BeFalse())
		})
	})

	When("input offers carry stale cheapest flags", func() {
		BeforeEach(func() {
			offers = []Offer{
				{Price: Price{ShopID: "s1", Price: 40}, IsCheapest: true},
				{Price: Price{ShopID: "s2", Price: 20}},
			}
		})

		It("should recompute the flag from price", func() {
			Expect(ranked[0].Price.ShopID).To(Equal("s2"))
			Expect(ranked[0].IsCheapest).To(BeTrue())
			Expect(ranked[1].IsCheapest).To(BeFalse())
		})
	})

	When("ranking is applied twice", func() {
		It("should be idempotent", func() {
			again := RankOffers(ranked, key)
			Expect(again).To(Equal(ranked))
		})
	})

	When("there are no offers", func() {
		BeforeEach(func() {
			offers = []Offer{}
		})

		It("should return an empty slice", func() {
			Expect(ranked).To(BeEmpty())
			Expect(ranked).NotTo(BeNil())
		})
	})

	When("there is a single offer", func() {
		BeforeEach(func() {
			offers = offers[:1]
		})

		It("should flag it cheapest", func() {
			Expect(ranked).To(HaveLen(1))
			Expect(ranked[0].IsCheapest).To(BeTrue())
		})
	})
})
