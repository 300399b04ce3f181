package catalog

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"
)

var _ = Describe("BoltDB", func() {
	var (
		db     *bbolt.DB
		prices *BoltDB
	)

	BeforeEach(func() {
		var err error
		db, err = bbolt.Open(filepath.Join(GinkgoT().TempDir(), "test.db"), 0600, nil)
		Expect(err).NotTo(HaveOccurred())

		prices, err = NewBoltDB(db)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	Describe("Get", func() {
		When("the record does not exist", func() {
			It("should return ErrPriceNotFound", func() {
				_, err := prices.Get("s1", "Tomato")
				Expect(err).To(MatchError(ErrPriceNotFound))
			})
		})

		When("the record exists", func() {
			BeforeEach(func() {
				Expect(prices.Put(&Price{
					ShopID:            "s1",
					ProductName:       "Tomato",
					ShopName:          "Metro Store",
					Price:             30,
					Unit:              "kg",
					VerificationCount: 1,
					Source:            SourceCrowdsourced,
					UpdatedAt:         time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
				})).To(Succeed())
			})

			It("should return the record", func() {
				price, err := prices.Get("s1", "Tomato")
				Expect(err).NotTo(HaveOccurred())
				Expect(price.Price).To(Equal(30.0))
				Expect(price.ShopName).To(Equal("Metro Store"))
				Expect(price.VerificationCount).To(Equal(1))
			})

			It("should match case-insensitively on product name", func() {
				price, err := prices.Get("s1", "  tomato ")
				Expect(err).NotTo(HaveOccurred())
				Expect(price.ProductName).To(Equal("Tomato"))
			})

			It("should not match a different shop", func() {
				_, err := prices.Get("s2", "Tomato")
				Expect(err).To(MatchError(ErrPriceNotFound))
			})
		})
	})

	Describe("Put", func() {
		It("should overwrite the record for the same pair", func() {
			Expect(prices.Put(&Price{ShopID: "s1", ProductName: "Tomato", Price: 30})).To(Succeed())
			Expect(prices.Put(&Price{ShopID: "s1", ProductName: "tomato", Price: 28, VerificationCount: 2})).To(Succeed())

			price, err := prices.Get("s1", "Tomato")
			Expect(err).NotTo(HaveOccurred())
			Expect(price.Price).To(Equal(28.0))
			Expect(price.VerificationCount).To(Equal(2))

			all, err := prices.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})
	})

	Describe("PutAll", func() {
		It("should persist every record in the batch", func() {
			Expect(prices.PutAll([]*Price{
				{ShopID: "s1", ProductName: "Tomato", Price: 30},
				{ShopID: "s1", ProductName: "Onion", Price: 22},
				{ShopID: "s2", ProductName: "Tomato", Price: 28},
			})).To(Succeed())

			all, err := prices.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
		})
	})

	Describe("UpsertShopkeeper", func() {
		When("the product is new for the shop", func() {
			It("should create an unverified shopkeeper record", func() {
				stored, err := prices.UpsertShopkeeper(&Price{
					ShopID: "s1", ProductName: "Tomato", ShopName: "Metro Store", Price: 32, Unit: "kg",
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(stored.Source).To(Equal(SourceShopkeeper))
				Expect(stored.VerificationCount).To(Equal(0))
				Expect(stored.IsVerified).To(BeFalse())

				saved, err := prices.Get("s1", "Tomato")
				Expect(err).NotTo(HaveOccurred())
				Expect(saved.Price).To(Equal(32.0))
			})
		})

		When("a crowdsourced record already exists", func() {
			BeforeEach(func() {
				Expect(prices.Put(&Price{
					ShopID: "s1", ProductName: "Tomato", Price: 30,
					VerificationCount: 3, IsVerified: true, Source: SourceCrowdsourced,
				})).To(Succeed())
			})

			It("should take the new price but keep the verification state", func() {
				stored, err := prices.UpsertShopkeeper(&Price{
					ShopID: "s1", ProductName: "Tomato", Price: 35, Unit: "kg",
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(stored.Price).To(Equal(35.0))
				Expect(stored.Source).To(Equal(SourceShopkeeper))
				Expect(stored.VerificationCount).To(Equal(3))
				Expect(stored.IsVerified).To(BeTrue())
			})
		})
	})

	Describe("SearchByProduct", func() {
		BeforeEach(func() {
			Expect(prices.PutAll([]*Price{
				{ShopID: "s1", ProductName: "Tomato", Price: 30},
				{ShopID: "s2", ProductName: "Cherry Tomato", Price: 45},
				{ShopID: "s1", ProductName: "Onion", Price: 22},
			})).To(Succeed())
		})

		It("should match substrings case-insensitively", func() {
			matches, err := prices.SearchByProduct("TOMATO")
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
		})

		It("should return no matches for an unknown product", func() {
			matches, err := prices.SearchByProduct("paneer")
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeEmpty())
		})

		It("should return no matches for a blank query", func() {
			matches, err := prices.SearchByProduct("   ")
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeEmpty())
		})
	})
})
