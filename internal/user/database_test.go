package user

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"
)

func TestUser(t *testing.T) {
	// Disable logging during tests
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	RegisterFailHandler(Fail)
	RunSpecs(t, "User Suite")
}

var _ = Describe("BoltStore", func() {
	var (
		db    *bbolt.DB
		store *BoltStore
	)

	BeforeEach(func() {
		var err error
		db, err = bbolt.Open(filepath.Join(GinkgoT().TempDir(), "test.db"), 0600, nil)
		Expect(err).NotTo(HaveOccurred())

		store, err = NewBoltStore(db)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	Describe("Create", func() {
		var u *User

		BeforeEach(func() {
			u = &User{
				ID:           "user-1",
				Username:     "Aniket",
				Email:        "Aniket@Example.com",
				FullName:     "Aniket Sharma",
				PasswordHash: "$2a$10$fakehash",
				CreatedAt:    time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
			}
			Expect(store.Create(u)).To(Succeed())
		})

		It("should retrieve the user by ID", func() {
			saved, err := store.Get("user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Username).To(Equal("Aniket"))
			Expect(saved.PasswordHash).To(Equal("$2a$10$fakehash"))
		})

		It("should reject a duplicate username regardless of case", func() {
			err := store.Create(&User{ID: "user-2", Username: "aniket", Email: "other@example.com"})
			Expect(err).To(HaveOccurred())
		})

		It("should reject a duplicate email regardless of case", func() {
			err := store.Create(&User{ID: "user-2", Username: "other", Email: "aniket@example.com"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("lookups", func() {
		BeforeEach(func() {
			Expect(store.Create(&User{ID: "user-1", Username: "Aniket", Email: "aniket@example.com"})).To(Succeed())
		})

		It("should find a user by username, case-insensitively", func() {
			saved, err := store.GetByUsername("ANIKET")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.ID).To(Equal("user-1"))
		})

		It("should find a user by email, case-insensitively", func() {
			saved, err := store.GetByEmail("Aniket@Example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.ID).To(Equal("user-1"))
		})

		It("should return ErrUserNotFound for an unknown ID", func() {
			_, err := store.Get("missing")
			Expect(err).To(MatchError(ErrUserNotFound))
		})

		It("should return ErrUserNotFound for an unknown username", func() {
			_, err := store.GetByUsername("nobody")
			Expect(err).To(MatchError(ErrUserNotFound))
		})

		It("should return ErrUserNotFound for an unknown email", func() {
			_, err := store.GetByEmail("nobody@example.com")
			Expect(err).To(MatchError(ErrUserNotFound))
		})
	})

	Describe("Profile", func() {
		It("should omit the password hash", func() {
			u := &User{ID: "user-1", Username: "aniket", Email: "a@example.com", PasswordHash: "secret"}
			profile := u.Profile()
			Expect(profile.ID).To(Equal("user-1"))
			Expect(profile.Username).To(Equal("aniket"))
		})
	})
})
