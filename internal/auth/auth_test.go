package auth

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/anikets/bachatbuddy/internal/user"
)

func TestAuth(t *testing.T) {
	// Disable logging during tests
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Suite")
}

// mockUserStore is an in-memory implementation of user.Store
type mockUserStore struct {
	users map[string]*user.User
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[string]*user.User)}
}

func (m *mockUserStore) Create(u *user.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *mockUserStore) Get(id string) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserStore) GetByUsername(username string) (*user.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (m *mockUserStore) GetByEmail(email string) (*user.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

// mockIDGenerator is a mock implementation of IDGenerator
type mockIDGenerator struct {
	next int
}

func (m *mockIDGenerator) Generate() string {
	m.next++
	return fmt.Sprintf("user-%d", m.next)
}

var _ = Describe("PasswordAuthenticator", func() {
	var (
		store         *mockUserStore
		authenticator *PasswordAuthenticator
	)

	BeforeEach(func() {
		store = newMockUserStore()
		authenticator = NewPasswordAuthenticator(store, &mockIDGenerator{})
	})

	Describe("Register", func() {
		var (
			username, email, fullName, password string
			registered                          *user.User
			err                                 error
		)

		BeforeEach(func() {
			username = "aniket"
			email = "aniket@example.com"
			fullName = "Aniket Sharma"
			password = "sup3rsecret"
		})

		JustBeforeEach(func() {
			registered, err = authenticator.Register(username, email, fullName, password)
		})

		When("the details are valid", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should persist the account", func() {
				saved, getErr := store.Get(registered.ID)
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Username).To(Equal("aniket"))
				Expect(saved.FullName).To(Equal("Aniket Sharma"))
			})

			It("should not store the plaintext password", func() {
				Expect(registered.PasswordHash).NotTo(BeEmpty())
				Expect(registered.PasswordHash).NotTo(Equal(password))
			})
		})

		When("the full name is omitted", func() {
			BeforeEach(func() {
				fullName = ""
			})

			It("should fall back to the username", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(registered.FullName).To(Equal("aniket"))
			})
		})

		When("a required field is missing", func() {
			BeforeEach(func() {
				email = "   "
			})

			It("should return ErrMissingFields", func() {
				Expect(err).To(MatchError(ErrMissingFields))
			})
		})

		When("the password is too short", func() {
			BeforeEach(func() {
				password = "short"
			})

			It("should return ErrWeakPassword", func() {
				Expect(err).To(MatchError(ErrWeakPassword))
			})
		})

		When("the username is taken", func() {
			BeforeEach(func() {
				_, regErr := authenticator.Register("aniket", "other@example.com", "", "sup3rsecret")
				Expect(regErr).NotTo(HaveOccurred())
			})

			It("should return ErrAccountExists", func() {
				Expect(err).To(MatchError(ErrAccountExists))
			})
		})

		When("the email is taken", func() {
			BeforeEach(func() {
				_, regErr := authenticator.Register("someone", "aniket@example.com", "", "sup3rsecret")
				Expect(regErr).NotTo(HaveOccurred())
			})

			It("should return ErrAccountExists", func() {
				Expect(err).To(MatchError(ErrAccountExists))
			})
		})
	})

	Describe("Authenticate", func() {
		BeforeEach(func() {
			_, err := authenticator.Register("aniket", "aniket@example.com", "", "sup3rsecret")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should accept the right password", func() {
			u, err := authenticator.Authenticate("aniket", "sup3rsecret")
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Username).To(Equal("aniket"))
		})

		It("should reject a wrong password", func() {
			_, err := authenticator.Authenticate("aniket", "wrongpass")
			Expect(err).To(MatchError(ErrInvalidCredentials))
		})

		It("should reject an unknown user", func() {
			_, err := authenticator.Authenticate("nobody", "sup3rsecret")
			Expect(err).To(MatchError(ErrInvalidCredentials))
		})
	})
})

var _ = Describe("TokenManager", func() {
	var (
		manager *TokenManager
		u       *user.User
	)

	BeforeEach(func() {
		manager = NewTokenManager("test-secret", time.Hour)
		u = &user.User{ID: "user-1", Username: "aniket", Email: "aniket@example.com"}
	})

	It("should round-trip the user claims", func() {
		token, err := manager.Generate(u)
		Expect(err).NotTo(HaveOccurred())

		claims, err := manager.Validate(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.UserID).To(Equal("user-1"))
		Expect(claims.Username).To(Equal("aniket"))
		Expect(claims.Email).To(Equal("aniket@example.com"))
	})

	It("should reject a garbage token", func() {
		_, err := manager.Validate("not.a.token")
		Expect(err).To(MatchError(ErrInvalidToken))
	})

	It("should reject a token signed with another secret", func() {
		other := NewTokenManager("different-secret", time.Hour)
		token, err := other.Generate(u)
		Expect(err).NotTo(HaveOccurred())

		_, err = manager.Validate(token)
		Expect(err).To(MatchError(ErrInvalidToken))
	})

	It("should reject an expired token", func() {
		expired := &TokenManager{secretKey: []byte("test-secret"), tokenDuration: -time.Hour}
		token, err := expired.Generate(u)
		Expect(err).NotTo(HaveOccurred())

		_, err = manager.Validate(token)
		Expect(err).To(MatchError(ErrInvalidToken))
	})

	It("should default the duration when none is given", func() {
		m := NewTokenManager("test-secret", 0)
		token, err := m.Generate(u)
		Expect(err).NotTo(HaveOccurred())

		claims, err := m.Validate(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.ExpiresAt.Time).To(BeTemporally("~", time.Now().Add(DefaultTokenDuration), time.Minute))
	})
})
