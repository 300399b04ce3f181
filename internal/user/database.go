package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"
)

const (
	userBucketName     = "users"
	usernameBucketName = "usernames"
	emailBucketName    = "emails"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// Store defines the interface for user account persistence.
type Store interface {
	// Create saves a new user. Username and email must be unused.
	Create(u *User) error

	// Get retrieves a user by ID.
	Get(id string) (*User, error)

	// GetByUsername retrieves a user by username (case-insensitive).
	GetByUsername(username string) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	GetByEmail(email string) (*User, error)
}

// BoltStore implements Store using BoltDB, with index buckets mapping
// lower-cased username and email to user ID.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates the user buckets on db if needed.
func NewBoltStore(db *bbolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{userBucketName, usernameBucketName, emailBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Create saves a new user and its username/email index entries.
func (s *BoltStore) Create(u *User) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket([]byte(userBucketName))
		usernames := tx.Bucket([]byte(usernameBucketName))
		emails := tx.Bucket([]byte(emailBucketName))

		usernameKey := []byte(strings.ToLower(u.Username))
		emailKey := []byte(strings.ToLower(u.Email))
		if usernames.Get(usernameKey) != nil {
			return fmt.Errorf("username already exists: %s", u.Username)
		}
		if emails.Get(emailKey) != nil {
			return fmt.Errorf("email already exists: %s", u.Email)
		}

		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshaling user: %w", err)
		}
		if err := users.Put([]byte(u.ID), data); err != nil {
			return err
		}
		if err := usernames.Put(usernameKey, []byte(u.ID)); err != nil {
			return err
		}
		return emails.Put(emailKey, []byte(u.ID))
	})
}

// Get retrieves a user by ID.
func (s *BoltStore) Get(id string) (*User, error) {
	var u *User
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(userBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		return json.Unmarshal(data, &u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByUsername retrieves a user by username.
func (s *BoltStore) GetByUsername(username string) (*User, error) {
	return s.getByIndex(usernameBucketName, username)
}

// GetByEmail retrieves a user by email.
func (s *BoltStore) GetByEmail(email string) (*User, error) {
	return s.getByIndex(emailBucketName, email)
}

func (s *BoltStore) getByIndex(bucketName, key string) (*User, error) {
	var u *User
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(bucketName)).Get([]byte(strings.ToLower(key)))
		if id == nil {
			return fmt.Errorf("%w: %s", ErrUserNotFound, key)
		}
		data := tx.Bucket([]byte(userBucketName)).Get(id)
		if data == nil {
			return fmt.Errorf("%w: %s", ErrUserNotFound, key)
		}
		return json.Unmarshal(data, &u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}
