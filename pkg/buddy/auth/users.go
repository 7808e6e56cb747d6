// Package auth implements the in-memory account registry and the cookie
// session manager used by the web UI.
package auth

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmailTaken is returned by Register for an existing email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned by Authenticate for an unknown email
	// or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrMissingFields is returned when email or password is empty.
	ErrMissingFields = errors.New("email and password are required")
)

// Users is a process-local account registry. Accounts are lost on restart.
type Users struct {
	mu     sync.RWMutex
	hashes map[string][]byte
	cost   int
}

// NewUsers creates an empty registry. cost <= 0 selects bcrypt.DefaultCost.
func NewUsers(cost int) *Users {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Users{
		hashes: make(map[string][]byte),
		cost:   cost,
	}
}

// Register stores a new account with a bcrypt hash of password.
func (u *Users) Register(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrMissingFields
	}

	u.mu.RLock()
	_, exists := u.hashes[email]
	u.mu.RUnlock()
	if exists {
		return ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if _, exists := u.hashes[email]; exists {
		return ErrEmailTaken
	}
	u.hashes[email] = hash
	return nil
}

// Authenticate checks email and password.
func (u *Users) Authenticate(email, password string) error {
	email = strings.TrimSpace(email)

	u.mu.RLock()
	hash, ok := u.hashes[email]
	u.mu.RUnlock()
	if !ok {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Count returns the number of registered accounts.
func (u *Users) Count() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.hashes)
}
