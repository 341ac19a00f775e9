package core

import (
	"communityconnect/internal/infra/persistence/memory"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier turns a password into its stored form and checks a
// candidate password against a stored value.
type CredentialVerifier interface {
	Hash(password string) (string, error)
	Verify(stored, password string) bool
}

// PlaintextCredentials stores passwords as given. It keeps seed data and
// existing stored records usable as-is and must not be used with a
// network-reachable deployment.
type PlaintextCredentials struct{}

// Hash returns password unchanged.
func (PlaintextCredentials) Hash(password string) (string, error) { return password, nil }

// Verify compares in constant time.
func (PlaintextCredentials) Verify(stored, password string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

// BcryptCredentials stores bcrypt hashes.
type BcryptCredentials struct {
	Cost int
}

func (b BcryptCredentials) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

// Hash returns the bcrypt hash of password.
func (b BcryptCredentials) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), b.cost())
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(out), nil
}

// Verify reports whether password matches the stored hash.
func (BcryptCredentials) Verify(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// HashSnapshot hashes every user password in snapshot that is not already a
// bcrypt hash, so plaintext seed files stay usable. The user map is updated
// in place.
func (b BcryptCredentials) HashSnapshot(snapshot memory.Snapshot) (memory.Snapshot, error) {
	for id, u := range snapshot.Users {
		if u.Password == "" {
			continue
		}
		if _, err := bcrypt.Cost([]byte(u.Password)); err == nil {
			continue
		}
		hashed, err := b.Hash(u.Password)
		if err != nil {
			return memory.Snapshot{}, err
		}
		u.Password = hashed
		snapshot.Users[id] = u
	}
	return snapshot, nil
}
