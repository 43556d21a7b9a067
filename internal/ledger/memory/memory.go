// Package memory is an in-process store used for development and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tracker/internal/auth"
	"tracker/internal/core"
	"tracker/internal/ledger"
)

type Store struct {
	mu    sync.Mutex
	next  int
	items []core.Transaction
	users map[string]auth.Credentials
}

func New() *Store {
	return &Store{users: make(map[string]auth.Credentials)}
}

// SeedUser registers a login account. The password is hashed here so
// callers hold plaintext only transiently.
func (s *Store) SeedUser(userID, email, displayName, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToLower(email)] = auth.Credentials{
		UserID:       userID,
		Email:        strings.ToLower(email),
		DisplayName:  displayName,
		PasswordHash: hash,
	}
	return nil
}

// Append stores the transaction and returns a synthetic identifier.
func (s *Store) Append(_ context.Context, tx core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	tx.ID = fmt.Sprintf("mem:%d", s.next)
	tx.CreatedAt = time.Now().UTC()
	s.items = append(s.items, tx)
	return tx.ID, nil
}

// ListForUser returns a copy of the user's records in insertion order.
// Callers own ordering.
func (s *Store) ListForUser(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.items {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

// Get returns one record by identifier.
func (s *Store) Get(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.items {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %s not found", id)
}

func (s *Store) Profile(_ context.Context, userID string) (ledger.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, creds := range s.users {
		if creds.UserID == userID {
			return ledger.Profile{
				UserID:      creds.UserID,
				Email:       creds.Email,
				DisplayName: creds.DisplayName,
			}, nil
		}
	}
	return ledger.Profile{}, fmt.Errorf("user %s not found", userID)
}

func (s *Store) UserByEmail(_ context.Context, email string) (auth.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, ok := s.users[strings.ToLower(email)]
	if !ok {
		return auth.Credentials{}, fmt.Errorf("no user for %s", email)
	}
	return creds, nil
}

func (s *Store) Close() error { return nil }
