package server

import (
	"fmt"
	"sync"

	"github.com/rcoop/rac/internal/crypto"
	"github.com/rcoop/rac/internal/protocol"
)

// Accounts is an in-memory user store. Passwords are kept as argon2id
// digests.
type Accounts struct {
	mu    sync.RWMutex
	users map[string]*crypto.PasswordHash
}

// NewAccounts creates an empty store.
func NewAccounts() *Accounts {
	return &Accounts{users: make(map[string]*crypto.PasswordHash)}
}

// Register creates name with password. It returns false when the name is
// already taken.
func (a *Accounts) Register(name, password string) (bool, error) {
	h, err := crypto.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("register %q: %w", name, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.users[name]; ok {
		return false, nil
	}
	a.users[name] = h
	return true, nil
}

// Authenticate checks name and password and returns the status byte sent
// back for an authenticated send.
func (a *Accounts) Authenticate(name, password string) protocol.AuthStatus {
	a.mu.RLock()
	h, ok := a.users[name]
	a.mu.RUnlock()

	switch {
	case !ok:
		return protocol.StatusUnknownUser
	case !h.Verify(password):
		return protocol.StatusWrongPassword
	default:
		return protocol.StatusOK
	}
}

// Len returns the number of accounts.
func (a *Accounts) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.users)
}
