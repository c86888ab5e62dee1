package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// BootstrapOwner carries the configuration-supplied credentials seeded into
// the FallbackCache at startup. Values come from the deployment environment,
// never from source literals.
type BootstrapOwner struct {
	Name     string
	Username string
	Email    string
	Password string
}

// FallbackCache is the in-process, non-durable mirror of the credential
// store. It serves the single degraded-mode retry when the durable store is
// unreachable and always holds the bootstrap owner record.
//
// Writes made here are never reconciled back into the durable store; data
// created during an outage is lost on restart. That limitation is inherited
// from the system this replaces and is deliberate.
type FallbackCache struct {
	mu     sync.RWMutex
	byMail map[string]*User
	logger Logger
}

var _ CredentialStore = (*FallbackCache)(nil)

// NewFallbackCache builds the cache and seeds the bootstrap owner. Seeding
// hashes the configured password, so construction cost includes one bcrypt
// round.
func NewFallbackCache(owner BootstrapOwner, logger Logger) (*FallbackCache, error) {
	if logger == nil {
		logger = defLogger{}
	}

	cache := &FallbackCache{
		byMail: map[string]*User{},
		logger: logger,
	}

	if owner.Email == "" {
		return cache, nil
	}

	hash, err := HashPassword(owner.Password)
	if err != nil {
		return nil, err
	}

	record := &User{
		Name:         owner.Name,
		Username:     owner.Username,
		Email:        owner.Email,
		PasswordHash: hash,
		Role:         RoleOwner,
		Temporary:    true,
	}
	prepareUserDefaults(record)
	cache.byMail[record.Email] = record

	return cache, nil
}

// FindByEmail looks a user up by normalized email.
func (f *FallbackCache) FindByEmail(ctx context.Context, email string) (*User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if record, ok := f.byMail[NormalizeEmail(email)]; ok {
		return record.Clone(), nil
	}

	return nil, ErrUserNotFound
}

// FindByEmailOrUsername matches either handle.
func (f *FallbackCache) FindByEmailOrUsername(ctx context.Context, email, username string) (*User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if record, ok := f.byMail[NormalizeEmail(email)]; ok {
		return record.Clone(), nil
	}

	username = NormalizeUsername(username)
	for _, record := range f.byMail {
		if record.Username == username {
			return record.Clone(), nil
		}
	}

	return nil, ErrUserNotFound
}

// FindByID scans for the record with the given id.
func (f *FallbackCache) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, record := range f.byMail {
		if record.ID == id {
			return record.Clone(), nil
		}
	}

	return nil, ErrUserNotFound
}

// FindByRole returns the first record holding the given role.
func (f *FallbackCache) FindByRole(ctx context.Context, role UserRole) (*User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, record := range f.byMail {
		if record.Role == role {
			return record.Clone(), nil
		}
	}

	return nil, ErrUserNotFound
}

// Create inserts a record. The duplicate check and the insert run under one
// write lock, so of two concurrent registrations for the same email exactly
// one succeeds and the other observes ErrDuplicateIdentity.
func (f *FallbackCache) Create(ctx context.Context, record *User) (*User, error) {
	clone := record.Clone()
	prepareUserDefaults(clone)
	clone.Temporary = true

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.byMail[clone.Email]; ok {
		return nil, ErrDuplicateIdentity
	}
	for _, existing := range f.byMail {
		if existing.Username == clone.Username {
			return nil, ErrDuplicateIdentity
		}
	}

	f.byMail[clone.Email] = clone
	f.logger.Warn("fallback cache accepted write for %s, record is temporary", clone.Email)

	return clone.Clone(), nil
}

// UpdatePassword swaps the stored hash for the record with the given id.
func (f *FallbackCache) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, record := range f.byMail {
		if record.ID == id {
			record.PasswordHash = passwordHash
			return nil
		}
	}

	return ErrUserNotFound
}

// Len reports how many records the cache holds.
func (f *FallbackCache) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.byMail)
}
