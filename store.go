package auth

import (
	"context"

	"github.com/google/uuid"
)

// CredentialStore is the contract both backing stores satisfy: the durable
// Bun repository and the in-process FallbackCache.
//
// Error contract:
//   - a missing record is ErrUserNotFound, never a nil/nil return
//   - an unreachable backend is ErrStoreUnavailable (IsUnavailable == true),
//     which callers must treat distinctly from not-found
//   - a uniqueness violation on Create is ErrDuplicateIdentity
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByRole(ctx context.Context, role UserRole) (*User, error)
	Create(ctx context.Context, record *User) (*User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}
