package authkit

import (
	"context"

	"github.com/tyemirov/storekeep/internal/accounts"
)

// UserLookup resolves the identity carried by a token to a user record.
type UserLookup interface {
	FindByIdentity(ctx context.Context, userID string, role accounts.Role) (*accounts.User, error)
}

// UserDirectory registers, authenticates and resolves users.
type UserDirectory interface {
	UserLookup
	Create(ctx context.Context, input accounts.NewUser) (*accounts.User, error)
	Authenticate(ctx context.Context, email string, password string) (*accounts.User, error)
}
