package middleware

import (
	"context"

	"github.com/google/uuid"
)

// identity is what Auth learned about the caller.
type identity struct {
	userID      string
	role        string
	accessToken string
}

type (
	identityKey struct{}
	cartKey     struct{}
)

func identityFrom(ctx context.Context) identity {
	if ctx == nil {
		return identity{}
	}
	id, _ := ctx.Value(identityKey{}).(identity)
	return id
}

func UserIDFromContext(ctx context.Context) string { return identityFrom(ctx).userID }

func RoleFromContext(ctx context.Context) string { return identityFrom(ctx).role }

// AccessTokenFromContext returns the raw bearer token of an authenticated request.
func AccessTokenFromContext(ctx context.Context) string { return identityFrom(ctx).accessToken }

// WithIdentity seeds the caller identity the way Auth does. Tests use it too.
func WithIdentity(ctx context.Context, userID, role, accessToken string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, identity{userID: userID, role: role, accessToken: accessToken})
}

// CartIDFromContext returns the cart resolved by CartID, or uuid.Nil.
func CartIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	id, _ := ctx.Value(cartKey{}).(uuid.UUID)
	return id
}

func WithCartID(ctx context.Context, cartID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, cartKey{}, cartID)
}
