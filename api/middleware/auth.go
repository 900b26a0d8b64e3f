package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type authenticator struct {
	cfg      config.JWTConfig
	sessions session.AccessSessionChecker
	logg     *logger.Logger
	// guests may pass without a token
	guests bool
}

// Auth requires a valid bearer token backed by a live session.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticator{cfg: cfg, sessions: sessions, logg: logg}.middleware
}

// OptionalAuth lets guests through but still rejects a token that is present
// and bad. Cart and checkout use it so guests can reach the payment step.
func OptionalAuth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticator{cfg: cfg, sessions: sessions, logg: logg, guests: true}.middleware
}

func (a authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" && a.guests {
			next.ServeHTTP(w, r)
			return
		}
		ctx, err := a.identify(r.Context(), header)
		if err != nil {
			responses.WriteError(r.Context(), a.logg, w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a authenticator) identify(ctx context.Context, header string) (context.Context, error) {
	scheme, token, _ := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !strings.EqualFold(scheme, "bearer") || token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgAuth.ParseAccessToken(a.cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if a.sessions != nil {
		live, err := a.sessions.HasSession(ctx, claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !live {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked")
		}
	}

	userID := claims.UserID.String()
	ctx = WithIdentity(ctx, userID, string(claims.Role), token)
	if a.logg != nil {
		ctx = a.logg.WithActorRole(a.logg.WithUserID(ctx, userID), string(claims.Role))
	}
	return ctx, nil
}
