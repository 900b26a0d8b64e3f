package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// TokenHeader repeats the access token for browser clients that read
// headers rather than the body.
const TokenHeader = "X-SF-Token"

func bearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "bearer") {
		raw = strings.TrimSpace(rest)
	}
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return raw, nil
}

func issued(w http.ResponseWriter, tokens *auth.TokenResponse) *auth.TokenResponse {
	w.Header().Set(TokenHeader, tokens.AccessToken)
	return tokens
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return serve(logg, http.StatusOK, unavailable("auth"))
	}
	return serve(logg, http.StatusOK, func(w http.ResponseWriter, r *http.Request) (any, error) {
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		tokens, err := svc.Login(r.Context(), body)
		if err != nil {
			return nil, err
		}
		return issued(w, tokens), nil
	})
}

// AuthRegister opens an account and signs it in. reg decides the role, so
// the dev-only admin route uses the same handler.
func AuthRegister(reg auth.RegisterService, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if reg == nil || svc == nil {
		return serve(logg, http.StatusCreated, unavailable("auth"))
	}
	return serve(logg, http.StatusCreated, func(w http.ResponseWriter, r *http.Request) (any, error) {
		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		if _, err := reg.Register(r.Context(), body); err != nil {
			return nil, err
		}
		tokens, err := svc.Login(r.Context(), auth.LoginRequest{Email: body.Email, Password: body.Password})
		if err != nil {
			return nil, err
		}
		return issued(w, tokens), nil
	})
}

// AuthRefresh swaps an expired access token and its refresh token for a new
// pair.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return serve(logg, http.StatusOK, unavailable("auth"))
	}
	return serve(logg, http.StatusOK, func(w http.ResponseWriter, r *http.Request) (any, error) {
		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		tokens, err := svc.Refresh(r.Context(), body)
		if err != nil {
			return nil, err
		}
		return issued(w, tokens), nil
	})
}

// AuthLogout revokes the session behind the bearer token. An expired token
// still signs out.
func AuthLogout(svc auth.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return serve(logg, http.StatusOK, unavailable("auth"))
	}
	return serve(logg, http.StatusOK, func(_ http.ResponseWriter, r *http.Request) (any, error) {
		token, err := bearerToken(r)
		if err != nil {
			return nil, err
		}
		claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, token)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
		}
		if err := svc.Logout(r.Context(), claims.ID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "logged_out"}, nil
	})
}
