package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CartIDHeader carries the storefront cart id; it also keys the checkout session.
const CartIDHeader = "X-Cart-Id"

// CartID requires a uuid in the X-Cart-Id header.
func CartID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(CartIDHeader))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart id header required").
					WithDetails(map[string]any{"header": CartIDHeader}))
				return
			}
			cartID, err := uuid.Parse(raw)
			if err != nil || cartID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart id must be a uuid").
					WithDetails(map[string]any{"header": CartIDHeader}))
				return
			}

			ctx := WithCartID(r.Context(), cartID)
			if logg != nil {
				ctx = logg.WithCartID(ctx, cartID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
