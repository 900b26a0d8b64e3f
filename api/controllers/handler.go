package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// endpoint returns the body to render on success. It may set headers on w
// but must not write to it.
type endpoint func(w http.ResponseWriter, r *http.Request) (any, error)

// serve renders ep's result with status, or its error through the error
// policy.
func serve(logg *logger.Logger, status int, ep endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := ep(w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, body)
	}
}

func unavailable(name string) endpoint {
	return func(http.ResponseWriter, *http.Request) (any, error) {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
	}
}
