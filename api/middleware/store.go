package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/memorial-backend/api/responses"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
	"github.com/angelmondragon/memorial-backend/pkg/logger"
)

type storeGate interface {
	Ensure(ctx context.Context) error
}

// StoreReady rejects data requests with STORE_UNAVAILABLE until the database
// answers and the schema step has completed.
func StoreReady(gate storeGate, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate == nil {
				next.ServeHTTP(w, r)
				return
			}
			if err := gate.Ensure(r.Context()); err != nil {
				if pkgerrors.As(err) == nil {
					err = pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "database unavailable")
				}
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
