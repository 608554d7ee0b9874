package actorcontext

import (
	"net/http"

	"github.com/lensbook/lensbook-backend/api/middleware"
	"github.com/lensbook/lensbook-backend/pkg/auth"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
)

// Resolve extracts the authenticated actor seeded by the auth middleware.
func Resolve(r *http.Request) (auth.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return actor, nil
}
