// Package identity resolves the requesting patient from a bearer token.
// The scheduling core treats it as an opaque collaborator; swapping the
// token scheme only touches this package.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/farmaciavalero/farmaline/libs/auth"
	"github.com/farmaciavalero/farmaline/libs/httpx"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/booking"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/storage"
)

type ctxKey int

const ctxKeyClaims ctxKey = iota

// Middleware parses the bearer token if present and stashes the verified
// claims in the request context. It never rejects: anonymous requests are
// fine for the public availability endpoints, and the booking transaction
// enforces authentication itself.
func Middleware(secret string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := auth.BearerToken(r.Header.Get("Authorization")); ok {
				if claims, err := auth.ParseAndVerifyHS256(token, secret); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ctxKeyClaims, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func claimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(*auth.Claims)
	return c, ok
}

// Provider resolves verified claims into the profile snapshot copied onto
// new appointments.
type Provider struct {
	profiles *storage.ProfileRepository
}

func NewProvider(profiles *storage.ProfileRepository) *Provider {
	return &Provider{profiles: profiles}
}

var _ booking.IdentityProvider = (*Provider)(nil)

func (p *Provider) CurrentProfile(ctx context.Context) (booking.Profile, error) {
	claims, ok := claimsFromContext(ctx)
	if !ok || claims.Sub == "" {
		return booking.Profile{}, booking.ErrUnauthenticated
	}

	row, err := p.profiles.GetByID(ctx, claims.Sub)
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			return booking.Profile{}, booking.ErrUnauthenticated
		}
		return booking.Profile{}, fmt.Errorf("%w: %v", booking.ErrStorageUnavailable, err)
	}
	return booking.Profile{
		ID:       row.ID,
		FullName: row.FullName,
		Phone:    row.Phone,
	}, nil
}
