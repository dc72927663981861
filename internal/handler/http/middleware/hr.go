package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/cmlabs-hris/attendance-kiosk/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type hrKey struct{}

// IsHRFromContext reports whether the request carried a valid HR token.
func IsHRFromContext(ctx context.Context) bool {
	hr, _ := ctx.Value(hrKey{}).(bool)
	return hr
}

// HROverride marks requests carrying a verified HR or admin access token. It must run after
// jwtauth.Verifier. Requests without a token continue as regular staff; a token that is
// present but invalid or expired is rejected.
func HROverride(jwtService jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())

			if errors.Is(err, jwtauth.ErrNoTokenFound) || (err == nil && token == nil) {
				next.ServeHTTP(w, r)
				return
			}

			if err != nil {
				response.Unauthorized(w, "HR session is invalid or has expired, please sign in again")
				return
			}

			ctx := context.WithValue(r.Context(), hrKey{}, jwtService.IsHR(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hfn)
	}
}
