package auth

import (
	"context"
	"errors"
	"net/http"

	"ms-event-ledger/internal/address"
	"ms-event-ledger/internal/logger"
	"ms-event-ledger/internal/utils"
)

type contextKey string

const identityKey contextKey = "identity"

// Middleware rejects requests without a valid self-signed token and stores
// the verified identity in the request context.
func Middleware(v *Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteError(w, http.StatusUnauthorized, "missing_token", err.Error())
				return
			}

			identity, err := v.Verify(rawToken)
			if err != nil {
				log.LogSecurity("TOKEN_REJECTED", r.Method+" "+r.URL.Path+": "+err.Error())
				code := "invalid_token"
				if errors.Is(err, ErrTokenTooOld) {
					code = "token_expired"
				}
				utils.WriteError(w, http.StatusUnauthorized, code, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity returns a context carrying a verified identity.
func WithIdentity(ctx context.Context, identity address.Pubkey) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Identity returns the verified caller, if any.
func Identity(ctx context.Context) (address.Pubkey, bool) {
	identity, ok := ctx.Value(identityKey).(address.Pubkey)
	return identity, ok
}
