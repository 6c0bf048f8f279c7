package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"StoreCatalog/pkg/kit"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Identity is the authenticated caller attached by the gate.
type Identity struct {
	Username string
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// RequireToken rejects the request with 401 unless it carries a valid bearer token.
func RequireToken(tokens *TokenMaker, log *zap.Logger, m *Metrics) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := kit.BearerToken(r)
			if !ok {
				m.observeRejection("missing")
				unauthorized(w, r, "missing token")
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				log.Debug("token rejected", zap.Error(err))
				m.observeRejection("invalid")
				unauthorized(w, r, "invalid token")
				return
			}

			ctx := WithIdentity(r.Context(), Identity{Username: claims.Username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="catalog"`)
	kit.WriteError(w, r, http.StatusUnauthorized, msg, nil)
}
