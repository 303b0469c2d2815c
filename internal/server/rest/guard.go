package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/logging"
	"github.com/dmitrijs2005/gophtasks/internal/server/auth"
	"github.com/dmitrijs2005/gophtasks/internal/server/rbac"
)

type ctxKey string

const principalKey ctxKey = "principal"

// Guard inspects a request and either returns it, possibly with an enriched
// context, or an error that stops the chain.
type Guard func(r *http.Request) (*http.Request, error)

// Chain runs guards in order. The first failing guard answers the request.
func Chain(l logging.Logger, guards ...Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, g := range guards {
				var err error
				if r, err = g(r); err != nil {
					l.Debug(r.Context(), "request rejected by guard", "path", r.URL.Path, "error", err.Error())
					writeError(w, err)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate accepts "Authorization: Bearer <access token>" and stores the
// token identity as the request principal.
func Authenticate(secretKey []byte) Guard {
	return func(r *http.Request) (*http.Request, error) {
		h := r.Header.Get(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || token == "" {
			return r, common.Unauthorized(common.ErrInvalidToken)
		}

		id, err := auth.ParseAccessToken(token, secretKey)
		if err != nil {
			return r, common.Unauthorized(err)
		}

		return r.WithContext(WithPrincipal(r.Context(), id)), nil
	}
}

// RequirePermissions passes when the principal's roles grant every permission
// in required. A denial is unauthorized, like a bad token.
func RequirePermissions(required ...rbac.Permission) Guard {
	return func(r *http.Request) (*http.Request, error) {
		if len(required) == 0 {
			return r, nil
		}
		id, ok := PrincipalFrom(r.Context())
		if !ok {
			return r, common.Unauthorized(common.ErrInvalidToken)
		}
		if !rbac.Allowed(id.Roles, required...) {
			return r, common.Unauthorized(common.ErrPermissionDenied)
		}
		return r, nil
	}
}

func WithPrincipal(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, principalKey, id)
}

func PrincipalFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(principalKey).(auth.Identity)
	return id, ok
}
