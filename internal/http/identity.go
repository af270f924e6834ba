package http

import (
	"context"
	"net/http"
	"strings"

	"ledger/internal/cache"
	"ledger/internal/core"
	applog "ledger/internal/log"
)

type ownerKey struct{}

// UserResolver returns an active user by id, or NotFound.
type UserResolver interface {
	ActiveUser(ctx context.Context, id string) (core.User, error)
}

// Identity turns the trusted identity header into an owner id. The upstream
// proxy authenticates; this layer only checks the account is still active.
type Identity struct {
	header string
	users  UserResolver
	cache  cache.Cache[core.User]
}

// NewIdentity builds the identity layer. A nil cache disables caching.
func NewIdentity(header string, users UserResolver, c cache.Cache[core.User]) *Identity {
	return &Identity{header: header, users: users, cache: c}
}

// Middleware rejects requests without a known active user with 401 and
// stores the owner id in the request context otherwise.
func (id *Identity) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := strings.TrimSpace(r.Header.Get(id.header))
		if ownerID == "" {
			UnauthorizedError("missing identity").Write(w)
			return
		}

		if _, err := id.resolve(ctx, ownerID); err != nil {
			if core.IsNotFound(err) {
				applog.FromContext(ctx).WarnContext(ctx, "Unknown or inactive identity",
					applog.NewFields().WithOwner(ownerID).WithErrorType(applog.ErrorTypeAuth).ToSlice()...)
				UnauthorizedError("unknown or inactive user").Write(w)
				return
			}
			writeError(ctx, w, err)
			return
		}

		applog.SetOwner(ctx, ownerID)
		next.ServeHTTP(w, r.WithContext(withOwner(ctx, ownerID)))
	})
}

func (id *Identity) resolve(ctx context.Context, ownerID string) (core.User, error) {
	if id.cache != nil {
		if u, ok := id.cache.Get(ownerID); ok {
			return u, nil
		}
	}
	u, err := id.users.ActiveUser(ctx, ownerID)
	if err != nil {
		return core.User{}, err
	}
	if id.cache != nil {
		id.cache.Set(ownerID, u)
	}
	return u, nil
}

// Refresh replaces the cached account after the owner edits it.
func (id *Identity) Refresh(ownerID string, u core.User) {
	if id.cache != nil {
		id.cache.Set(ownerID, u)
	}
}

func withOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerFromContext returns the authenticated owner id, if any.
func OwnerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ownerKey{}).(string)
	return id, ok && id != ""
}

func mustOwner(r *http.Request) string {
	id, _ := OwnerFromContext(r.Context())
	return id
}
