package service

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/tagdesk/ports"
)

// SessionRegistry mirrors the current access token of every user into the
// cache store. At most one token per (id, userName) is kept; a newer token
// overwrites the older one.
//
// Removing an entry does not invalidate the token itself: verification only
// checks the signature and expiry.
type SessionRegistry struct {
	store     ports.Store
	accessTTL time.Duration
}

// NewSessionRegistry creates a registry whose entries live for accessTTL.
func NewSessionRegistry(store ports.Store, accessTTL time.Duration) *SessionRegistry {
	return &SessionRegistry{store: store, accessTTL: accessTTL}
}

// CacheKey returns the stable cache key for a user.
func CacheKey(userID int64, userName string) string {
	return fmt.Sprintf("user_token:%d-%s", userID, userName)
}

// StoreAccessToken records token as the current access token of the user.
func (r *SessionRegistry) StoreAccessToken(ctx context.Context, userID int64, userName, token string) error {
	return r.store.SetCache(ctx, CacheKey(userID, userName), token, r.accessTTL)
}

// FetchAccessToken returns the current access token and whether one exists.
func (r *SessionRegistry) FetchAccessToken(ctx context.Context, userID int64, userName string) (string, bool, error) {
	return r.store.GetCache(ctx, CacheKey(userID, userName))
}

// TokenTTL returns the remaining seconds of the entry at key, -2 when it is
// absent and -1 when it has no expiry.
func (r *SessionRegistry) TokenTTL(ctx context.Context, key string) (int64, error) {
	return r.store.GetTTL(ctx, key)
}

// Revoke deletes the user's entry and returns how many entries were removed.
func (r *SessionRegistry) Revoke(ctx context.Context, userID int64, userName string) (int64, error) {
	return r.store.ClearCache(ctx, CacheKey(userID, userName))
}
