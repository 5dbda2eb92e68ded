// Package repository defines storage interfaces implemented by concrete backends.
package repository

import "context"

// Persisted session keys.
const (
	KeyToken             = "token"
	KeyUsername          = "username"
	KeyIsAdmin           = "isAdmin"
	KeyPostLoginRedirect = "postLoginRedirect"
	KeySubscription      = "subscription"
)

// SessionKeys lists every key removed on logout.
var SessionKeys = []string{KeyToken, KeyUsername, KeyIsAdmin, KeyPostLoginRedirect, KeySubscription}

// KV is a string key-value store with last-writer-wins semantics.
// Writes to different keys are independent; there is no transactional grouping.
type KV interface {
	// Get returns the value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key; removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Clear removes every key owned by the store.
	Clear(ctx context.Context) error
}
