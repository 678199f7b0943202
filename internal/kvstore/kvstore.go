// Package kvstore provides the durable per-visitor key-value snapshot store
// backing anonymous carts and session tokens. It plays the role browser
// localStorage plays for a web client: values survive restarts but are scoped
// to a single visitor.
package kvstore

import "context"

// Store is a durable key-value store. Get returns an error wrapping
// apperrors.ErrNotFound when the key does not exist.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// CartKey returns the key under which a visitor's local cart snapshot is stored.
func CartKey(visitorID string) string {
	return "cart:" + visitorID
}

// TokenKey returns the key under which a visitor's session token is stored.
func TokenKey(visitorID string) string {
	return "token:" + visitorID
}
