package ports

import "context"

// TokenStorage is the persisted slot holding one session's bearer token.
// Load returns "" when the slot is empty. Save must be durable before it
// returns: the very next outbound request reads the slot.
type TokenStorage interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// TokenStorageProvider hands out the slot owned by a single tab.
type TokenStorageProvider interface {
	Slot(tabID string) TokenStorage
}
