package storage

import "context"

// AllowListStore persists trusted contract account ids as a keyed,
// append-only set. Implementations do not enforce uniqueness; callers
// check Exists before Insert.
type AllowListStore interface {
	List(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, accountID string) (bool, error)
	Insert(ctx context.Context, accountID string) error
	Close() error
}
