package breach

import (
	"context"
)

// Store persists breach records keyed by (email, breach name).
type Store interface {
	// EnsureSchema creates the persistent structure; safe to call every run.
	EnsureSchema(ctx context.Context) error

	// Exists reports whether a record with the identity key is already stored.
	Exists(ctx context.Context, email, name string) (bool, error)

	// Insert stores the record iff its identity key is absent and reports
	// whether an insert occurred. A duplicate is a no-op, not an error.
	Insert(ctx context.Context, rec *Record) (bool, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Reset removes all stored records. Operational use only.
	Reset(ctx context.Context) error
}
