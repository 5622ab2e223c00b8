package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanHalford/HIBP-Breach-Notifier/internal/domain/breach"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "hibp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func adobeRecord(email string) *breach.Record {
	return &breach.Record{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "Adobe",
		Title:        "Adobe",
		Domain:       "adobe.com",
		BreachDate:   "2013-10-04",
		AddedDate:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		ModifiedDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		PwnCount:     152445165,
		Description:  "In October 2013, 153 million Adobe accounts were breached.",
		LogoPath:     "Adobe.png",
		DataClasses:  []string{"Email addresses", "Password hints", "Passwords"},
		IsVerified:   true,
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	store := newTestStore(t)

	// Second run must be a no-op, not an error.
	require.NoError(t, store.EnsureSchema(context.Background()))
}

func TestInsertAndExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exists, err := store.Exists(ctx, "alice@example.com", "Adobe")
	require.NoError(t, err)
	assert.False(t, exists)

	inserted, err := store.Insert(ctx, adobeRecord("alice@example.com"))
	require.NoError(t, err)
	assert.True(t, inserted)

	exists, err = store.Exists(ctx, "alice@example.com", "Adobe")
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInsertDuplicateIsNoOp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, adobeRecord("alice@example.com"))
	require.NoError(t, err)
	require.True(t, inserted)

	// Same identity key with a fresh surrogate ID: must not insert, must not error.
	inserted, err = store.Insert(ctx, adobeRecord("alice@example.com"))
	require.NoError(t, err)
	assert.False(t, inserted)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIdentityKeyIsPerEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, adobeRecord("alice@example.com"))
	require.NoError(t, err)
	require.True(t, inserted)

	// The same breach against a different address is a distinct record.
	inserted, err = store.Insert(ctx, adobeRecord("bob@example.com"))
	require.NoError(t, err)
	assert.True(t, inserted)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := adobeRecord("alice@example.com")
	_, err := store.Insert(ctx, want)
	require.NoError(t, err)

	got, err := store.Get(ctx, "alice@example.com", "Adobe")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.DataClasses, got.DataClasses)
	assert.True(t, want.AddedDate.Equal(got.AddedDate))
	assert.Equal(t, want.PwnCount, got.PwnCount)
	assert.True(t, got.IsVerified)
}

func TestGetUnknown(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "nobody@example.com", "Adobe")
	assert.ErrorIs(t, err, breach.ErrNoBreaches)
}

func TestReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, adobeRecord("alice@example.com"))
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
