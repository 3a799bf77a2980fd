package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sheetsync/sheetsync/backend/go-services/internal/document"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepo_CreateGetUpdate(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	d := document.New("d1", "u1", "Notes")
	require.NoError(t, r.Create(ctx, d))

	got, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "u1", got.OwnerID)
	require.Equal(t, "Notes", got.Title)
	require.False(t, got.CreatedAt.IsZero())

	require.NoError(t, r.UpdateContent(ctx, "d1", json.RawMessage(`{"ops":[]}`)))
	got2, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	require.JSONEq(t, `{"ops":[]}`, string(got2.Content))
}

func TestMemoryRepo_GetMissing(t *testing.T) {
	r := NewMemoryRepo()
	_, err := r.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)

	err = r.UpdateContent(context.Background(), "nope", nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepo_UpdatePermissions(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, document.New("d1", "u1", "")))

	d, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	d.GrantEditor("u2")
	d.PrivacyMode = document.PrivacyView
	require.NoError(t, r.UpdatePermissions(ctx, d))

	got, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, []string{"u2"}, got.Editors)
	require.Equal(t, document.PrivacyView, got.PrivacyMode)
}

func TestMemoryRepo_ListByOwner(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, document.New("d1", "u1", "")))
	require.NoError(t, r.Create(ctx, document.New("d2", "u1", "")))
	require.NoError(t, r.Create(ctx, document.New("d3", "u2", "")))

	docs, err := r.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
}

func TestMemoryRepo_GetReturnsCopy(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, document.New("d1", "u1", "")))

	d, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	d.GrantEditor("u2") // not persisted

	got, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	require.Empty(t, got.Editors)
}
