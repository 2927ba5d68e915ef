package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreAppendListDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	empty, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	id1, err := s.Append(ctx, "red shoes", "https://img.example.com/1.jpg")
	require.NoError(t, err)
	id2, err := s.Append(ctx, "blue lamp", "https://img.example.com/2.jpg")
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	products, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Product{
		{ID: id1, Name: "red shoes", ImageURL: "https://img.example.com/1.jpg"},
		{ID: id2, Name: "blue lamp", ImageURL: "https://img.example.com/2.jpg"},
	}, products)

	require.NoError(t, s.Delete(ctx, id1))

	products, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, id2, products[0].ID)

	_, err = s.Get(ctx, id1)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.Get(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, "blue lamp", got.Name)
}

func TestStoreDeleteUnknown(t *testing.T) {
	s := openTestStore(t)
	err := s.Delete(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreRejectsNonFetchableURL(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, u := range []string{"", "data:image/png;base64,AAAA", "/local.png"} {
		_, err := s.Append(ctx, "x", u)
		assert.ErrorIs(t, err, ErrInvalidImageURL, u)
	}

	products, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestStoreEmptyNameAllowed(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.Append(ctx, "", "https://img.example.com/x.png")
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "", got.Name)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "products.db")

	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	id, err := s.Append(ctx, "chair", "http://img.example.com/chair.jpg")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	products, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, Product{ID: id, Name: "chair", ImageURL: "http://img.example.com/chair.jpg"}, products[0])

	// Ids are never reused after a delete.
	require.NoError(t, s.Delete(ctx, id))
	next, err := s.Append(ctx, "table", "http://img.example.com/table.jpg")
	require.NoError(t, err)
	assert.Greater(t, next, id)
}
