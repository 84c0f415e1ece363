package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-watch/models"
	"rental-watch/utils"
)

func sampleListing(addr string, refs ...string) models.KnownListing {
	return models.KnownListing{
		Address:     addr,
		Refs:        refs,
		Price:       2200,
		Beds:        2,
		Baths:       2,
		ListedDate:  "09/01/2024",
		FirstSeenAt: time.Date(2024, 8, 2, 12, 0, 0, 0, time.UTC),
	}
}

// runStoreContract exercises the Store behaviour every backend must share.
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, ok, err := s.Get(ctx, "nowhere")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("insert and get", func(t *testing.T) {
		require.NoError(t, s.Insert(ctx, sampleListing("100 Beefcake Rd", "ygl.is/1")))

		got, ok, err := s.Get(ctx, "100 Beefcake Rd")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []string{"ygl.is/1"}, got.Refs)
		assert.Equal(t, int64(2200), got.Price)
		assert.Equal(t, "09/01/2024", got.ListedDate)
		assert.True(t, got.FirstSeenAt.Equal(time.Date(2024, 8, 2, 12, 0, 0, 0, time.UTC)))
	})

	t.Run("insert duplicate", func(t *testing.T) {
		err := s.Insert(ctx, sampleListing("100 Beefcake Rd", "ygl.is/9"))
		assert.ErrorIs(t, err, ErrExists)
	})

	t.Run("append ref keeps order", func(t *testing.T) {
		require.NoError(t, s.AppendRef(ctx, "100 Beefcake Rd", "ygl.is/2"))

		got, _, err := s.Get(ctx, "100 Beefcake Rd")
		require.NoError(t, err)
		assert.Equal(t, []string{"ygl.is/1", "ygl.is/2"}, got.Refs)
	})

	t.Run("append ref is idempotent", func(t *testing.T) {
		require.NoError(t, s.AppendRef(ctx, "100 Beefcake Rd", "ygl.is/1"))

		got, _, err := s.Get(ctx, "100 Beefcake Rd")
		require.NoError(t, err)
		assert.Equal(t, []string{"ygl.is/1", "ygl.is/2"}, got.Refs)
	})

	t.Run("append ref missing", func(t *testing.T) {
		assert.ErrorIs(t, s.AppendRef(ctx, "nowhere", "x"), ErrNotFound)
	})

	t.Run("curation survives ref update", func(t *testing.T) {
		notes, fav := "Evil, diabolical, lemon-scented", true
		got, err := s.UpdateCuration(ctx, "100 Beefcake Rd", models.Curation{Notes: &notes, Favorite: &fav})
		require.NoError(t, err)
		assert.Equal(t, notes, got.Notes)
		assert.True(t, got.Favorite)
		assert.False(t, got.Dismissed)

		require.NoError(t, s.AppendRef(ctx, "100 Beefcake Rd", "ygl.is/3"))

		got, _, err = s.Get(ctx, "100 Beefcake Rd")
		require.NoError(t, err)
		assert.Equal(t, notes, got.Notes)
		assert.True(t, got.Favorite)
	})

	t.Run("curation missing", func(t *testing.T) {
		_, err := s.UpdateCuration(ctx, "nowhere", models.Curation{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list all", func(t *testing.T) {
		require.NoError(t, s.Insert(ctx, sampleListing("200 Other St", "ygl.is/5")))

		all, err := s.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)

		byAddr := map[string]models.KnownListing{}
		for _, l := range all {
			byAddr[l.Address] = l
		}
		assert.Len(t, byAddr["100 Beefcake Rd"].Refs, 3)
		assert.Equal(t, []string{"ygl.is/5"}, byAddr["200 Other St"].Refs)
	})
}

func TestInMemoryStore(t *testing.T) {
	runStoreContract(t, NewInMemoryStore())
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, sampleListing("a", "r1")))

	got, _, _ := s.Get(ctx, "a")
	got.Refs[0] = "mutated"

	again, _, _ := s.Get(ctx, "a")
	assert.Equal(t, "r1", again.Refs[0])
}

func TestPebbleStore(t *testing.T) {
	s, err := NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	runStoreContract(t, s)
}

func TestPebbleStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewPebbleStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, sampleListing("100 Beefcake Rd", "ygl.is/1")))
	require.NoError(t, s.AppendRef(ctx, "100 Beefcake Rd", "ygl.is/2"))
	require.NoError(t, s.Close())

	s, err = NewPebbleStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []string{"ygl.is/1", "ygl.is/2"}, all[0].Refs)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	s, err := NewPostgresStore(dsn, &utils.RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, Logger: utils.NewNopLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.db.Exec("DELETE FROM listings")
	require.NoError(t, err)

	runStoreContract(t, s)
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte("listing0"), prefixEnd([]byte("listing/")))
	assert.Equal(t, []byte{0x02}, prefixEnd([]byte{0x01, 0xff}))
	assert.Nil(t, prefixEnd([]byte{0xff}))
}
