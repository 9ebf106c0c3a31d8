package localstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/itinerary-planner/internal/itinerary"
	"github.com/pkordes/itinerary-planner/internal/localstore"
	"github.com/pkordes/itinerary-planner/testutil"
)

// backends runs fn once per Storage implementation.
func backends(t *testing.T, fn func(t *testing.T, st localstore.Storage)) {
	t.Run("file", func(t *testing.T) {
		fn(t, localstore.NewFileStorage(filepath.Join(t.TempDir(), "data")))
	})
	t.Run("redis", func(t *testing.T) {
		rdb, _ := testutil.NewRedis(t)
		fn(t, localstore.NewRedisStorage(rdb))
	})
}

func sampleState() itinerary.State {
	st := itinerary.DefaultState(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	st.Categories = append(st.Categories, "溫泉")
	return st
}

func TestStorage_GetSetDelete(t *testing.T) {
	backends(t, func(t *testing.T, st localstore.Storage) {
		ctx := context.Background()

		_, err := st.Get(ctx, "k")
		require.ErrorIs(t, err, localstore.ErrNotExist)

		require.NoError(t, st.Set(ctx, "k", []byte("one")))
		require.NoError(t, st.Set(ctx, "k", []byte("two")))
		got, err := st.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))

		require.NoError(t, st.Delete(ctx, "k"))
		require.NoError(t, st.Delete(ctx, "k"), "deleting a missing key is fine")
		_, err = st.Get(ctx, "k")
		assert.ErrorIs(t, err, localstore.ErrNotExist)
	})
}

func TestSnapshots_RoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, st localstore.Storage) {
		ctx := context.Background()
		snaps := localstore.New(st, nil)
		want := sampleState()

		require.NoError(t, snaps.Save(ctx, want))
		got, ok, err := snaps.Load(ctx)

		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, got)
	})
}

func TestSnapshots_Missing(t *testing.T) {
	backends(t, func(t *testing.T, st localstore.Storage) {
		_, ok, err := localstore.New(st, nil).Load(context.Background())

		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSnapshots_CorruptDocumentIsDiscarded(t *testing.T) {
	backends(t, func(t *testing.T, st localstore.Storage) {
		ctx := context.Background()
		require.NoError(t, st.Set(ctx, localstore.Key, []byte(`{"state":{"trips":"nope"`)))

		_, ok, err := localstore.New(st, nil).Load(ctx)

		require.NoError(t, err)
		assert.False(t, ok)
		_, err = st.Get(ctx, localstore.Key)
		assert.ErrorIs(t, err, localstore.ErrNotExist, "corrupt document must be removed")
	})
}

func TestSnapshots_DocumentLayout(t *testing.T) {
	dir := t.TempDir()
	snaps := localstore.New(localstore.NewFileStorage(dir), nil)

	require.NoError(t, snaps.Save(context.Background(), sampleState()))

	b, err := os.ReadFile(filepath.Join(dir, localstore.Key+".json"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"version":0`)
	assert.Contains(t, string(b), `"activeTripId":"trip-default"`)
	assert.Contains(t, string(b), `"savedCategories":[`)
}

func TestSnapshots_RestoresIntoStore(t *testing.T) {
	ctx := context.Background()
	snaps := localstore.New(localstore.NewFileStorage(t.TempDir()), nil)
	src := itinerary.NewStore(sampleState())
	id := src.CreateTrip()
	require.NoError(t, snaps.Save(ctx, src.Snapshot()))

	st, ok, err := snaps.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	dst := itinerary.NewStore(st)

	trip, _ := dst.ActiveTrip()
	assert.Equal(t, id, trip.ID)
	assert.Equal(t, src.Trips(), dst.Trips())
	assert.Contains(t, dst.Categories(), "溫泉")
}

// failingStorage reports an error from every call.
type failingStorage struct{ err error }

func (f failingStorage) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingStorage) Set(context.Context, string, []byte) error   { return f.err }
func (f failingStorage) Delete(context.Context, string) error        { return f.err }

func TestSnapshots_StorageErrors(t *testing.T) {
	boom := errors.New("disk full")
	snaps := localstore.New(failingStorage{err: boom}, nil)

	_, _, err := snaps.Load(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, snaps.Save(context.Background(), sampleState()), boom)
	assert.ErrorIs(t, snaps.Clear(context.Background()), boom)
}
