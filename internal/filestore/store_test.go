package filestore

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tom-villanueva/marea-tigre/internal/domain"
)

type testDoc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return store
}

func TestReadDefaults(t *testing.T) {
	store := newTestStore(t)

	t.Run("missing file", func(t *testing.T) {
		doc := Read(store, "ausente", testDoc{Name: "def"})
		assert.Equal(t, testDoc{Name: "def"}, doc)
	})

	t.Run("corrupt file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(store.path("roto"), []byte("{no es json"), 0o644))

		doc := Read(store, "roto", testDoc{Name: "def"})
		assert.Equal(t, testDoc{Name: "def"}, doc)
	})
}

func TestWriteReadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	event := domain.SurgeEvent{
		Active:             true,
		PeakHeightMeters:   2.35,
		PeakObservedAt:     "12/05/2024 14:00",
		PeakDetectedAtUnix: 1715522400,
		StartedAtUnix:      1715515200,
	}
	require.NoError(t, Write(store, "sudestada", event))

	got := Read(store, "sudestada", domain.SurgeEvent{})
	if diff := cmp.Diff(event, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdate(t *testing.T) {
	store := newTestStore(t)

	t.Run("transform sees the default on first use", func(t *testing.T) {
		err := Update(store, "contador", testDoc{Name: "def"}, func(doc testDoc) testDoc {
			assert.Equal(t, "def", doc.Name)
			doc.Count++
			return doc
		})

		require.NoError(t, err)
		assert.Equal(t, 1, Read(store, "contador", testDoc{}).Count)
	})

	t.Run("transform sees the stored value afterwards", func(t *testing.T) {
		err := Update(store, "contador", testDoc{}, func(doc testDoc) testDoc {
			doc.Count += 10
			return doc
		})

		require.NoError(t, err)
		assert.Equal(t, 11, Read(store, "contador", testDoc{}).Count)
	})

	t.Run("no lost updates under contention", func(t *testing.T) {
		const workers = 40
		var wg sync.WaitGroup
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()
				_ = Update(store, "carrera", testDoc{}, func(doc testDoc) testDoc {
					doc.Count++
					return doc
				})
			}()
		}
		wg.Wait()

		assert.Equal(t, workers, Read(store, "carrera", testDoc{}).Count)
	})
}

func TestAppend(t *testing.T) {
	store := newTestStore(t)

	t.Run("keeps insertion order", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			require.NoError(t, Append(store, "alturas", "registros", i, 10))
		}

		doc := Read(store, "alturas", map[string][]int{})
		assert.Equal(t, []int{1, 2, 3}, doc["registros"])
	})

	t.Run("evicts oldest beyond the cap", func(t *testing.T) {
		for i := 1; i <= 75; i++ {
			require.NoError(t, Append(store, "acotado", "registros", i, 72))
		}

		doc := Read(store, "acotado", map[string][]int{})
		require.Len(t, doc["registros"], 72)
		assert.Equal(t, 4, doc["registros"][0])
		assert.Equal(t, 75, doc["registros"][71])
	})
}

func TestWriteFailure(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "datos"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "datos")))

	err = Write(store, "clave", testDoc{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorageFailure))
}

func TestPing(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "datos"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, store.Ping())

	require.NoError(t, os.RemoveAll(filepath.Join(dir, "datos")))
	assert.Error(t, store.Ping())
}
