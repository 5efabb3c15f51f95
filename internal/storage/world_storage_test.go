package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T) *WorldStorage {
	t.Helper()
	storage, err := NewWorldStorage(t.TempDir())
	require.NoError(t, err, "Не удалось создать хранилище")
	t.Cleanup(func() { storage.Close() })
	return storage
}

func testRegistry(t *testing.T) *block.Registry {
	t.Helper()
	registry, err := block.NewDefaultRegistry()
	require.NoError(t, err)
	return registry
}

func sampleGrid(t *testing.T, size int) *world.Grid {
	t.Helper()
	g := world.NewGrid(size, testRegistry(t))
	g.Set(vec.Vec3{X: 1, Y: 2, Z: 3}, block.GrassBlockID)
	g.Set(vec.Vec3{X: size - 1, Y: size - 1, Z: size - 1}, block.OakLogsBlockID)
	return g
}

func TestWorldStorage_SaveAndLoad(t *testing.T) {
	storage := setupTestStorage(t)
	g := sampleGrid(t, 8)

	meta, err := storage.SaveWorld("debug", g)
	require.NoError(t, err)
	assert.Equal(t, "debug", meta.Name)
	assert.Equal(t, 8, meta.Size)
	assert.Equal(t, 2, meta.Solid)
	assert.NotEmpty(t, meta.ID)

	loaded, err := storage.LoadWorld("debug", 8, testRegistry(t))
	require.NoError(t, err)
	assert.Equal(t, g.Voxels(), loaded.Voxels())
}

func TestWorldStorage_ResaveKeepsIdentity(t *testing.T) {
	storage := setupTestStorage(t)
	g := sampleGrid(t, 4)

	first, err := storage.SaveWorld("w", g)
	require.NoError(t, err)

	g.Set(vec.Vec3{}, block.DirtBlockID)
	second, err := storage.SaveWorld("w", g)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "ID мира не меняется при пересохранении")
	assert.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())
	assert.Equal(t, 3, second.Solid)

	meta, err := storage.LoadMeta("w")
	require.NoError(t, err)
	assert.Equal(t, first.ID, meta.ID)
}

func TestWorldStorage_NotFound(t *testing.T) {
	storage := setupTestStorage(t)

	_, err := storage.LoadWorld("missing", 8, nil)
	assert.True(t, errors.Is(err, ErrWorldNotFound))

	_, err = storage.LoadMeta("missing")
	assert.True(t, errors.Is(err, ErrWorldNotFound))

	assert.True(t, errors.Is(storage.DeleteWorld("missing"), ErrWorldNotFound))

	_, err = storage.QuarantineWorld("missing")
	assert.True(t, errors.Is(err, ErrWorldNotFound))
}

func TestWorldStorage_WrongSize(t *testing.T) {
	storage := setupTestStorage(t)
	_, err := storage.SaveWorld("small", sampleGrid(t, 4))
	require.NoError(t, err)

	_, err = storage.LoadWorld("small", 8, nil)
	assert.True(t, errors.Is(err, world.ErrWorldSize), "Ожидалась ошибка размера, получено: %v", err)
}

func TestWorldStorage_ListAndDelete(t *testing.T) {
	storage := setupTestStorage(t)
	for _, name := range []string{"beta", "alpha"} {
		_, err := storage.SaveWorld(name, sampleGrid(t, 4))
		require.NoError(t, err)
	}

	worlds, err := storage.ListWorlds()
	require.NoError(t, err)
	require.Len(t, worlds, 2)
	assert.Equal(t, "alpha", worlds[0].Name)
	assert.Equal(t, "beta", worlds[1].Name)

	require.NoError(t, storage.DeleteWorld("alpha"))
	worlds, err = storage.ListWorlds()
	require.NoError(t, err)
	require.Len(t, worlds, 1)
	assert.Equal(t, "beta", worlds[0].Name)
}

func TestWorldStorage_Quarantine(t *testing.T) {
	storage := setupTestStorage(t)
	_, err := storage.SaveWorld("main", sampleGrid(t, 4))
	require.NoError(t, err)

	target, err := storage.QuarantineWorld("main")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(target, "main.corrupt-"))
	assert.True(t, IsQuarantined(target))
	assert.False(t, IsQuarantined("main"))

	_, err = storage.LoadWorld("main", 4, nil)
	assert.True(t, errors.Is(err, ErrWorldNotFound), "Исходное имя освобождается")

	moved, err := storage.LoadWorld(target, 4, nil)
	require.NoError(t, err, "Отложенный мир остаётся доступным для разбора")
	assert.Equal(t, 4, moved.Size())

	meta, err := storage.LoadMeta(target)
	require.NoError(t, err)
	assert.Equal(t, target, meta.Name)
}

func TestWorldStorage_RepeatedQuarantineKeepsBoth(t *testing.T) {
	storage := setupTestStorage(t)

	var targets []string
	for i := 0; i < 2; i++ {
		_, err := storage.SaveWorld("main", sampleGrid(t, 4))
		require.NoError(t, err)
		target, err := storage.QuarantineWorld("main")
		require.NoError(t, err)
		targets = append(targets, target)
	}
	require.NotEqual(t, targets[0], targets[1], "Карантин в ту же секунду получает новое имя")

	for _, target := range targets {
		_, err := storage.LoadWorld(target, 4, nil)
		assert.NoError(t, err, "Оба отложенных мира сохраняются: %s", target)
	}
}

func TestWorldStorage_Closed(t *testing.T) {
	storage, err := NewWorldStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, storage.Close())
	assert.NoError(t, storage.Close(), "Повторное закрытие безопасно")

	_, err = storage.SaveWorld("w", sampleGrid(t, 4))
	assert.Error(t, err)
	_, err = storage.LoadWorld("w", 4, nil)
	assert.Error(t, err)
}

func TestBadgerStore(t *testing.T) {
	storage := setupTestStorage(t)
	var store WorldStore = storage.Store("session")

	_, err := store.Load(4, nil)
	assert.True(t, errors.Is(err, ErrWorldNotFound))

	require.NoError(t, store.Save(sampleGrid(t, 4)))
	g, err := store.Load(4, testRegistry(t))
	require.NoError(t, err)
	assert.Equal(t, int(block.GrassBlockID), g.Get(vec.Vec3{X: 1, Y: 2, Z: 3}))
	assert.True(t, strings.HasSuffix(store.Location(), "#session"))
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.npy")
	var store WorldStore = NewFileStore(path)

	_, err := store.Load(4, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWorldNotFound))
	assert.True(t, errors.Is(err, os.ErrNotExist), "Исходная ошибка сохраняется в цепочке")

	require.NoError(t, store.Save(sampleGrid(t, 4)))
	_, err = store.Load(8, nil)
	assert.True(t, errors.Is(err, world.ErrWorldSize))

	target, err := store.Quarantine()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(target, path+".corrupt-"))
	_, err = os.Stat(target)
	assert.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = store.Quarantine()
	assert.True(t, errors.Is(err, ErrWorldNotFound))
	assert.Equal(t, path, store.Location())

	// Повторный карантин сразу же не затирает первый
	require.NoError(t, store.Save(sampleGrid(t, 4)))
	second, err := store.Quarantine()
	require.NoError(t, err)
	assert.NotEqual(t, target, second)
	for _, p := range []string{target, second} {
		_, err = os.Stat(p)
		assert.NoError(t, err)
	}
	assert.NoError(t, store.Close())
}
