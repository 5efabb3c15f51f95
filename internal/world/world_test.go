package world

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorld(t *testing.T, size int) *World {
	t.Helper()
	registry := newTestRegistry(t)
	return NewWorld(NewGrid(size, registry), NewWorldGenerator(size, registry, 42))
}

func TestWorld_SetBlockBumpsVersion(t *testing.T) {
	w := newTestWorld(t, 8)
	v0 := w.Version()

	assert.True(t, w.SetBlock(vec.Vec3{X: 1, Y: 2, Z: 3}, block.DirtBlockID))
	assert.Equal(t, v0+1, w.Version())
	assert.Equal(t, int(block.DirtBlockID), w.GetBlock(vec.Vec3{X: 1, Y: 2, Z: 3}))

	assert.False(t, w.SetBlock(vec.Vec3{X: 8, Y: 0, Z: 0}, block.DirtBlockID))
	assert.Equal(t, v0+1, w.Version(), "Отклонённая запись не меняет версию")

	assert.True(t, w.SetBlockByName(vec.Vec3{}, block.GrassName))
	assert.False(t, w.SetBlockByName(vec.Vec3{}, "unknown"))
	assert.Equal(t, v0+2, w.Version())
	assert.Equal(t, OutOfRange, w.GetBlock(vec.Vec3{X: -1}))
}

func TestWorld_SnapshotIsCopy(t *testing.T) {
	w := newTestWorld(t, 4)
	w.SetBlock(vec.Vec3{}, block.DirtBlockID)

	data, version := w.Snapshot()
	require.Len(t, data, 64)
	assert.Equal(t, byte(block.DirtBlockID), data[0])
	assert.Equal(t, w.Version(), version)

	w.SetBlock(vec.Vec3{}, block.GrassBlockID)
	assert.Equal(t, byte(block.DirtBlockID), data[0], "Снимок не должен меняться вместе с миром")
}

func TestWorld_Raycast(t *testing.T) {
	w := newTestWorld(t, 8)
	w.SetBlock(vec.Vec3{X: 0, Y: 0, Z: 5}, block.DirtBlockID)

	result := w.Raycast(vec.Vec3Float{X: 0.5, Y: 0.5, Z: -5}, vec.Vec3Float{Z: 1}, CastOptions{})
	require.True(t, result.Hit)
	assert.InDelta(t, 10.0, result.Distance, 1e-9)

	w.SetRayLimits(0, 6)
	result = w.Raycast(vec.Vec3Float{X: 0.5, Y: 0.5, Z: -5}, vec.Vec3Float{Z: 1}, CastOptions{})
	assert.False(t, result.Hit, "Лимит сессии должен применяться к лучу")
}

func TestWorld_PlaceDebugMarkers(t *testing.T) {
	w := newTestWorld(t, 16)

	assert.True(t, w.PlaceDebugMarkers())
	assert.Equal(t, int(block.DebugAlphaBlockID), w.GetBlock(vec.Vec3{X: 8, Y: 8, Z: 12}))
	assert.Equal(t, int(block.DebugAlphaBlockID), w.GetBlock(vec.Vec3{X: 9, Y: 8, Z: 12}))

	small := newTestWorld(t, 4)
	assert.False(t, small.PlaceDebugMarkers(), "В маленьком мире маркеры не помещаются")
}

func TestWorld_DebugMarkersKeepSavedWorldClean(t *testing.T) {
	w := newTestWorld(t, 16)
	w.MarkSaved()
	v0 := w.Version()

	require.True(t, w.PlaceDebugMarkers())
	assert.Greater(t, w.Version(), v0, "Маркеры меняют содержимое и версию")
	assert.False(t, w.Dirty(), "Маркеры не должны попадать в сохранение")

	edited := newTestWorld(t, 16)
	edited.MarkSaved()
	edited.SetBlock(vec.Vec3{}, block.DirtBlockID)
	require.True(t, edited.PlaceDebugMarkers())
	assert.True(t, edited.Dirty(), "Несохранённые правки остаются несохранёнными")
}

func TestWorld_EpochIsPerSession(t *testing.T) {
	a := newTestWorld(t, 4)
	b := newTestWorld(t, 4)

	assert.NotEmpty(t, a.Epoch())
	assert.NotEqual(t, a.Epoch(), b.Epoch())
	assert.Equal(t, a.Version(), b.Version(), "Счётчики версий разных сессий совпадают")

	epoch := a.Epoch()
	a.SetBlock(vec.Vec3{}, block.DirtBlockID)
	a.Replace(NewGrid(4, nil))
	assert.Equal(t, epoch, a.Epoch(), "Эпоха не меняется при правках")
}

func TestWorld_Regenerate(t *testing.T) {
	w := newTestWorld(t, 8)
	v0 := w.Version()

	require.NoError(t, w.Regenerate(context.Background(), GenerationParams{Mode: ModeFlat, FlatLevel: 1}))
	assert.Greater(t, w.Version(), v0)
	w.View(func(g *Grid) {
		assert.Equal(t, 64, g.Count(block.DebugBlockID))
	})

	err := w.Regenerate(context.Background(), GenerationParams{Mode: "nope"})
	assert.True(t, errors.Is(err, ErrUnknownMode))

	noGen := NewWorld(NewGrid(4, nil), nil)
	assert.Error(t, noGen.Regenerate(context.Background(), DefaultGenerationParams(4)))
}

func TestWorld_SaveTracksDirty(t *testing.T) {
	w := newTestWorld(t, 4)
	assert.True(t, w.Dirty())

	require.NoError(t, w.Save(func(*Grid) error { return nil }))
	assert.False(t, w.Dirty())

	w.SetBlock(vec.Vec3{}, block.DirtBlockID)
	assert.True(t, w.Dirty())

	assert.Error(t, w.Save(func(*Grid) error { return errors.New("disk full") }))
	assert.True(t, w.Dirty(), "Неудачное сохранение оставляет мир изменённым")

	w.MarkSaved()
	assert.False(t, w.Dirty())
}

func TestWorld_RunAutoSave(t *testing.T) {
	w := newTestWorld(t, 4)
	var saves int32

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunAutoSave(ctx, 10*time.Millisecond, func(*Grid) error {
			atomic.AddInt32(&saves, 1)
			return nil
		})
		close(done)
	}()

	assert.Eventually(t, func() bool { return !w.Dirty() }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, int32(1), atomic.LoadInt32(&saves), "Неизменённый мир повторно не сохраняется")
}

func TestWorld_ConcurrentAccess(t *testing.T) {
	w := newTestWorld(t, 16)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				w.SetBlock(vec.Vec3{X: i, Y: j % 16, Z: 0}, block.DirtBlockID)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				w.Raycast(vec.Vec3Float{X: 0.5, Y: 0.5, Z: 15.5}, vec.Vec3Float{Z: -1}, CastOptions{})
				w.Snapshot()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(1+8*100), w.Version())
}
