package world

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/google/uuid"
)

// SaveFunc сохраняет мир; вызывается из автосохранения под read lock
type SaveFunc func(grid *Grid) error

// World владеет сеткой на всё время работы приложения и
// сериализует доступ к ней: чтения идут параллельно, запись эксклюзивна.
type World struct {
	grid      *Grid
	generator *WorldGenerator
	epoch     string // уникален для каждой сессии, версии разных сессий несравнимы
	version   uint64 // растёт при каждом изменении мира
	saved     uint64 // версия последнего сохранения

	maxSteps    int
	maxDistance float64

	mu    sync.RWMutex // защищает grid, version, saved
	genMu sync.Mutex   // генератор не потокобезопасен

	logger *logging.Logger
}

// NewWorld создаёт сессию мира. generator может быть nil,
// тогда Regenerate недоступен.
func NewWorld(grid *Grid, generator *WorldGenerator) *World {
	return &World{
		grid:      grid,
		generator: generator,
		epoch:     uuid.NewString(),
		version:   1,
		logger:    logging.GetWorldGenLogger(),
	}
}

// SetRayLimits задаёт лимиты трассировки по умолчанию для Raycast
func (w *World) SetRayLimits(maxSteps int, maxDistance float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.maxSteps = maxSteps
	w.maxDistance = maxDistance
}

// View выполняет fn под read lock. Сетку нельзя сохранять за пределами fn.
func (w *World) View(fn func(grid *Grid)) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	fn(w.grid)
}

// Size возвращает длину ребра мира
func (w *World) Size() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.grid.Size()
}

// Version возвращает текущую версию мира
func (w *World) Version() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.version
}

// Epoch возвращает идентификатор сессии; вместе с версией он однозначно
// определяет содержимое мира между перезапусками процесса
func (w *World) Epoch() string {
	return w.epoch
}

// GetBlock возвращает ID блока или OutOfRange
func (w *World) GetBlock(pos vec.Vec3) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.grid.Get(pos)
}

// SetBlock устанавливает блок; при успехе версия мира увеличивается
func (w *World) SetBlock(pos vec.Vec3, id block.BlockID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	ok := w.grid.Set(pos, id)
	if ok {
		w.version++
	}
	observeBlockWrite(ok)
	return ok
}

// SetBlockByName устанавливает блок по имени; при успехе версия мира увеличивается
func (w *World) SetBlockByName(pos vec.Vec3, name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	ok := w.grid.SetByName(pos, name)
	if ok {
		w.version++
	}
	observeBlockWrite(ok)
	return ok
}

// Raycast трассирует луч по миру под read lock.
// Нулевые лимиты в opts заменяются лимитами сессии.
func (w *World) Raycast(origin, direction vec.Vec3Float, opts CastOptions) RayResult {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if opts.MaxSteps <= 0 {
		opts.MaxSteps = w.maxSteps
	}
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = w.maxDistance
	}
	return NewRay(origin, direction).Cast(w.grid, opts)
}

// Snapshot возвращает копию сырого буфера вокселей и её версию
func (w *World) Snapshot() ([]byte, uint64) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	voxels := w.grid.Voxels()
	data := make([]byte, len(voxels))
	copy(data, voxels)
	return data, w.version
}

// Replace подменяет сетку целиком (после загрузки или регенерации)
func (w *World) Replace(grid *Grid) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.grid = grid
	w.version++
}

// Regenerate генерирует новый мир и подменяет им текущий.
// Генерация идёт без блокировки мира, читатели видят старую сетку до подмены.
func (w *World) Regenerate(ctx context.Context, params GenerationParams) error {
	if w.generator == nil {
		return errors.New("генератор мира не задан")
	}

	w.genMu.Lock()
	grid, err := w.generator.Generate(ctx, params)
	w.genMu.Unlock()
	if err != nil {
		return err
	}

	w.Replace(grid)
	return nil
}

// PlaceDebugMarkers ставит два блока debug_alpha над центром мира:
// (c, c, c+4) и (c+1, c, c+4), где c = size/2.
// Маркеры не делают сохранённый мир грязным и сами по себе не сохраняются.
func (w *World) PlaceDebugMarkers() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	clean := w.version == w.saved
	c := w.grid.Size() / 2
	first := w.grid.SetByName(vec.Vec3{X: c, Y: c, Z: c + 4}, block.DebugAlphaName)
	second := w.grid.SetByName(vec.Vec3{X: c + 1, Y: c, Z: c + 4}, block.DebugAlphaName)
	if first || second {
		w.version++
		if clean {
			w.saved = w.version
		}
	}
	return first && second
}

// Save сохраняет мир через save под read lock и запоминает сохранённую версию
func (w *World) Save(save SaveFunc) error {
	w.mu.RLock()
	version := w.version
	err := save(w.grid)
	w.mu.RUnlock()
	if err != nil {
		return err
	}

	w.mu.Lock()
	if version > w.saved {
		w.saved = version
	}
	w.mu.Unlock()
	return nil
}

// Dirty сообщает, есть ли несохранённые изменения
func (w *World) Dirty() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.version != w.saved
}

// MarkSaved отмечает текущую версию как сохранённую
func (w *World) MarkSaved() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.saved = w.version
}

// RunAutoSave периодически сохраняет изменённый мир до отмены ctx.
// При interval <= 0 сразу возвращается.
func (w *World) RunAutoSave(ctx context.Context, interval time.Duration, save SaveFunc) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !w.Dirty() {
				continue
			}
			if err := w.Save(save); err != nil {
				w.logger.Error("❌ Ошибка автосохранения мира: %v", err)
				continue
			}
			w.logger.Info("💾 Мир автоматически сохранён")
		}
	}
}
