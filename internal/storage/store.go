package storage

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/google/uuid"
)

// ErrWorldNotFound возвращается, если сохранённого мира нет
var ErrWorldNotFound = errors.New("world not found")

// quarantineLayout - суффикс времени для отложенных повреждённых сохранений
const quarantineLayout = "20060102-150405"

// quarantineSuffix возвращает уникальный суффикс <время>-<8 hex>:
// два карантина в одну секунду не затирают друг друга
func quarantineSuffix() string {
	return time.Now().Format(quarantineLayout) + "-" + uuid.NewString()[:8]
}

// WorldStore хранит один именованный мир.
// Load различает отсутствие мира (ErrWorldNotFound) и повреждение
// (world.ErrWorldSize, world.ErrFormat) через errors.Is.
type WorldStore interface {
	Load(size int, registry *block.Registry) (*world.Grid, error)
	Save(grid *world.Grid) error
	// Quarantine убирает текущее сохранение в сторону и возвращает его новое место
	Quarantine() (string, error)
	// Location описывает, где лежит мир (для логов)
	Location() string
	Close() error
}

// FileStore хранит мир одним файлом .npy
type FileStore struct {
	path   string
	logger *logging.Logger
}

// NewFileStore создаёт файловое хранилище
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		logger: logging.GetStorageLogger(),
	}
}

// Load загружает мир из файла
func (s *FileStore) Load(size int, registry *block.Registry) (*world.Grid, error) {
	grid, err := world.Load(s.path, size, registry)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrWorldNotFound, err)
		}
		return nil, err
	}

	s.logger.Info("📂 Мир загружен из %s", s.path)
	return grid, nil
}

// Save сохраняет мир в файл
func (s *FileStore) Save(grid *world.Grid) error {
	if err := grid.Save(s.path); err != nil {
		return err
	}
	s.logger.Info("💾 Мир сохранён в %s", s.path)
	return nil
}

// Quarantine переименовывает файл мира в <path>.corrupt-<время>-<id>
func (s *FileStore) Quarantine() (string, error) {
	target := fmt.Sprintf("%s.corrupt-%s", s.path, quarantineSuffix())
	if err := os.Rename(s.path, target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %w", ErrWorldNotFound, err)
		}
		return "", fmt.Errorf("не удалось отложить повреждённый мир: %w", err)
	}

	s.logger.Warn("⚠️ Повреждённый мир перемещён в %s", target)
	return target, nil
}

// Location возвращает путь к файлу мира
func (s *FileStore) Location() string { return s.path }

// Close ничего не делает: файл открывается только на время операции
func (s *FileStore) Close() error { return nil }
