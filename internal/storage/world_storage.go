package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

const (
	worldKeyPrefix = "world:"
	metaKeyPrefix  = "meta:"
)

// WorldMeta описывает сохранённый мир
type WorldMeta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int       `json:"size"`
	Solid     int       `json:"solid"` // число непустых вокселей
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorldStorage хранит именованные миры в BadgerDB.
// Воксели лежат под ключом world:<name> в формате .npy,
// описание мира - под ключом meta:<name> в JSON.
type WorldStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
	logger  *logging.Logger
}

// NewWorldStorage открывает (или создаёт) базу миров в каталоге dataPath
func NewWorldStorage(dataPath string) (*WorldStorage, error) {
	opts := badger.DefaultOptions(dataPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &WorldStorage{
		db:      db,
		dbPath:  dataPath,
		isReady: true,
		logger:  logging.GetStorageLogger(),
	}, nil
}

// Close закрывает хранилище данных
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}

	ws.isReady = false
	return ws.db.Close()
}

// SaveWorld сохраняет мир под именем name.
// ID и время создания существующего мира сохраняются.
func (ws *WorldStorage) SaveWorld(name string, grid *world.Grid) (*WorldMeta, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var buf bytes.Buffer
	buf.Grow(grid.Len() + 128)
	if _, err := grid.WriteTo(&buf); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	meta := &WorldMeta{
		ID:        uuid.NewString(),
		Name:      name,
		Size:      grid.Size(),
		Solid:     grid.Len() - grid.Count(block.AirBlockID),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := ws.db.Update(func(txn *badger.Txn) error {
		if previous, err := readMeta(txn, name); err == nil {
			meta.ID = previous.ID
			meta.CreatedAt = previous.CreatedAt
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		metaData, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("ошибка сериализации описания мира: %w", err)
		}
		if err := txn.Set([]byte(worldKeyPrefix+name), buf.Bytes()); err != nil {
			return err
		}
		return txn.Set([]byte(metaKeyPrefix+name), metaData)
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения мира %s в BadgerDB: %w", name, err)
	}

	ws.logger.Info("💾 Мир %s (%d^3) сохранён в BadgerDB", name, grid.Size())
	return meta, nil
}

// LoadWorld загружает мир name и проверяет его размер
func (ws *WorldStorage) LoadWorld(name string, size int, registry *block.Registry) (*world.Grid, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var grid *world.Grid
	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(worldKeyPrefix + name))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			g, err := world.ReadGrid(bytes.NewReader(val), size, registry)
			if err != nil {
				return err
			}
			grid = g
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrWorldNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("мир %s: %w", name, err)
	}
	return grid, nil
}

// LoadMeta возвращает описание мира name
func (ws *WorldStorage) LoadMeta(name string) (*WorldMeta, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var meta *WorldMeta
	err := ws.db.View(func(txn *badger.Txn) error {
		m, err := readMeta(txn, name)
		meta = m
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrWorldNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения описания мира %s: %w", name, err)
	}
	return meta, nil
}

// ListWorlds возвращает описания всех сохранённых миров, отсортированные по имени
func (ws *WorldStorage) ListWorlds() ([]WorldMeta, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var worlds []WorldMeta
	err := ws.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(metaKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var meta WorldMeta
				if err := json.Unmarshal(val, &meta); err != nil {
					return fmt.Errorf("ошибка десериализации описания мира: %w", err)
				}
				worlds = append(worlds, meta)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(worlds, func(i, j int) bool { return worlds[i].Name < worlds[j].Name })
	return worlds, nil
}

// DeleteWorld удаляет мир и его описание
func (ws *WorldStorage) DeleteWorld(name string) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	return ws.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(worldKeyPrefix + name)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrWorldNotFound, name)
			}
			return err
		}
		if err := txn.Delete([]byte(worldKeyPrefix + name)); err != nil {
			return err
		}
		return txn.Delete([]byte(metaKeyPrefix + name))
	})
}

// QuarantineWorld переносит мир name под имя <name>.corrupt-<время>-<id>
// и возвращает новое имя
func (ws *WorldStorage) QuarantineWorld(name string) (string, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return "", fmt.Errorf("хранилище не готово")
	}

	target := fmt.Sprintf("%s.corrupt-%s", name, quarantineSuffix())
	err := ws.db.Update(func(txn *badger.Txn) error {
		for _, prefix := range []string{worldKeyPrefix, metaKeyPrefix} {
			item, err := txn.Get([]byte(prefix + name))
			if errors.Is(err, badger.ErrKeyNotFound) && prefix == metaKeyPrefix {
				continue
			}
			if err != nil {
				return err
			}

			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if prefix == metaKeyPrefix {
				val = renameMeta(val, target)
			}
			if err := txn.Set([]byte(prefix+target), val); err != nil {
				return err
			}
			if err := txn.Delete([]byte(prefix + name)); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", ErrWorldNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("не удалось отложить повреждённый мир %s: %w", name, err)
	}

	ws.logger.Warn("⚠️ Повреждённый мир %s перемещён в %s", name, target)
	return target, nil
}

// Store возвращает WorldStore для мира name в этой базе
func (ws *WorldStorage) Store(name string) *BadgerStore {
	return &BadgerStore{storage: ws, name: name}
}

func readMeta(txn *badger.Txn, name string) (*WorldMeta, error) {
	item, err := txn.Get([]byte(metaKeyPrefix + name))
	if err != nil {
		return nil, err
	}

	var meta WorldMeta
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// renameMeta переписывает имя в описании; нечитаемое описание сохраняется как есть
func renameMeta(val []byte, name string) []byte {
	var meta WorldMeta
	if err := json.Unmarshal(val, &meta); err != nil {
		return val
	}
	meta.Name = name
	data, err := json.Marshal(meta)
	if err != nil {
		return val
	}
	return data
}

// BadgerStore - WorldStore для одного мира в WorldStorage
type BadgerStore struct {
	storage *WorldStorage
	name    string
}

// Load загружает мир
func (s *BadgerStore) Load(size int, registry *block.Registry) (*world.Grid, error) {
	return s.storage.LoadWorld(s.name, size, registry)
}

// Save сохраняет мир
func (s *BadgerStore) Save(grid *world.Grid) error {
	_, err := s.storage.SaveWorld(s.name, grid)
	return err
}

// Quarantine откладывает повреждённый мир
func (s *BadgerStore) Quarantine() (string, error) {
	target, err := s.storage.QuarantineWorld(s.name)
	if err != nil {
		return "", err
	}
	return s.storage.dbPath + "#" + target, nil
}

// Location возвращает каталог базы и имя мира
func (s *BadgerStore) Location() string {
	return s.storage.dbPath + "#" + s.name
}

// Close закрывает базу
func (s *BadgerStore) Close() error {
	return s.storage.Close()
}

// IsQuarantined сообщает, что имя принадлежит отложенному повреждённому миру
func IsQuarantined(name string) bool {
	return strings.Contains(name, ".corrupt-")
}
