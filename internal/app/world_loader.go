package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

// LoadOutcome описывает, откуда взялся мир при запуске
type LoadOutcome int

const (
	OutcomeLoaded      LoadOutcome = iota // мир прочитан из хранилища
	OutcomeGenerated                      // сохранения не было, мир сгенерирован
	OutcomeRegenerated                    // сохранение повреждено, отложено и заменено новым
)

// String возвращает строковое представление исхода
func (o LoadOutcome) String() string {
	switch o {
	case OutcomeLoaded:
		return "loaded"
	case OutcomeGenerated:
		return "generated"
	case OutcomeRegenerated:
		return "regenerated"
	default:
		return "unknown"
	}
}

// LoadOptions - параметры загрузки мира при запуске
type LoadOptions struct {
	Store     storage.WorldStore
	Size      int
	Registry  *block.Registry
	Generator *world.WorldGenerator
	Params    world.GenerationParams
}

// LoadOrGenerate загружает мир из хранилища, а если его нет или он
// повреждён - генерирует новый и сразу сохраняет.
// Повреждённое сохранение не удаляется, а откладывается в сторону.
// Прочие ошибки ввода-вывода возвращаются как есть.
func LoadOrGenerate(ctx context.Context, opts LoadOptions) (*world.Grid, LoadOutcome, error) {
	logger := logging.GetStorageLogger()

	grid, err := opts.Store.Load(opts.Size, opts.Registry)

	var outcome LoadOutcome
	switch {
	case err == nil:
		logger.Info("✅ Мир загружен: %s", opts.Store.Location())
		return grid, OutcomeLoaded, nil

	case errors.Is(err, storage.ErrWorldNotFound):
		logger.Info("🌱 Сохранённый мир не найден (%s), генерируем новый", opts.Store.Location())
		outcome = OutcomeGenerated

	case errors.Is(err, world.ErrWorldSize), errors.Is(err, world.ErrFormat):
		logger.Warn("⚠️ Сохранённый мир не подходит: %v", err)
		target, qerr := opts.Store.Quarantine()
		if qerr != nil {
			return nil, OutcomeLoaded, fmt.Errorf("не удалось отложить повреждённый мир: %w", qerr)
		}
		logger.Warn("⚠️ Старое сохранение перемещено в %s, генерируем новый мир", target)
		outcome = OutcomeRegenerated

	default:
		return nil, OutcomeLoaded, fmt.Errorf("ошибка загрузки мира: %w", err)
	}

	if opts.Generator == nil {
		return nil, outcome, errors.New("генератор мира не задан")
	}

	grid, err = opts.Generator.Generate(ctx, opts.Params)
	if err != nil {
		return nil, outcome, fmt.Errorf("ошибка генерации мира: %w", err)
	}

	if err := opts.Store.Save(grid); err != nil {
		return nil, outcome, fmt.Errorf("ошибка сохранения нового мира: %w", err)
	}

	return grid, outcome, nil
}
