package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/util"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Режимы генерации
const (
	ModeFlat      = "flat"
	ModeRandom    = "random"
	ModeLandscape = "landscape"
	ModePerlin    = "perlin"
)

// TreeThreshold - столбец получает дерево, если случайное число больше порога
const TreeThreshold = 0.9

// ErrUnknownMode возвращается для неизвестного режима генерации
var ErrUnknownMode = errors.New("unknown generation mode")

// GenerationParams описывает один запуск генерации
type GenerationParams struct {
	Mode        string  `json:"mode" yaml:"mode"`
	SeaLevel    int     `json:"sea_level" yaml:"sea_level"`
	Magnitude   float64 `json:"magnitude" yaml:"magnitude"`
	FillRatio   float64 `json:"fill_ratio" yaml:"fill_ratio"`
	FlatLevel   int     `json:"flat_level" yaml:"flat_level"`
	PerlinScale float64 `json:"perlin_scale" yaml:"perlin_scale"`
}

// DefaultGenerationParams возвращает параметры ландшафта по умолчанию для мира size^3
func DefaultGenerationParams(size int) GenerationParams {
	return GenerationParams{
		Mode:        ModeLandscape,
		SeaLevel:    size / 2,
		Magnitude:   32,
		FillRatio:   0.1,
		FlatLevel:   size / 4,
		PerlinScale: 0.05,
	}
}

// WorldGenerator генерирует новые миры.
// Каждый вызов возвращает новый Grid, генератор его не хранит.
// Генератор не потокобезопасен: он владеет своим источником случайных чисел.
type WorldGenerator struct {
	Size          int
	Registry      *block.Registry
	Seed          int64    // Сид генератора случайных чисел
	Octaves       []Octave // Таблица октав карты высот
	TreeThreshold float64  // Порог появления дерева в столбце

	rng    *rand.Rand
	logger *logging.Logger
}

// NewWorldGenerator создаёт генератор. Нулевой сид заменяется текущим временем,
// так что каждый запуск даёт новый мир.
func NewWorldGenerator(size int, registry *block.Registry, seed int64) *WorldGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &WorldGenerator{
		Size:          size,
		Registry:      registry,
		Seed:          seed,
		Octaves:       DefaultOctaves,
		TreeThreshold: TreeThreshold,
		rng:           rand.New(rand.NewSource(seed)),
		logger:        logging.GetWorldGenLogger(),
	}
}

// Generate запускает генерацию в указанном режиме
func (wg *WorldGenerator) Generate(ctx context.Context, params GenerationParams) (*Grid, error) {
	_, span := otel.Tracer("voxel-world/world").Start(ctx, "world.generate")
	span.SetAttributes(
		attribute.String("mode", params.Mode),
		attribute.Int("size", wg.Size),
	)
	defer span.End()

	start := time.Now()

	var grid *Grid
	switch params.Mode {
	case ModeFlat:
		grid = wg.GenerateFlat(params.FlatLevel)
	case ModeRandom:
		if params.FillRatio < 0 || params.FillRatio > 1 {
			return nil, fmt.Errorf("доля заполнения %.3f вне [0, 1]", params.FillRatio)
		}
		grid = wg.GenerateRandom(params.FillRatio)
	case ModeLandscape, "":
		grid = wg.GenerateLandscape(params.SeaLevel, params.Magnitude)
	case ModePerlin:
		grid = wg.GeneratePerlin(params.SeaLevel, params.Magnitude, params.PerlinScale)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, params.Mode)
	}

	mode := params.Mode
	if mode == "" {
		mode = ModeLandscape
	}
	elapsed := time.Since(start)
	generationDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	wg.logger.Info("🌍 Мир %d^3 сгенерирован (режим=%s) за %s", wg.Size, mode, elapsed)

	return grid, nil
}

// GenerateFlat заполняет у каждого столбца слои z в [0, level) блоком грунта
func (wg *WorldGenerator) GenerateFlat(level int) *Grid {
	grid := NewGrid(wg.Size, wg.Registry)
	ground := wg.blockID(block.DebugName, block.DebugBlockID)

	if level < 0 {
		level = 0
	}
	if level > wg.Size {
		level = wg.Size
	}

	for y := 0; y < wg.Size; y++ {
		for x := 0; x < wg.Size; x++ {
			for z := 0; z < level; z++ {
				grid.SetUnsafe(vec.Vec3{X: x, Y: y, Z: z}, ground)
			}
		}
	}
	return grid
}

// GenerateRandom заполняет каждую ячейку отладочным блоком с вероятностью fillRatio
func (wg *WorldGenerator) GenerateRandom(fillRatio float64) *Grid {
	grid := NewGrid(wg.Size, wg.Registry)
	debug := byte(wg.blockID(block.DebugName, block.DebugBlockID))

	for i := range grid.voxels {
		if wg.rng.Float64() < fillRatio {
			grid.voxels[i] = debug
		}
	}
	return grid
}

// GenerateLandscape строит ландшафт по октавной карте высот.
// seaLevel - средняя высота поверхности, magnitude - размах рельефа.
func (wg *WorldGenerator) GenerateLandscape(seaLevel int, magnitude float64) *Grid {
	wg.logger.Debug("Генерация карты высот...")
	field := HeightField(wg.Size, wg.Octaves, wg.rng)
	wg.logger.Debug("Карта высот готова")

	return wg.populate(func(x, y int) float64 { return field[y][x] }, seaLevel, magnitude)
}

// GeneratePerlin строит ландшафт по шуму Перлина с тем же правилом заполнения столбцов
func (wg *WorldGenerator) GeneratePerlin(seaLevel int, magnitude, scale float64) *Grid {
	if scale <= 0 {
		scale = DefaultGenerationParams(wg.Size).PerlinScale
	}
	noise := util.NewPerlinNoise(wg.Seed)

	return wg.populate(func(x, y int) float64 {
		return noise.Noise2D(float64(x)*scale, float64(y)*scale)
	}, seaLevel, magnitude)
}

// ColumnHeight переводит значение карты высот [0, 1) в высоту столбца
func ColumnHeight(value, magnitude float64, seaLevel int) int {
	return int(math.Floor((value-0.5)*magnitude + float64(seaLevel)))
}

// populate заполняет столбцы землёй и травой и расставляет деревья
func (wg *WorldGenerator) populate(heightAt func(x, y int) float64, seaLevel int, magnitude float64) *Grid {
	grid := NewGrid(wg.Size, wg.Registry)
	grass := wg.blockID(block.GrassName, block.GrassBlockID)
	dirt := wg.blockID(block.DirtName, block.DirtBlockID)

	// Прогресс пишется каждые size/25 строк
	progressStep := wg.Size / 25
	if progressStep < 1 {
		progressStep = 1
	}

	wg.logger.Debug("Расстановка блоков...")
	for y := 0; y < wg.Size; y++ {
		for x := 0; x < wg.Size; x++ {
			height := ColumnHeight(heightAt(x, y), magnitude, seaLevel)
			for z := 0; z < height; z++ {
				id := dirt
				if z == height-1 {
					id = grass
				}
				grid.Set(vec.Vec3{X: x, Y: y, Z: z}, id)
			}

			if wg.rng.Float64() > wg.TreeThreshold {
				GenerateTree(grid, vec.Vec3{X: x, Y: y, Z: height}, wg.rng)
			}
		}
		if y%progressStep == 0 {
			wg.logger.Debug("%.2f%% готово", float64(y)/float64(wg.Size)*100)
		}
	}
	wg.logger.Debug("Расстановка блоков завершена")

	return grid
}

// GenerateTree ставит дерево на позицию pos тем же источником случайных чисел
func (wg *WorldGenerator) GenerateTree(grid *Grid, pos vec.Vec3) {
	GenerateTree(grid, pos, wg.rng)
}

func (wg *WorldGenerator) blockID(name string, fallback block.BlockID) block.BlockID {
	if wg.Registry == nil {
		return fallback
	}
	if id, ok := wg.Registry.Lookup(name); ok {
		return id
	}
	return fallback
}
