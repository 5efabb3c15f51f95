package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"gopkg.in/yaml.v3"
)

// Поддерживаемые хранилища мира
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// MaxWorldSize ограничивает ребро мира: буфер занимает size^3 байт
const MaxWorldSize = 512

// Config корневая структура конфигурации приложения
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Generation GenerationConfig `yaml:"generation"`
	Storage    StorageConfig    `yaml:"storage"`
	Blocks     BlocksConfig     `yaml:"blocks"`
	Ray        RayConfig        `yaml:"ray"`
	Server     ServerConfig     `yaml:"server"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type WorldConfig struct {
	Size int       `yaml:"size"`
	Sun  []float64 `yaml:"sun"` // направление на солнце, три числа
}

type GenerationConfig struct {
	Mode         string  `yaml:"mode"`
	Seed         int64   `yaml:"seed"` // 0 - случайный сид
	SeaLevel     int     `yaml:"sea_level"`
	Magnitude    float64 `yaml:"magnitude"`
	FillRatio    float64 `yaml:"fill_ratio"`
	FlatLevel    int     `yaml:"flat_level"`
	PerlinScale  float64 `yaml:"perlin_scale"`
	DebugMarkers bool    `yaml:"debug_markers"`
}

type StorageConfig struct {
	Backend          string        `yaml:"backend"`
	SavePath         string        `yaml:"save_path"`
	DataDir          string        `yaml:"data_dir"`
	WorldName        string        `yaml:"world_name"`
	AutosaveInterval time.Duration `yaml:"autosave_interval"` // 0 - без автосохранения
}

type BlocksConfig struct {
	Definitions string `yaml:"definitions"` // YAML с дополнительными блоками
}

type RayConfig struct {
	MaxSteps    int     `yaml:"max_steps"`
	MaxDistance float64 `yaml:"max_distance"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Dir       string `yaml:"dir"` // пустой каталог - только консоль
	Component string `yaml:"component"`
	Level     string `yaml:"level"`
}

// Default возвращает конфигурацию по умолчанию: мир 64^3, ландшафт, файл debug.npy
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Size: 64,
			Sun:  []float64{world.DefaultSun.X, world.DefaultSun.Y, world.DefaultSun.Z},
		},
		Generation: GenerationConfig{
			Mode:         world.ModeLandscape,
			Magnitude:    32,
			FillRatio:    0.1,
			FlatLevel:    16,
			PerlinScale:  0.05,
			DebugMarkers: true,
		},
		Storage: StorageConfig{
			Backend:   BackendFile,
			SavePath:  "debug.npy",
			DataDir:   "data/worlds",
			WorldName: "debug",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "voxel-world",
		},
		Logging: LoggingConfig{
			Component: "server",
			Level:     "info",
		},
	}
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	if c.World.Size <= 0 || c.World.Size > MaxWorldSize {
		return fmt.Errorf("world.size должен быть в (0, %d], получено %d", MaxWorldSize, c.World.Size)
	}
	if _, err := c.World.SunVector(); err != nil {
		return err
	}

	switch c.Generation.Mode {
	case world.ModeFlat, world.ModeRandom, world.ModeLandscape, world.ModePerlin:
	default:
		return fmt.Errorf("%w: %q", world.ErrUnknownMode, c.Generation.Mode)
	}
	if c.Generation.FillRatio < 0 || c.Generation.FillRatio > 1 {
		return fmt.Errorf("generation.fill_ratio должен быть в [0, 1], получено %.3f", c.Generation.FillRatio)
	}
	if c.Generation.Magnitude < 0 {
		return errors.New("generation.magnitude не может быть отрицательным")
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.SavePath == "" {
			return errors.New("storage.save_path не задан")
		}
	case BackendBadger:
		if c.Storage.DataDir == "" || c.Storage.WorldName == "" {
			return errors.New("storage.data_dir и storage.world_name обязательны для badger")
		}
	default:
		return fmt.Errorf("неизвестное хранилище %q", c.Storage.Backend)
	}
	if c.Storage.AutosaveInterval < 0 {
		return errors.New("storage.autosave_interval не может быть отрицательным")
	}

	if c.Ray.MaxSteps < 0 || c.Ray.MaxDistance < 0 {
		return errors.New("лимиты ray не могут быть отрицательными")
	}
	return nil
}

// SunVector возвращает направление на солнце
func (w *WorldConfig) SunVector() (vec.Vec3Float, error) {
	if len(w.Sun) != 3 {
		return vec.Vec3Float{}, fmt.Errorf("world.sun должен содержать 3 числа, получено %d", len(w.Sun))
	}
	sun := vec.Vec3Float{X: w.Sun[0], Y: w.Sun[1], Z: w.Sun[2]}
	if sun.Length() == 0 {
		return vec.Vec3Float{}, errors.New("world.sun не может быть нулевым")
	}
	return sun, nil
}

// Params переводит настройки генерации в параметры генератора.
// Нулевой уровень моря означает половину высоты мира.
func (g *GenerationConfig) Params(size int) world.GenerationParams {
	params := world.GenerationParams{
		Mode:        g.Mode,
		SeaLevel:    g.SeaLevel,
		Magnitude:   g.Magnitude,
		FillRatio:   g.FillRatio,
		FlatLevel:   g.FlatLevel,
		PerlinScale: g.PerlinScale,
	}
	if params.SeaLevel == 0 {
		params.SeaLevel = size / 2
	}
	return params
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "VOXEL_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "VOXEL_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", берётся ENV VOXEL_CONFIG; если и он пуст - возвращаются дефолты.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация %s: %w", path, err)
	}
	return cfg, nil
}
