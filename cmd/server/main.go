package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxel-world/internal/api"
	"github.com/annel0/voxel-world/internal/app"
	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/observability"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию ENV VOXEL_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if err := logging.InitDefaultLogger(cfg.Logging.Component, cfg.Logging.Dir); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	logging.SetLevel(logging.ParseLevel(cfg.Logging.Level))

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logging.Info("🌍 Запуск сервера воксельного мира %d^3...", cfg.World.Size)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Telemetry.Enabled, cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("ошибка инициализации OpenTelemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
		}
	}()

	// === РЕГИСТР БЛОКОВ ===
	registry, err := block.NewDefaultRegistry()
	if err != nil {
		return err
	}
	if cfg.Blocks.Definitions != "" {
		if err := registry.LoadDefinitions(cfg.Blocks.Definitions); err != nil {
			return err
		}
	}
	logging.Debug("Зарегистрировано блоков: %d", registry.Len())

	// === ХРАНИЛИЩЕ ===
	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error("❌ Ошибка закрытия хранилища: %v", err)
		}
	}()

	// === МИР ===
	sun, err := cfg.World.SunVector()
	if err != nil {
		return err
	}

	generator := world.NewWorldGenerator(cfg.World.Size, registry, cfg.Generation.Seed)
	params := cfg.Generation.Params(cfg.World.Size)

	grid, outcome, err := app.LoadOrGenerate(ctx, app.LoadOptions{
		Store:     store,
		Size:      cfg.World.Size,
		Registry:  registry,
		Generator: generator,
		Params:    params,
	})
	if err != nil {
		return err
	}
	if err := grid.SetSun(sun); err != nil {
		return err
	}
	logging.Info("✅ Мир готов (%s), сид генератора %d", outcome, generator.Seed)

	session := world.NewWorld(grid, generator)
	session.SetRayLimits(cfg.Ray.MaxSteps, cfg.Ray.MaxDistance)
	if cfg.Generation.DebugMarkers && session.PlaceDebugMarkers() {
		logging.Debug("Отладочные маркеры расставлены")
	}
	session.MarkSaved()

	go session.RunAutoSave(ctx, cfg.Storage.AutosaveInterval, store.Save)

	// === МЕТРИКИ ===
	exporter, err := observability.NewMetricsExporter(session, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("ошибка регистрации метрик мира: %w", err)
	}
	metricsAddr := ""
	if cfg.Server.MetricsPort > 0 || os.Getenv("VOXEL_METRICS_PORT") != "" {
		metricsAddr = fmt.Sprintf(":%d", cfg.Server.GetMetricsPort())
	}
	exporter.Start(metricsAddr)

	// === REST API ===
	restServer := api.NewRestServer(api.Config{
		Port:          fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		World:         session,
		Store:         store,
		Registry:      registry,
		DefaultParams: params,
		DebugMarkers:  cfg.Generation.DebugMarkers,
	})
	if err := restServer.Start(); err != nil {
		return fmt.Errorf("ошибка запуска REST API: %w", err)
	}

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   💾 Хранилище: %s", store.Location())
	logging.Info("   🌐 REST API: http://localhost:%d", cfg.Server.GetRESTPort())

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := restServer.Stop(stopCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	if err := exporter.Stop(stopCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}

	if session.Dirty() {
		if err := session.Save(store.Save); err != nil {
			logging.Error("❌ Ошибка сохранения мира при выходе: %v", err)
		} else {
			logging.Info("💾 Мир сохранён: %s", store.Location())
		}
	}

	logging.Info("👋 Сервер успешно остановлен")
	return nil
}

// openStore открывает хранилище мира из конфигурации
func openStore(cfg config.StorageConfig) (storage.WorldStore, error) {
	switch cfg.Backend {
	case config.BackendBadger:
		ws, err := storage.NewWorldStorage(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("ошибка открытия BadgerDB %s: %w", cfg.DataDir, err)
		}
		return ws.Store(cfg.WorldName), nil
	default:
		return storage.NewFileStore(cfg.SavePath), nil
	}
}
