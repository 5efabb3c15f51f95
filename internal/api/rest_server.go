package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/middleware"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer представляет REST API мира: выгрузку вокселей для рендерера,
// запросы к блокам, трассировку лучей и управление генерацией
type RestServer struct {
	router     *gin.Engine
	httpServer *http.Server
	port       string
	metrics    *ServerMetrics
	voxels     *voxelCache
	logger     *logging.Logger

	world         *world.World
	store         storage.WorldStore
	registry      *block.Registry
	defaultParams world.GenerationParams
	debugMarkers  bool
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port          string                 // порт для запуска сервера, например ":8088"
	World         *world.World           // сессия мира
	Store         storage.WorldStore     // хранилище для /api/world/save, может быть nil
	Registry      *block.Registry        // регистр блоков
	DefaultParams world.GenerationParams // параметры генерации по умолчанию
	DebugMarkers  bool                   // ставить маркеры после регенерации
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}

	// Устанавливаем режим релиза для gin, если тесты не выставили свой
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	// otelgin идёт первым, чтобы логгер видел trace-ID спана
	router.Use(otelgin.Middleware("voxel_api"))

	loggerMw := middleware.NewRequestLogger()
	router.Use(loggerMw.Handler())

	promMw := middleware.NewPrometheusMiddleware("voxel_api")
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	server := &RestServer{
		router:        router,
		port:          config.Port,
		metrics:       NewServerMetrics(),
		voxels:        newVoxelCache(),
		logger:        logging.GetAPILogger(),
		world:         config.World,
		store:         config.Store,
		registry:      config.Registry,
		defaultParams: config.DefaultParams,
		debugMarkers:  config.DebugMarkers,
	}

	// Настраиваем маршруты
	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Accept-Encoding, If-None-Match")
		c.Header("Access-Control-Expose-Headers", "X-World-Version, X-World-Size, ETag, "+middleware.TraceHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	api := rs.router.Group("/api")
	{
		api.GET("/world", rs.handleWorldInfo)
		api.GET("/world/voxels", rs.handleVoxels)
		api.POST("/world/generate", rs.handleGenerate)
		api.POST("/world/save", rs.handleSave)

		api.GET("/blocks", rs.handleBlockDefinitions)
		api.GET("/blocks/:x/:y/:z", rs.handleGetBlock)
		api.PUT("/blocks/:x/:y/:z", rs.handleSetBlock)

		api.POST("/raycast", rs.handleRaycast)
		api.GET("/stats", rs.handleStats)
	}

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// Handler возвращает http.Handler сервера
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"time":          time.Now().Unix(),
		"world_version": rs.world.Version(),
	})
}

// Start запускает HTTP сервер в отдельной горутине
func (rs *RestServer) Start() error {
	rs.httpServer = &http.Server{
		Addr:              rs.port,
		Handler:           rs.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rs.logger.Error("❌ Ошибка REST API сервера: %v", err)
		}
	}()

	rs.logger.Info("✅ REST API сервер запущен на http://localhost%s", rs.port)
	rs.logger.Info("📋 Доступные эндпоинты:")
	rs.logger.Info("   GET  /health                - Проверка состояния")
	rs.logger.Info("   GET  /api/world             - Описание мира")
	rs.logger.Info("   GET  /api/world/voxels      - Сырой буфер вокселей (zstd по Accept-Encoding)")
	rs.logger.Info("   POST /api/world/generate    - Регенерация мира")
	rs.logger.Info("   POST /api/world/save        - Сохранение мира")
	rs.logger.Info("   GET  /api/blocks            - Регистр блоков")
	rs.logger.Info("   GET  /api/blocks/:x/:y/:z   - Чтение блока")
	rs.logger.Info("   PUT  /api/blocks/:x/:y/:z   - Запись блока")
	rs.logger.Info("   POST /api/raycast           - Трассировка луча")
	rs.logger.Info("   GET  /api/stats             - Статистика сервера")
	rs.logger.Info("   GET  /metrics               - Метрики Prometheus")
	return nil
}

// Stop останавливает HTTP сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	rs.logger.Info("🛑 Остановка REST API сервера...")
	defer rs.voxels.Close()

	if rs.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := rs.httpServer.Shutdown(ctx); err != nil {
		rs.logger.Error("❌ Ошибка при остановке HTTP сервера: %v", err)
		return err
	}
	return nil
}
