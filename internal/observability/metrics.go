package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorldStatsProvider - то, что экспортер читает у сессии мира
type WorldStatsProvider interface {
	Size() int
	Version() uint64
	Dirty() bool
}

// MetricsExporter периодически снимает состояние мира в Gauge
// и при необходимости обслуживает отдельный HTTP-эндпоинт /metrics.
type MetricsExporter struct {
	source   WorldStatsProvider
	interval time.Duration
	server   *http.Server

	quit chan struct{}
	done chan struct{}

	version prometheus.Gauge
	dirty   prometheus.Gauge
	size    prometheus.Gauge
}

// NewMetricsExporter создаёт экспортер и регистрирует метрики в reg
func NewMetricsExporter(source WorldStatsProvider, reg prometheus.Registerer) (*MetricsExporter, error) {
	me := &MetricsExporter{
		source:   source,
		interval: time.Second,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		version: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Name:      "world_version",
			Help:      "Текущая версия мира, растёт с каждым изменением.",
		}),
		dirty: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Name:      "world_dirty",
			Help:      "1, если в мире есть несохранённые изменения.",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Name:      "world_size",
			Help:      "Длина ребра мира в вокселях.",
		}),
	}

	for _, c := range []prometheus.Collector{me.version, me.dirty, me.size} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return me, nil
}

// Update снимает текущее состояние мира
func (m *MetricsExporter) Update() {
	m.version.Set(float64(m.source.Version()))
	m.size.Set(float64(m.source.Size()))
	if m.source.Dirty() {
		m.dirty.Set(1)
	} else {
		m.dirty.Set(0)
	}
}

// Start запускает фоновое обновление метрик.
// Если addr не пуст, на нём дополнительно поднимается HTTP-эндпоинт Prometheus.
func (m *MetricsExporter) Start(addr string) {
	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		m.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		go func() {
			logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
			if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
			}
		}()
	}
	go m.loop()
}

// Stop останавливает обновление метрик и HTTP-эндпоинт
func (m *MetricsExporter) Stop(ctx context.Context) error {
	close(m.quit)
	<-m.done

	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

func (m *MetricsExporter) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer close(m.done)

	m.Update()
	for {
		select {
		case <-ticker.C:
			m.Update()
		case <-m.quit:
			return
		}
	}
}
