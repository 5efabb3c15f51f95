package world

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Метрики мира:
// * voxel_generation_duration_seconds{mode} - histogram
// * voxel_raycasts_total{result} - counter (hit/exhausted)
// * voxel_block_writes_total{result} - counter (ok/rejected)
var (
	generationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "voxel",
		Name:      "generation_duration_seconds",
		Help:      "Длительность генерации мира.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"mode"})

	raycastsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voxel",
		Name:      "raycasts_total",
		Help:      "Общее число трассировок лучей по результату.",
	}, []string{"result"})

	blockWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voxel",
		Name:      "block_writes_total",
		Help:      "Запросы на запись блоков по результату.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(generationDuration, raycastsTotal, blockWritesTotal)
}

func observeBlockWrite(ok bool) {
	if ok {
		blockWritesTotal.WithLabelValues("ok").Inc()
	} else {
		blockWritesTotal.WithLabelValues("rejected").Inc()
	}
}
