package tile

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Метрики построителя геометрии.
// * planet_geometry_build_seconds — histogram времени построения тайла
// * planet_sample_failures_total — counter отказов провайдера высот
var (
	buildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "planet",
		Name:      "geometry_build_seconds",
		Help:      "Длительность построения геометрии одного тайла.",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})
	sampleFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "planet",
		Name:      "sample_failures_total",
		Help:      "Число вершин, для которых провайдер высот аварийно завершился.",
	})
)

func init() {
	prometheus.MustRegister(buildDuration, sampleFailures)
}
