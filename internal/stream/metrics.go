package stream

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Метрики жизненного цикла тайлов.
// Отказы построения и маппинга наружу не всплывают — счётчики и логи
// являются единственным способом их наблюдать.
var (
	tilesSpawned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "planet",
		Name:      "tiles_spawned_total",
		Help:      "Число построенных с нуля тайлов.",
	})
	tilesReused = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "planet",
		Name:      "tiles_reused_total",
		Help:      "Число реактиваций скрытых хэндлов без перестроения.",
	})
	tilesHidden = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "planet",
		Name:      "tiles_hidden_total",
		Help:      "Число переводов хэндлов в скрытое состояние.",
	})
	spawnFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "planet",
		Name:      "spawn_failures_total",
		Help:      "Число запросов, отброшенных из-за отказа построения.",
	})
	stalePruned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "planet",
		Name:      "stale_pruned_total",
		Help:      "Число запросов, отброшенных из-за смены целевой глубины.",
	})
	mappingFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "planet",
		Name:      "mapping_failures_total",
		Help:      "Число зондирующих лучей с вырожденной проекцией на грань.",
	})
	queueLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "planet",
		Name:      "spawn_queue_length",
		Help:      "Текущая длина очереди отложенных построений.",
	})
	activeTiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "planet",
		Name:      "active_tiles",
		Help:      "Число активных тайлов на текущей целевой глубине.",
	})
)

func init() {
	prometheus.MustRegister(
		tilesSpawned, tilesReused, tilesHidden,
		spawnFailures, stalePruned, mappingFailures,
		queueLength, activeTiles,
	)
}
