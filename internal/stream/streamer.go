package stream

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/planet-lod/internal/config"
	"github.com/annel0/planet-lod/internal/eventbus"
	"github.com/annel0/planet-lod/internal/height"
	"github.com/annel0/planet-lod/internal/logging"
	"github.com/annel0/planet-lod/internal/tile"
	"github.com/annel0/planet-lod/internal/vec"
)

// Streamer владеет всеми компонентами стриминга тайлов и приводит их в
// движение двумя независимыми задачами: тиком видимости с фиксированной
// частотой (по wall-clock, не по кадрам) и срезом планировщика на каждый
// вызов Tick. Ни одна задача не блокируется: каждый вызов делает
// ограниченный объём работы и возвращает управление хосту.
type Streamer struct {
	registry *tile.Registry
	selector *Selector
	cache    *Cache
	sched    *Scheduler
	tracer   trace.Tracer

	baseResolution int
	maxDepth       int
	maxSpawns      int
	visInterval    time.Duration

	mu            sync.RWMutex
	viewer        vec.Vec3F
	targetDepth   int
	overrideOn    bool
	overrideDepth int
	lastVisTick   time.Time
}

// NewStreamer собирает подсистему стриминга. Реестр создаётся здесь и
// внедряется в отборщик и построитель: его жизненный цикл привязан к
// стримеру, а не к глобальному состоянию процесса.
func NewStreamer(cfg *config.Config, provider height.Provider, bus eventbus.EventBus) *Streamer {
	registry := tile.NewRegistry(cfg.Planet.BaseRadius)
	if cfg.Stream.MaxResidentDepths > 0 {
		registry.SetMaxResidentDepths(cfg.Stream.MaxResidentDepths)
	}

	builder := tile.NewBuilder(registry, provider)
	cache := NewCache(registry, bus, cfg.Stream.CompactHidden)

	return &Streamer{
		registry:       registry,
		selector:       NewSelector(registry, cfg),
		cache:          cache,
		sched:          NewScheduler(builder, cache, registry, bus),
		tracer:         otel.Tracer("planet-lod/stream"),
		baseResolution: cfg.Planet.BaseResolution,
		maxDepth:       cfg.Planet.MaxDepth,
		maxSpawns:      cfg.Stream.MaxSpawnsPerSlice,
		visInterval:    time.Second / time.Duration(cfg.Stream.VisibilityHz),
		viewer:         vec.Vec3F{X: cfg.Planet.MaxDistance},
		targetDepth:    -1, // Ещё не было ни одного тика видимости
	}
}

// SetViewer обновляет позицию наблюдателя (мировые координаты,
// сфера в начале координат)
func (s *Streamer) SetViewer(position vec.Vec3F) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewer = position
}

// Viewer возвращает текущую позицию наблюдателя
func (s *Streamer) Viewer() vec.Vec3F {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewer
}

// SetTargetDepth включает ручное переопределение глубины
// (для тестов и инструментов)
func (s *Streamer) SetTargetDepth(depth int) {
	if depth < 0 {
		depth = 0
	}
	if depth > s.maxDepth {
		depth = s.maxDepth
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrideOn = true
	s.overrideDepth = depth
}

// ClearDepthOverride возвращает автоматический выбор глубины
func (s *Streamer) ClearDepthOverride() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrideOn = false
}

// TargetDepth возвращает текущую целевую глубину
func (s *Streamer) TargetDepth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targetDepth
}

// Tick вызывается хостом каждый кадр. Тик видимости срабатывает по
// реальному времени независимо от частоты кадров; срез планировщика
// выполняется на каждый вызов.
func (s *Streamer) Tick(now time.Time) {
	s.mu.Lock()
	due := s.lastVisTick.IsZero() || now.Sub(s.lastVisTick) >= s.visInterval
	if due {
		s.lastVisTick = now
	}
	s.mu.Unlock()

	if due {
		s.VisibilityTick()
	}
	s.SchedulerSlice()
}

// VisibilityTick выполняет один тик видимости: выбирает целевую глубину,
// строит набор кандидатов и сводит к нему кэш хэндлов. Деактивации
// применяются раньше заявок на построение; результат последнего тика
// всегда побеждает.
func (s *Streamer) VisibilityTick() {
	_, span := s.tracer.Start(context.Background(), "visibility_tick")
	defer span.End()

	s.mu.Lock()
	viewer := s.viewer
	var depth int
	if s.overrideOn {
		depth = s.overrideDepth
	} else {
		depth = s.selector.DepthForDistance(viewer.Length())
	}
	depthChanged := depth != s.targetDepth
	s.targetDepth = depth
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("depth", depth))

	s.registry.Activate(depth)

	if depthChanged {
		s.sched.PruneStale(depth)
		logging.Debug("Целевая глубина изменена: %d (дистанция %.1f)", depth, viewer.Length())
	}

	candidates := s.selector.SelectAtDepth(viewer, depth)
	resolution := s.resolutionForDepth(depth)
	s.cache.Reconcile(depth, candidates, func(id tile.Identity) {
		s.sched.Enqueue(id, resolution, viewer)
	})

	queueLength.Set(float64(s.sched.QueueLen()))
	activeTiles.Set(float64(s.cache.ActiveCount()))
}

// SchedulerSlice выполняет один бюджетный срез планировщика
func (s *Streamer) SchedulerSlice() {
	s.mu.RLock()
	depth := s.targetDepth
	s.mu.RUnlock()
	if depth < 0 {
		return // До первого тика видимости строить нечего
	}

	_, span := s.tracer.Start(context.Background(), "scheduler_slice")
	defer span.End()

	activated := s.sched.RunSlice(depth, s.maxSpawns)
	if activated > 0 {
		span.SetAttributes(attribute.Int("activated", activated))
	}

	queueLength.Set(float64(s.sched.QueueLen()))
	activeTiles.Set(float64(s.cache.ActiveCount()))
}

// GetActiveTileHandles возвращает активные хэндлы текущей целевой глубины —
// единственная точка чтения для кода рендеринга.
func (s *Streamer) GetActiveTileHandles() []*tile.Handle {
	s.mu.RLock()
	depth := s.targetDepth
	s.mu.RUnlock()
	if depth < 0 {
		return nil
	}
	return s.cache.ActiveHandles(depth)
}

// resolutionForDepth выбирает плотность сетки тайла: глубже — плотнее.
// Разрешение влияет только на плотность вершин, никогда на значения высот.
func (s *Streamer) resolutionForDepth(depth int) int {
	return s.baseResolution + 4*depth
}

// Snapshot диагностический срез состояния подсистемы.
// Тесты и инструменты опираются на этот контракт, а не на внутренности.
type Snapshot struct {
	TargetDepth     int     `json:"target_depth"`
	DepthOverride   bool    `json:"depth_override"`
	ViewerDistance  float64 `json:"viewer_distance"`
	QueueLength     int     `json:"queue_length"`
	HandleCount     int     `json:"handle_count"`
	ActiveHandles   int     `json:"active_handles"`
	ActivatedDepths []int   `json:"activated_depths"`
}

// DebugSnapshot возвращает согласованный снимок состояния
func (s *Streamer) DebugSnapshot() Snapshot {
	s.mu.RLock()
	depth := s.targetDepth
	override := s.overrideOn
	viewer := s.viewer
	s.mu.RUnlock()

	return Snapshot{
		TargetDepth:     depth,
		DepthOverride:   override,
		ViewerDistance:  viewer.Length(),
		QueueLength:     s.sched.QueueLen(),
		HandleCount:     s.cache.HandleCount(),
		ActiveHandles:   s.cache.ActiveCount(),
		ActivatedDepths: s.registry.ActivatedDepths(),
	}
}
