package stream

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/annel0/planet-lod/internal/eventbus"
	"github.com/annel0/planet-lod/internal/logging"
	"github.com/annel0/planet-lod/internal/tile"
	"github.com/annel0/planet-lod/internal/vec"
)

// spawnRequest отложенная заявка на построение тайла
type spawnRequest struct {
	id         tile.Identity
	resolution int
	distance   float64 // Дистанция до наблюдателя на момент постановки
	order      uint64  // Порядок постановки (разрыв ничьих)
	index      int     // Позиция в куче
}

// requestQueue минимальная куча заявок по дистанции
type requestQueue []*spawnRequest

func (q requestQueue) Len() int { return len(q) }

func (q requestQueue) Less(i, j int) bool {
	if q[i].distance != q[j].distance {
		return q[i].distance < q[j].distance
	}
	return q[i].order < q[j].order
}

func (q requestQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *requestQueue) Push(x interface{}) {
	req := x.(*spawnRequest)
	req.index = len(*q)
	*q = append(*q, req)
}

func (q *requestQueue) Pop() interface{} {
	old := *q
	n := len(old)
	req := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return req
}

// Scheduler кооперативный планировщик построения тайлов.
// За один срез обрабатывается не больше бюджета заявок; остальные ждут
// следующего кадра. Заявки упорядочены по дистанции до наблюдателя.
type Scheduler struct {
	mu        sync.Mutex
	queue     requestQueue
	pending   map[tile.Identity]*spawnRequest
	nextOrder uint64

	builder  *tile.Builder
	cache    *Cache
	registry *tile.Registry
	bus      eventbus.EventBus
}

// NewScheduler создаёт планировщик
func NewScheduler(builder *tile.Builder, cache *Cache, registry *tile.Registry, bus eventbus.EventBus) *Scheduler {
	return &Scheduler{
		pending:  make(map[tile.Identity]*spawnRequest),
		builder:  builder,
		cache:    cache,
		registry: registry,
		bus:      bus,
	}
}

// Enqueue ставит заявку на построение. Дистанция фиксируется в момент
// постановки по центру из реестра. Повторная постановка того же
// идентификатора игнорируется.
func (s *Scheduler) Enqueue(id tile.Identity, resolution int, viewer vec.Vec3F) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pending[id]; exists {
		return
	}

	distance := viewer.Length()
	if entry, ok := s.registry.Lookup(id); ok {
		distance = viewer.DistanceTo(entry.CenterWorld)
	}

	req := &spawnRequest{
		id:         id,
		resolution: resolution,
		distance:   distance,
		order:      s.nextOrder,
	}
	s.nextOrder++
	s.pending[id] = req
	heap.Push(&s.queue, req)
}

// QueueLen возвращает число ожидающих заявок
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// PruneStale удаляет заявки, глубина которых не совпадает с целевой.
// Это не ошибка, а неявная отмена устаревшей работы при смене глубины.
func (s *Scheduler) PruneStale(depth int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make(requestQueue, 0, len(s.queue))
	pruned := 0
	for _, req := range s.queue {
		if req.id.Depth == depth {
			kept = append(kept, req)
		} else {
			delete(s.pending, req.id)
			pruned++
		}
	}
	if pruned > 0 {
		for i := range kept {
			kept[i].index = i
		}
		heap.Init(&kept)
		s.queue = kept
		stalePruned.Add(float64(pruned))
		logging.Debug("Планировщик: отброшено %d устаревших заявок (цель %d)", pruned, depth)
	}
	return pruned
}

// pop снимает ближайшую заявку с кучи
func (s *Scheduler) pop() *spawnRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	req := heap.Pop(&s.queue).(*spawnRequest)
	delete(s.pending, req.id)
	return req
}

// RunSlice обрабатывает до budget заявок одного среза и возвращает число
// активированных тайлов. Устаревшие заявки снимаются без расхода бюджета;
// отказ построения одной заявки не блокирует очередь.
func (s *Scheduler) RunSlice(depth int, budget int) int {
	activated := 0
	processed := 0

	for processed < budget {
		req := s.pop()
		if req == nil {
			break
		}

		// Глубина устарела после постановки — снимаем и продолжаем
		if req.id.Depth != depth {
			stalePruned.Inc()
			continue
		}

		// Хэндл мог материализоваться, пока заявка ждала — реактивируем
		if h, ok := s.cache.Handle(req.id); ok && h.HasGeometry() {
			s.cache.Reactivate(h)
			processed++
			if h.IsActive() {
				activated++
			}
			continue
		}

		processed++
		g, err := s.buildSafe(req)
		if err != nil {
			spawnFailures.Inc()
			logging.Error("Построение %s не удалось: %v", req.id, err)
			eventbus.PublishTile(s.bus, "stream", eventbus.EventTileSpawnFailed, eventbus.TilePayload{
				Face: req.id.Face, X: req.id.X, Y: req.id.Y, Depth: req.id.Depth,
				Error: err.Error(),
			})
			continue
		}

		h := s.cache.GetOrCreate(req.id)
		h.AttachGeometry(g)
		if entry, ok := s.registry.Lookup(req.id); ok {
			h.SetPlacement(entry.CenterWorld)
		}
		h.Activate()
		activated++

		tilesSpawned.Inc()
		eventbus.PublishTile(s.bus, "stream", eventbus.EventTileSpawned, tilePayload(req.id))
	}

	return activated
}

// buildSafe изолирует панику построителя в ошибку заявки
func (s *Scheduler) buildSafe(req *spawnRequest) (g *tile.Geometry, err error) {
	defer func() {
		if r := recover(); r != nil {
			g = nil
			err = fmt.Errorf("паника построителя: %v", r)
		}
	}()
	return s.builder.Build(req.id, req.resolution)
}
