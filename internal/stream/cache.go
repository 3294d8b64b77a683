package stream

import (
	"sync"

	"github.com/annel0/planet-lod/internal/eventbus"
	"github.com/annel0/planet-lod/internal/logging"
	"github.com/annel0/planet-lod/internal/tile"
)

// Cache владеет хэндлами тайлов: создаёт при первом построении,
// переиспользует скрытые, скрывает выпавшие из целевого набора.
// Инвариант: на один Identity существует не более одного хэндла;
// хэндлы никогда не уничтожаются при смене глубины.
type Cache struct {
	mu            sync.RWMutex
	handles       map[tile.Identity]*tile.Handle
	registry      *tile.Registry
	bus           eventbus.EventBus
	compactHidden bool
}

// NewCache создаёт пустой кэш хэндлов
func NewCache(registry *tile.Registry, bus eventbus.EventBus, compactHidden bool) *Cache {
	return &Cache{
		handles:       make(map[tile.Identity]*tile.Handle),
		registry:      registry,
		bus:           bus,
		compactHidden: compactHidden,
	}
}

// Handle возвращает хэндл идентификатора, если он когда-либо создавался
func (c *Cache) Handle(id tile.Identity) (*tile.Handle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handles[id]
	return h, ok
}

// GetOrCreate возвращает существующий хэндл или создаёт новый.
// Единственная точка создания хэндлов — гарантия "не более одного".
func (c *Cache) GetOrCreate(id tile.Identity) *tile.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[id]; ok {
		return h
	}
	h := tile.NewHandle(id)
	c.handles[id] = h
	return h
}

// HandleCount возвращает общее число хэндлов (активных и скрытых)
func (c *Cache) HandleCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handles)
}

// ActiveCount возвращает число активных хэндлов
func (c *Cache) ActiveCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	count := 0
	for _, h := range c.handles {
		if h.IsActive() {
			count++
		}
	}
	return count
}

// ActiveHandles возвращает активные хэндлы указанной глубины
func (c *Cache) ActiveHandles(depth int) []*tile.Handle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*tile.Handle, 0)
	for id, h := range c.handles {
		if id.Depth == depth && h.IsActive() {
			out = append(out, h)
		}
	}
	return out
}

// Reconcile сводит живой набор хэндлов к целевому набору кандидатов.
// Сначала применяются деактивации, затем реактивации и заявки на
// построение: хэндл никогда не наблюдает две глубины одновременно.
// Повторный вызов с теми же входами — no-op.
func (c *Cache) Reconcile(depth int, candidates map[tile.Identity]struct{}, enqueue func(tile.Identity)) {
	// Фаза 1: скрыть всё, что выпало из набора или осталось на другой глубине
	c.mu.RLock()
	toHide := make([]*tile.Handle, 0)
	for id, h := range c.handles {
		if !h.IsActive() {
			continue
		}
		if _, wanted := candidates[id]; !wanted || id.Depth != depth {
			toHide = append(toHide, h)
		}
	}
	c.mu.RUnlock()

	for _, h := range toHide {
		h.Hide()
		tilesHidden.Inc()
		eventbus.PublishTile(c.bus, "stream", eventbus.EventTileHidden, tilePayload(h.ID))
		if c.compactHidden {
			if err := h.Pack(); err != nil {
				logging.Warn("Компактация геометрии %s не удалась: %v", h.ID, err)
			}
		}
	}

	// Фаза 2: реактивировать существующие хэндлы, заказать отсутствующие
	for id := range candidates {
		h, ok := c.Handle(id)
		if !ok || !h.HasGeometry() {
			enqueue(id)
			continue
		}
		c.Reactivate(h)
	}
}

// Reactivate возвращает скрытый хэндл в активное состояние, освежая
// размещение из реестра. Для уже активного хэндла — идемпотентно.
func (c *Cache) Reactivate(h *tile.Handle) {
	wasHidden := !h.IsActive()

	if err := h.Unpack(); err != nil {
		logging.Error("Распаковка геометрии %s не удалась: %v", h.ID, err)
		return
	}
	if entry, ok := c.registry.Lookup(h.ID); ok {
		h.SetPlacement(entry.CenterWorld)
	}
	h.Activate()

	if wasHidden {
		tilesReused.Inc()
		eventbus.PublishTile(c.bus, "stream", eventbus.EventTileReactivated, tilePayload(h.ID))
	}
}

func tilePayload(id tile.Identity) eventbus.TilePayload {
	return eventbus.TilePayload{Face: id.Face, X: id.X, Y: id.Y, Depth: id.Depth}
}
