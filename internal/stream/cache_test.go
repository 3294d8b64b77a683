package stream

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/planet-lod/internal/tile"
	"github.com/annel0/planet-lod/internal/vec"
)

// spawnAll материализует все заявки очереди без ограничения числа срезов
func spawnAll(sched *Scheduler, depth int) {
	for sched.QueueLen() > 0 {
		sched.RunSlice(depth, 16)
	}
}

func reconcileSet(ids []tile.Identity) map[tile.Identity]struct{} {
	set := make(map[tile.Identity]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestCacheSingleHandlePerIdentity(t *testing.T) {
	registry := tile.NewRegistry(1000.0)
	cache := NewCache(registry, nil, false)

	id := tile.Identity{Face: 4, Depth: 0}
	h1 := cache.GetOrCreate(id)
	h2 := cache.GetOrCreate(id)

	assert.Same(t, h1, h2)
	assert.Equal(t, 1, cache.HandleCount())
}

func TestReconcileHidesDropped(t *testing.T) {
	registry, cache, sched := newTestPipeline(t)
	registry.Activate(0)
	viewer := vec.Vec3F{X: 3000}

	all := allIdentities(0)
	cache.Reconcile(0, reconcileSet(all), func(id tile.Identity) {
		sched.Enqueue(id, 4, viewer)
	})
	spawnAll(sched, 0)
	require.Equal(t, 20, cache.ActiveCount())

	// Сужаем набор до половины: выпавшие скрываются, не уничтожаются
	kept := all[:10]
	cache.Reconcile(0, reconcileSet(kept), func(tile.Identity) {
		t.Error("существующие хэндлы не должны перезаказываться")
	})

	assert.Equal(t, 10, cache.ActiveCount())
	assert.Equal(t, 20, cache.HandleCount(), "скрытые хэндлы обязаны сохраниться")

	for _, id := range all[10:] {
		h, ok := cache.Handle(id)
		require.True(t, ok)
		assert.False(t, h.IsActive())
		assert.True(t, h.HasGeometry(), "геометрия скрытого тайла сохраняется")
	}
}

func TestReconcileReusesHandles(t *testing.T) {
	registry, cache, sched := newTestPipeline(t)
	registry.Activate(0)
	registry.Activate(1)
	viewer := vec.Vec3F{X: 3000}
	enqueue := func(id tile.Identity) { sched.Enqueue(id, 4, viewer) }

	// Цикл глубин 0 -> 1 -> 0: хэндлы глубины 0 переиспользуются
	cache.Reconcile(0, reconcileSet(allIdentities(0)), enqueue)
	spawnAll(sched, 0)

	before := make(map[tile.Identity]uuid.UUID)
	for _, h := range cache.ActiveHandles(0) {
		before[h.ID] = h.InstanceID
	}
	require.Len(t, before, 20)

	cache.Reconcile(1, reconcileSet(allIdentities(1)), enqueue)
	spawnAll(sched, 1)
	assert.Equal(t, 80, cache.ActiveCount())
	assert.Equal(t, 0, len(cache.ActiveHandles(0)), "тайлы глубины 0 скрыты")

	cache.Reconcile(0, reconcileSet(allIdentities(0)), func(id tile.Identity) {
		t.Errorf("тайл %s перезаказан вместо переиспользования", id)
	})

	after := cache.ActiveHandles(0)
	require.Len(t, after, 20)
	for _, h := range after {
		assert.Equal(t, before[h.ID], h.InstanceID,
			"возврат на глубину 0 обязан вернуть тот же экземпляр %s", h.ID)
	}
	assert.Equal(t, 100, cache.HandleCount())
}

func TestReconcileIdempotent(t *testing.T) {
	registry, cache, sched := newTestPipeline(t)
	registry.Activate(0)
	viewer := vec.Vec3F{X: 3000}

	set := reconcileSet(allIdentities(0))
	cache.Reconcile(0, set, func(id tile.Identity) { sched.Enqueue(id, 4, viewer) })
	spawnAll(sched, 0)

	for i := 0; i < 5; i++ {
		cache.Reconcile(0, set, func(id tile.Identity) {
			t.Errorf("итерация %d: лишняя заявка %s", i, id)
		})
		assert.Equal(t, 20, cache.ActiveCount())
		assert.Equal(t, 20, cache.HandleCount())
	}
}

func TestReconcileRandomizedNoDuplicates(t *testing.T) {
	registry, cache, sched := newTestPipeline(t)
	registry.Activate(0)
	registry.Activate(1)
	registry.Activate(2)
	viewer := vec.Vec3F{X: 3000}
	enqueue := func(id tile.Identity) { sched.Enqueue(id, 4, viewer) }

	pools := [][]tile.Identity{allIdentities(0), allIdentities(1), allIdentities(2)}
	rng := rand.New(rand.NewSource(42))

	instances := make(map[tile.Identity]uuid.UUID)
	for iter := 0; iter < 1000; iter++ {
		depth := rng.Intn(3)
		pool := pools[depth]

		// Случайное подмножество целевой глубины
		subset := make([]tile.Identity, 0)
		for _, id := range pool {
			if rng.Float64() < 0.3 {
				subset = append(subset, id)
			}
		}

		sched.PruneStale(depth)
		cache.Reconcile(depth, reconcileSet(subset), enqueue)
		spawnAll(sched, depth)

		// Никогда не существует второго хэндла одного идентификатора
		for _, h := range cache.ActiveHandles(depth) {
			if prev, seen := instances[h.ID]; seen {
				require.Equal(t, prev, h.InstanceID,
					"итерация %d: у %s сменился экземпляр", iter, h.ID)
			} else {
				instances[h.ID] = h.InstanceID
			}
		}

		// Активны только тайлы целевой глубины
		assert.Equal(t, len(cache.ActiveHandles(depth)), cache.ActiveCount(),
			"итерация %d: активные тайлы чужой глубины", iter)
	}

	assert.LessOrEqual(t, cache.HandleCount(), 20+80+320)
}

func TestReconcileWithCompaction(t *testing.T) {
	registry := tile.NewRegistry(1000.0)
	cache := NewCache(registry, nil, true)
	builder := tile.NewBuilder(registry, heightSpy{})
	sched := NewScheduler(builder, cache, registry, nil)
	registry.Activate(0)
	viewer := vec.Vec3F{X: 3000}
	enqueue := func(id tile.Identity) { sched.Enqueue(id, 8, viewer) }

	all := reconcileSet(allIdentities(0))
	cache.Reconcile(0, all, enqueue)
	spawnAll(sched, 0)
	require.Equal(t, 20, cache.ActiveCount())

	// Скрытие упаковывает геометрию
	cache.Reconcile(0, reconcileSet(nil), func(tile.Identity) {})
	for _, id := range allIdentities(0) {
		h, ok := cache.Handle(id)
		require.True(t, ok)
		assert.Nil(t, h.Geometry(), "%s: буферы должны быть упакованы", id)
		assert.True(t, h.HasGeometry(), "%s: упакованная геометрия присутствует", id)
	}

	// Возврат распаковывает без перезаказа, геометрия эквивалентна
	cache.Reconcile(0, all, func(id tile.Identity) {
		t.Errorf("тайл %s перезаказан после компактации", id)
	})
	for _, h := range cache.ActiveHandles(0) {
		g := h.Geometry()
		require.NotNil(t, g)
		assert.Equal(t, (8+1)*(8+2)/2, len(g.Vertices))
	}
}

// heightSpy детерминированный провайдер с нетривиальными высотами
type heightSpy struct{}

func (heightSpy) Sample(d vec.Vec3F) float64 {
	return 20 * d.X * d.Y * d.Z
}
