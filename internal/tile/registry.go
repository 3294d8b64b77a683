package tile

import (
	"sync"

	"github.com/annel0/planet-lod/internal/geo"
	"github.com/annel0/planet-lod/internal/logging"
	"github.com/annel0/planet-lod/internal/vec"
)

// RegistryEntry предвычисленные метаданные тайла. Создаётся один раз при
// активации глубины и далее не меняется; отбор видимости и построитель
// геометрии читают центр из одной и той же записи.
type RegistryEntry struct {
	ID          Identity
	Normal      vec.Vec3F    // Единичное направление на центр тайла
	CenterWorld vec.Vec3F    // Мировая позиция центра (на базовой сфере)
	Corners     [3]vec.Vec3F // Направления на вершины тайла
}

// Registry кэш метаданных тайлов по глубинам.
// Записи живут до конца процесса; память ограничена максимальной
// активированной глубиной (опционально — лимитом резидентных глубин).
type Registry struct {
	mu                sync.RWMutex
	radius            float64
	entries           map[Identity]RegistryEntry
	depths            map[int]struct{}
	activationOrder   []int
	maxResidentDepths int // 0 = без лимита
}

// NewRegistry создаёт пустой реестр для сферы указанного радиуса
func NewRegistry(radius float64) *Registry {
	return &Registry{
		radius:  radius,
		entries: make(map[Identity]RegistryEntry),
		depths:  make(map[int]struct{}),
	}
}

// SetMaxResidentDepths ограничивает число одновременно резидентных глубин.
// При превышении лимита вытесняется глубина, активированная раньше всех.
func (r *Registry) SetMaxResidentDepths(limit int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxResidentDepths = limit
}

// Activate заполняет реестр всеми тайлами глубины: 20 * 4^depth записей.
// Повторная активация уже заполненной глубины — no-op.
func (r *Registry) Activate(depth int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.depths[depth]; exists {
		return
	}

	if r.maxResidentDepths > 0 && len(r.activationOrder) >= r.maxResidentDepths {
		evicted := r.activationOrder[0]
		r.activationOrder = r.activationOrder[1:]
		r.evictLocked(evicted)
		logging.Warn("Реестр тайлов: вытеснена глубина %d (лимит %d)", evicted, r.maxResidentDepths)
	}

	n := geo.TilesPerEdge(depth)
	for face := 0; face < geo.FaceCount; face++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				id := Identity{Face: face, X: x, Y: y, Depth: depth}
				normal := id.CenterDirection()
				r.entries[id] = RegistryEntry{
					ID:          id,
					Normal:      normal,
					CenterWorld: normal.Scale(r.radius),
					Corners:     id.CornerDirections(),
				}
			}
		}
	}

	r.depths[depth] = struct{}{}
	r.activationOrder = append(r.activationOrder, depth)
	logging.Debug("Реестр тайлов: активирована глубина %d (%d записей)", depth, geo.FaceCount*n*n)
}

// evictLocked удаляет записи глубины; вызывается только под write-lock
func (r *Registry) evictLocked(depth int) {
	for id := range r.entries {
		if id.Depth == depth {
			delete(r.entries, id)
		}
	}
	delete(r.depths, depth)
}

// Lookup возвращает запись тайла, если его глубина была активирована
func (r *Registry) Lookup(id Identity) (RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	return entry, ok
}

// EntryCount возвращает число записей на глубине
func (r *Registry) EntryCount(depth int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for id := range r.entries {
		if id.Depth == depth {
			count++
		}
	}
	return count
}

// ActivatedDepths возвращает список резидентных глубин в порядке активации
func (r *Registry) ActivatedDepths() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int, len(r.activationOrder))
	copy(out, r.activationOrder)
	return out
}

// ForEachAtDepth вызывает fn для каждой записи глубины, пока fn возвращает true.
// Используется геометрическим отбором видимости.
func (r *Registry) ForEachAtDepth(depth int, fn func(RegistryEntry) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, entry := range r.entries {
		if id.Depth != depth {
			continue
		}
		if !fn(entry) {
			return
		}
	}
}

// Radius возвращает базовый радиус сферы реестра
func (r *Registry) Radius() float64 {
	return r.radius
}
