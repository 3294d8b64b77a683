package tile

import (
	"sync"

	"github.com/google/uuid"

	"github.com/annel0/planet-lod/internal/vec"
)

// State состояние хэндла тайла
type State int

const (
	StateHidden State = iota
	StateActive
)

// String возвращает строковое представление состояния
func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateHidden:
		return "Hidden"
	default:
		return "Unknown"
	}
}

// Handle живой экземпляр тайла. На один Identity существует не более
// одного хэндла за всё время жизни кэша; хэндлы переиспользуются при
// возврате наблюдателя на прежнюю глубину, а не создаются заново.
// InstanceID позволяет диагностике убедиться в переиспользовании.
type Handle struct {
	InstanceID uuid.UUID
	ID         Identity

	mu        sync.RWMutex
	state     State
	placement vec.Vec3F // Мировая позиция центра тайла
	geometry  *Geometry
	packed    []byte // Сжатая геометрия скрытого тайла (если включена компактация)
}

// NewHandle создаёт скрытый хэндл без геометрии
func NewHandle(id Identity) *Handle {
	return &Handle{
		InstanceID: uuid.New(),
		ID:         id,
		state:      StateHidden,
	}
}

// State возвращает текущее состояние
func (h *Handle) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// IsActive сообщает, активен ли хэндл
func (h *Handle) IsActive() bool {
	return h.State() == StateActive
}

// Activate переводит хэндл в активное состояние
func (h *Handle) Activate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = StateActive
}

// Hide скрывает хэндл; геометрия и размещение сохраняются
func (h *Handle) Hide() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = StateHidden
}

// Placement возвращает мировую позицию центра
func (h *Handle) Placement() vec.Vec3F {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.placement
}

// SetPlacement обновляет мировую позицию центра
func (h *Handle) SetPlacement(p vec.Vec3F) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.placement = p
}

// Geometry возвращает прикреплённую геометрию (nil, если не построена
// или упакована)
func (h *Handle) Geometry() *Geometry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.geometry
}

// HasGeometry сообщает, есть ли у хэндла геометрия (включая упакованную)
func (h *Handle) HasGeometry() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.geometry != nil || h.packed != nil
}

// AttachGeometry прикрепляет построенную геометрию
func (h *Handle) AttachGeometry(g *Geometry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.geometry = g
	h.packed = nil
}

// Pack сжимает геометрию скрытого хэндла для экономии памяти.
// Активные хэндлы не упаковываются.
func (h *Handle) Pack() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateActive || h.geometry == nil {
		return nil
	}
	data, err := packGeometry(h.geometry)
	if err != nil {
		return err
	}
	h.packed = data
	h.geometry = nil
	return nil
}

// Unpack восстанавливает геометрию из сжатого представления
func (h *Handle) Unpack() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.packed == nil {
		return nil
	}
	g, err := unpackGeometry(h.ID, h.packed)
	if err != nil {
		// Повреждённые данные бесполезны: сбрасываем, чтобы кэш
		// заказал перестроение вместо повторных неудачных распаковок
		h.packed = nil
		return err
	}
	h.geometry = g
	h.packed = nil
	return nil
}
