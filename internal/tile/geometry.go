package tile

import (
	"fmt"
	"time"

	"github.com/annel0/planet-lod/internal/geo"
	"github.com/annel0/planet-lod/internal/height"
	"github.com/annel0/planet-lod/internal/vec"
)

// Geometry вершинный и индексный буферы одного тайла.
// Позиции хранятся как локальные смещения относительно CenterWorld,
// чтобы размещение хэндла и сама геометрия были независимы.
type Geometry struct {
	ID          Identity
	Resolution  int
	Vertices    []vec.Vec3F // Локальные смещения вершин
	Normals     []vec.Vec3F // Сферические нормали (единичные направления)
	UVs         [][2]float32
	Indices     []uint32
	CenterWorld vec.Vec3F
}

// VertexCount возвращает число вершин треугольной сетки разрешения R
func VertexCount(resolution int) int {
	return (resolution + 1) * (resolution + 2) / 2
}

// Builder строит геометрию тайлов по реестру и провайдеру высот.
// Построение детерминировано: вершины вычисляются только из глобальных
// барицентрических координат, никогда из локальных координат тайла.
type Builder struct {
	registry *Registry
	provider height.Provider
	radius   float64
}

// NewBuilder создаёт построитель геометрии
func NewBuilder(registry *Registry, provider height.Provider) *Builder {
	return &Builder{
		registry: registry,
		provider: provider,
		radius:   registry.Radius(),
	}
}

// Build строит геометрию тайла с указанным разрешением (сегментов на ребро).
// Требует активированной в реестре глубины тайла: центр берётся из записи
// реестра, чтобы совпадать с центром, который видел отбор видимости.
func (b *Builder) Build(id Identity, resolution int) (*Geometry, error) {
	if resolution < 1 {
		return nil, fmt.Errorf("недопустимое разрешение %d для %s", resolution, id)
	}
	entry, ok := b.registry.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("глубина %d не активирована в реестре (%s)", id.Depth, id)
	}

	started := time.Now()

	corners := geo.TileCornersBary(id.X, id.Y, id.Depth)
	au, av := corners[0][0], corners[0][1]
	bu, bv := corners[1][0], corners[1][1]
	cu, cv := corners[2][0], corners[2][1]

	r := resolution
	g := &Geometry{
		ID:          id,
		Resolution:  r,
		Vertices:    make([]vec.Vec3F, 0, VertexCount(r)),
		Normals:     make([]vec.Vec3F, 0, VertexCount(r)),
		UVs:         make([][2]float32, 0, VertexCount(r)),
		Indices:     make([]uint32, 0, 3*r*r),
		CenterWorld: entry.CenterWorld,
	}

	// Вершины тайла: ряд j содержит r+1-j точек
	for j := 0; j <= r; j++ {
		for i := 0; i <= r-j; i++ {
			fi := float64(i) / float64(r)
			fj := float64(j) / float64(r)

			// Глобальная барицентрическая координата: смещение тайла
			// внутри грани уже учтено в его вершинах
			gu := au + (bu-au)*fi + (cu-au)*fj
			gv := av + (bv-av)*fi + (cv-av)*fj

			dir := geo.FaceBaryToDirection(id.Face, gu, gv)
			h := b.sampleHeight(dir)

			world := dir.Scale(b.radius + h)
			g.Vertices = append(g.Vertices, world.Sub(entry.CenterWorld))
			g.Normals = append(g.Normals, dir)
			g.UVs = append(g.UVs, [2]float32{float32(fi), float32(fj)})
		}
	}

	// Ориентация определяется один раз по направлениям вершин тайла
	// (без высот) и применяется ко всем треугольникам единообразно
	e1 := entry.Corners[1].Sub(entry.Corners[0])
	e2 := entry.Corners[2].Sub(entry.Corners[0])
	flip := e1.Cross(e2).Dot(entry.Normal) < 0

	offset := func(j int) int {
		return j*(r+1) - j*(j-1)/2
	}
	emit := func(i0, i1, i2 int) {
		if flip {
			i1, i2 = i2, i1
		}
		g.Indices = append(g.Indices, uint32(i0), uint32(i1), uint32(i2))
	}

	for j := 0; j < r; j++ {
		rowBase := offset(j)
		nextBase := offset(j + 1)
		for i := 0; i < r-j; i++ {
			emit(rowBase+i, rowBase+i+1, nextBase+i)
			if i < r-j-1 {
				emit(rowBase+i+1, nextBase+i+1, nextBase+i)
			}
		}
	}

	buildDuration.Observe(time.Since(started).Seconds())
	return g, nil
}

// sampleHeight опрашивает провайдер высот с изоляцией отказов:
// авария провайдера на одной вершине даёт высоту 0 и не прерывает
// построение тайла.
func (b *Builder) sampleHeight(dir vec.Vec3F) (h float64) {
	defer func() {
		if r := recover(); r != nil {
			sampleFailures.Inc()
			h = 0
		}
	}()
	return b.provider.Sample(dir)
}
