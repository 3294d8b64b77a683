package tile

import (
	"fmt"

	"github.com/annel0/planet-lod/internal/geo"
	"github.com/annel0/planet-lod/internal/vec"
)

// Identity неизменяемый идентификатор тайла: грань икосаэдра, индекс в
// треугольной решётке грани и глубина подразбиения. Сравнивается по
// значению и используется как ключ карт.
type Identity struct {
	Face  int
	X     int
	Y     int
	Depth int
}

// Valid проверяет, что идентификатор лежит в допустимых диапазонах
func (id Identity) Valid() bool {
	if id.Face < 0 || id.Face >= geo.FaceCount {
		return false
	}
	if id.Depth < 0 {
		return false
	}
	n := geo.TilesPerEdge(id.Depth)
	return id.X >= 0 && id.X < n && id.Y >= 0 && id.Y < n
}

// String возвращает краткое представление для логов
func (id Identity) String() string {
	return fmt.Sprintf("tile(f=%d x=%d y=%d d=%d)", id.Face, id.X, id.Y, id.Depth)
}

// CenterBary возвращает каноничный барицентрический центр тайла
func (id Identity) CenterBary() (float64, float64) {
	return geo.CanonicalCenterBary(id.X, id.Y, id.Depth)
}

// CenterDirection возвращает единичное направление на центр тайла
func (id Identity) CenterDirection() vec.Vec3F {
	u, v := id.CenterBary()
	return geo.FaceBaryToDirection(id.Face, u, v)
}

// CornerDirections возвращает единичные направления на вершины тайла
func (id Identity) CornerDirections() [3]vec.Vec3F {
	corners := geo.TileCornersBary(id.X, id.Y, id.Depth)
	var dirs [3]vec.Vec3F
	for i, c := range corners {
		dirs[i] = geo.FaceBaryToDirection(id.Face, c[0], c[1])
	}
	return dirs
}

// IdentityFromDirection возвращает идентификатор тайла, содержащего
// направление dir на указанной глубине.
func IdentityFromDirection(dir vec.Vec3F, depth int) (Identity, error) {
	face, u, v, err := geo.DirectionToFaceBary(dir)
	if err != nil {
		return Identity{}, err
	}
	idx := geo.TileIndexFromBary(u, v, depth)
	return Identity{Face: face, X: idx.X, Y: idx.Y, Depth: depth}, nil
}
