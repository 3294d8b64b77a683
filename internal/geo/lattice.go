package geo

import (
	"math"

	"github.com/annel0/planet-lod/internal/vec"
)

// Треугольная решётка тайлов внутри грани.
//
// На глубине depth ребро грани делится на n = 2^depth отрезков, что даёт
// ровно n*n треугольных тайлов. Индекс (x, y) с 0 <= x,y < n кодирует оба
// вида треугольников через "свёртку":
//   x+y <= n-1  — верхний (неперевёрнутый) треугольник ячейки (x, y);
//   x+y >= n    — нижний (перевёрнутый) треугольник ячейки (n-1-x, n-1-y).
// Кодировка биективна: каждая пара (x, y) из квадрата n×n соответствует
// ровно одному тайлу грани.

// TilesPerEdge возвращает число тайлов вдоль ребра грани на данной глубине
func TilesPerEdge(depth int) int {
	return 1 << depth
}

// TilesPerFace возвращает общее число тайлов грани на данной глубине (4^depth)
func TilesPerFace(depth int) int {
	n := TilesPerEdge(depth)
	return n * n
}

// IsUpward сообщает, является ли тайл (x, y) верхним треугольником
func IsUpward(x, y, depth int) bool {
	return x+y <= TilesPerEdge(depth)-1
}

// TileIndexFromBary возвращает индекс тайла, содержащего точку (u, v).
// Когда u+v пересекает 1 на уровне ячейки, избыток симметрично
// перераспределяется свёрткой, чтобы индекс остался внутри грани.
func TileIndexFromBary(u, v float64, depth int) vec.Vec2 {
	n := TilesPerEdge(depth)
	su := u * float64(n)
	sv := v * float64(n)

	x := int(math.Floor(su))
	y := int(math.Floor(sv))
	if x < 0 {
		x = 0
	}
	if x > n-1 {
		x = n - 1
	}
	if y < 0 {
		y = 0
	}
	if y > n-1 {
		y = n - 1
	}

	fu := su - float64(x)
	fv := sv - float64(y)

	// Нижний треугольник ячейки существует только при x+y <= n-2;
	// на диагональной ячейке точка с fu+fv > 1 — артефакт округления,
	// остаёмся в верхнем треугольнике.
	if fu+fv > 1.0+1e-12 && x+y <= n-2 {
		return vec.Vec2{X: n - 1 - x, Y: n - 1 - y}
	}
	return vec.Vec2{X: x, Y: y}
}

// CanonicalCenterBary возвращает каноничный центр тайла в барицентрических
// координатах грани. Это единственная реализация центра: отбор видимости и
// построение геометрии обязаны использовать её, иначе тайлы разойдутся по швам.
func CanonicalCenterBary(x, y, depth int) (float64, float64) {
	n := TilesPerEdge(depth)
	fn := float64(n)

	var u, v float64
	if x+y <= n-1 {
		u = (float64(x) + 1.0/3.0) / fn
		v = (float64(y) + 1.0/3.0) / fn
	} else {
		i := n - 1 - x
		j := n - 1 - y
		u = (float64(i) + 2.0/3.0) / fn
		v = (float64(j) + 2.0/3.0) / fn
	}

	// Страховка от округления: центр не должен выпадать за границу грани
	if s := u + v; s > 1.0-1e-9 {
		scale := (1.0 - 1e-9) / s
		u *= scale
		v *= scale
	}
	return u, v
}

// TileCornersBary возвращает три глобальные барицентрические вершины тайла.
// Для верхнего треугольника порядок (прямой угол, +u, +v); для нижнего —
// зеркальный обход вершин ячейки.
func TileCornersBary(x, y, depth int) [3][2]float64 {
	n := TilesPerEdge(depth)
	fn := float64(n)

	if x+y <= n-1 {
		return [3][2]float64{
			{float64(x) / fn, float64(y) / fn},
			{float64(x+1) / fn, float64(y) / fn},
			{float64(x) / fn, float64(y+1) / fn},
		}
	}

	i := n - 1 - x
	j := n - 1 - y
	return [3][2]float64{
		{float64(i+1) / fn, float64(j) / fn},
		{float64(i+1) / fn, float64(j+1) / fn},
		{float64(i) / fn, float64(j+1) / fn},
	}
}
