package geo

import (
	"testing"

	"github.com/annel0/planet-lod/internal/vec"
)

func TestTilesPerFace(t *testing.T) {
	cases := []struct {
		depth int
		want  int
	}{
		{0, 1}, {1, 4}, {2, 16}, {3, 64}, {4, 256},
	}
	for _, c := range cases {
		if got := TilesPerFace(c.depth); got != c.want {
			t.Errorf("Глубина %d: ожидалось %d тайлов, получено %d", c.depth, c.want, got)
		}
	}
}

func TestTileIndexBijective(t *testing.T) {
	// Каждая пара (x, y) квадрата n×n должна быть достижима: центры тайлов
	// обязаны отображаться обратно в собственный индекс
	for depth := 0; depth <= 4; depth++ {
		n := TilesPerEdge(depth)
		seen := make(map[vec.Vec2]bool)
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				u, v := CanonicalCenterBary(x, y, depth)
				idx := TileIndexFromBary(u, v, depth)
				if idx.X != x || idx.Y != y {
					t.Errorf("Глубина %d: центр тайла (%d,%d) отобразился в (%d,%d)", depth, x, y, idx.X, idx.Y)
				}
				if seen[idx] {
					t.Errorf("Глубина %d: индекс (%d,%d) встречен дважды", depth, idx.X, idx.Y)
				}
				seen[idx] = true
			}
		}
		if len(seen) != n*n {
			t.Errorf("Глубина %d: ожидалось %d уникальных индексов, получено %d", depth, n*n, len(seen))
		}
	}
}

func TestCanonicalCenterInsideFace(t *testing.T) {
	for depth := 0; depth <= 4; depth++ {
		n := TilesPerEdge(depth)
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				u, v := CanonicalCenterBary(x, y, depth)
				if u < 0 || v < 0 || u+v >= 1 {
					t.Errorf("Глубина %d, тайл (%d,%d): центр (%.9f, %.9f) вне грани", depth, x, y, u, v)
				}
			}
		}
	}
}

func TestCanonicalCenterInsideOwnTile(t *testing.T) {
	// Центр должен лежать внутри треугольника своего тайла, а не на границе
	for depth := 1; depth <= 3; depth++ {
		n := TilesPerEdge(depth)
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				u, v := CanonicalCenterBary(x, y, depth)
				corners := TileCornersBary(x, y, depth)
				if !pointInTriangle(u, v, corners) {
					t.Errorf("Глубина %d, тайл (%d,%d): центр (%.6f, %.6f) вне вершин %v", depth, x, y, u, v, corners)
				}
			}
		}
	}
}

func TestIsUpward(t *testing.T) {
	if !IsUpward(0, 0, 0) {
		t.Error("Единственный тайл глубины 0 должен быть верхним")
	}
	// Глубина 1: (0,0) верхний, (1,1) — свёрнутый нижний ячейки (0,0)
	if !IsUpward(0, 0, 1) || !IsUpward(1, 0, 1) || !IsUpward(0, 1, 1) {
		t.Error("Тайлы с x+y <= n-1 должны быть верхними")
	}
	if IsUpward(1, 1, 1) {
		t.Error("Тайл (1,1) глубины 1 должен быть нижним")
	}
}

func TestTileIndexFoldBoundary(t *testing.T) {
	// Точка в нижнем треугольнике ячейки (0,0) на глубине 1: su+sv > 1
	idx := TileIndexFromBary(0.4, 0.4, 1)
	if idx.X != 1 || idx.Y != 1 {
		t.Errorf("Точка (0.4, 0.4) глубины 1: ожидался индекс (1,1), получен (%d,%d)", idx.X, idx.Y)
	}
	// Верхний треугольник той же ячейки
	idx = TileIndexFromBary(0.2, 0.2, 1)
	if idx.X != 0 || idx.Y != 0 {
		t.Errorf("Точка (0.2, 0.2) глубины 1: ожидался индекс (0,0), получен (%d,%d)", idx.X, idx.Y)
	}
}

// pointInTriangle проверяет принадлежность (u, v) треугольнику по знакам
// рёберных произведений в 2D
func pointInTriangle(u, v float64, tri [3][2]float64) bool {
	sign := func(ax, ay, bx, by, px, py float64) float64 {
		return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
	}
	d1 := sign(tri[0][0], tri[0][1], tri[1][0], tri[1][1], u, v)
	d2 := sign(tri[1][0], tri[1][1], tri[2][0], tri[2][1], u, v)
	d3 := sign(tri[2][0], tri[2][1], tri[0][0], tri[0][1], u, v)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}
