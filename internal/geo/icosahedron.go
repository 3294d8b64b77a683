package geo

import (
	"math"

	"github.com/annel0/planet-lod/internal/vec"
)

// FaceCount число граней икосаэдра
const FaceCount = 20

// Face описывает одну треугольную грань икосаэдра.
// Вершины лежат на единичной сфере, обход против часовой стрелки
// при взгляде снаружи.
type Face struct {
	A, B, C  vec.Vec3F // Вершины (единичные векторы)
	Centroid vec.Vec3F // Нормированный центроид
	Normal   vec.Vec3F // Внешняя нормаль плоскости грани
}

var faces [FaceCount]Face

func init() {
	phi := (1.0 + math.Sqrt(5.0)) / 2.0

	raw := [12]vec.Vec3F{
		{X: -1, Y: phi, Z: 0},
		{X: 1, Y: phi, Z: 0},
		{X: -1, Y: -phi, Z: 0},
		{X: 1, Y: -phi, Z: 0},
		{X: 0, Y: -1, Z: phi},
		{X: 0, Y: 1, Z: phi},
		{X: 0, Y: -1, Z: -phi},
		{X: 0, Y: 1, Z: -phi},
		{X: phi, Y: 0, Z: -1},
		{X: phi, Y: 0, Z: 1},
		{X: -phi, Y: 0, Z: -1},
		{X: -phi, Y: 0, Z: 1},
	}

	var verts [12]vec.Vec3F
	for i, v := range raw {
		verts[i] = v.Normalize()
	}

	// Порядок граней фиксирован: он определяет детерминированный
	// разрыв ничьих при выборе ближайшей грани.
	indices := [FaceCount][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for i, idx := range indices {
		a, b, c := verts[idx[0]], verts[idx[1]], verts[idx[2]]
		centroid := a.Add(b).Add(c).Scale(1.0 / 3.0)
		normal := b.Sub(a).Cross(c.Sub(a)).Normalize()
		// Нормаль должна смотреть наружу
		if normal.Dot(centroid) < 0 {
			normal = normal.Scale(-1)
		}
		faces[i] = Face{
			A:        a,
			B:        b,
			C:        c,
			Centroid: centroid.Normalize(),
			Normal:   normal,
		}
	}
}

// FaceAt возвращает грань по индексу
func FaceAt(face int) Face {
	return faces[face]
}

// FaceCentroid возвращает нормированный центроид грани
func FaceCentroid(face int) vec.Vec3F {
	return faces[face].Centroid
}
