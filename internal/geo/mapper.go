package geo

import (
	"errors"
	"math"

	"github.com/annel0/planet-lod/internal/vec"
)

// ErrDegenerateDirection возвращается для направлений, которые невозможно
// спроецировать на грань (нулевой вектор, луч параллелен плоскости грани).
var ErrDegenerateDirection = errors.New("вырожденное направление: проекция на грань невозможна")

// DirectionToFaceBary проецирует единичное направление на ближайшую грань
// икосаэдра и возвращает (face, u, v). Грань выбирается линейным проходом
// по максимуму скалярного произведения с центроидом; ничья разрешается
// первым совпадением в фиксированном порядке граней. Гарантируется
// u,v >= 0 и u+v <= 1.
func DirectionToFaceBary(dir vec.Vec3F) (int, float64, float64, error) {
	if dir.Length() < 1e-12 {
		return 0, 0, 0, ErrDegenerateDirection
	}
	d := dir.Normalize()

	best := 0
	bestDot := -2.0
	for i := 0; i < FaceCount; i++ {
		if dot := faces[i].Centroid.Dot(d); dot > bestDot {
			bestDot = dot
			best = i
		}
	}

	f := &faces[best]

	// Пересечение луча из центра сферы с плоскостью грани
	denom := d.Dot(f.Normal)
	if math.Abs(denom) < 1e-12 {
		return 0, 0, 0, ErrDegenerateDirection
	}
	t := f.A.Dot(f.Normal) / denom
	p := d.Scale(t)

	// Барицентрическое решение 2x2 относительно базиса (B-A, C-A)
	v0 := f.B.Sub(f.A)
	v1 := f.C.Sub(f.A)
	v2 := p.Sub(f.A)

	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)

	den := d00*d11 - d01*d01
	if math.Abs(den) < 1e-15 {
		return 0, 0, 0, ErrDegenerateDirection
	}

	u := (d11*d20 - d01*d21) / den
	v := (d00*d21 - d01*d20) / den

	// Численная очистка: точка обязана лежать в треугольной области
	if u < 0 {
		u = 0
	}
	if v < 0 {
		v = 0
	}
	if s := u + v; s > 1 {
		u /= s
		v /= s
	}

	return best, u, v, nil
}

// FaceBaryToDirection возвращает единичное направление для точки
// (u, v) в барицентрическом базисе грани face.
func FaceBaryToDirection(face int, u, v float64) vec.Vec3F {
	f := &faces[face]
	p := f.A.Add(f.B.Sub(f.A).Scale(u)).Add(f.C.Sub(f.A).Scale(v))
	return p.Normalize()
}
