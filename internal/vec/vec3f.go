package vec

import "math"

// Vec3F представляет трехмерный вектор с плавающими координатами.
// Используется для направлений на сфере и мировых позиций.
type Vec3F struct {
	X float64
	Y float64
	Z float64
}

// Add складывает два вектора
func (v Vec3F) Add(other Vec3F) Vec3F {
	return Vec3F{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub вычитает другой вектор
func (v Vec3F) Sub(other Vec3F) Vec3F {
	return Vec3F{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale умножает вектор на скаляр
func (v Vec3F) Scale(s float64) Vec3F {
	return Vec3F{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot возвращает скалярное произведение
func (v Vec3F) Dot(other Vec3F) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross возвращает векторное произведение
func (v Vec3F) Cross(other Vec3F) Vec3F {
	return Vec3F{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// Length возвращает длину вектора
func (v Vec3F) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize возвращает единичный вектор того же направления.
// Для нулевого вектора возвращает нулевой вектор.
func (v Vec3F) Normalize() Vec3F {
	l := v.Length()
	if l < 1e-15 {
		return Vec3F{}
	}
	return Vec3F{X: v.X / l, Y: v.Y / l, Z: v.Z / l}
}

// DistanceTo возвращает расстояние до другой точки
func (v Vec3F) DistanceTo(other Vec3F) float64 {
	return v.Sub(other).Length()
}

// AngleTo возвращает угол (в радианах) между направлениями v и other.
// Оба вектора должны быть ненулевыми.
func (v Vec3F) AngleTo(other Vec3F) float64 {
	d := v.Normalize().Dot(other.Normalize())
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	return math.Acos(d)
}
