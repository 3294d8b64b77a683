package height

import (
	"github.com/aquilax/go-perlin"

	"github.com/annel0/planet-lod/internal/vec"
)

// LayeredPerlin рельеф на основе многооктавного шума Перлина,
// вычисляемого прямо по 3D-направлению. Координата семпла — точка на
// единичной сфере, умноженная на частоту, поэтому результат не зависит
// ни от глубины тайла, ни от плотности его сетки.
type LayeredPerlin struct {
	noise     *perlin.Perlin
	amplitude float64
	frequency float64
}

// NewLayeredPerlin создаёт провайдер с указанным сидом
func NewLayeredPerlin(seed int64, amplitude, frequency float64) *LayeredPerlin {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота между октавами
	n := int32(3) // Количество октав
	return &LayeredPerlin{
		noise:     perlin.NewPerlin(alpha, beta, n, seed),
		amplitude: amplitude,
		frequency: frequency,
	}
}

// Sample возвращает смещение рельефа в диапазоне [-amplitude, amplitude]
func (p *LayeredPerlin) Sample(dir vec.Vec3F) float64 {
	d := dir.Normalize()
	// Noise3D возвращает значение примерно в [-1, 1]
	v := p.noise.Noise3D(d.X*p.frequency, d.Y*p.frequency, d.Z*p.frequency)
	return v * p.amplitude
}
