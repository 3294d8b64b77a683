package height

import (
	"math"

	"github.com/annel0/planet-lod/internal/vec"
)

// ValueNoise3D многооктавный трёхмерный value-noise на целочисленном
// хешировании узлов решётки. Полностью детерминирован для фиксированного
// сида; не имеет состояния между вызовами.
type ValueNoise3D struct {
	seed        int64
	octaves     int
	persistence float64
	lacunarity  float64
	amplitude   float64
	frequency   float64
}

// NewValueNoise3D создаёт провайдер с типовыми параметрами октав
func NewValueNoise3D(seed int64, amplitude, frequency float64) *ValueNoise3D {
	return &ValueNoise3D{
		seed:        seed,
		octaves:     4,
		persistence: 0.5,
		lacunarity:  2.0,
		amplitude:   amplitude,
		frequency:   frequency,
	}
}

// Sample возвращает смещение рельефа в диапазоне [-amplitude, amplitude]
func (p *ValueNoise3D) Sample(dir vec.Vec3F) float64 {
	d := dir.Normalize()
	x := d.X * p.frequency
	y := d.Y * p.frequency
	z := d.Z * p.frequency

	// Октавы в [0,1], нормируем в [-1,1]
	v := octaveNoise3D(x, y, z, p.seed, p.octaves, p.persistence, p.lacunarity)
	return (v*2.0 - 1.0) * p.amplitude
}

// fade сглаживающая функция 6t^5 - 15t^4 + 10t^3
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// hash3 целочисленный хеш в стиле SplitMix64: одинаковые входы дают
// одинаковые узлы решётки между запусками
func hash3(x, y, z int64, seed int64) uint64 {
	v := uint64(x)*0x9E3779B97F4A7C15 + uint64(y)*0x517CC1B727220A95 + uint64(z)*0x6C62272E07BB0142 + uint64(seed)
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	v = v ^ (v >> 31)
	return v
}

func latticeValue3D(x, y, z int64, seed int64) float64 {
	h := hash3(x, y, z, seed)
	return float64(h&0xFFFFFFFF) / float64(0xFFFFFFFF)
}

func valueNoise3D(x, y, z float64, seed int64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	z0 := math.Floor(z)
	x1 := x0 + 1
	y1 := y0 + 1
	z1 := z0 + 1

	fx := fade(x - x0)
	fy := fade(y - y0)
	fz := fade(z - z0)

	// Значения в восьми углах куба
	v000 := latticeValue3D(int64(x0), int64(y0), int64(z0), seed)
	v100 := latticeValue3D(int64(x1), int64(y0), int64(z0), seed)
	v010 := latticeValue3D(int64(x0), int64(y1), int64(z0), seed)
	v110 := latticeValue3D(int64(x1), int64(y1), int64(z0), seed)
	v001 := latticeValue3D(int64(x0), int64(y0), int64(z1), seed)
	v101 := latticeValue3D(int64(x1), int64(y0), int64(z1), seed)
	v011 := latticeValue3D(int64(x0), int64(y1), int64(z1), seed)
	v111 := latticeValue3D(int64(x1), int64(y1), int64(z1), seed)

	// Трилинейная интерполяция
	i00 := lerp(v000, v100, fx)
	i10 := lerp(v010, v110, fx)
	i01 := lerp(v001, v101, fx)
	i11 := lerp(v011, v111, fx)

	i0 := lerp(i00, i10, fy)
	i1 := lerp(i01, i11, fy)

	return lerp(i0, i1, fz) // [0,1]
}

func octaveNoise3D(x, y, z float64, seed int64, octaves int, persistence, lacunarity float64) float64 {
	amplitude := 1.0
	frequency := 1.0
	sum := 0.0
	norm := 0.0
	for i := 0; i < octaves; i++ {
		v := valueNoise3D(x*frequency, y*frequency, z*frequency, seed+int64(i*131))
		sum += v * amplitude
		norm += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	if norm == 0 {
		return 0
	}
	return sum / norm // [0,1]
}
