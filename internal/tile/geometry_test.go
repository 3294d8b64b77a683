package tile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/planet-lod/internal/height"
	"github.com/annel0/planet-lod/internal/vec"
)

func TestBuildVertexAndIndexCounts(t *testing.T) {
	r := NewRegistry(1000.0)
	r.Activate(1)
	b := NewBuilder(r, height.Flat{})

	for _, res := range []int{1, 2, 4, 8, 16} {
		g, err := b.Build(Identity{Face: 0, X: 0, Y: 0, Depth: 1}, res)
		require.NoError(t, err)

		wantVerts := (res + 1) * (res + 2) / 2
		assert.Equal(t, wantVerts, len(g.Vertices), "разрешение %d: вершины", res)
		assert.Equal(t, wantVerts, len(g.Normals), "разрешение %d: нормали", res)
		assert.Equal(t, wantVerts, len(g.UVs), "разрешение %d: UV", res)
		assert.Equal(t, 3*res*res, len(g.Indices), "разрешение %d: индексы", res)
	}
}

func TestBuildRequiresActivatedDepth(t *testing.T) {
	r := NewRegistry(1000.0)
	r.Activate(0)
	b := NewBuilder(r, height.Flat{})

	_, err := b.Build(Identity{Face: 0, X: 0, Y: 0, Depth: 2}, 4)
	assert.Error(t, err, "построение без активированной глубины обязано падать")
}

func TestBuildRejectsBadResolution(t *testing.T) {
	r := NewRegistry(1000.0)
	r.Activate(0)
	b := NewBuilder(r, height.Flat{})

	_, err := b.Build(Identity{Depth: 0}, 0)
	assert.Error(t, err)
}

func TestBuildFlatVerticesOnSphere(t *testing.T) {
	radius := 800.0
	r := NewRegistry(radius)
	r.Activate(2)
	b := NewBuilder(r, height.Flat{})

	id := Identity{Face: 7, X: 2, Y: 1, Depth: 2}
	g, err := b.Build(id, 6)
	require.NoError(t, err)

	// При нулевом рельефе мировая позиция каждой вершины лежит на сфере
	for i, local := range g.Vertices {
		world := g.CenterWorld.Add(local)
		assert.InDelta(t, radius, world.Length(), 1e-9, "вершина %d", i)
	}
}

func TestBuildHeightsIndependentOfResolution(t *testing.T) {
	// Общая вершина тайла обязана иметь одну высоту при любом разрешении:
	// высота зависит только от направления
	r := NewRegistry(1000.0)
	r.Activate(1)
	provider := height.Func(func(d vec.Vec3F) float64 {
		return 40 * math.Sin(3*d.X) * math.Cos(2*d.Y+d.Z)
	})
	b := NewBuilder(r, provider)

	id := Identity{Face: 4, X: 0, Y: 1, Depth: 1}
	g4, err := b.Build(id, 4)
	require.NoError(t, err)
	g8, err := b.Build(id, 8)
	require.NoError(t, err)

	// Углы треугольника присутствуют в обеих сетках:
	// ряд 0 начинается с i=0, заканчивается i=r; вершина j=r одна
	cornersOf := func(g *Geometry, res int) [3]vec.Vec3F {
		offset := func(j int) int { return j*(res+1) - j*(j-1)/2 }
		return [3]vec.Vec3F{
			g.CenterWorld.Add(g.Vertices[0]),
			g.CenterWorld.Add(g.Vertices[res]),
			g.CenterWorld.Add(g.Vertices[offset(res)]),
		}
	}

	c4 := cornersOf(g4, 4)
	c8 := cornersOf(g8, 8)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 0.0, c4[i].DistanceTo(c8[i]), 1e-9,
			"угол %d разошёлся между разрешениями", i)
	}
}

func TestBuildDeterministic(t *testing.T) {
	r := NewRegistry(1000.0)
	r.Activate(1)
	b := NewBuilder(r, height.NewValueNoise3D(1337, 50, 3))

	id := Identity{Face: 10, X: 1, Y: 1, Depth: 1}
	g1, err := b.Build(id, 8)
	require.NoError(t, err)
	g2, err := b.Build(id, 8)
	require.NoError(t, err)

	require.Equal(t, len(g1.Vertices), len(g2.Vertices))
	for i := range g1.Vertices {
		assert.Equal(t, g1.Vertices[i], g2.Vertices[i], "вершина %d", i)
	}
	assert.Equal(t, g1.Indices, g2.Indices)
}

func TestBuildSurvivesProviderPanic(t *testing.T) {
	r := NewRegistry(1000.0)
	r.Activate(0)

	calls := 0
	provider := height.Func(func(d vec.Vec3F) float64 {
		calls++
		if calls == 3 {
			panic("сбой провайдера")
		}
		return 10
	})
	b := NewBuilder(r, provider)

	g, err := b.Build(Identity{Depth: 0}, 2)
	require.NoError(t, err, "паника на одной вершине не должна срывать построение")

	// Аварийная вершина получает высоту 0, остальные — 10
	radius := 1000.0
	onSphere := 0
	lifted := 0
	for _, local := range g.Vertices {
		world := g.CenterWorld.Add(local)
		switch {
		case math.Abs(world.Length()-radius) < 1e-9:
			onSphere++
		case math.Abs(world.Length()-(radius+10)) < 1e-9:
			lifted++
		}
	}
	assert.Equal(t, 1, onSphere, "ровно одна вершина должна остаться на базовой сфере")
	assert.Equal(t, len(g.Vertices)-1, lifted)
}

func TestBuildIndicesInRange(t *testing.T) {
	r := NewRegistry(1000.0)
	r.Activate(1)
	b := NewBuilder(r, height.Flat{})

	// Оба вида треугольников: верхний (0,0) и свёрнутый нижний (1,1)
	for _, id := range []Identity{
		{Face: 0, X: 0, Y: 0, Depth: 1},
		{Face: 0, X: 1, Y: 1, Depth: 1},
	} {
		g, err := b.Build(id, 5)
		require.NoError(t, err)
		for _, idx := range g.Indices {
			assert.Less(t, int(idx), len(g.Vertices), "%s: индекс вне буфера", id)
		}
	}
}

func TestBuildWindingConsistent(t *testing.T) {
	// Нормали треугольников должны смотреть наружу от сферы для обоих
	// видов тайлов
	r := NewRegistry(1000.0)
	r.Activate(1)
	b := NewBuilder(r, height.Flat{})

	for _, id := range []Identity{
		{Face: 2, X: 0, Y: 1, Depth: 1},
		{Face: 2, X: 1, Y: 1, Depth: 1},
	} {
		g, err := b.Build(id, 4)
		require.NoError(t, err)

		for tri := 0; tri < len(g.Indices); tri += 3 {
			a := g.CenterWorld.Add(g.Vertices[g.Indices[tri]])
			bb := g.CenterWorld.Add(g.Vertices[g.Indices[tri+1]])
			cc := g.CenterWorld.Add(g.Vertices[g.Indices[tri+2]])
			n := bb.Sub(a).Cross(cc.Sub(a))
			center := a.Add(bb).Add(cc).Scale(1.0 / 3.0)
			assert.Greater(t, n.Dot(center), 0.0,
				"%s: треугольник %d ориентирован внутрь", id, tri/3)
		}
	}
}
