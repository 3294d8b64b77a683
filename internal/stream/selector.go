package stream

import (
	"math"

	"github.com/annel0/planet-lod/internal/config"
	"github.com/annel0/planet-lod/internal/geo"
	"github.com/annel0/planet-lod/internal/tile"
	"github.com/annel0/planet-lod/internal/vec"
)

// SelectorMode режим отбора видимых тайлов
type SelectorMode int

const (
	// ModeHeuristic адаптивное зондирование лучами со сгущением к силуэту
	ModeHeuristic SelectorMode = iota
	// ModeGeometric чисто сферический отбор по угловому расстоянию до нормалей
	ModeGeometric
)

// ParseSelectorMode разбирает режим из конфигурации
func ParseSelectorMode(s string) SelectorMode {
	if s == "geometric" {
		return ModeGeometric
	}
	return ModeHeuristic
}

// Угловая длина ребра икосаэдра (atan 2); задаёт масштаб тайла глубины 0
const icosaEdgeAngle = 1.1071487177940904

// Selector переводит состояние наблюдателя в целевую глубину и набор
// идентификаторов тайлов, которые должны быть активны на этом тике.
// Не имеет скрытого состояния: одинаковый вход даёт одинаковый выход.
type Selector struct {
	registry *tile.Registry
	radius   float64

	minDistance float64
	maxDistance float64
	depthBias   float64
	maxDepth    int

	mode              SelectorMode
	probeRings        int
	probeSegments     int
	silhouetteBias    float64
	geometricMaxDepth int
}

// NewSelector создаёт отборщик по конфигурации
func NewSelector(registry *tile.Registry, cfg *config.Config) *Selector {
	return &Selector{
		registry:          registry,
		radius:            cfg.Planet.BaseRadius,
		minDistance:       cfg.Planet.MinDistance,
		maxDistance:       cfg.Planet.MaxDistance,
		depthBias:         cfg.Planet.DepthBias,
		maxDepth:          cfg.Planet.MaxDepth,
		mode:              ParseSelectorMode(cfg.Selection.Mode),
		probeRings:        cfg.Selection.ProbeRings,
		probeSegments:     cfg.Selection.ProbeSegments,
		silhouetteBias:    cfg.Selection.SilhouetteBias,
		geometricMaxDepth: cfg.Selection.GeometricMaxDepth,
	}
}

// DepthForDistance отображает дистанцию наблюдателя (от центра сферы)
// в целевую глубину. Функция чистая и монотонная: дальше — глубина 0,
// ближе — maxDepth; история вызовов не влияет на результат.
func (s *Selector) DepthForDistance(distance float64) int {
	t := (distance - s.minDistance) / (s.maxDistance - s.minDistance)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	biased := math.Pow(t, s.depthBias)
	depth := int(math.Floor((1.0 - biased) * float64(s.maxDepth+1)))
	if depth > s.maxDepth {
		depth = s.maxDepth
	}
	if depth < 0 {
		depth = 0
	}
	return depth
}

// Select возвращает целевую глубину и набор кандидатов для наблюдателя
func (s *Selector) Select(viewer vec.Vec3F) (int, map[tile.Identity]struct{}) {
	depth := s.DepthForDistance(viewer.Length())
	return depth, s.SelectAtDepth(viewer, depth)
}

// SelectAtDepth возвращает набор кандидатов для фиксированной глубины.
// На глубине 0 набор всегда принудительно содержит все 20 граней:
// низкодетальная сфера целиком резидентна.
func (s *Selector) SelectAtDepth(viewer vec.Vec3F, depth int) map[tile.Identity]struct{} {
	if depth == 0 {
		candidates := make(map[tile.Identity]struct{}, geo.FaceCount)
		for face := 0; face < geo.FaceCount; face++ {
			candidates[tile.Identity{Face: face, X: 0, Y: 0, Depth: 0}] = struct{}{}
		}
		return candidates
	}

	if s.mode == ModeGeometric && depth <= s.geometricMaxDepth {
		return s.selectGeometric(viewer, depth)
	}
	return s.selectHeuristic(viewer, depth)
}

// selectGeometric отбирает тайлы по угловому расстоянию между направлением
// на наблюдателя и нормалью записи реестра.
func (s *Selector) selectGeometric(viewer vec.Vec3F, depth int) map[tile.Identity]struct{} {
	s.registry.Activate(depth)

	candidates := make(map[tile.Identity]struct{})
	viewerDir := viewer.Normalize()
	threshold := s.angularThreshold(viewer.Length(), depth)

	s.registry.ForEachAtDepth(depth, func(entry tile.RegistryEntry) bool {
		if viewerDir.AngleTo(entry.Normal) <= threshold {
			candidates[entry.ID] = struct{}{}
		}
		return true
	})
	return candidates
}

// angularThreshold возвращает пороговый угол глубины: угол до горизонта
// наблюдателя плюс угловой размер тайла.
func (s *Selector) angularThreshold(distance float64, depth int) float64 {
	ratio := s.radius / distance
	if ratio > 1 {
		ratio = 1
	}
	horizon := math.Acos(ratio)
	margin := icosaEdgeAngle / float64(geo.TilesPerEdge(depth))
	return horizon + margin
}

// selectHeuristic зондирует сферу сеткой лучей, сгущённой к силуэту.
// Чем большую долю поля зрения занимает сфера, тем сильнее лучи
// прижимаются к её краю.
func (s *Selector) selectHeuristic(viewer vec.Vec3F, depth int) map[tile.Identity]struct{} {
	candidates := make(map[tile.Identity]struct{})

	distance := viewer.Length()
	if distance <= s.radius {
		// Наблюдатель внутри сферы: зондирование не определено,
		// берём тайл под ним
		if id, err := tile.IdentityFromDirection(viewer, depth); err == nil {
			candidates[id] = struct{}{}
		}
		return candidates
	}

	// Угловой радиус сферы из точки наблюдателя
	alpha := math.Asin(s.radius / distance)

	axis := viewer.Normalize().Scale(-1) // Ось зондирования: к центру сферы
	ref := vec.Vec3F{X: 1}
	if math.Abs(axis.X) > 0.9 {
		ref = vec.Vec3F{Y: 1}
	}
	t1 := axis.Cross(ref).Normalize()
	t2 := axis.Cross(t1).Normalize()

	s.probe(candidates, viewer, axis, depth)

	for ring := 1; ring <= s.probeRings; ring++ {
		fr := float64(ring) / float64(s.probeRings)
		// Сгущение к силуэту: показатель 1/bias прижимает кольца к краю
		theta := alpha * 0.999 * math.Pow(fr, 1.0/s.silhouetteBias)
		sinT := math.Sin(theta)
		cosT := math.Cos(theta)
		for seg := 0; seg < s.probeSegments; seg++ {
			phi := 2 * math.Pi * float64(seg) / float64(s.probeSegments)
			dir := axis.Scale(cosT).
				Add(t1.Scale(sinT * math.Cos(phi))).
				Add(t2.Scale(sinT * math.Sin(phi)))
			s.probe(candidates, viewer, dir, depth)
		}
	}
	return candidates
}

// probe пересекает луч со сферой и добавляет тайл точки попадания.
// Промах или вырожденный маппинг пропускаются и не прерывают тик.
func (s *Selector) probe(candidates map[tile.Identity]struct{}, origin, dir vec.Vec3F, depth int) {
	b := 2 * origin.Dot(dir)
	c := origin.Dot(origin) - s.radius*s.radius
	disc := b*b - 4*c
	if disc < 0 {
		return
	}
	t := (-b - math.Sqrt(disc)) / 2
	if t <= 0 {
		return
	}
	hit := origin.Add(dir.Scale(t))

	id, err := tile.IdentityFromDirection(hit, depth)
	if err != nil {
		mappingFailures.Inc()
		return
	}
	candidates[id] = struct{}{}
}
