package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/planet-lod/internal/config"
	"github.com/annel0/planet-lod/internal/height"
	"github.com/annel0/planet-lod/internal/vec"
)

func newTestStreamer(mutate func(*config.Config)) *Streamer {
	cfg := testConfig()
	cfg.Stream.MaxSpawnsPerSlice = 4
	cfg.Stream.VisibilityHz = 30
	if mutate != nil {
		mutate(cfg)
	}
	return NewStreamer(cfg, height.Flat{}, nil)
}

// drain прогоняет срезы планировщика до полного вычерпывания очереди
func drain(s *Streamer) {
	for s.sched.QueueLen() > 0 {
		s.SchedulerSlice()
	}
}

func TestStreamerFarViewerFullSphere(t *testing.T) {
	s := newTestStreamer(nil)
	s.SetViewer(vec.Vec3F{X: 5000})

	s.VisibilityTick()
	assert.Equal(t, 0, s.TargetDepth(), "на максимальной дистанции глубина 0")

	// Бюджет 4: сфера набирается по 4 тайла за срез
	s.SchedulerSlice()
	assert.Equal(t, 4, s.cache.ActiveCount())

	drain(s)
	assert.Equal(t, 20, s.cache.ActiveCount(), "все 20 граней глубины 0 активны")
	assert.Len(t, s.GetActiveTileHandles(), 20)
}

func TestStreamerBeforeFirstVisibilityTick(t *testing.T) {
	s := newTestStreamer(nil)

	// До первого тика видимости срез — no-op, активных тайлов нет
	s.SchedulerSlice()
	assert.Equal(t, 0, s.cache.ActiveCount())
	assert.Nil(t, s.GetActiveTileHandles())
}

func TestStreamerTickCadence(t *testing.T) {
	s := newTestStreamer(nil)
	s.SetViewer(vec.Vec3F{X: 5000})

	base := time.Now()
	s.Tick(base)
	require.Equal(t, 0, s.TargetDepth())
	queuedAfterFirst := s.sched.QueueLen()
	assert.Equal(t, 16, queuedAfterFirst, "первый тик: 20 кандидатов минус бюджет 4")

	// Кадр раньше интервала видимости не заказывает новых кандидатов,
	// но тратит бюджет планировщика
	s.Tick(base.Add(5 * time.Millisecond))
	assert.Equal(t, 12, s.sched.QueueLen())

	// Кадр после интервала снова запускает тик видимости (набор тот же)
	s.Tick(base.Add(40 * time.Millisecond))
	assert.Equal(t, 8, s.sched.QueueLen())
}

func TestStreamerDepthOverride(t *testing.T) {
	s := newTestStreamer(nil)
	s.SetViewer(vec.Vec3F{X: 5000})

	s.SetTargetDepth(2)
	s.VisibilityTick()
	assert.Equal(t, 2, s.TargetDepth())
	drain(s)
	for _, h := range s.GetActiveTileHandles() {
		assert.Equal(t, 2, h.ID.Depth)
	}

	// Переопределение зажимается диапазоном глубин
	s.SetTargetDepth(99)
	s.VisibilityTick()
	assert.Equal(t, 4, s.TargetDepth())

	s.ClearDepthOverride()
	s.VisibilityTick()
	assert.Equal(t, 0, s.TargetDepth(), "после сброса глубина снова от дистанции")
}

func TestStreamerDepthChangePrunesQueue(t *testing.T) {
	s := newTestStreamer(func(cfg *config.Config) {
		cfg.Stream.MaxSpawnsPerSlice = 1
	})
	s.SetViewer(vec.Vec3F{X: 5000})

	s.SetTargetDepth(2)
	s.VisibilityTick()
	require.Greater(t, s.sched.QueueLen(), 0)

	// Смена глубины отбрасывает устаревшие заявки до новых
	s.SetTargetDepth(1)
	s.VisibilityTick()
	snapshot := s.DebugSnapshot()
	for _, h := range s.GetActiveTileHandles() {
		assert.Equal(t, 1, h.ID.Depth)
	}
	assert.Equal(t, 1, snapshot.TargetDepth)

	drain(s)
	for _, h := range s.GetActiveTileHandles() {
		assert.Equal(t, 1, h.ID.Depth)
	}
}

func TestStreamerSnapshot(t *testing.T) {
	s := newTestStreamer(nil)
	s.SetViewer(vec.Vec3F{X: 5000})
	s.VisibilityTick()
	drain(s)

	snap := s.DebugSnapshot()
	assert.Equal(t, 0, snap.TargetDepth)
	assert.False(t, snap.DepthOverride)
	assert.InDelta(t, 5000.0, snap.ViewerDistance, 1e-9)
	assert.Equal(t, 0, snap.QueueLength)
	assert.Equal(t, 20, snap.HandleCount)
	assert.Equal(t, 20, snap.ActiveHandles)
	assert.Equal(t, []int{0}, snap.ActivatedDepths)
}

func TestStreamerDepthRoundTripReuse(t *testing.T) {
	s := newTestStreamer(nil)

	// Далеко: глубина 0
	s.SetViewer(vec.Vec3F{X: 5000})
	s.VisibilityTick()
	drain(s)
	before := make(map[string]bool)
	for _, h := range s.GetActiveTileHandles() {
		before[h.InstanceID.String()] = true
	}
	require.Len(t, before, 20)

	// Близко: высокая глубина, тайлы глубины 0 скрыты
	s.SetViewer(vec.Vec3F{X: 1010})
	s.VisibilityTick()
	drain(s)
	assert.Equal(t, 4, s.TargetDepth())

	// Возврат: те же экземпляры глубины 0
	s.SetViewer(vec.Vec3F{X: 5000})
	s.VisibilityTick()
	drain(s)
	handles := s.GetActiveTileHandles()
	require.Len(t, handles, 20)
	for _, h := range handles {
		assert.True(t, before[h.InstanceID.String()],
			"тайл %s не переиспользован", h.ID)
	}
}
