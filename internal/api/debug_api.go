package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/planet-lod/internal/logging"
	"github.com/annel0/planet-lod/internal/middleware"
	"github.com/annel0/planet-lod/internal/observability"
	"github.com/annel0/planet-lod/internal/stream"
)

// DebugServer представляет отладочный HTTP-сервер подсистемы стриминга.
// Это диагностическая поверхность, не поверхность рендеринга: состояние
// тайлов читается только через снимки стримера.
type DebugServer struct {
	router   *gin.Engine
	streamer *stream.Streamer
	stats    *observability.ProcessStats
	server   *http.Server
	port     int
}

// NewDebugServer создает новый отладочный сервер
func NewDebugServer(streamer *stream.Streamer, port int) *DebugServer {
	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	loggerMw := middleware.NewRequestLogger()
	router.Use(loggerMw.Handler())

	router.Use(otelgin.Middleware("debug_api"))

	promMw := middleware.NewPrometheusMiddleware("debug_api")
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	ds := &DebugServer{
		router:   router,
		streamer: streamer,
		stats:    observability.NewProcessStats(),
		port:     port,
	}

	ds.setupRoutes()
	return ds
}

// setupRoutes настраивает маршруты отладочного API
func (ds *DebugServer) setupRoutes() {
	debug := ds.router.Group("/debug")
	{
		debug.GET("/snapshot", ds.handleSnapshot)
		debug.GET("/status", ds.handleStatus)
		debug.GET("/tiles", ds.handleTiles)
	}

	// Health check
	ds.router.GET("/health", ds.handleHealth)
}

// handleSnapshot возвращает снимок состояния стримера
func (ds *DebugServer) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, ds.streamer.DebugSnapshot())
}

// handleStatus возвращает метрики процесса: аптайм, память, CPU
func (ds *DebugServer) handleStatus(c *gin.Context) {
	cpuPct, err := ds.stats.GetCPUUsage()
	if err != nil {
		cpuPct = 0
	}
	c.JSON(http.StatusOK, gin.H{
		"uptime":     ds.stats.GetUptime(),
		"memory_mb":  ds.stats.GetMemoryUsage(),
		"cpu_pct":    cpuPct,
		"mem_detail": ds.stats.GetDetailedMemoryStats(),
	})
}

// handleTiles возвращает список активных тайлов текущей глубины
func (ds *DebugServer) handleTiles(c *gin.Context) {
	handles := ds.streamer.GetActiveTileHandles()
	tiles := make([]gin.H, 0, len(handles))
	for _, h := range handles {
		id := h.ID
		tiles = append(tiles, gin.H{
			"instance": h.InstanceID.String(),
			"face":     id.Face,
			"x":        id.X,
			"y":        id.Y,
			"depth":    id.Depth,
			"geometry": h.HasGeometry(),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(tiles),
		"tiles": tiles,
	})
}

// handleHealth проверка работоспособности сервера
func (ds *DebugServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Start запускает сервер в отдельной горутине
func (ds *DebugServer) Start() error {
	ds.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", ds.port),
		Handler: ds.router,
	}

	go func() {
		if err := ds.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Ошибка отладочного сервера: %v", err)
		}
	}()

	return nil
}

// Stop останавливает сервер с таймаутом
func (ds *DebugServer) Stop(ctx context.Context) error {
	if ds.server == nil {
		return nil
	}
	return ds.server.Shutdown(ctx)
}
