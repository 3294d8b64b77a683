package main

import (
	"context"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/planet-lod/internal/api"
	"github.com/annel0/planet-lod/internal/config"
	"github.com/annel0/planet-lod/internal/eventbus"
	"github.com/annel0/planet-lod/internal/height"
	"github.com/annel0/planet-lod/internal/logging"
	"github.com/annel0/planet-lod/internal/observability"
	"github.com/annel0/planet-lod/internal/stream"
	"github.com/annel0/planet-lod/internal/vec"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML-конфигу (по умолчанию PLANET_CONFIG или встроенные значения)")
	demo := flag.Bool("demo", false, "демо-режим: наблюдатель по спирали снижается к поверхности")
	tracing := flag.Bool("tracing", false, "включить OTLP-трассировку (endpoint через OTEL_EXPORTER_OTLP_ENDPOINT)")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🪐 Запуск Planet LOD Server...")

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("❌ Ошибка загрузки конфигурации: %v", err)
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	logging.Info("📡 Конфигурация: радиус=%.0f, глубины=0..%d, отбор=%s, видимость=%d Гц",
		cfg.Planet.BaseRadius, cfg.Planet.MaxDepth, cfg.Selection.Mode, cfg.Stream.VisibilityHz)

	// === ТЕЛЕМЕТРИЯ ===
	if *tracing {
		shutdown, err := observability.InitTelemetry(context.Background(), "planet-lod")
		if err != nil {
			logging.Error("Ошибка инициализации телеметрии: %v", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// === ИНИЦИАЛИЗАЦИЯ КОМПОНЕНТОВ ===

	// Шина событий и слушатель-логгер
	bus := eventbus.NewMemoryBus(1024)
	if _, err := eventbus.AttachLoggerListener(context.Background(), bus); err != nil {
		logging.Error("Ошибка подписки слушателя событий: %v", err)
	}

	// Провайдер высот
	provider := makeProvider(cfg)
	logging.Debug("Провайдер высот: %s (seed=%d)", cfg.Terrain.Provider, cfg.Terrain.Seed)

	// Стример тайлов
	streamer := stream.NewStreamer(cfg, provider, bus)

	// Отладочный HTTP-сервер
	debugServer := api.NewDebugServer(streamer, cfg.Server.GetAPIPort())
	if err := debugServer.Start(); err != nil {
		logging.Error("❌ Ошибка запуска отладочного API: %v", err)
		log.Fatalf("❌ Ошибка запуска отладочного API: %v", err)
	}

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 Отладочный API: http://localhost:%d/debug/snapshot", cfg.Server.GetAPIPort())
	logging.Info("   📊 Метрики: http://localhost:%d/metrics", cfg.Server.GetAPIPort())
	logging.Info("   ❤️  Health check: http://localhost:%d/health", cfg.Server.GetAPIPort())

	// === ГЛАВНЫЙ ЦИКЛ ===
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / 60) // хостовый кадр 60 FPS
	defer ticker.Stop()

	start := time.Now()
	running := true
	for running {
		select {
		case now := <-ticker.C:
			if *demo {
				streamer.SetViewer(demoViewer(cfg, now.Sub(start)))
			}
			streamer.Tick(now)
		case sig := <-sigCh:
			logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
			running = false
		}
	}

	// === GRACEFUL SHUTDOWN ===
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := debugServer.Stop(ctx); err != nil {
		logging.Error("❌ Ошибка остановки отладочного API: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}

// makeProvider собирает провайдер высот по конфигурации
func makeProvider(cfg *config.Config) height.Provider {
	t := cfg.Terrain
	switch t.Provider {
	case "value3d":
		return height.NewValueNoise3D(t.Seed, t.Amplitude, t.Frequency)
	case "composite":
		// Крупный перлиновый рельеф плюс мелкая value-шероховатость
		return height.NewComposite().
			Add(height.NewLayeredPerlin(t.Seed, t.Amplitude, t.Frequency), 0.8).
			Add(height.NewValueNoise3D(t.Seed+1, t.Amplitude, t.Frequency*4), 0.2)
	case "flat":
		return height.Flat{}
	default:
		return height.NewLayeredPerlin(t.Seed, t.Amplitude, t.Frequency)
	}
}

// demoViewer ведёт наблюдателя по снижающейся спирали: от максимальной
// дистанции к поверхности и обратно, чтобы прогнать все глубины
func demoViewer(cfg *config.Config, elapsed time.Duration) vec.Vec3F {
	t := elapsed.Seconds()
	// Полный цикл снижения и подъёма за две минуты
	phase := (1 + math.Cos(2*math.Pi*t/120)) / 2
	dist := cfg.Planet.MinDistance + phase*(cfg.Planet.MaxDistance-cfg.Planet.MinDistance)
	angle := t * 0.05
	return vec.Vec3F{
		X: dist * math.Cos(angle),
		Y: dist * 0.2 * math.Sin(angle*0.7),
		Z: dist * math.Sin(angle),
	}
}
