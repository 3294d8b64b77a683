package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	Planet    PlanetConfig    `yaml:"planet"`
	Terrain   TerrainConfig   `yaml:"terrain"`
	Selection SelectionConfig `yaml:"selection"`
	Stream    StreamConfig    `yaml:"stream"`
	Server    ServerConfig    `yaml:"server"`
}

// PlanetConfig описывает геометрию планеты и диапазон дистанций наблюдателя
type PlanetConfig struct {
	BaseRadius     float64 `yaml:"base_radius"`     // Радиус сферы без рельефа
	MaxDepth       int     `yaml:"max_depth"`       // Максимальная глубина подразбиения
	DepthBias      float64 `yaml:"depth_bias"`      // Экспонента кривой дистанция -> глубина
	BaseResolution int     `yaml:"base_resolution"` // Число сегментов ребра тайла на глубине 0
	MinDistance    float64 `yaml:"min_distance"`    // Минимальная дистанция наблюдателя (от центра)
	MaxDistance    float64 `yaml:"max_distance"`    // Максимальная дистанция наблюдателя (от центра)
}

// TerrainConfig выбирает и настраивает провайдер высот.
// Выбор провайдера — конфигурационное решение, не runtime-проверка типов.
type TerrainConfig struct {
	Provider  string  `yaml:"provider"` // perlin | value3d | composite | flat
	Seed      int64   `yaml:"seed"`
	Amplitude float64 `yaml:"amplitude"` // Максимальное смещение рельефа
	Frequency float64 `yaml:"frequency"` // Частота шума по направлению
}

// SelectionConfig настраивает отбор видимых тайлов
type SelectionConfig struct {
	Mode              string  `yaml:"mode"`                // heuristic | geometric
	ProbeRings        int     `yaml:"probe_rings"`         // Кольца зондирующих лучей
	ProbeSegments     int     `yaml:"probe_segments"`      // Лучей на кольцо
	SilhouetteBias    float64 `yaml:"silhouette_bias"`     // Смещение плотности лучей к силуэту
	GeometricMaxDepth int     `yaml:"geometric_max_depth"` // Потолок глубины для геометрического отбора
}

// StreamConfig настраивает жизненный цикл тайлов и планировщик
type StreamConfig struct {
	MaxSpawnsPerSlice int  `yaml:"max_spawns_per_slice"` // Бюджет построений на один срез
	VisibilityHz      int  `yaml:"visibility_hz"`        // Частота тика видимости
	CompactHidden     bool `yaml:"compact_hidden"`       // Сжимать геометрию скрытых тайлов
	MaxResidentDepths int  `yaml:"max_resident_depths"`  // Лимит глубин в реестре (0 = без лимита)
}

// ServerConfig настраивает диагностический HTTP-интерфейс
type ServerConfig struct {
	APIPort int  `yaml:"api_port"`
	Metrics bool `yaml:"metrics"`
}

// GetAPIPort возвращает порт API с приоритетом: config -> env -> default
func (s *ServerConfig) GetAPIPort() int {
	return getPortWithEnvFallback(s.APIPort, "PLANET_API_PORT", 8088)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults заполняет нулевые поля значениями по умолчанию
func (c *Config) ApplyDefaults() {
	if c.Planet.BaseRadius <= 0 {
		c.Planet.BaseRadius = 1000.0
	}
	if c.Planet.MaxDepth <= 0 {
		c.Planet.MaxDepth = 4
	}
	if c.Planet.DepthBias <= 0 {
		c.Planet.DepthBias = 1.2
	}
	if c.Planet.BaseResolution <= 0 {
		c.Planet.BaseResolution = 8
	}
	if c.Planet.MinDistance <= 0 {
		c.Planet.MinDistance = c.Planet.BaseRadius * 1.01
	}
	if c.Planet.MaxDistance <= 0 {
		c.Planet.MaxDistance = c.Planet.BaseRadius * 5.0
	}
	if c.Terrain.Provider == "" {
		c.Terrain.Provider = "perlin"
	}
	if c.Terrain.Seed == 0 {
		c.Terrain.Seed = 1337
	}
	if c.Terrain.Amplitude <= 0 {
		c.Terrain.Amplitude = c.Planet.BaseRadius * 0.02
	}
	if c.Terrain.Frequency <= 0 {
		c.Terrain.Frequency = 3.0
	}
	if c.Selection.Mode == "" {
		c.Selection.Mode = "heuristic"
	}
	if c.Selection.ProbeRings <= 0 {
		c.Selection.ProbeRings = 8
	}
	if c.Selection.ProbeSegments <= 0 {
		c.Selection.ProbeSegments = 16
	}
	if c.Selection.SilhouetteBias <= 0 {
		c.Selection.SilhouetteBias = 2.0
	}
	if c.Selection.GeometricMaxDepth <= 0 {
		c.Selection.GeometricMaxDepth = 2
	}
	if c.Stream.MaxSpawnsPerSlice <= 0 {
		c.Stream.MaxSpawnsPerSlice = 4
	}
	if c.Stream.VisibilityHz <= 0 {
		c.Stream.VisibilityHz = 30
	}
	if c.Stream.MaxResidentDepths < 0 {
		c.Stream.MaxResidentDepths = 0
	}
}

// Validate проверяет согласованность параметров
func (c *Config) Validate() error {
	if c.Planet.MaxDistance <= c.Planet.MinDistance {
		return fmt.Errorf("max_distance (%f) должен превышать min_distance (%f)",
			c.Planet.MaxDistance, c.Planet.MinDistance)
	}
	if c.Planet.MinDistance < c.Planet.BaseRadius {
		return fmt.Errorf("min_distance (%f) внутри сферы радиуса %f",
			c.Planet.MinDistance, c.Planet.BaseRadius)
	}
	switch c.Terrain.Provider {
	case "perlin", "value3d", "composite", "flat":
	default:
		return fmt.Errorf("неизвестный провайдер высот: %q", c.Terrain.Provider)
	}
	switch c.Selection.Mode {
	case "heuristic", "geometric":
	default:
		return fmt.Errorf("неизвестный режим отбора: %q", c.Selection.Mode)
	}
	return nil
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV PLANET_CONFIG; при отсутствии
// возвращает конфигурацию по умолчанию.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("PLANET_CONFIG")
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
