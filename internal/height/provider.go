package height

import "github.com/annel0/planet-lod/internal/vec"

// Provider вычисляет смещение рельефа для единичного направления.
//
// Контракт: функция чистая и детерминированная; результат зависит только
// от направления. Глубина подразбиения и плотность сетки тайла не должны
// влиять на высоту — иначе рельеф "плывёт" при смене LOD.
type Provider interface {
	Sample(dir vec.Vec3F) float64
}

// Func адаптирует функцию к интерфейсу Provider (удобно в тестах)
type Func func(dir vec.Vec3F) float64

// Sample вызывает функцию
func (f Func) Sample(dir vec.Vec3F) float64 {
	return f(dir)
}

// Flat нулевой рельеф (идеальная сфера)
type Flat struct{}

// Sample всегда возвращает 0
func (Flat) Sample(vec.Vec3F) float64 {
	return 0
}

// Composite взвешенная сумма нескольких провайдеров.
// Состав фиксируется при конструировании — выбор слоёв рельефа
// является конфигурационным решением.
type Composite struct {
	parts []weightedProvider
}

type weightedProvider struct {
	provider Provider
	weight   float64
}

// NewComposite создаёт пустой составной провайдер
func NewComposite() *Composite {
	return &Composite{}
}

// Add добавляет слой с весом и возвращает составной провайдер для цепочки вызовов
func (c *Composite) Add(p Provider, weight float64) *Composite {
	c.parts = append(c.parts, weightedProvider{provider: p, weight: weight})
	return c
}

// Sample возвращает взвешенную сумму слоёв
func (c *Composite) Sample(dir vec.Vec3F) float64 {
	sum := 0.0
	for _, part := range c.parts {
		sum += part.provider.Sample(dir) * part.weight
	}
	return sum
}
