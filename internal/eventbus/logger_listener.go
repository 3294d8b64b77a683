package eventbus

import (
	"context"

	"github.com/annel0/planet-lod/internal/logging"
)

// AttachLoggerListener подписывает логирующий обработчик на события тайлов.
// Используется демонстрационным бинарником; возвращает подписку для отписки.
func AttachLoggerListener(ctx context.Context, bus EventBus) (Subscription, error) {
	filter := Filter{Types: []string{
		EventTileSpawned,
		EventTileReactivated,
		EventTileHidden,
		EventTileSpawnFailed,
	}}

	return bus.Subscribe(ctx, filter, func(ctx context.Context, ev *Envelope) {
		if ev.EventType == EventTileSpawnFailed {
			logging.Warn("Событие %s от %s: %s", ev.EventType, ev.Source, string(ev.Payload))
			return
		}
		logging.Trace("Событие %s от %s: %s", ev.EventType, ev.Source, string(ev.Payload))
	})
}
