package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Типы событий жизненного цикла тайлов
const (
	EventTileSpawned     = "TileSpawned"
	EventTileReactivated = "TileReactivated"
	EventTileHidden      = "TileHidden"
	EventTileSpawnFailed = "TileSpawnFailed"
)

// TilePayload полезная нагрузка события тайла
type TilePayload struct {
	Face  int    `json:"face"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Depth int    `json:"depth"`
	Error string `json:"error,omitempty"`
}

// NewTileEnvelope собирает конверт события жизненного цикла тайла.
// Ошибки сериализации полезной нагрузки невозможны для TilePayload,
// поэтому конверт возвращается безусловно.
func NewTileEnvelope(source, eventType string, payload TilePayload) *Envelope {
	data, _ := json.Marshal(payload)
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Priority:  1, // Диагностические события — низкий приоритет, допускают дроп
		Payload:   data,
	}
}

// PublishTile публикует событие тайла в шину; nil-шина игнорируется.
func PublishTile(bus EventBus, source, eventType string, payload TilePayload) {
	if bus == nil {
		return
	}
	_ = bus.Publish(context.Background(), NewTileEnvelope(source, eventType, payload))
}
