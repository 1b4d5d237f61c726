package outbound

import (
	"time"

	"go-scoreboard-sse/internal/domain"
)

const (
	GameCreated = "game_created"
	GameUpdated = "game_updated"
	GameDeleted = "game_deleted"
)

// GameEventPayload is the payload of every game event. Game is omitted on delete.
type GameEventPayload struct {
	GameID    string       `json:"gameId"`
	Game      *domain.Game `json:"game,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// EventPublisher fans a change notification out to every connected client. It must
// not block the caller and never reports delivery failures.
type EventPublisher interface {
	Notify(kind string, payload any)
}
