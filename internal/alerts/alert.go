// Package alerts carries distress alerts from the AI service to the
// websocket feed the frontend subscribes to.
//
// Alerts travel over a Bus. RedisBus fans them out across processes over a
// Redis pub/sub channel; MemoryBus keeps them in-process. The Hub pumps one
// bus subscription into every connected websocket client.
package alerts

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// TypeDistress is the alert type pushed to clients.
const TypeDistress = "distress_alert"

// ErrBusClosed is returned when publishing to or subscribing on a closed bus.
var ErrBusClosed = errors.New("alert bus closed")

// Scores are the analysis scores that triggered the alert.
type Scores struct {
	Audio float64 `json:"audio"`
	Video float64 `json:"video"`
}

// Alert is one notification sent to feed subscribers.
type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Scores    Scores    `json:"scores"`
	CreatedAt time.Time `json:"created_at"`
}

// New builds a distress alert with a fresh ULID.
func New(scores Scores, now time.Time) Alert {
	return Alert{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Type:      TypeDistress,
		Scores:    scores,
		CreatedAt: now.UTC(),
	}
}

// Publisher sends alerts.
type Publisher interface {
	Publish(ctx context.Context, a Alert) error
}

// Bus is a Publisher that can also be subscribed to.
type Bus interface {
	Publisher
	// Subscribe returns a channel of alerts that is closed when ctx ends.
	Subscribe(ctx context.Context) (<-chan Alert, error)
	Close() error
}
