package bus

import (
	"context"

	"github.com/Jethrr/moodlequest-sub000/internal/realtime"
)

// Bus fans notifications out across service instances. The local hub
// only reaches subscribers on the same process; a bus bridges the rest.
type Bus interface {
	Publish(ctx context.Context, n realtime.Notification) error
	StartForwarder(ctx context.Context, onNotification func(n realtime.Notification)) error
	Close() error
}
