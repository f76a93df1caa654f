package services

import (
	"context"

	"github.com/Jethrr/moodlequest-sub000/internal/realtime"
	"github.com/Jethrr/moodlequest-sub000/internal/realtime/bus"
)

// Emitter abstracts where a notification goes: the in-process hub for a
// single instance, or the redis bus when instances share subscribers.
type Emitter interface {
	Emit(ctx context.Context, n realtime.Notification) error
}

type HubEmitter struct{ Hub *realtime.Hub }

func (e *HubEmitter) Emit(ctx context.Context, n realtime.Notification) error {
	// Zero live subscribers is a successful send; the message is
	// intentionally dropped, not queued.
	e.Hub.Publish(n)
	return nil
}

type RedisEmitter struct{ Bus bus.Bus }

func (e *RedisEmitter) Emit(ctx context.Context, n realtime.Notification) error {
	return e.Bus.Publish(ctx, n)
}
