package messaging

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Sink - один канал доставки исходящих сообщений.
type Sink interface {
	Send(ctx context.Context, msg OutboundMessage) error
}

type SinkFunc func(ctx context.Context, msg OutboundMessage) error

func (f SinkFunc) Send(ctx context.Context, msg OutboundMessage) error { return f(ctx, msg) }

// Relay рассылает сообщение во все каналы. Отправка fire-and-forget:
// ошибка канала пишется в лог и не доходит до конвейера.
type Relay struct {
	mu    sync.RWMutex
	sinks []Sink
	log   *zap.Logger
}

func NewRelay(log *zap.Logger, sinks ...Sink) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{sinks: sinks, log: log}
}

func (r *Relay) Add(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

func (r *Relay) Send(ctx context.Context, msg OutboundMessage) {
	r.mu.RLock()
	sinks := append([]Sink(nil), r.sinks...)
	r.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Send(ctx, msg); err != nil {
			r.log.Warn("Сообщение не доставлено",
				zap.String("type", string(msg.Type)),
				zap.String("run_id", msg.RunID),
				zap.Error(err),
			)
		}
	}
}
