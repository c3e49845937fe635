package automation

import (
	"context"
	"time"
)

// Clock отделяет ожидания от реального времени, чтобы поллеры тестировались
// без многоминутных пауз.
type Clock interface {
	Now() time.Time
	// Sleep ждет d или отмены ctx.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
