package automation

import (
	"context"
	"time"
)

// fakeClock двигает время только в Sleep. afterSleep позволяет менять
// страницу "через N секунд" без настоящих пауз.
type fakeClock struct {
	now        time.Time
	start      time.Time
	sleeps     []time.Duration
	afterSleep func(elapsed time.Duration)
}

func newFakeClock() *fakeClock {
	t := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return &fakeClock{now: t, start: t}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	if c.afterSleep != nil {
		c.afterSleep(c.elapsed())
	}
	return nil
}

func (c *fakeClock) elapsed() time.Duration { return c.now.Sub(c.start) }

func (c *fakeClock) count(d time.Duration) int {
	n := 0
	for _, s := range c.sleeps {
		if s == d {
			n++
		}
	}
	return n
}

// fastTunables - тайминги по умолчанию, но без пауз между шагами.
func fastTunables() Tunables {
	t := DefaultTunables()
	t.StepDelay = 0
	return t
}
