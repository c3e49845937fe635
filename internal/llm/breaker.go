package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"flowAgent/internal/prompt"
)

var ErrCircuitOpen = errors.New("refiner временно отключен после серии ошибок")

type circuitState int

const (
	stateClosed circuitState = iota
	stateOpen
	stateHalfOpen
)

// Breaker отключает уточнение промптов после maxFailures ошибок подряд на
// resetTimeout. Пока цепь разомкнута, Builder сразу берет шаблонный черновик
// вместо ожидания таймаута модели.
type Breaker struct {
	next         prompt.Refiner
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time
	log          *zap.Logger

	mu          sync.Mutex
	state       circuitState
	failures    int
	lastFailure time.Time
}

func NewBreaker(next prompt.Refiner, maxFailures int, resetTimeout time.Duration, log *zap.Logger) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	if resetTimeout <= 0 {
		resetTimeout = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Breaker{
		next:         next,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
		log:          log,
	}
}

func (b *Breaker) Refine(ctx context.Context, kind prompt.Kind, draft string) (string, error) {
	if !b.allow() {
		return "", ErrCircuitOpen
	}
	out, err := b.next.Refine(ctx, kind, draft)
	b.record(err)
	return out, err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != stateOpen {
		return true
	}
	if b.now().Sub(b.lastFailure) < b.resetTimeout {
		return false
	}
	b.state = stateHalfOpen
	return true
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state == stateHalfOpen {
			b.log.Info("Refiner снова доступен")
		}
		b.state = stateClosed
		b.failures = 0
		return
	}
	// отмена запуска - не отказ модели
	if errors.Is(err, context.Canceled) {
		return
	}

	b.failures++
	b.lastFailure = b.now()
	if b.state == stateHalfOpen || b.failures >= b.maxFailures {
		if b.state != stateOpen {
			b.log.Warn("Refiner отключен", zap.Int("failures", b.failures), zap.Duration("for", b.resetTimeout))
		}
		b.state = stateOpen
	}
}
