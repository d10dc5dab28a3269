package repository

import (
	"context"
	"errors"
	"time"
)

// ErrRetriesExhausted возвращается, когда политика ограничивает число попыток и все они исчерпаны.
var ErrRetriesExhausted = errors.New("retries exhausted")

// SleepFunc приостанавливает выполнение на d или до отмены ctx.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy - правило повторов запросов к реестру.
// MaxAttempts == 0 означает бесконечные повторы.
type RetryPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	Sleep       SleepFunc
}

// MinRetryInterval - нижняя граница паузы между повторами.
const MinRetryInterval = time.Second

// NewRetryPolicy создает политику бесконечных повторов с фиксированной паузой не меньше MinRetryInterval.
func NewRetryPolicy(interval time.Duration) RetryPolicy {
	if interval < MinRetryInterval {
		interval = MinRetryInterval
	}
	return RetryPolicy{Interval: interval, Sleep: SleepContext}
}

// exhausted сообщает, что попытка attempt была последней разрешенной.
func (p RetryPolicy) exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

// wait выдерживает паузу перед повтором.
func (p RetryPolicy) wait(ctx context.Context) error {
	return p.pause(ctx, p.Interval)
}

func (p RetryPolicy) pause(ctx context.Context, d time.Duration) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	return sleep(ctx, d)
}

// SleepContext ждет d, но прерывается при отмене ctx.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
