// Package retry реализует ограниченное число повторов с нарастающей задержкой.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy задаёт число попыток и границы задержки.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultPolicy — три попытки, 1с, 2с, но не дольше 5с.
var DefaultPolicy = Policy{Attempts: 3, BaseDelay: time.Second, MaxDelay: 5 * time.Second}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent помечает ошибку как неповторяемую: Do вернёт её сразу.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent сообщает, помечена ли ошибка через Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Delay возвращает задержку перед попыткой attempt (нумерация с 1).
func (p Policy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay * time.Duration(attempt)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do вызывает fn, пока она не вернёт nil, постоянную ошибку или не кончатся попытки.
// Между попытками ждёт Delay, прерываясь по отмене контекста.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(p.Delay(attempt)):
		}
	}
	return lastErr
}
