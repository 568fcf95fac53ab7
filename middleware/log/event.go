package logger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// OutcomePanic is reported to observers when an event handler panics.
const OutcomePanic = "panic"

// EventFunc processes one gateway event and returns an outcome label.
type EventFunc func(ctx context.Context) (outcome string, err error)

// EventObserver receives the outcome of every wrapped event.
type EventObserver func(kind, outcome string, elapsed time.Duration)

// WrapEvent turns fn into a job that tags ctx with a fresh trace id, recovers
// panics and logs the outcome. observe may be nil.
func (l *Logger) WrapEvent(kind string, observe EventObserver, fn EventFunc) func(ctx context.Context) {
	return func(ctx context.Context) {
		ctx = WithTraceID(ctx, "")
		start := time.Now()
		log := l.ForContext(ctx).WithFields(zap.String("event", kind))

		defer func() {
			if r := recover(); r != nil {
				log.Error("event handler panicked",
					zap.String("panic", fmt.Sprint(r)),
					zap.Duration("elapsed", time.Since(start)),
				)
				if observe != nil {
					observe(kind, OutcomePanic, time.Since(start))
				}
			}
		}()

		outcome, err := fn(ctx)
		elapsed := time.Since(start)
		if err != nil {
			log.Error("event handling failed",
				zap.String("outcome", outcome),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
		} else {
			log.Info("event handled",
				zap.String("outcome", outcome),
				zap.Duration("elapsed", elapsed),
			)
		}
		if observe != nil {
			observe(kind, outcome, elapsed)
		}
	}
}
