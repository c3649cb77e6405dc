package messaging

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/learnhub/learnhub-engine/internal/domain/shared"
)

// Middleware wraps handler execution.
type Middleware func(shared.EventHandler) shared.EventHandler

// RecoveryMiddleware turns a handler panic into an ErrHandlerPanic error.
// InMemoryEventBus always installs it innermost.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic recovered",
						"event_type", event.EventType(),
						"panic", r,
						"stack", string(debug.Stack()),
					)
					err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs every handler run at debug level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			logger.Debug("handler finished",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"duration", time.Since(start),
				"ok", err == nil,
			)
			return err
		}
	}
}

// TimeoutMiddleware stops waiting for a handler after timeout. The handler
// goroutine is not cancelled; its result is discarded.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			done := make(chan error, 1)
			go func() {
				done <- next(event)
			}()

			timer := time.NewTimer(timeout)
			defer timer.Stop()

			select {
			case err := <-done:
				return err
			case <-timer.C:
				return fmt.Errorf("%w after %v", ErrHandlerTimeout, timeout)
			}
		}
	}
}
