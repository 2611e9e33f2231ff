package middleware

import (
	"context"
	"log/slog"

	"github.com/liftoffhq/outreach"
)

// Timeout returns middleware that enforces a per-action deadline.
// If the action has a non-zero Timeout, a context.WithTimeout wraps the
// handler call. When the deadline is exceeded the context is cancelled
// and the handler should return context.DeadlineExceeded.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, a *outreach.Action, next Handler) error {
		if a.Timeout > 0 {
			logger.Debug("action timeout set",
				slog.String("action", a.Name),
				slog.Duration("timeout", a.Timeout),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.Timeout)
			defer cancel()
		}
		return next(ctx)
	}
}
