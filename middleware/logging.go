package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/liftoffhq/outreach"
)

// Logging returns middleware that logs action start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, a *outreach.Action, next Handler) error {
		logger.Info("action started",
			slog.String("action", a.Name),
			slog.String("provider", a.Provider),
			slog.String("lead_id", a.LeadID.String()),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("action failed",
				slog.String("action", a.Name),
				slog.String("provider", a.Provider),
				slog.String("lead_id", a.LeadID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("action completed",
				slog.String("action", a.Name),
				slog.String("provider", a.Provider),
				slog.String("lead_id", a.LeadID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
