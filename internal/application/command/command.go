// Package command contains write operations (CQRS - Commands).
//
// Every handler validates its command, performs the mutation through a single
// atomic repository call, and then announces the stale views. Guarded business
// outcomes (no hearts, practice replays, duplicate events) come back in the
// result, never as errors.
package command

import (
	"context"

	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/pkg/logger"
)

// maxRaceAttempts bounds how often a handler re-runs a conditional update
// whose guard failed while the re-read state says it should have passed.
const maxRaceAttempts = 3

// ErrContention is returned when a conditional update keeps losing races.
var ErrContention = shared.NewDomainError("progress", "Update", shared.ErrServiceUnavailable,
	"too many concurrent updates, try again")

func requireIdentity(identity shared.Identity) error {
	if !identity.UserID.IsValid() {
		return shared.ErrUnauthenticated
	}
	return nil
}

// announce publishes stale views. The mutation is already committed, so a
// failure is logged and never returned to the caller.
func announce(ctx context.Context, inv shared.ViewInvalidator, log *logger.Logger, userID shared.UserID, views ...shared.View) {
	if err := inv.Invalidate(ctx, userID, views...); err != nil {
		log.Warn("view invalidation failed",
			logger.UserID(userID.String()),
			logger.Int("views", len(views)),
			logger.Err(err),
		)
	}
}

func orNop(log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.Nop()
	}
	return log
}

func orNoopInvalidator(inv shared.ViewInvalidator) shared.ViewInvalidator {
	if inv == nil {
		return shared.NoopInvalidator{}
	}
	return inv
}
