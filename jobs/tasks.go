package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mirathi/mirathi/internal/observability"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStatuteSweep flips claims whose limitation period has run.
	TaskStatuteSweep = "debts:statute_sweep"
)

// StatuteSweepPayload carries the reference date for the limitation sweep.
// A zero AsOf means "now at execution time".
type StatuteSweepPayload struct {
	AsOf time.Time `json:"asOf,omitempty"`
}

// NewStatuteSweepTask constructs an Asynq task.
func NewStatuteSweepTask(payload StatuteSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatuteSweep, data), nil
}

// DebtSweeper walks payable claims and bars the expired ones.
type DebtSweeper interface {
	SweepStatuteBarred(ctx context.Context, asOf time.Time) (int, error)
}

// CacheInvalidator drops cached calculation results after claim state moves.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// NewStatuteSweepHandler builds the Asynq handler for the nightly sweep.
// Barring a claim changes settlement outcomes, so a sweep that flips anything
// also invalidates the calculation cache.
func NewStatuteSweepHandler(sweeper DebtSweeper, invalidator CacheInvalidator, metrics *observability.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload StatuteSweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		asOf := payload.AsOf
		if asOf.IsZero() {
			asOf = time.Now()
		}

		barred, err := sweeper.SweepStatuteBarred(ctx, asOf)
		if err != nil {
			logger.Error("statute sweep failed", slog.Any("error", err))
			return err
		}
		metrics.AddStatuteBarred(barred)
		logger.Info("statute sweep completed",
			slog.Time("as_of", asOf),
			slog.Int("barred", barred))

		if barred > 0 && invalidator != nil {
			if err := invalidator.Invalidate(ctx); err != nil {
				logger.Warn("invalidate calculation cache after sweep", slog.Any("error", err))
			}
		}
		return nil
	}
}
