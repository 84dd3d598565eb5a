package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/observability"
	"github.com/tbourn/llm-chat-backend/internal/repo"
)

// Executor performs one run of a task and returns the chat it produced.
type Executor interface {
	Execute(ctx context.Context, task domain.ScheduledTask) (chatID string, err error)
}

// Runner polls for due tasks and executes them with bounded parallelism.
// Claims are compare-and-set on next_run_at, so several runners may poll the
// same database without running a task twice.
type Runner struct {
	DB          *gorm.DB
	Exec        Executor
	Interval    time.Duration
	Concurrency int
	BatchSize   int
	Log         zerolog.Logger

	// Now is overridable in tests.
	Now func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// Run polls until ctx is cancelled. It always returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	r.Log.Info().Dur("interval", interval).Int("concurrency", r.Concurrency).Msg("scheduler started")

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if n, err := r.Tick(ctx); err != nil {
			r.Log.Error().Err(err).Msg("scheduler tick failed")
		} else if n > 0 {
			r.Log.Debug().Int("runs", n).Msg("scheduler tick")
		}
		select {
		case <-ctx.Done():
			r.Log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Tick claims every due task of one batch and runs the claimed ones. It
// returns the number of runs started. Individual task failures are recorded
// in task history and do not fail the tick.
func (r *Runner) Tick(ctx context.Context) (int, error) {
	now := r.now()
	limit := r.BatchSize
	if limit <= 0 {
		limit = 20
	}
	due, err := repo.DueTasks(ctx, r.DB, now, limit)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Concurrency, 1))

	started := 0
	for i := range due {
		task := due[i]
		if task.NextRunAt == nil {
			continue
		}
		next, nerr := NextAfterRun(&task, now)
		ok, err := repo.ClaimTask(ctx, r.DB, task.ID, *task.NextRunAt, next, now)
		if err != nil {
			_ = g.Wait()
			return started, err
		}
		if !ok {
			continue
		}
		started++
		g.Go(func() error {
			r.run(gctx, task, now, nerr)
			return nil
		})
	}
	return started, g.Wait()
}

// run executes one claimed task between a "running" and a final history row.
// A non-nil schedErr means the schedule became unusable; ClaimTask has
// already deactivated the task and only the failure is recorded.
func (r *Runner) run(ctx context.Context, task domain.ScheduledTask, startedAt time.Time, schedErr error) {
	log := r.Log.With().Str("task_id", task.ID).Str("user_id", task.UserID).Logger()

	h, err := repo.StartTaskHistory(ctx, r.DB, task.ID, task.UserID, startedAt)
	if err != nil {
		log.Error().Err(err).Msg("task history insert failed")
		return
	}

	chatID, runErr := "", schedErr
	if runErr == nil {
		chatID, runErr = r.Exec.Execute(ctx, task)
	}

	status, msg := domain.TaskSucceeded, ""
	if runErr != nil {
		status, msg = domain.TaskFailed, runErr.Error()
		log.Warn().Err(runErr).Msg("scheduled task failed")
	}
	var cid *string
	if chatID != "" {
		cid = &chatID
	}
	// The outcome is recorded even when shutdown cancelled the run.
	if err := repo.FinishTaskHistory(context.WithoutCancel(ctx), r.DB, h.ID, status, cid, msg, r.now()); err != nil {
		log.Error().Err(err).Msg("task history update failed")
	}
	observability.ObserveTaskRun(status)
}
