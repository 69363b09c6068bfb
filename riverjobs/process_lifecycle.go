package riverjobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PaulFidika/signuplifecycle/core"
	"github.com/riverqueue/river"
	log "github.com/sirupsen/logrus"
)

// ErrIncompleteRun is returned when at least one suspension or deletion could
// not be verified; River then retries the whole run.
var ErrIncompleteRun = errors.New("signuplifecycle: lifecycle run incomplete")

type ProcessLifecycleArgs struct{}

func (ProcessLifecycleArgs) Kind() string { return "signuplifecycle_process_lifecycle" }

func (ProcessLifecycleArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 5,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: time.Hour,
			ByQueue:  true,
		},
	}
}

// LifecycleRunner is the slice of core.Service the worker needs.
type LifecycleRunner interface {
	ProcessLifecycle(ctx context.Context) (core.BatchResult, error)
}

// ProcessLifecycleWorker runs one suspend/delete pass per job.
type ProcessLifecycleWorker struct {
	river.WorkerDefaults[ProcessLifecycleArgs]
	svc LifecycleRunner
}

func NewProcessLifecycleWorker(svc LifecycleRunner) *ProcessLifecycleWorker {
	return &ProcessLifecycleWorker{svc: svc}
}

func (w *ProcessLifecycleWorker) Timeout(*river.Job[ProcessLifecycleArgs]) time.Duration {
	return 30 * time.Minute
}

func (w *ProcessLifecycleWorker) Work(ctx context.Context, job *river.Job[ProcessLifecycleArgs]) error {
	if w == nil || w.svc == nil {
		return errors.New("signuplifecycle: service not configured")
	}
	res, err := w.svc.ProcessLifecycle(ctx)
	if errors.Is(err, core.ErrRunInProgress) {
		return river.JobSnooze(time.Minute)
	}
	if err != nil {
		return err
	}
	if !res.AllSucceeded {
		log.WithFields(log.Fields{
			"job_id":  job.ID,
			"attempt": job.Attempt,
			"failed":  res.Failed,
		}).Warn("lifecycle run incomplete; scheduling retry")
		return fmt.Errorf("%w: %d action(s) failed", ErrIncompleteRun, res.Failed)
	}
	return nil
}
