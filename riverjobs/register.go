package riverjobs

import (
	"fmt"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"
)

// DefaultCron runs the lifecycle daily at 3 AM.
const DefaultCron = "0 3 * * *"

// RegisterProcessLifecycleWorker registers the lifecycle worker into a River workers registry.
func RegisterProcessLifecycleWorker(ws *river.Workers, svc LifecycleRunner) {
	river.AddWorker(ws, NewProcessLifecycleWorker(svc))
}

// ParseSchedule parses a standard five-field cron expression.
func ParseSchedule(cronSpec string) (cron.Schedule, error) {
	if cronSpec == "" {
		cronSpec = DefaultCron
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule '%s': %w", cronSpec, err)
	}
	return schedule, nil
}

// AddProcessLifecyclePeriodicJob adds a periodic job that enqueues the lifecycle run on a cron schedule.
//
// Example cron: "0 3 * * *" (daily at 3 AM).
func AddProcessLifecyclePeriodicJob[T any](client *river.Client[T], cronSpec string, runOnStart bool) error {
	schedule, err := ParseSchedule(cronSpec)
	if err != nil {
		return err
	}
	args := ProcessLifecycleArgs{}
	opts := args.InsertOpts()
	client.PeriodicJobs().Add(
		river.NewPeriodicJob(
			schedule,
			func() (river.JobArgs, *river.InsertOpts) { return args, &opts },
			&river.PeriodicJobOpts{RunOnStart: runOnStart},
		),
	)
	return nil
}
