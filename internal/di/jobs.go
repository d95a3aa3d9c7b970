package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/markowitz/internal/clientdata"
	"github.com/aristath/markowitz/internal/scheduler"
)

// Job schedules (cron with seconds)
const (
	ScheduleClientDataCleanup = "0 0 3 * * *"
	ScheduleCheckWAL          = "0 */30 * * * *"
	ScheduleCheckDatabases    = "0 30 3 * * *"
)

// RegisterJobs creates the cache maintenance jobs and registers them with a
// new scheduler. Without a cache database there is nothing to maintain.
func RegisterJobs(container *Container, log zerolog.Logger) (*JobInstances, error) {
	container.Scheduler = scheduler.New(log)
	jobs := &JobInstances{}

	if container.CacheDB == nil {
		return jobs, nil
	}

	jobs.ClientDataCleanup = clientdata.NewCleanupJob(container.ClientDataRepo, log)
	jobs.CheckWAL = scheduler.NewCheckWALCheckpointsJob(log, container.CacheDB)
	jobs.CheckDatabases = scheduler.NewCheckDatabasesJob(log, container.CacheDB)

	registrations := []struct {
		schedule string
		job      scheduler.Job
	}{
		{ScheduleClientDataCleanup, jobs.ClientDataCleanup},
		{ScheduleCheckWAL, jobs.CheckWAL},
		{ScheduleCheckDatabases, jobs.CheckDatabases},
	}
	for _, reg := range registrations {
		if err := container.Scheduler.AddJob(reg.schedule, reg.job); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", reg.job.Name(), err)
		}
	}

	return jobs, nil
}
