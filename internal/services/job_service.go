package services

import (
	"github.com/sjperalta/roimob-api/internal/jobs"
)

type JobService struct {
	worker    *jobs.Worker
	scheduler *jobs.Scheduler
}

func NewJobService(worker *jobs.Worker, scheduler *jobs.Scheduler) *JobService {
	return &JobService{
		worker:    worker,
		scheduler: scheduler,
	}
}

// JobStatus is the worker snapshot plus the cron schedule
type JobStatus struct {
	jobs.WorkerStats
	Schedule []jobs.ScheduledEntry `json:"schedule"`
}

func (s *JobService) GetStatus() JobStatus {
	status := JobStatus{WorkerStats: s.worker.GetStats()}
	if s.scheduler != nil {
		status.Schedule = s.scheduler.Entries()
	}
	return status
}

// Trigger runs a scheduled job now. It returns false for unknown names.
func (s *JobService) Trigger(name string) bool {
	if s.scheduler == nil {
		return false
	}
	return s.scheduler.Trigger(name)
}
