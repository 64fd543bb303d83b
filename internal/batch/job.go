package batch

import (
	"context"
)

// Job adapts the scheduler to the worker's cron registry.
type Job struct {
	svc Service
}

// NewJob wraps the batch service as a registrable cron job.
func NewJob(svc Service) *Job {
	return &Job{svc: svc}
}

func (j *Job) Name() string {
	return "batch_assignment"
}

func (j *Job) Run(ctx context.Context) error {
	_, err := j.svc.Run(ctx, TriggerTimer)
	return err
}
