package queue

import (
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

// PeriodicScheduler enqueues the recurring resync-all task on a cron
// schedule.
type PeriodicScheduler struct {
	scheduler *asynq.Scheduler
}

// NewPeriodicScheduler creates a scheduler that enqueues a resync of every
// subscription on the given cron spec (e.g. "@every 1h").
func NewPeriodicScheduler(redisURL, cronspec string) (*PeriodicScheduler, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	scheduler := asynq.NewScheduler(redisOpt, nil)

	task := asynq.NewTask(TypeResyncAll, nil)
	entryID, err := scheduler.Register(cronspec, task, asynq.Queue(QueueDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to register periodic resync: %w", err)
	}

	log.Printf("[Scheduler] Registered periodic resync: spec=%s, entry=%s", cronspec, entryID)

	return &PeriodicScheduler{scheduler: scheduler}, nil
}

// Run starts the scheduler and blocks until shutdown
func (p *PeriodicScheduler) Run() error {
	return p.scheduler.Run()
}

// Shutdown stops the scheduler
func (p *PeriodicScheduler) Shutdown() {
	p.scheduler.Shutdown()
}
