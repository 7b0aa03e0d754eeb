package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"loyly/pkg/logger"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// HandlerFunc receives the payload when an in-process reminder fires.
type HandlerFunc func(ctx context.Context, payload Payload) error

// LocalScheduler runs reminders inside the API process on a gocron scheduler.
// Jobs do not survive a restart, which is acceptable for development and
// single-node setups; production uses the Kafka backend.
type LocalScheduler struct {
	scheduler gocron.Scheduler
	log       *logger.Logger

	mu      sync.RWMutex
	handler HandlerFunc
}

func NewLocalScheduler(scheduler gocron.Scheduler, log *logger.Logger) *LocalScheduler {
	return &LocalScheduler{
		scheduler: scheduler,
		log:       log,
	}
}

// SetHandler wires the firing callback. Set once during startup, before any
// reminder can fire.
func (s *LocalScheduler) SetHandler(handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

func (s *LocalScheduler) ScheduleAt(_ context.Context, fireAt time.Time, payload Payload) (string, error) {
	if payload.NotificationID == "" {
		payload.NotificationID = uuid.NewString()
	}
	payload.FireAt = fireAt

	job, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(fireAt)),
		gocron.NewTask(s.fire, payload),
	)
	if err != nil {
		return "", fmt.Errorf("failed to schedule reminder job: %w", err)
	}

	s.log.Info("Reminder scheduled locally",
		"job_id", job.ID(), "booking_id", payload.BookingID, "fire_at", fireAt)
	return job.ID().String(), nil
}

func (s *LocalScheduler) Cancel(_ context.Context, handle string) error {
	jobID, err := uuid.Parse(handle)
	if err != nil {
		return fmt.Errorf("invalid reminder handle %q: %w", handle, err)
	}

	if err := s.scheduler.RemoveJob(jobID); err != nil {
		return fmt.Errorf("failed to remove reminder job: %w", err)
	}

	s.log.Info("Reminder cancelled locally", "job_id", handle)
	return nil
}

func (s *LocalScheduler) fire(payload Payload) {
	s.mu.RLock()
	handler := s.handler
	s.mu.RUnlock()

	if handler == nil {
		s.log.Error("Reminder fired with no handler wired", "booking_id", payload.BookingID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := handler(ctx, payload); err != nil {
		s.log.Error("Reminder handler failed",
			"booking_id", payload.BookingID, "notification_id", payload.NotificationID, "error", err)
	}
}
