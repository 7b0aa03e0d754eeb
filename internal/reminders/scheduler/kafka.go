package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loyly/pkg/kafka"
	"loyly/pkg/logger"

	"github.com/google/uuid"
)

const (
	actionSchedule = "schedule"
	actionCancel   = "cancel"
)

// scheduleEnvelope is the wire shape published to the reminder topic. The
// external job runner consumes these, sleeps until fire_at, and calls the
// notification webhook back.
type scheduleEnvelope struct {
	Action  string  `json:"action"`
	Payload Payload `json:"payload"`
}

type KafkaScheduler struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaScheduler(producer *kafka.Producer, log *logger.Logger) *KafkaScheduler {
	return &KafkaScheduler{
		producer: producer,
		log:      log,
	}
}

func (s *KafkaScheduler) ScheduleAt(ctx context.Context, fireAt time.Time, payload Payload) (string, error) {
	if payload.NotificationID == "" {
		payload.NotificationID = uuid.NewString()
	}
	payload.FireAt = fireAt

	if err := s.publish(ctx, scheduleEnvelope{Action: actionSchedule, Payload: payload}); err != nil {
		return "", err
	}

	s.log.Info("Reminder schedule published",
		"notification_id", payload.NotificationID, "booking_id", payload.BookingID, "fire_at", fireAt)
	return payload.NotificationID, nil
}

func (s *KafkaScheduler) Cancel(ctx context.Context, handle string) error {
	envelope := scheduleEnvelope{
		Action:  actionCancel,
		Payload: Payload{NotificationID: handle},
	}
	if err := s.publish(ctx, envelope); err != nil {
		return err
	}

	s.log.Info("Reminder cancellation published", "notification_id", handle)
	return nil
}

func (s *KafkaScheduler) publish(ctx context.Context, envelope scheduleEnvelope) error {
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode reminder envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   envelope.Payload.NotificationID,
		Value: value,
		Headers: map[string]string{
			kafka.HeaderContentType: "application/json",
		},
		Timestamp: time.Now(),
	}
	if err := s.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish reminder %s: %w", envelope.Action, err)
	}
	return nil
}
