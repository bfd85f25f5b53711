package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fitrackhq/fitrack/internal/telemetry/tracing"

	"github.com/segmentio/kafka-go"
)

// EnrollmentCompleted is emitted when a user finishes a workout program.
// Downstream consumers trigger templated notifications; this service only
// emits the event.
type EnrollmentCompleted struct {
	UserID      string    `json:"userId"`
	WorkoutID   int       `json:"workoutId"`
	WorkoutName string    `json:"workoutName"`
	CompletedAt time.Time `json:"completedAt"`
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaPublisher) PublishEnrollmentCompleted(ctx context.Context, event EnrollmentCompleted) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "events.publish.enrollmentcompleted")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID),
		Value: value,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when kafka is disabled via config.
type NoopPublisher struct{}

func (NoopPublisher) PublishEnrollmentCompleted(context.Context, EnrollmentCompleted) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
