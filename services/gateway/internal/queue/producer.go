package queue

import (
	"context"
	"fmt"

	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type RunProducer interface {
	Enqueue(ctx context.Context, job *events.RunJob) error
}

type kafkaRunProducer struct {
	writer MessageWriter
}

func NewRunProducer(writer MessageWriter) RunProducer {
	return &kafkaRunProducer{writer: writer}
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            10,
		AllowAutoTopicCreation: true,
	}
}

// Enqueue keys messages by room so runs of one room stay ordered.
func (p *kafkaRunProducer) Enqueue(ctx context.Context, job *events.RunJob) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(job.RoomID),
		Value: job.Marshal(),
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue run %s: %w", job.RunID, err)
	}
	return nil
}
