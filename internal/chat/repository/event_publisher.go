package repository

import (
	"context"
	"encoding/json"

	"portfolio_chat_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
)

// EventPublisher emits committed message events
type EventPublisher interface {
	PublishMessageEvent(ctx context.Context, evt domain.MessageEvent) error
}

// MessageWriter subset of *kafka.Writer
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type kafkaEventPublisher struct {
	writer MessageWriter
}

// NewKafkaEventPublisher events are keyed by conversation id so one thread stays on one partition
func NewKafkaEventPublisher(writer MessageWriter) EventPublisher {
	return &kafkaEventPublisher{writer: writer}
}

func (p *kafkaEventPublisher) PublishMessageEvent(ctx context.Context, evt domain.MessageEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.ConversationID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	})
}

type nopEventPublisher struct{}

// NewNopEventPublisher used when kafka is not configured
func NewNopEventPublisher() EventPublisher {
	return nopEventPublisher{}
}

func (nopEventPublisher) PublishMessageEvent(context.Context, domain.MessageEvent) error {
	return nil
}
