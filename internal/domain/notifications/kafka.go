package notifications

import (
	"context"
	"encoding/json"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the dispatcher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type KafkaDispatcher struct {
	writer MessageWriter
	topic  string
}

func NewKafkaWriter(brokers []string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// ParseBrokers splits a comma separated broker list.
func ParseBrokers(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func NewKafkaDispatcher(writer MessageWriter, topic string) *KafkaDispatcher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaDispatcher{writer: writer, topic: topic}
}

func (d *KafkaDispatcher) Deliver(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	key := n.EmployeeID
	if key == "" {
		key = n.ID
	}
	return d.writer.WriteMessages(ctx, kafkago.Message{
		Topic: d.topic,
		Key:   []byte(key),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(n.Kind)},
			{Key: "aggregate_type", Value: []byte("payroll")},
		},
	})
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}
