package notify

import (
	"context"
	"encoding/json"
	"time"

	"tag-wallet/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const kafkaWriteTimeout = 5 * time.Second

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter builds an async writer keyed by session id.
func NewKafkaWriter(brokers []string, topic string, log zerolog.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Error().Err(err).Int("messages", len(msgs)).Msg("kafka: async write failed")
			}
		},
	}
}

// KafkaPublisher publishes outcome events as a receipt feed for the back
// office. It is informational only; nothing reconciles against it.
type KafkaPublisher struct {
	w          MessageWriter
	terminalID string
	log        zerolog.Logger
}

// NewKafkaPublisher creates a KafkaPublisher.
func NewKafkaPublisher(w MessageWriter, terminalID string, log zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{w: w, terminalID: terminalID, log: log}
}

// OnTagAccepted implements ports.SessionNotifier.
func (p *KafkaPublisher) OnTagAccepted(ctx context.Context, o *domain.Outcome) {
	p.publish(ctx, AcceptedEvent(p.terminalID, o))
}

// OnTagRejected implements ports.SessionNotifier.
func (p *KafkaPublisher) OnTagRejected(ctx context.Context, r *domain.Rejection) {
	p.publish(ctx, RejectedEvent(p.terminalID, r))
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func (p *KafkaPublisher) publish(ctx context.Context, ev Event) {
	value, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Str("session_id", ev.SessionID).Msg("kafka: failed to marshal event")
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), kafkaWriteTimeout)
	defer cancel()

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.SessionID),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.EventType)},
		},
	})
	if err != nil {
		p.log.Error().Err(err).Str("session_id", ev.SessionID).Msg("kafka: publish failed")
	}
}
