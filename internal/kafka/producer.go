package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/deliverydesk/internal/logging"
	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	EventBookingAssigned  = "booking_assigned"
	EventDocumentReviewed = "document_reviewed"
	EventBookingConfirmed = "booking_confirmed"
	EventPartnerReleased  = "partner_released"
)

type BookingEvent struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	PartnerID  string    `json:"partner_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	DocType    string    `json:"doc_type,omitempty"`
	DocStatus  string    `json:"doc_status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes JSON events to Kafka. A circuit breaker stops hammering an
// unreachable cluster: while open, Publish fails fast with ErrBrokerUnavailable.
type Producer struct {
	brokers []string
	writer  MessageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

var ErrBrokerUnavailable = errors.New("kafka publishing suspended")

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return NewProducerWithWriter(brokers, writer)
}

func NewProducerWithWriter(brokers []string, writer MessageWriter) *Producer {
	settings := gobreaker.Settings{
		Name:        "kafka-producer",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
	return &Producer{
		brokers: brokers,
		writer:  writer,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.writer.WriteMessages(ctx, message)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}
	if err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	logging.Debug().Str("topic", topic).Str("key", key).Msg("published to Kafka")
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker to verify reachability.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		return fmt.Errorf("failed to read brokers: %w", err)
	}
	return nil
}
