package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/slotgo/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

const (
	EventBookingConfirmed = "booking.confirmed"

	HeaderEventType = "event-type"
	HeaderMessageID = "message-id"
	HeaderSource    = "source"

	source = "slotgo"
)

var ErrProducerClosed = errors.New("producer is closed")

type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	MaxAttempts  int
}

// BookingConfirmed is the payload of a booking.confirmed message.
type BookingConfirmed struct {
	BookingID        string    `json:"booking_id"`
	EventID          string    `json:"event_id"`
	ParticipantEmail string    `json:"participant_email"`
	CreatedAt        time.Time `json:"created_at"`
}

// Producer publishes booking notifications keyed by event ID, so the
// messages of one event stay ordered within a partition.
type Producer struct {
	writer *kafka.Writer
	mu     sync.RWMutex
	closed bool
}

func NewProducer(cfg Config, logger *slog.Logger) (*Producer, error) {
	const op = "kafka.NewProducer"

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%s: at least one broker is required", op)
	}

	if cfg.Topic == "" {
		return nil, fmt.Errorf("%s: topic cannot be empty", op)
	}

	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	if logger == nil {
		logger = slog.Default()
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Compression:            compress.Snappy,
		MaxAttempts:            cfg.MaxAttempts,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			logger.Error(fmt.Sprintf(msg, args...), slog.String("component", "kafka"))
		}),
	}

	return &Producer{writer: w}, nil
}

// PublishBookingConfirmed writes one booking.confirmed message.
func (p *Producer) PublishBookingConfirmed(ctx context.Context, b domain.Booking) error {
	const op = "kafka.Producer.PublishBookingConfirmed"

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return fmt.Errorf("%s:%w", op, ErrProducerClosed)
	}

	msg, err := bookingMessage(b, time.Now())
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	return p.writer.Close()
}

func bookingMessage(b domain.Booking, now time.Time) (kafka.Message, error) {
	value, err := json.Marshal(BookingConfirmed{
		BookingID:        b.ID,
		EventID:          b.EventID,
		ParticipantEmail: b.ParticipantEmail,
		CreatedAt:        b.CreatedAt,
	})
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Key:   []byte(b.EventID),
		Value: value,
		Time:  now,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(EventBookingConfirmed)},
			{Key: HeaderMessageID, Value: []byte(uuid.NewString())},
			{Key: HeaderSource, Value: []byte(source)},
		},
	}, nil
}
