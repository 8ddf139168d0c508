package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kirinyoku/slotgo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingMessage(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	b := domain.Booking{ID: "b-1", EventID: "e-1", ParticipantEmail: "a@x.com", CreatedAt: now}

	msg, err := bookingMessage(b, now)
	require.NoError(t, err)

	assert.Equal(t, "e-1", string(msg.Key))
	assert.Equal(t, now, msg.Time)

	var got BookingConfirmed
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "b-1", got.BookingID)
	assert.Equal(t, "a@x.com", got.ParticipantEmail)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, EventBookingConfirmed, headers[HeaderEventType])
	assert.Equal(t, source, headers[HeaderSource])
	assert.NotEmpty(t, headers[HeaderMessageID])
}

func TestNewProducer_Validates(t *testing.T) {
	_, err := NewProducer(Config{Topic: "bookings"}, nil)
	assert.Error(t, err)

	_, err = NewProducer(Config{Brokers: []string{"localhost:9092"}}, nil)
	assert.Error(t, err)
}

func TestProducer_ClosedRejectsPublish(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}, Topic: "bookings"}, nil)
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	err = p.PublishBookingConfirmed(context.Background(), domain.Booking{ID: "b", EventID: "e"})
	assert.ErrorIs(t, err, ErrProducerClosed)
}
