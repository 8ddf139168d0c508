package domain

import (
	"time"
)

type Event struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Venue         string    `json:"venue"`
	StartsAt      time.Time `json:"starts_at"`
	Capacity      int       `json:"capacity"`
	ReservedCount int       `json:"reserved_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewEvent is the input of the event-creation flow. Capacity is fixed
// at creation and never changes afterwards.
type NewEvent struct {
	Title    string    `validate:"required,max=200"`
	Venue    string    `validate:"max=200"`
	StartsAt time.Time `validate:"required"`
	Capacity int       `validate:"gte=1"`
}

type Booking struct {
	ID               string    `json:"id"`
	EventID          string    `json:"event_id"`
	ParticipantEmail string    `json:"participant_email"`
	CreatedAt        time.Time `json:"created_at"`
}

type CapacitySnapshot struct {
	EventID       string `json:"event_id"`
	Capacity      int    `json:"capacity"`
	ReservedCount int    `json:"reserved_count"`
}

func (s CapacitySnapshot) Remaining() int {
	if s.ReservedCount >= s.Capacity {
		return 0
	}
	return s.Capacity - s.ReservedCount
}

// ReserveOutcome is the result of a single conditional increment on the ledger.
type ReserveOutcome int

const (
	// ReserveUnknown is returned alongside an error; the increment may or
	// may not have been applied.
	ReserveUnknown ReserveOutcome = iota
	ReserveReserved
	ReserveFull
	ReserveNotFound
)

func (o ReserveOutcome) String() string {
	switch o {
	case ReserveReserved:
		return "reserved"
	case ReserveFull:
		return "full"
	case ReserveNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// ReconciliationFlag records a reservation whose compensation could not be
// applied: the ledger counts one slot more than there are bookings.
type ReconciliationFlag struct {
	EventID          string    `json:"event_id"`
	AttemptID        string    `json:"attempt_id"`
	ParticipantEmail string    `json:"participant_email"`
	Reason           string    `json:"reason"`
	FlaggedAt        time.Time `json:"flagged_at"`
}
