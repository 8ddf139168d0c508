package httpgin

import (
	"time"

	"github.com/kirinyoku/slotgo/internal/domain"
)

type CreateBookingRequest struct {
	ParticipantEmail string `json:"participant_email"`
}

// BookingResponse is the body of every booking submission answer. Status
// is one of confirmed, full, duplicate, not_found, invalid, unavailable.
type BookingResponse struct {
	Status    string `json:"status"`
	BookingID string `json:"booking_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type CreateEventRequest struct {
	Title    string `json:"title"`
	Venue    string `json:"venue"`
	StartsAt string `json:"starts_at"`
	Capacity int    `json:"capacity"`
}

type CreateEventResponse struct {
	EventID string `json:"event_id"`
}

type AvailabilityResponse struct {
	EventID       string `json:"event_id"`
	Capacity      int    `json:"capacity"`
	ReservedCount int    `json:"reserved_count"`
	Remaining     int    `json:"remaining"`
}

func newAvailabilityResponse(s domain.CapacitySnapshot) AvailabilityResponse {
	return AvailabilityResponse{
		EventID:       s.EventID,
		Capacity:      s.Capacity,
		ReservedCount: s.ReservedCount,
		Remaining:     s.Remaining(),
	}
}

type ListEventsResponse struct {
	Events []domain.Event `json:"events"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type ReconciliationResponse struct {
	Flags []domain.ReconciliationFlag `json:"flags"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
