package redisrepo

import "fmt"

const ns = "slotgo:v1"

func KeyEventSummary(eventID string) string {
	return fmt.Sprintf("%s:event:%s:summary", ns, eventID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemBooking(eventID, idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%s:%s", ns, eventID, idemKey)
}

func KeyReconciliation() string {
	return ns + ":reconciliation"
}

func ChannelEventsChanged() string {
	return ns + ":events:changed"
}
