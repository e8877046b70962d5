package redis

import "fmt"

const ns = "concertix:v1"

func KeyConcertSummary(concertID int64) string {
	return fmt.Sprintf("%s:concert:%d:summary", ns, concertID)
}

func KeyConcertAvailability(concertID int64) string {
	return fmt.Sprintf("%s:concert:%d:availability", ns, concertID)
}

func KeyConcertSeatMap(concertID int64) string {
	return fmt.Sprintf("%s:concert:%d:seatmap", ns, concertID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

// KeyIdemReserve scopes an Idempotency-Key to one user and concert.
func KeyIdemReserve(concertID, userID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:reserve:%d:%d:%s", ns, concertID, userID, idemKey)
}

func ChannelConcertsChanged() string {
	return ns + ":concerts:changed"
}
